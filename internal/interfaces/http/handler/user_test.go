package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_List(t *testing.T) {
	app := newTestApp(t)
	_, token := app.seedUser(t, "jane@example.com", identity.RoleUser)
	_, adminToken := app.seedUser(t, "admin@example.com", identity.RoleAdmin)
	app.seedUser(t, "bob@example.com", identity.RoleUser)

	w := app.do(t, http.MethodGet, "/api/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodGet, "/api/admin/users?page=1&limit=2", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := body(t, w)
	assert.Len(t, resp["users"], 2)
	meta := resp["meta"].(map[string]any)
	assert.Equal(t, float64(3), meta["total"])
	assert.Equal(t, float64(2), meta["total_pages"])

	w = app.do(t, http.MethodGet, "/api/admin/users?role=admin", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := body(t, w)["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "admin@example.com", users[0].(map[string]any)["email"])

	w = app.do(t, http.MethodGet, "/api/admin/users?role=owner", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorOf(t, w).Code)
}

func TestUserHandler_ChangeRoleAndStatus(t *testing.T) {
	app := newTestApp(t)
	user, _ := app.seedUser(t, "jane@example.com", identity.RoleUser)
	_, adminToken := app.seedUser(t, "admin@example.com", identity.RoleAdmin)
	path := "/api/admin/users/" + user.ID.String()

	w := app.do(t, http.MethodPut, path+"/role", adminToken, map[string]any{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "admin", body(t, w)["user"].(map[string]any)["role"])

	w = app.do(t, http.MethodPut, path+"/role", adminToken, map[string]any{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorOf(t, w).Code)

	w = app.do(t, http.MethodPut, path+"/status", adminToken, map[string]any{"status": "suspended"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "suspended", body(t, w)["user"].(map[string]any)["status"])

	w = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "jane@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodPut, "/api/admin/users/"+uuid.NewString()+"/status", adminToken, map[string]any{"status": "active"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", errorOf(t, w).Message)
}

func TestUserHandler_Update(t *testing.T) {
	app := newTestApp(t)
	user, _ := app.seedUser(t, "jane@example.com", identity.RoleUser)
	_, adminToken := app.seedUser(t, "admin@example.com", identity.RoleAdmin)
	path := "/api/admin/users/" + user.ID.String()

	w := app.do(t, http.MethodPut, path, adminToken, map[string]any{
		"name":  "Jane Smith",
		"email": "jane.smith@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := body(t, w)["user"].(map[string]any)
	assert.Equal(t, "Jane Smith", updated["name"])
	assert.Equal(t, "jane.smith@example.com", updated["email"])

	w = app.do(t, http.MethodPut, path, adminToken, map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPut, "/api/admin/users/bogus", adminToken, map[string]any{"name": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
