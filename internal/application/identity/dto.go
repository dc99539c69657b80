package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// RegisterRequest is a new account signup
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest carries login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LabeledAddressInput is one address book entry in a profile update
type LabeledAddressInput struct {
	Label     string                 `json:"label"`
	Address   valueobject.AddressDTO `json:"address"`
	IsDefault bool                   `json:"isDefault"`
}

// UpdateProfileRequest is a self-service profile change
type UpdateProfileRequest struct {
	Name      *string                 `json:"name" binding:"omitempty,max=50"`
	Phone     *string                 `json:"phone" binding:"omitempty,max=50"`
	Address   *valueobject.AddressDTO `json:"address"`
	Addresses []LabeledAddressInput   `json:"addresses" binding:"omitempty,dive"`
}

// VerifyEmailRequest confirms an email address
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
}

// VerifyPhoneRequest confirms a phone number
type VerifyPhoneRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

// SetPasswordRequest replaces the caller's password
type SetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// CompleteSetupRequest converts a guest-provisioned account
type CompleteSetupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// AdminUserQuery represents the admin user listing query string
type AdminUserQuery struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Q      string `form:"q"`
	Role   string `form:"role" binding:"omitempty,oneof=user admin"`
	Status string `form:"status" binding:"omitempty,oneof=active suspended"`
}

// ChangeRoleRequest sets a user's role
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

// ChangeStatusRequest sets a user's status
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active suspended"`
}

// AdminUpdateUserRequest overwrites account fields
type AdminUpdateUserRequest struct {
	Name    string                  `json:"name" binding:"omitempty,max=50"`
	Email   string                  `json:"email" binding:"omitempty,email"`
	Phone   string                  `json:"phone" binding:"omitempty,max=50"`
	Address *valueobject.AddressDTO `json:"address"`
}

// LabeledAddressResponse is one address book entry
type LabeledAddressResponse struct {
	Label     string                 `json:"label"`
	Address   valueobject.AddressDTO `json:"address"`
	IsDefault bool                   `json:"isDefault"`
}

// UserResponse represents a user in API responses. Credentials and
// verification secrets are never included.
type UserResponse struct {
	ID                uuid.UUID                `json:"id"`
	Name              string                   `json:"name"`
	Email             string                   `json:"email"`
	Role              string                   `json:"role"`
	Status            string                   `json:"status"`
	Avatar            string                   `json:"avatar,omitempty"`
	Phone             string                   `json:"phone,omitempty"`
	Address           *valueobject.AddressDTO  `json:"address,omitempty"`
	Addresses         []LabeledAddressResponse `json:"addresses"`
	EmailVerified     bool                     `json:"emailVerified"`
	PhoneVerified     bool                     `json:"phoneVerified"`
	TemporaryPassword bool                     `json:"temporaryPassword"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

// Verification holds freshly issued verification secrets. Fields are only
// populated when they cannot be delivered out of band.
type Verification struct {
	EmailToken string `json:"emailToken,omitempty"`
	PhoneCode  string `json:"phoneCode,omitempty"`
}

// AuthResult is returned by register and login
type AuthResult struct {
	Token        string
	ExpiresAt    time.Time
	User         UserResponse
	Verification *Verification
}

// UserListResult is a page of users
type UserListResult struct {
	Users      []UserResponse
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// ToUserResponse converts a domain User to UserResponse
func ToUserResponse(u *identity.User) UserResponse {
	addresses := make([]LabeledAddressResponse, len(u.Addresses))
	for i, a := range u.Addresses {
		addresses[i] = LabeledAddressResponse{
			Label:     a.Label,
			Address:   a.Address.ToDTO(),
			IsDefault: a.IsDefault,
		}
	}
	resp := UserResponse{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              string(u.Role),
		Status:            string(u.Status),
		Avatar:            u.Avatar,
		Phone:             u.Phone,
		Addresses:         addresses,
		EmailVerified:     u.EmailVerified,
		PhoneVerified:     u.PhoneVerified,
		TemporaryPassword: u.TemporaryPassword,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
	if !u.Address.IsEmpty() {
		dto := u.Address.ToDTO()
		resp.Address = &dto
	}
	return resp
}

func toLabeledAddresses(in []LabeledAddressInput) ([]identity.LabeledAddress, error) {
	out := make([]identity.LabeledAddress, len(in))
	for i, a := range in {
		addr, err := a.Address.ToAddress()
		if err != nil {
			return nil, err
		}
		out[i] = identity.LabeledAddress{Label: a.Label, Address: addr, IsDefault: a.IsDefault}
	}
	return out, nil
}
