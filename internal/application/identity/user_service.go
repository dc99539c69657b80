package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultUserPageSize = 50
	maxUserPageSize     = 200
)

// UserService handles admin user management
type UserService struct {
	userRepo identity.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo identity.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// List retrieves a page of users, newest first
func (s *UserService) List(ctx context.Context, q AdminUserQuery) (*UserListResult, error) {
	filter := identity.UserFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.Limit,
			OrderBy:  "created_at",
			OrderDir: "desc",
			Search:   strings.TrimSpace(q.Q),
		},
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultUserPageSize
	}
	if filter.PageSize > maxUserPageSize {
		filter.PageSize = maxUserPageSize
	}
	if q.Role != "" {
		role := identity.Role(q.Role)
		if !role.IsValid() {
			return nil, shared.NewDomainError("INVALID_ROLE", "Invalid role")
		}
		filter.Role = &role
	}
	if q.Status != "" {
		status := identity.UserStatus(q.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("INVALID_STATUS", "Invalid status")
		}
		filter.Status = &status
	}

	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(users, total, filter.Page, filter.PageSize)
	responses := make([]UserResponse, len(users))
	for i, u := range users {
		responses[i] = ToUserResponse(u)
	}
	return &UserListResult{
		Users:      responses,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// ChangeRole sets a user's role
func (s *UserService) ChangeRole(ctx context.Context, id uuid.UUID, req ChangeRoleRequest) (*UserResponse, error) {
	return s.modify(ctx, id, func(u *identity.User) error {
		return u.ChangeRole(identity.Role(req.Role))
	}, zap.String("role", req.Role))
}

// ChangeStatus sets a user's status. Suspended users can no longer log in.
func (s *UserService) ChangeStatus(ctx context.Context, id uuid.UUID, req ChangeStatusRequest) (*UserResponse, error) {
	return s.modify(ctx, id, func(u *identity.User) error {
		return u.ChangeStatus(identity.UserStatus(req.Status))
	}, zap.String("status", req.Status))
}

// Update overwrites the provided account fields
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req AdminUpdateUserRequest) (*UserResponse, error) {
	update := identity.AdminUpdate{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if req.Address != nil {
		addr, err := req.Address.ToAddress()
		if err != nil {
			return nil, shared.NewDomainError("INVALID_ADDRESS", err.Error())
		}
		update.Address = &addr
	}
	return s.modify(ctx, id, func(u *identity.User) error {
		return u.ApplyAdminUpdate(update)
	})
}

func (s *UserService) modify(ctx context.Context, id uuid.UUID, fn func(*identity.User) error, fields ...zap.Field) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(user); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User updated by admin", append([]zap.Field{zap.String("user_id", id.String())}, fields...)...)
	resp := ToUserResponse(user)
	return &resp, nil
}
