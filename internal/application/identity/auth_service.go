package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// Account errors
var (
	ErrUserExists       = shared.NewDomainError("USER_EXISTS", "User already exists")
	ErrAccountSuspended = shared.NewDomainError("ACCOUNT_SUSPENDED", "Account is suspended")
)

// AuthServiceConfig controls which verification secrets are echoed back to the caller
type AuthServiceConfig struct {
	// EchoEmailToken returns email verification tokens in responses.
	// Enabled when outbound mail is not configured.
	EchoEmailToken bool
	// EchoPhoneCode returns phone verification codes in responses.
	// Enabled in development only.
	EchoPhoneCode bool
}

// AuthService handles registration, login and self-service account operations
type AuthService struct {
	userRepo       identity.UserRepository
	jwtService     *auth.JWTService
	eventPublisher shared.EventPublisher
	config         AuthServiceConfig
	logger         *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		config:     config,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher used to hand verification mail off
func (s *AuthService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Register creates an account, issues email and phone verification and
// signs the caller in
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	user, err := identity.NewUser(req.Name, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	verification, err := s.issueVerification(user)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email),
	)
	s.publish(ctx, user)

	result, err := s.signIn(user)
	if err != nil {
		return nil, err
	}
	result.Verification = verification
	return result, nil
}

// Login authenticates by email and password
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login attempt for unknown email")
			return nil, shared.NewDomainError(shared.ErrInvalidCredentials.Code, "Invalid credentials")
		}
		return nil, err
	}

	if !user.VerifyPassword(req.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError(shared.ErrInvalidCredentials.Code, "Invalid credentials")
	}
	if !user.CanLogin() {
		s.logger.Warn("Login attempt for suspended account", zap.String("user_id", user.ID.String()))
		return nil, ErrAccountSuspended
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return s.signIn(user)
}

// GetCurrentUser returns the caller's profile
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// UpdateProfile applies a self-service profile change
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserResponse, error) {
	update := identity.ProfileUpdate{Name: req.Name, Phone: req.Phone}
	if req.Address != nil {
		addr, err := req.Address.ToAddress()
		if err != nil {
			return nil, shared.NewDomainError("INVALID_ADDRESS", err.Error())
		}
		update.Address = &addr
	}
	if req.Addresses != nil {
		addresses, err := toLabeledAddresses(req.Addresses)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_ADDRESS", err.Error())
		}
		update.Addresses = addresses
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(update); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Profile updated", zap.String("user_id", userID.String()))
	resp := ToUserResponse(user)
	return &resp, nil
}

// VerifyEmail confirms the email address with the mailed token
func (s *AuthService) VerifyEmail(ctx context.Context, req VerifyEmailRequest) error {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrInvalidToken
		}
		return err
	}
	if err := user.VerifyEmail(req.Token); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info("Email verified", zap.String("user_id", user.ID.String()))
	return nil
}

// VerifyPhone confirms the caller's phone number
func (s *AuthService) VerifyPhone(ctx context.Context, userID uuid.UUID, req VerifyPhoneRequest) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.VerifyPhone(req.Code); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info("Phone verified", zap.String("user_id", user.ID.String()))
	return nil
}

// RequestVerification reissues both the email token and the phone code
func (s *AuthService) RequestVerification(ctx context.Context, userID uuid.UUID) (*Verification, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	verification, err := s.issueVerification(user)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Verification reissued", zap.String("user_id", user.ID.String()))
	s.publish(ctx, user)
	return verification, nil
}

// SetPassword replaces the caller's password and clears the temporary flag
func (s *AuthService) SetPassword(ctx context.Context, userID uuid.UUID, req SetPasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.SetPassword(req.Password); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info("Password updated", zap.String("user_id", user.ID.String()))
	return nil
}

// CompleteSetup converts a guest-provisioned account using the emailed token.
// No session is required; the token proves ownership of the address.
func (s *AuthService) CompleteSetup(ctx context.Context, req CompleteSetupRequest) error {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrInvalidToken
		}
		return err
	}
	if err := user.CompleteSetup(req.Token, req.Password); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info("Account setup completed", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *AuthService) issueVerification(user *identity.User) (*Verification, error) {
	emailToken, err := user.RequestEmailVerification()
	if err != nil {
		return nil, err
	}
	phoneCode, err := user.RequestPhoneVerification()
	if err != nil {
		return nil, err
	}

	v := &Verification{}
	if s.config.EchoEmailToken {
		v.EmailToken = emailToken
	}
	if s.config.EchoPhoneCode {
		v.PhoneCode = phoneCode
	}
	return v, nil
}

func (s *AuthService) signIn(user *identity.User) (*AuthResult, error) {
	issued, err := s.jwtService.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return nil, err
	}
	return &AuthResult{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		User:      ToUserResponse(user),
	}, nil
}

func (s *AuthService) publish(ctx context.Context, user *identity.User) {
	events := user.GetDomainEvents()
	user.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish user events", zap.Error(err))
	}
}
