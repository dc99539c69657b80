package identity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"golang.org/x/crypto/bcrypt"
)

// Role is the authorization role of an account
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// IsValid checks if the status is known
func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusSuspended
}

// Password cost for bcrypt
const bcryptCost = 12

const (
	maxNameLength     = 50
	minPasswordLength = 6
	maxPasswordLength = 72
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// LabeledAddress is one entry of the user's address book
type LabeledAddress struct {
	Label     string
	Address   valueobject.Address
	IsDefault bool
}

// User represents a storefront account
// It is the aggregate root for user-related operations
type User struct {
	shared.BaseAggregateRoot
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       UserStatus
	Avatar       string
	Phone        string
	Address      valueobject.Address
	Addresses    []LabeledAddress

	EmailVerified            bool
	EmailVerificationHash    string
	EmailVerificationExpires *time.Time
	PhoneVerified            bool
	PhoneVerificationHash    string
	PhoneVerificationExpires *time.Time

	// TemporaryPassword marks accounts provisioned during guest checkout
	// whose password was generated and never shown to anyone.
	TemporaryPassword bool
}

// NewUser registers a new account with the given credentials
func NewUser(name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             email,
		PasswordHash:      passwordHash,
		Role:              RoleUser,
		Status:            UserStatusActive,
		Addresses:         make([]LabeledAddress, 0),
	}, nil
}

// GuestContact is the contact data captured by a guest checkout
type GuestContact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   valueobject.Address
}

// NewGuestUser provisions an account for a first-time guest. The password is
// random and never returned; the account keeps TemporaryPassword set until
// the owner completes setup with the emailed verification token.
// The returned token is the plaintext verification token.
func NewGuestUser(contact GuestContact) (*User, string, error) {
	name := strings.TrimSpace(strings.TrimSpace(contact.FirstName) + " " + strings.TrimSpace(contact.LastName))
	if runes := []rune(name); len(runes) > maxNameLength {
		name = strings.TrimSpace(string(runes[:maxNameLength]))
	}

	password, err := randomHex(8)
	if err != nil {
		return nil, "", fmt.Errorf("generate temporary password: %w", err)
	}

	user, err := NewUser(name, contact.Email, password)
	if err != nil {
		return nil, "", err
	}
	user.Phone = strings.TrimSpace(contact.Phone)
	user.TemporaryPassword = true
	user.Address = contact.Address
	user.Addresses = []LabeledAddress{{Label: "Default", Address: contact.Address, IsDefault: true}}

	token, err := user.issueEmailVerification()
	if err != nil {
		return nil, "", err
	}

	user.AddDomainEvent(NewAccountProvisionedEvent(user, token))
	return user, token, nil
}

// RequestEmailVerification issues a fresh email verification token and
// records an event so the token can be delivered.
func (u *User) RequestEmailVerification() (string, error) {
	token, err := u.issueEmailVerification()
	if err != nil {
		return "", err
	}
	u.IncrementVersion()
	u.AddDomainEvent(NewEmailVerificationIssuedEvent(u, token))
	return token, nil
}

// RequestPhoneVerification issues a fresh 6-digit phone code
func (u *User) RequestPhoneVerification() (string, error) {
	code, hash, err := newPhoneCode()
	if err != nil {
		return "", err
	}
	expires := time.Now().Add(PhoneCodeTTL)
	u.PhoneVerificationHash = hash
	u.PhoneVerificationExpires = &expires
	u.IncrementVersion()
	return code, nil
}

// VerifyEmail marks the email as verified when token matches and is not expired
func (u *User) VerifyEmail(token string) error {
	if !u.emailTokenMatches(token) {
		return shared.NewDomainError("INVALID_TOKEN", "Invalid or expired token")
	}
	u.EmailVerified = true
	u.clearEmailVerification()
	u.IncrementVersion()
	return nil
}

// VerifyPhone marks the phone as verified when code matches and is not expired
func (u *User) VerifyPhone(code string) error {
	if u.PhoneVerificationHash == "" || u.PhoneVerificationExpires == nil {
		return shared.NewDomainError("NO_VERIFICATION", "No verification in progress")
	}
	if time.Now().After(*u.PhoneVerificationExpires) {
		return shared.NewDomainError("CODE_EXPIRED", "Verification code expired")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PhoneVerificationHash), []byte(code)) != nil {
		return shared.NewDomainError("INVALID_CODE", "Invalid verification code")
	}
	u.PhoneVerified = true
	u.PhoneVerificationHash = ""
	u.PhoneVerificationExpires = nil
	u.IncrementVersion()
	return nil
}

// CompleteSetup converts a guest-provisioned account into a regular one.
// The emailed token proves ownership of the address.
func (u *User) CompleteSetup(token, password string) error {
	if !u.emailTokenMatches(token) {
		return shared.NewDomainError("INVALID_TOKEN", "Invalid or expired token")
	}
	if err := u.SetPassword(password); err != nil {
		return err
	}
	u.EmailVerified = true
	u.clearEmailVerification()
	return nil
}

// SetPassword replaces the password and clears the temporary-password flag
func (u *User) SetPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	passwordHash, err := hashPassword(password)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = passwordHash
	u.TemporaryPassword = false
	u.IncrementVersion()
	return nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// ProfileUpdate is a self-service profile change; nil fields are left untouched
type ProfileUpdate struct {
	Name      *string
	Phone     *string
	Address   *valueobject.Address
	Addresses []LabeledAddress
}

// UpdateProfile applies a self-service profile change
func (u *User) UpdateProfile(p ProfileUpdate) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if err := validateName(name); err != nil {
			return err
		}
		u.Name = name
	}
	if p.Phone != nil {
		if err := u.setPhone(*p.Phone); err != nil {
			return err
		}
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.Addresses != nil {
		if err := validateAddressBook(p.Addresses); err != nil {
			return err
		}
		u.Addresses = append([]LabeledAddress(nil), p.Addresses...)
	}
	u.IncrementVersion()
	return nil
}

// AdminUpdate holds the fields an administrator may overwrite
type AdminUpdate struct {
	Name    string
	Email   string
	Phone   string
	Address *valueobject.Address
}

// ApplyAdminUpdate overwrites the non-empty fields
func (u *User) ApplyAdminUpdate(a AdminUpdate) error {
	if a.Name != "" {
		name := strings.TrimSpace(a.Name)
		if err := validateName(name); err != nil {
			return err
		}
		u.Name = name
	}
	if a.Email != "" {
		email := NormalizeEmail(a.Email)
		if err := validateEmail(email); err != nil {
			return err
		}
		u.Email = email
	}
	if a.Phone != "" {
		if err := u.setPhone(a.Phone); err != nil {
			return err
		}
	}
	if a.Address != nil {
		u.Address = *a.Address
	}
	u.IncrementVersion()
	return nil
}

// ChangeRole sets the account role
func (u *User) ChangeRole(role Role) error {
	if !role.IsValid() {
		return shared.NewDomainError("INVALID_ROLE", "Invalid role")
	}
	u.Role = role
	u.IncrementVersion()
	return nil
}

// ChangeStatus sets the account status
func (u *User) ChangeStatus(status UserStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Invalid status")
	}
	u.Status = status
	u.IncrementVersion()
	return nil
}

// IsAdmin reports whether the account has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanLogin checks if the account may authenticate
func (u *User) CanLogin() bool {
	return u.Status == UserStatusActive
}

// NormalizeEmail trims and lowercases an email so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) setPhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	u.Phone = phone
	return nil
}

func (u *User) issueEmailVerification() (string, error) {
	token, hash, err := newEmailToken()
	if err != nil {
		return "", err
	}
	expires := time.Now().Add(EmailTokenTTL)
	u.EmailVerificationHash = hash
	u.EmailVerificationExpires = &expires
	return token, nil
}

func (u *User) emailTokenMatches(token string) bool {
	if u.EmailVerificationHash == "" || u.EmailVerificationExpires == nil {
		return false
	}
	if !time.Now().Before(*u.EmailVerificationExpires) {
		return false
	}
	return tokenHashEqual(HashToken(token), u.EmailVerificationHash)
}

func (u *User) clearEmailVerification() {
	u.EmailVerificationHash = ""
	u.EmailVerificationExpires = nil
}

// Validation functions

func validateName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return shared.NewDomainError("INVALID_NAME", fmt.Sprintf("Name cannot exceed %d characters", maxNameLength))
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Please enter a valid email")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return shared.NewDomainError("INVALID_PASSWORD", fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordLength {
		return shared.NewDomainError("INVALID_PASSWORD", fmt.Sprintf("Password cannot exceed %d characters", maxPasswordLength))
	}
	return nil
}

func validateAddressBook(addresses []LabeledAddress) error {
	defaults := 0
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return shared.NewDomainError("INVALID_ADDRESS", "Only one address can be the default")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
