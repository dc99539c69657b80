package models

import (
	"time"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// AddressBookEntry is the stored form of a labeled address
type AddressBookEntry struct {
	Label     string                 `json:"label"`
	Address   valueobject.AddressDTO `json:"address"`
	IsDefault bool                   `json:"isDefault"`
}

// UserModel is the persistence model for the User aggregate root.
type UserModel struct {
	AggregateModel
	Name                     string              `gorm:"type:varchar(50);not null"`
	Email                    string              `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash             string              `gorm:"type:varchar(255);not null"`
	Role                     identity.Role       `gorm:"type:varchar(20);not null;default:'user'"`
	Status                   identity.UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Avatar                   string              `gorm:"type:varchar(500)"`
	Phone                    string              `gorm:"type:varchar(50)"`
	Address                  valueobject.Address `gorm:"type:jsonb"`
	Addresses                []AddressBookEntry  `gorm:"type:jsonb;serializer:json"`
	EmailVerified            bool                `gorm:"not null;default:false"`
	EmailVerificationHash    string              `gorm:"type:varchar(64);index"`
	EmailVerificationExpires *time.Time
	PhoneVerified            bool   `gorm:"not null;default:false"`
	PhoneVerificationHash    string `gorm:"type:varchar(255)"`
	PhoneVerificationExpires *time.Time
	TemporaryPassword        bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User.
func (m *UserModel) ToDomain() *identity.User {
	u := &identity.User{
		BaseAggregateRoot:        m.ToDomainAggregateRoot(),
		Name:                     m.Name,
		Email:                    m.Email,
		PasswordHash:             m.PasswordHash,
		Role:                     m.Role,
		Status:                   m.Status,
		Avatar:                   m.Avatar,
		Phone:                    m.Phone,
		Address:                  m.Address,
		EmailVerified:            m.EmailVerified,
		EmailVerificationHash:    m.EmailVerificationHash,
		EmailVerificationExpires: m.EmailVerificationExpires,
		PhoneVerified:            m.PhoneVerified,
		PhoneVerificationHash:    m.PhoneVerificationHash,
		PhoneVerificationExpires: m.PhoneVerificationExpires,
		TemporaryPassword:        m.TemporaryPassword,
		Addresses:                make([]identity.LabeledAddress, 0, len(m.Addresses)),
	}
	for _, entry := range m.Addresses {
		addr, err := entry.Address.ToAddress()
		if err != nil {
			// stored rows were validated on write
			continue
		}
		u.Addresses = append(u.Addresses, identity.LabeledAddress{
			Label:     entry.Label,
			Address:   addr,
			IsDefault: entry.IsDefault,
		})
	}
	return u
}

// FromDomain populates the persistence model from a domain User.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Name = u.Name
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.Role = u.Role
	m.Status = u.Status
	m.Avatar = u.Avatar
	m.Phone = u.Phone
	m.Address = u.Address
	m.EmailVerified = u.EmailVerified
	m.EmailVerificationHash = u.EmailVerificationHash
	m.EmailVerificationExpires = u.EmailVerificationExpires
	m.PhoneVerified = u.PhoneVerified
	m.PhoneVerificationHash = u.PhoneVerificationHash
	m.PhoneVerificationExpires = u.PhoneVerificationExpires
	m.TemporaryPassword = u.TemporaryPassword
	m.Addresses = make([]AddressBookEntry, len(u.Addresses))
	for i, a := range u.Addresses {
		m.Addresses[i] = AddressBookEntry{Label: a.Label, Address: a.Address.ToDTO(), IsDefault: a.IsDefault}
	}
}

// UserModelFromDomain creates a new persistence model from a domain User.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
