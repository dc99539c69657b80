package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

const maxAddressFieldLength = 200

// Address is a value object representing a postal address
// It is immutable - all operations return new Address instances
type Address struct {
	street  string
	city    string
	state   string
	zipCode string
	country string
}

// NewAddress creates a new Address. Fields are trimmed and length-checked;
// blank fields are allowed so that partially known addresses (e.g. copied from
// a guest checkout) can be stored. Use Validate to require a complete address.
func NewAddress(street, city, state, zipCode, country string) (Address, error) {
	addr := Address{
		street:  strings.TrimSpace(street),
		city:    strings.TrimSpace(city),
		state:   strings.TrimSpace(state),
		zipCode: strings.TrimSpace(zipCode),
		country: strings.TrimSpace(country),
	}

	for name, v := range map[string]string{
		"street":  addr.street,
		"city":    addr.city,
		"state":   addr.state,
		"zipCode": addr.zipCode,
		"country": addr.country,
	} {
		if len(v) > maxAddressFieldLength {
			return Address{}, fmt.Errorf("%s cannot exceed %d characters", name, maxAddressFieldLength)
		}
	}

	return addr, nil
}

// MustNewAddress creates a new Address, panics on error
func MustNewAddress(street, city, state, zipCode, country string) Address {
	addr, err := NewAddress(street, city, state, zipCode, country)
	if err != nil {
		panic(err)
	}
	return addr
}

// EmptyAddress returns an empty address (for optional address fields)
func EmptyAddress() Address {
	return Address{}
}

// Street returns the street line
func (a Address) Street() string {
	return a.street
}

// City returns the city
func (a Address) City() string {
	return a.city
}

// State returns the state or province
func (a Address) State() string {
	return a.state
}

// ZipCode returns the postal code
func (a Address) ZipCode() string {
	return a.zipCode
}

// Country returns the country
func (a Address) Country() string {
	return a.country
}

// IsEmpty returns true if all fields are blank
func (a Address) IsEmpty() bool {
	return a.street == "" && a.city == "" && a.state == "" && a.zipCode == "" && a.country == ""
}

// Validate requires every field to be present.
func (a Address) Validate() error {
	switch {
	case a.street == "":
		return fmt.Errorf("street is required")
	case a.city == "":
		return fmt.Errorf("city is required")
	case a.state == "":
		return fmt.Errorf("state is required")
	case a.zipCode == "":
		return fmt.Errorf("zipCode is required")
	case a.country == "":
		return fmt.Errorf("country is required")
	}
	return nil
}

// String returns the address on a single line
func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.street, a.city, a.state, a.zipCode, a.country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Equals checks whether two addresses are equal
func (a Address) Equals(other Address) bool {
	return a == other
}

// AddressDTO is the serialised form of Address, shared by JSON, SQL and
// document storage.
type AddressDTO struct {
	Street  string `json:"street" bson:"street"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	ZipCode string `json:"zipCode" bson:"zipCode"`
	Country string `json:"country" bson:"country"`
}

// ToDTO converts Address to AddressDTO
func (a Address) ToDTO() AddressDTO {
	return AddressDTO{
		Street:  a.street,
		City:    a.city,
		State:   a.state,
		ZipCode: a.zipCode,
		Country: a.country,
	}
}

// ToAddress converts AddressDTO back to Address
func (dto AddressDTO) ToAddress() (Address, error) {
	return NewAddress(dto.Street, dto.City, dto.State, dto.ZipCode, dto.Country)
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ToDTO())
}

// UnmarshalJSON implements json.Unmarshaler.
// It delegates to NewAddress so the same trimming and length rules apply.
func (a *Address) UnmarshalJSON(data []byte) error {
	var dto AddressDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	addr, err := dto.ToAddress()
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Value implements driver.Valuer, storing the address as a JSON document
func (a Address) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = EmptyAddress()
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}

	if len(data) == 0 || string(data) == "null" {
		*a = EmptyAddress()
		return nil
	}

	return json.Unmarshal(data, a)
}
