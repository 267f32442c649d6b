package types

import (
	"encoding/json"
	"strings"
)

// Address is the shipping address captured on an order. It is stored as json
// alongside the order row.
type Address struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Country string `json:"country" validate:"required"`
	Zipcode string `json:"zipcode" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
}

// UnmarshalJSON also accepts the short "zip" key older clients send.
func (a *Address) UnmarshalJSON(data []byte) error {
	type plain Address
	var wire struct {
		plain
		Zip string `json:"zip"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*a = Address(wire.plain)
	if strings.TrimSpace(a.Zipcode) == "" {
		a.Zipcode = wire.Zip
	}
	return nil
}

// Normalize trims every field in place.
func (a *Address) Normalize() {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Country = strings.TrimSpace(a.Country)
	a.Zipcode = strings.TrimSpace(a.Zipcode)
	a.Phone = strings.TrimSpace(a.Phone)
}

// MissingFields returns the json names of empty fields, in declaration order.
func (a Address) MissingFields() []string {
	missing := []string{}
	pairs := []struct {
		name  string
		value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"country", a.Country},
		{"zipcode", a.Zipcode},
		{"phone", a.Phone},
	}
	for _, p := range pairs {
		if strings.TrimSpace(p.value) == "" {
			missing = append(missing, p.name)
		}
	}
	return missing
}
