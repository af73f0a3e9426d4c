package checkout

import (
	"errors"
	"fmt"

	"github.com/biter777/countries"
	"github.com/nyaruka/phonenumbers"

	"github.com/Skotchmaster/storefront/internal/models"
)

var ErrValidation = errors.New("validation")

// ValidateAddress checks every mandatory field and the phone number before
// any network call is made. ApartmentSuite is the one optional field.
func ValidateAddress(address models.ShippingAddress) error {
	mandatory := []struct {
		label string
		value string
	}{
		{"full name", address.FullName},
		{"street address", address.StreetAddress},
		{"city", address.City},
		{"postal code", address.PostalCode},
		{"country", address.Country},
		{"phone number", address.PhoneNumber},
	}
	for _, field := range mandatory {
		if field.value == "" {
			return fmt.Errorf("please fill in the %q field: %w", field.label, ErrValidation)
		}
	}

	region := countryCode(address.Country)
	parsed, err := phonenumbers.Parse(address.PhoneNumber, region)
	if err != nil {
		return fmt.Errorf("please enter a valid phone number: %w", ErrValidation)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return fmt.Errorf("please enter a valid phone number: %w", ErrValidation)
	}
	return nil
}

// countryCode resolves a country name to its 2-letter code for the phone
// validator's default region. Resolution failure is non-fatal; validation
// continues without a default region.
func countryCode(name string) string {
	c := countries.ByName(name)
	if c == countries.Unknown {
		return ""
	}
	return c.Alpha2()
}
