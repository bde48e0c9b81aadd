// Package profile loads the applicant's data, keyed by semantic field type.
package profile

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/davenull4x/applyforge/internal/fields"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Profile maps a field type to the literal value typed into matching fields.
// A missing key means "cannot fill this type"; that is a skip, never an error.
type Profile map[fields.Type]string

// profileFile is the on-disk shape, with validation tags for the values that
// have a checkable format.
type profileFile struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	FullName    string `json:"full_name"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone"`
	LinkedIn    string `json:"linkedin" validate:"omitempty,url"`
	Website     string `json:"website" validate:"omitempty,url"`
	GitHub      string `json:"github" validate:"omitempty,url"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
	Country     string `json:"country"`
	CoverLetter string `json:"cover_letter"`
}

// Load reads and validates the applicant profile at path.
func Load(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var pf profileFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := validator.New().Struct(&pf); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	if pf.FullName == "" {
		pf.FullName = pf.FirstName + " " + pf.LastName
	}

	p := Profile{}
	set := func(t fields.Type, v string) {
		if v != "" {
			p[t] = v
		}
	}
	set(fields.TypeFirstName, pf.FirstName)
	set(fields.TypeLastName, pf.LastName)
	set(fields.TypeFullName, pf.FullName)
	set(fields.TypeEmail, pf.Email)
	set(fields.TypePhone, pf.Phone)
	set(fields.TypeLinkedIn, pf.LinkedIn)
	set(fields.TypeWebsite, pf.Website)
	set(fields.TypeGitHub, pf.GitHub)
	set(fields.TypeAddress, pf.Address)
	set(fields.TypeCity, pf.City)
	set(fields.TypeState, pf.State)
	set(fields.TypeZip, pf.Zip)
	set(fields.TypeCountry, pf.Country)
	set(fields.TypeCoverLetter, pf.CoverLetter)
	return p, nil
}

// Value returns the data for a field type, reporting whether any exists.
func (p Profile) Value(t fields.Type) (string, bool) {
	v, ok := p[t]
	return v, ok && v != ""
}
