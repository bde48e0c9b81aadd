// Package fields classifies form fields on third-party application pages and
// remembers successful classifications across runs.
package fields

import "strings"

// Type is the semantic classification of what a form field is requesting.
// Unknown is a valid terminal classification meaning "do not fill".
type Type string

const (
	TypeFirstName   Type = "first_name"
	TypeLastName    Type = "last_name"
	TypeFullName    Type = "full_name"
	TypeEmail       Type = "email"
	TypePhone       Type = "phone"
	TypeLinkedIn    Type = "linkedin"
	TypeWebsite     Type = "website"
	TypeGitHub      Type = "github"
	TypeAddress     Type = "address"
	TypeCity        Type = "city"
	TypeState       Type = "state"
	TypeZip         Type = "zip"
	TypeCountry     Type = "country"
	TypeResume      Type = "resume"
	TypeCoverLetter Type = "cover_letter"
	TypeUnknown     Type = "unknown"
)

// classificationOrder fixes the priority in which pattern sets are consulted.
// Identifiers often contain several matching substrings ("first name" also
// contains "name"), so more specific types must come before broader ones.
var classificationOrder = []Type{
	TypeFirstName,
	TypeLastName,
	TypeFullName,
	TypeEmail,
	TypePhone,
	TypeLinkedIn,
	TypeGitHub,
	TypeWebsite,
	TypeAddress,
	TypeCity,
	TypeState,
	TypeZip,
	TypeCountry,
	TypeResume,
	TypeCoverLetter,
}

// patternTable holds the substring patterns per type, matched against the
// normalized identifier text.
var patternTable = map[Type][]string{
	TypeFirstName:   {"first_name", "firstname", "fname", "given_name", "forename", "first name", "given name"},
	TypeLastName:    {"last_name", "lastname", "lname", "surname", "family_name", "last name", "family name"},
	TypeFullName:    {"full_name", "fullname", "your_name", "applicant_name", "full name", "your name"},
	TypeEmail:       {"email", "e_mail", "e-mail", "mail"},
	TypePhone:       {"phone", "mobile", "telephone", "contact_number", "contact number", "tel"},
	TypeLinkedIn:    {"linkedin"},
	TypeGitHub:      {"github"},
	TypeWebsite:     {"website", "portfolio", "personal_website", "homepage", "url"},
	TypeAddress:     {"address", "street"},
	TypeCity:        {"city", "town"},
	TypeState:       {"state", "province", "region"},
	TypeZip:         {"zip", "postal", "postcode"},
	TypeCountry:     {"country"},
	TypeResume:      {"resume", "cv"},
	TypeCoverLetter: {"cover_letter", "cover letter", "coverletter"},
}

// TypeNames lists every fillable type name in classification order.
func TypeNames() []string {
	names := make([]string, len(classificationOrder))
	for i, t := range classificationOrder {
		names[i] = string(t)
	}
	return names
}

// ParseType converts an arbitrary string to a Type, accepting only members of
// the closed vocabulary. Anything else is Unknown.
func ParseType(s string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t == TypeUnknown {
		return TypeUnknown
	}
	if _, ok := patternTable[t]; ok {
		return t
	}
	return TypeUnknown
}

// Meta carries the raw DOM attributes of a form field.
type Meta struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder"`
	Label       string `json:"label"`
	InputType   string `json:"input_type"`
}

// Identifier collapses the field's attributes into one normalized lowercase
// string. It is a lookup key, not a unique ID.
func (m Meta) Identifier() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{m.Name, m.ID, m.Placeholder, m.Label} {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
