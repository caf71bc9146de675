// Package identity classifies login identifiers as email addresses or
// Algerian phone numbers, independently of any storage lookup.
package identity

import "regexp"

// Kind is the classification result for a login identifier.
type Kind int

const (
	Invalid Kind = iota
	Email
	Phone
)

func (k Kind) String() string {
	switch k {
	case Email:
		return "email"
	case Phone:
		return "phone"
	}
	return "invalid"
}

var (
	// Algerian mobile format: +213 or 0 prefix, operator digit 5/6/7,
	// then eight digits.
	phoneRegex = regexp.MustCompile(`^(\+213|0)([567])[0-9]{8}$`)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Classify returns the kind of the given identifier. Phone patterns are
// checked first; anything that matches neither pattern is Invalid.
func Classify(identifier string) Kind {
	switch {
	case phoneRegex.MatchString(identifier):
		return Phone
	case emailRegex.MatchString(identifier):
		return Email
	default:
		return Invalid
	}
}
