// ABOUTME: Validation errors raised before any storage access
// ABOUTME: Reason codes plus the user-facing messages shown in the error banner

package tabsaver

import (
	"strings"
	"unicode/utf8"

	"github.com/2389/tabsaver/internal/registry"
)

// MaxIdentifierLength is the longest accepted identifier, in characters.
const MaxIdentifierLength = 63

// Reason classifies a ValidationError.
type Reason int

const (
	// EmptyIdentifier means the input was empty after trimming.
	EmptyIdentifier Reason = iota + 1
	// TooLong means the trimmed input exceeded MaxIdentifierLength.
	TooLong
	// ReservedIdentifier means the input equals the registry's storage key.
	ReservedIdentifier
)

func (r Reason) String() string {
	switch r {
	case EmptyIdentifier:
		return "EmptyIdentifier"
	case TooLong:
		return "TooLong"
	case ReservedIdentifier:
		return "ReservedIdentifier"
	default:
		return "Unknown"
	}
}

// ValidationError rejects an identifier. Error returns the banner message.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case EmptyIdentifier:
		return "Identifier field is empty."
	case TooLong:
		return "Identifier must have length < 64."
	case ReservedIdentifier:
		return "Identifier " + registry.Key + " is reserved."
	default:
		return "Invalid identifier."
	}
}

// ParseIdentifier trims raw and validates it.
func ParseIdentifier(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	switch {
	case id == "":
		return "", &ValidationError{Reason: EmptyIdentifier}
	case utf8.RuneCountInString(id) > MaxIdentifierLength:
		return "", &ValidationError{Reason: TooLong}
	case id == registry.Key:
		return "", &ValidationError{Reason: ReservedIdentifier}
	}
	return id, nil
}
