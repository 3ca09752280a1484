// Package validate holds the pure field validators for identity data. Each
// validator takes a raw value and returns either a normalized value or a
// typed rejection reason; expected bad input (empty, malformed) never
// panics.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Reason classifies why a field was rejected.
type Reason string

const (
	ReasonMissing       Reason = "missing"
	ReasonInvalidFormat Reason = "invalid_format"
	ReasonFutureDate    Reason = "future_date"
	ReasonAgeOutOfRange Reason = "age_out_of_range"
)

// FieldError is a per-field rejection. The workflow surfaces these to the
// capture UI keyed by field name.
type FieldError struct {
	Field  string
	Reason Reason
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

const (
	// National personal identification number: 10 to 14 decimal digits.
	nipMinDigits = 10
	nipMaxDigits = 14

	// Derived age ceiling for birth dates.
	maxAgeYears = 120

	// BirthDateLayout is the wire format for birth dates.
	BirthDateLayout = "2006-01-02"
)

var (
	nipPattern = regexp.MustCompile(`^[0-9]{10,14}$`)

	// National numbering plan: trunk prefix 0 or international prefix
	// (+241 / 00241), then a 7-digit subscriber number starting 1-7.
	phonePattern = regexp.MustCompile(`^(?:\+241|00241|0)([1-7][0-9]{6})$`)
)

// NationalID checks a raw NIP. Empty input is ReasonMissing; the caller
// decides whether the field is required in its context.
func NationalID(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return &FieldError{Field: "national_id", Reason: ReasonMissing}
	}
	if !nipPattern.MatchString(value) {
		return &FieldError{Field: "national_id", Reason: ReasonInvalidFormat}
	}
	return nil
}

// Phone normalizes a raw phone number to canonical international form
// (+241XXXXXXX). Empty input is valid: the phone field is optional.
func Phone(value string) (string, error) {
	stripped := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '-' {
			return -1
		}
		return r
	}, value)
	if stripped == "" {
		return "", nil
	}
	m := phonePattern.FindStringSubmatch(stripped)
	if m == nil {
		return "", &FieldError{Field: "phone", Reason: ReasonInvalidFormat}
	}
	return "+241" + m[1], nil
}

// BirthDate parses a raw birth date and derives the whole-year age at the
// evaluation instant. Rejects absent, unparsable or future dates, and ages
// above 120 years.
func BirthDate(value string, now time.Time) (time.Time, int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, 0, &FieldError{Field: "birth_date", Reason: ReasonMissing}
	}
	date, err := time.Parse(BirthDateLayout, value)
	if err != nil {
		return time.Time{}, 0, &FieldError{Field: "birth_date", Reason: ReasonInvalidFormat}
	}
	if date.After(now) {
		return time.Time{}, 0, &FieldError{Field: "birth_date", Reason: ReasonFutureDate}
	}
	age := Age(date, now)
	if age > maxAgeYears {
		return time.Time{}, 0, &FieldError{Field: "birth_date", Reason: ReasonAgeOutOfRange}
	}
	return date, age, nil
}

// Age computes the whole-year age at the given instant.
func Age(birthDate, now time.Time) int {
	years := now.Year() - birthDate.Year()
	anniversary := birthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}
