// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Recipient and DeliveryRecord, along
// with their validation rules and domain-specific errors.
package entity

import (
	"fmt"
	"regexp"
	"time"
)

// phonePattern matches E.164 international phone numbers: a leading plus,
// a non-zero country code digit, and 6 to 14 further digits.
var phonePattern = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// Recipient represents a person eligible to receive a birthday greeting.
// It is built by the roster cache from a validated provider row, is immutable
// within a cycle, and is replaced wholesale on the next roster refresh.
type Recipient struct {
	ID        string
	Name      string
	BirthDate time.Time // year is arbitrary, only month/day matter
	Language  string
	Phone     string // E.164 international format
	Country   string
	Timezone  *time.Location // never nil; unknown countries fall back to the default zone
}

// Validate checks the Recipient invariants. A recipient that fails validation
// is dropped from the roster; it never reaches the greeting workflow.
func (r *Recipient) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Message: "must not be empty"}
	}
	if r.Name == "" {
		return &ValidationError{Field: "Name", Message: "must not be empty"}
	}
	if r.BirthDate.IsZero() {
		return &ValidationError{Field: "BirthDate", Message: "must be set"}
	}
	if !phonePattern.MatchString(r.Phone) {
		return &ValidationError{Field: "Phone", Message: fmt.Sprintf("%q is not in E.164 format", r.Phone)}
	}
	if r.Timezone == nil {
		return &ValidationError{Field: "Timezone", Message: "must be resolved"}
	}
	return nil
}
