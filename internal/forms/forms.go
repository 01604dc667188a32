// Package forms validates submitted user input and turns it into models.
package forms

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// NonFieldErrors collects errors that do not belong to a single field.
const NonFieldErrors = "__all__"

const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
)

// Form is implemented by every form. Validate returns the entity built from
// the bound input, or a FieldErrors error when the input is invalid. Any
// other error is an infrastructure failure.
type Form[T any] interface {
	Validate(ctx context.Context) (T, error)
}

// FieldErrors maps a field name to its validation messages.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// Get returns the messages for field, used by templates.
func (fe FieldErrors) Get(field string) []string {
	return fe[field]
}

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(fe[field], " "))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// err returns fe as an error, or nil when no messages were collected.
func (fe FieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// AsFieldErrors extracts validation errors from err.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
