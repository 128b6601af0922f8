package core

// validation.go checks tables at two points in a run:
//  1. Raw checks: helpers plugins use in their Check function to confirm the
//     source still has the shape the transform expects
//  2. Canonical validation: the finished table must have every schema column
//     and a value in every required cell
//
// Raw check failures are warnings. Canonical validation failures are fatal.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/schema"
	"github.com/JonMunkholm/histnorm/internal/units"
)

// ErrMissingDimension is returned when a canonical column is absent from
// the finished table, or a required cell in it is empty.
var ErrMissingDimension = errors.New("missing dimension")

// ValidationError represents a single check failure for a column.
type ValidationError struct {
	Field   string // Column name
	Value   string // The offending value(s)
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("check failed: %s: %s", e.Field, e.Message)
	}
	return "check failed: " + e.Message
}

// ExpectValues verifies that col holds exactly the given distinct values,
// in any order.
func ExpectValues(raw *frame.Frame, col string, want ...string) error {
	got, err := raw.Unique(col)
	if err != nil {
		return ValidationError{Field: col, Message: "column not found"}
	}

	wantSet := make(map[string]bool, len(want))
	for _, w := range want {
		wantSet[w] = true
	}
	match := len(got) == len(wantSet)
	for _, g := range got {
		if !wantSet[g] {
			match = false
		}
	}
	if match {
		return nil
	}

	return ValidationError{
		Field:   col,
		Value:   strings.Join(got, "; "),
		Message: fmt.Sprintf("expected only %q, found %q", want, got),
	}
}

// ExpectColumns verifies that every named column is present.
func ExpectColumns(raw *frame.Frame, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !raw.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return ValidationError{Message: "missing columns: " + strings.Join(missing, ", ")}
	}
	return nil
}

// Checks runs each check and joins the failures.
func Checks(raw *frame.Frame, checks ...CheckFunc) error {
	var errs []error
	for _, c := range checks {
		if err := c(raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// flattenErrors splits a joined error into its parts.
func flattenErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flattenErrors(e)...)
		}
		return out
	}
	return []error{err}
}

// ValidateCanonical confirms the table has every canonical column and that
// each cell satisfies its field specification. Extra columns are allowed;
// the caller selects the canonical ones afterwards.
func ValidateCanonical(table *frame.Frame) error {
	var missing []string
	for _, name := range schema.Names() {
		if !table.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingDimension, strings.Join(missing, ", "))
	}

	for _, spec := range schema.FieldSpecs() {
		for i := 0; i < table.Len(); i++ {
			raw := strings.TrimSpace(table.Get(i, spec.Name))
			if raw == "" {
				if spec.Required && !spec.AllowEmpty {
					return fmt.Errorf("%w: %s is empty in row %d", ErrMissingDimension, spec.Name, i+1)
				}
				continue
			}
			if err := validateCell(raw, spec); err != nil {
				return fmt.Errorf("row %d: %s: %w", i+1, spec.Name, err)
			}
		}
	}
	return nil
}

func validateCell(value string, spec schema.FieldSpec) error {
	switch spec.Type {
	case schema.FieldInteger:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("invalid year %q", value)
		}
	case schema.FieldNumeric:
		if _, err := units.ParseValue(value); err != nil {
			return err
		}
	}
	return nil
}
