package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/schema"
	"github.com/JonMunkholm/histnorm/internal/units"
)

func TestExpectValues(t *testing.T) {
	f := frame.New("Unit")
	require.NoError(t, f.Append("Tonnes-kilometres"))
	require.NoError(t, f.Append("Tonnes-kilometres"))

	assert.NoError(t, ExpectValues(f, "Unit", "Tonnes-kilometres"))

	err := ExpectValues(f, "Unit", "Passenger-kilometres")
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Unit", verr.Field)
	assert.Equal(t, "Tonnes-kilometres", verr.Value)

	require.NoError(t, f.Append("Passenger-kilometres"))
	assert.Error(t, ExpectValues(f, "Unit", "Tonnes-kilometres"))
	assert.NoError(t, ExpectValues(f, "Unit", "Passenger-kilometres", "Tonnes-kilometres"))

	err = ExpectValues(f, "Missing", "x")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "column not found")
}

func TestExpectColumns(t *testing.T) {
	f := frame.New("Country", "Year")
	assert.NoError(t, ExpectColumns(f, "Country"))

	err := ExpectColumns(f, "Country", "Value", "Unit")
	require.Error(t, err)
	assert.Equal(t, "check failed: missing columns: Value, Unit", err.Error())
}

func TestChecks_JoinsFailures(t *testing.T) {
	f := frame.New("A")
	err := Checks(f,
		func(*frame.Frame) error { return ValidationError{Field: "A", Message: "one"} },
		func(*frame.Frame) error { return nil },
		func(*frame.Frame) error { return ValidationError{Field: "B", Message: "two"} },
	)
	require.Error(t, err)

	parts := flattenErrors(err)
	require.Len(t, parts, 2)
	assert.Equal(t, "check failed: A: one", parts[0].Error())
	assert.Equal(t, "check failed: B: two", parts[1].Error())

	assert.NoError(t, Checks(f))
}

func TestFlattenErrors_Nested(t *testing.T) {
	a, b, c := errors.New("a"), errors.New("b"), errors.New("c")
	got := flattenErrors(errors.Join(a, errors.Join(b, c)))
	assert.Equal(t, []error{a, b, c}, got)
	assert.Nil(t, flattenErrors(nil))
}

func canonicalRow() map[string]string {
	return map[string]string{
		"ID": "T001", "Country": "China", "ISO Code": "CHN", "Region": "R11_CPA",
		"Year": "1995", "Variable": "Freight Activity", "Value": "1", "Unit": "Gt km / year",
		"Source": "ITF", "Service": "Freight", "Technology": "All", "Fuel": "All",
		"Mode": "Shipping", "Vehicle Type": "Coastal",
	}
}

func TestValidateCanonical(t *testing.T) {
	newTable := func(mutate func(map[string]string)) *frame.Frame {
		f := frame.New(schema.Names()...)
		rec := canonicalRow()
		if mutate != nil {
			mutate(rec)
		}
		require.NoError(t, f.AppendRecord(rec))
		return f
	}

	assert.NoError(t, ValidateCanonical(newTable(nil)))
	assert.NoError(t, ValidateCanonical(newTable(func(r map[string]string) { r["Value"] = "" })),
		"value may be empty")

	err := ValidateCanonical(newTable(func(r map[string]string) { r["Mode"] = "" }))
	assert.ErrorIs(t, err, ErrMissingDimension)

	err = ValidateCanonical(newTable(func(r map[string]string) { r["Year"] = "1995.5" }))
	assert.ErrorContains(t, err, "invalid year")

	err = ValidateCanonical(newTable(func(r map[string]string) { r["Value"] = "n/a" }))
	assert.ErrorIs(t, err, units.ErrInvalidNumber)

	missing := newTable(nil)
	require.NoError(t, missing.Drop("Fuel"))
	err = ValidateCanonical(missing)
	assert.ErrorIs(t, err, ErrMissingDimension)
	assert.ErrorContains(t, err, "Fuel")
}
