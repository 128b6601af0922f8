// Package units converts statistical values between the units agencies
// report in and the units the normalized tables use.
package units

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/histnorm/internal/frame"
)

// ErrUnknownConversion is returned when no factor is registered for a pair
// of units.
var ErrUnknownConversion = errors.New("unknown unit conversion")

// ErrInvalidNumber is returned when a value cell cannot be parsed.
var ErrInvalidNumber = errors.New("invalid number")

type pair struct{ from, to string }

// factors maps (from, to) to the multiplier applied to values.
// The inverse direction is derived.
var factors = map[pair]float64{
	{"t km / year", "Mt km / year"}:         1e-6,
	{"Mt km / year", "Gt km / year"}:        1e-3,
	{"Tonnes-kilometres", "t km / year"}:    1,
	{"Million tonne-km", "Mt km / year"}:    1,
	{"Billion tonne-km", "Gt km / year"}:    1,
	{"passenger km / year", "Mp km / year"}: 1e-6,
	{"Mp km / year", "Gp km / year"}:        1e-3,
}

// Factor returns the multiplier that converts a value from one unit to
// another. Conversions chain through at most one intermediate unit.
func Factor(from, to string) (float64, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == to {
		return 1, nil
	}
	if f, ok := direct(from, to); ok {
		return f, nil
	}
	for p, f1 := range factors {
		var mid string
		switch {
		case p.from == from:
			mid = p.to
		case p.to == from:
			mid = p.from
			f1 = 1 / f1
		default:
			continue
		}
		if f2, ok := direct(mid, to); ok {
			return f1 * f2, nil
		}
	}
	return 0, fmt.Errorf("%w: %q to %q", ErrUnknownConversion, from, to)
}

func direct(from, to string) (float64, bool) {
	if f, ok := factors[pair{from, to}]; ok {
		return f, true
	}
	if f, ok := factors[pair{to, from}]; ok {
		return 1 / f, true
	}
	return 0, false
}

// Convert converts a single value.
func Convert(v float64, from, to string) (float64, error) {
	f, err := Factor(from, to)
	if err != nil {
		return 0, err
	}
	return v * f, nil
}

// ParseValue parses a numeric cell. Thousands separators are accepted.
func ParseValue(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return v, nil
}

// FormatValue renders a value the way output files carry it: shortest
// decimal representation, no exponent.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ConvertColumn rescales every non-empty cell of valueCol from one unit to
// another and sets unitCol to the target unit, adding it if absent.
func ConvertColumn(f *frame.Frame, valueCol, unitCol, from, to string) error {
	factor, err := Factor(from, to)
	if err != nil {
		return err
	}
	if _, err := f.Index(valueCol); err != nil {
		return err
	}

	for i := 0; i < f.Len(); i++ {
		raw := f.Get(i, valueCol)
		if strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := ParseValue(raw)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := f.Set(i, valueCol, FormatValue(v*factor)); err != nil {
			return err
		}
	}

	f.SetConstant(unitCol, to)
	return nil
}
