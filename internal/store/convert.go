package store

// convert.go turns canonical table cells into PostgreSQL values.
//
// All ToPg* functions return pgtype values with Valid=false for empty or
// invalid input so the column is stored as NULL.

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/histnorm/internal/schema"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgNumeric converts a string to pgtype.Numeric.
// Thousands separators are removed first.
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// ToPgInt4 converts a string to pgtype.Int4.
func ToPgInt4(s string) pgtype.Int4 {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// toPg converts a cell according to its column's type.
func toPg(spec schema.FieldSpec, cell string) any {
	switch spec.Type {
	case schema.FieldInteger:
		return ToPgInt4(cell)
	case schema.FieldNumeric:
		return ToPgNumeric(cell)
	default:
		return ToPgText(cell)
	}
}

// sqlType returns the column type used in the observations table.
func sqlType(t schema.FieldType) string {
	switch t {
	case schema.FieldInteger:
		return "integer"
	case schema.FieldNumeric:
		return "numeric"
	default:
		return "text"
	}
}
