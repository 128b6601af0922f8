// Package schema defines the canonical output columns shared by every dataset.
//
// Every normalized table has exactly these columns in exactly this order.
// Value is the only measure; all other columns are dimensions and together
// form the key of an observation.
package schema

import (
	"strconv"
	"strings"
)

// FieldType represents the expected data type for a canonical column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInteger
	FieldNumeric
)

// FieldSpec defines validation rules for a single canonical column.
type FieldSpec struct {
	Name       string    // Header written to output files
	DBColumn   string    // Snake-case name, also used as the dimension name in CommonDims
	Type       FieldType // Expected data type
	Required   bool      // Column must exist in the table
	AllowEmpty bool      // If true, empty cells are allowed even when Required
}

// Column identifies one canonical column. The zero value is ID.
type Column int

const (
	ID Column = iota
	Country
	ISOCode
	Region
	Year
	Variable
	Value
	Unit
	Source
	Service
	Technology
	Fuel
	Mode
	VehicleType

	numColumns
)

// fields is indexed by Column.
var fields = [numColumns]FieldSpec{
	ID:          {Name: "ID", DBColumn: "id", Type: FieldText, Required: true},
	Country:     {Name: "Country", DBColumn: "country", Type: FieldText, Required: true},
	ISOCode:     {Name: "ISO Code", DBColumn: "iso_code", Type: FieldText, Required: true},
	Region:      {Name: "Region", DBColumn: "region", Type: FieldText, Required: true},
	Year:        {Name: "Year", DBColumn: "year", Type: FieldInteger, Required: true},
	Variable:    {Name: "Variable", DBColumn: "variable", Type: FieldText, Required: true},
	Value:       {Name: "Value", DBColumn: "value", Type: FieldNumeric, Required: true, AllowEmpty: true},
	Unit:        {Name: "Unit", DBColumn: "unit", Type: FieldText, Required: true},
	Source:      {Name: "Source", DBColumn: "source", Type: FieldText, Required: true},
	Service:     {Name: "Service", DBColumn: "service", Type: FieldText, Required: true},
	Technology:  {Name: "Technology", DBColumn: "technology", Type: FieldText, Required: true},
	Fuel:        {Name: "Fuel", DBColumn: "fuel", Type: FieldText, Required: true},
	Mode:        {Name: "Mode", DBColumn: "mode", Type: FieldText, Required: true},
	VehicleType: {Name: "Vehicle Type", DBColumn: "vehicle_type", Type: FieldText, Required: true},
}

// String returns the column header.
func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return "Column(" + strconv.Itoa(int(c)) + ")"
	}
	return fields[c].Name
}

// Dimension returns the snake-case dimension name, e.g. "vehicle_type".
func (c Column) Dimension() string {
	return fields[c].DBColumn
}

// Spec returns the field specification for the column.
func (c Column) Spec() FieldSpec {
	return fields[c]
}

// Columns returns all canonical columns in output order.
func Columns() []Column {
	cols := make([]Column, numColumns)
	for i := range cols {
		cols[i] = Column(i)
	}
	return cols
}

// FieldSpecs returns the field specifications in output order.
func FieldSpecs() []FieldSpec {
	specs := make([]FieldSpec, numColumns)
	copy(specs, fields[:])
	return specs
}

// Names returns the canonical headers in output order.
func Names() []string {
	names := make([]string, numColumns)
	for i := range names {
		names[i] = fields[i].Name
	}
	return names
}

// KeyColumns returns every column except Value, in output order.
// These identify an observation and are the pivot keys of the wide view.
func KeyColumns() []Column {
	keys := make([]Column, 0, numColumns-1)
	for _, c := range Columns() {
		if c != Value {
			keys = append(keys, c)
		}
	}
	return keys
}

// KeyNames returns the headers of KeyColumns.
func KeyNames() []string {
	keys := KeyColumns()
	names := make([]string, len(keys))
	for i, c := range keys {
		names[i] = c.String()
	}
	return names
}

// Lookup finds a column by header ("Vehicle Type") or dimension name
// ("vehicle_type"). Matching is case-insensitive.
func Lookup(name string) (Column, bool) {
	name = strings.TrimSpace(name)
	for i, f := range fields {
		if strings.EqualFold(f.Name, name) || strings.EqualFold(f.DBColumn, name) {
			return Column(i), true
		}
	}
	return 0, false
}
