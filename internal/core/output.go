package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/schema"
	"github.com/JonMunkholm/histnorm/internal/source"
)

// ErrDuplicateObservation is returned when two rows share every key column
// and the year, so the wide view would need two values in one cell.
var ErrDuplicateObservation = errors.New("duplicate observation")

// ErrNoOutput is returned by Open when a dataset has not been processed.
var ErrNoOutput = errors.New("no output written")

// View selects one of the two output files.
type View string

const (
	// ViewLong is the canonical table row for row.
	ViewLong View = "long"
	// ViewWide has one column per year.
	ViewWide View = "wide"
)

// ParseView accepts "long"/"wide" and the file suffixes "PF"/"UF".
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "pf":
		return ViewLong, nil
	case "wide", "uf":
		return ViewWide, nil
	}
	return "", fmt.Errorf("unknown view %q (want long or wide)", s)
}

// OutputWriter writes the long and wide views of canonical tables.
type OutputWriter struct {
	dir string
}

// NewOutputWriter creates a writer for dir. The directory is created on the
// first write.
func NewOutputWriter(dir string) *OutputWriter {
	return &OutputWriter{dir: dir}
}

// Dir returns the output directory.
func (w *OutputWriter) Dir() string {
	return w.dir
}

// Path returns the file a view of a dataset is written to.
func (w *OutputWriter) Path(id any, view View) string {
	suffix := "PF"
	if view == ViewWide {
		suffix = "UF"
	}
	return filepath.Join(w.dir, fmt.Sprintf("%s_cleaned_%s.csv", source.CanonicalID(id), suffix))
}

// Open opens a previously written view for reading.
func (w *OutputWriter) Open(id any, view View) (*os.File, error) {
	f, err := os.Open(w.Path(id, view))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s %s: %w", source.CanonicalID(id), view, ErrNoOutput)
	}
	return f, err
}

// Write writes both views of table. The wide view is derived before either
// file is touched, so a table that cannot be pivoted leaves no output.
func (w *OutputWriter) Write(id any, table *frame.Frame) (longPath, widePath string, err error) {
	wide, err := Pivot(table)
	if err != nil {
		return "", "", err
	}

	longPath = w.Path(id, ViewLong)
	if err := frame.WriteFile(longPath, table); err != nil {
		return "", "", fmt.Errorf("write long view: %w", err)
	}

	widePath = w.Path(id, ViewWide)
	if err := frame.WriteFile(widePath, wide); err != nil {
		return "", "", fmt.Errorf("write wide view: %w", err)
	}
	return longPath, widePath, nil
}

// Pivot derives the wide view of a canonical table: one row per distinct
// combination of key columns other than Year, one column per year in
// ascending order. Rows are sorted by their key columns. Cells with no
// observation are empty.
func Pivot(table *frame.Frame) (*frame.Frame, error) {
	keys := pivotKeys()
	for _, c := range append(append([]string{}, keys...), schema.Year.String(), schema.Value.String()) {
		if !table.Has(c) {
			return nil, fmt.Errorf("pivot: %w: %s", ErrMissingDimension, c)
		}
	}

	type group struct {
		key    []string
		values map[string]string
	}
	groups := make(map[string]*group)
	years := make(map[string]bool)

	for i := 0; i < table.Len(); i++ {
		key := make([]string, len(keys))
		for k, c := range keys {
			key[k] = table.Get(i, c)
		}
		year := strings.TrimSpace(table.Get(i, schema.Year.String()))

		id := strings.Join(key, "\x1f")
		g, ok := groups[id]
		if !ok {
			g = &group{key: key, values: make(map[string]string)}
			groups[id] = g
		}
		if _, dup := g.values[year]; dup {
			return nil, fmt.Errorf("%w: %s in %s", ErrDuplicateObservation, strings.Join(key, ", "), year)
		}
		g.values[year] = table.Get(i, schema.Value.String())
		years[year] = true
	}

	yearCols := sortYears(years)
	out := frame.New(append(append([]string{}, keys...), yearCols...)...)

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return lessStrings(ordered[i].key, ordered[j].key)
	})

	for _, g := range ordered {
		row := make([]string, 0, len(keys)+len(yearCols))
		row = append(row, g.key...)
		for _, y := range yearCols {
			row = append(row, g.values[y])
		}
		if err := out.Append(row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Unpivot turns a wide view back into long rows with canonical columns.
// Empty year cells produce no row.
func Unpivot(wide *frame.Frame) (*frame.Frame, error) {
	keys := pivotKeys()
	for _, c := range keys {
		if !wide.Has(c) {
			return nil, fmt.Errorf("unpivot: %w: %s", ErrMissingDimension, c)
		}
	}
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var yearCols []string
	for _, c := range wide.Columns() {
		if !isKey[c] {
			yearCols = append(yearCols, c)
		}
	}

	out := frame.New(schema.Names()...)
	for i := 0; i < wide.Len(); i++ {
		for _, y := range yearCols {
			v := wide.Get(i, y)
			if v == "" {
				continue
			}
			rec := map[string]string{
				schema.Year.String():  y,
				schema.Value.String(): v,
			}
			for _, k := range keys {
				rec[k] = wide.Get(i, k)
			}
			if err := out.AppendRecord(rec); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// pivotKeys returns the key columns without Year.
func pivotKeys() []string {
	var keys []string
	for _, c := range schema.KeyColumns() {
		if c != schema.Year {
			keys = append(keys, c.String())
		}
	}
	return keys
}

// sortYears orders year labels numerically, with anything unparseable after
// the numbers in lexical order.
func sortYears(set map[string]bool) []string {
	years := make([]string, 0, len(set))
	for y := range set {
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool {
		a, errA := strconv.Atoi(years[i])
		b, errB := strconv.Atoi(years[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return years[i] < years[j]
	})
	return years
}

func lessStrings(a, b []string) bool {
	for k := range a {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return false
}
