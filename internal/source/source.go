// Package source holds the catalogue of upstream data sources, loaded from
// sources.yaml, and the rules for canonical dataset identifiers.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownSource is returned when an identifier is not in the registry.
var ErrUnknownSource = errors.New("unknown source")

// Kind names the protocol used to retrieve a source.
type Kind string

const (
	KindSDMX        Kind = "sdmx"
	KindOpenKAPSARC Kind = "openkapsarc"
)

// FetchSpec says how to retrieve a source. Every key other than "type" is
// passed to the remote client as a parameter.
type FetchSpec struct {
	Kind   Kind           `yaml:"type" json:"type"`
	Params map[string]any `yaml:",inline" json:"params,omitempty"`
}

// Param returns a parameter rendered as a string, or "" if absent.
func (s FetchSpec) Param(key string) string {
	v, ok := s.Params[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// DataSource describes one upstream table.
type DataSource struct {
	ID    string    `yaml:"-" json:"id"`
	Name  string    `yaml:"name,omitempty" json:"name,omitempty"`
	URL   string    `yaml:"url,omitempty" json:"url,omitempty"`
	Fetch FetchSpec `yaml:"fetch" json:"fetch"`
}

// CanonicalID renders a dataset identifier. Integers, and strings made only
// of digits, become "T" plus the number zero-padded to three digits; other
// strings are trimmed and upper-cased. So 1, "1" and "t001" all map to "T001".
func CanonicalID(id any) string {
	switch v := id.(type) {
	case int:
		return fmt.Sprintf("T%03d", v)
	case int64:
		return fmt.Sprintf("T%03d", v)
	case uint:
		return fmt.Sprintf("T%03d", v)
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil && n >= 0 && isDigits(s) {
			return fmt.Sprintf("T%03d", n)
		}
		return strings.ToUpper(s)
	case fmt.Stringer:
		return CanonicalID(v.String())
	default:
		return CanonicalID(fmt.Sprint(v))
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Registry is the immutable set of known sources.
type Registry struct {
	sources map[string]DataSource
}

// Parse reads a sources document: a mapping from identifier to descriptor.
func Parse(r io.Reader) (*Registry, error) {
	var doc map[string]DataSource
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse sources: %w", err)
	}

	reg := &Registry{sources: make(map[string]DataSource, len(doc))}
	for key, ds := range doc {
		id := CanonicalID(key)
		if _, dup := reg.sources[id]; dup {
			return nil, fmt.Errorf("parse sources: %q and another key both map to %s", key, id)
		}
		if ds.Fetch.Kind == "" {
			return nil, fmt.Errorf("parse sources: %s: fetch.type is required", id)
		}
		ds.ID = id
		ds.Fetch.Kind = Kind(strings.ToLower(string(ds.Fetch.Kind)))
		if ds.Fetch.Params == nil {
			ds.Fetch.Params = map[string]any{}
		}
		reg.sources[id] = ds
	}
	return reg, nil
}

// Load reads a sources file.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Describe returns the descriptor for an identifier in any accepted form.
// The returned descriptor's parameters are a copy.
func (r *Registry) Describe(id any) (DataSource, error) {
	key := CanonicalID(id)
	ds, ok := r.sources[key]
	if !ok {
		return DataSource{}, fmt.Errorf("%w: %s", ErrUnknownSource, key)
	}
	params := make(map[string]any, len(ds.Fetch.Params))
	for k, v := range ds.Fetch.Params {
		params[k] = v
	}
	ds.Fetch.Params = params
	return ds, nil
}

// IDs returns all identifiers, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of sources.
func (r *Registry) Len() int {
	return len(r.sources)
}
