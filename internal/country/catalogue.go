// Package country maps free-text country names to ISO 3166-1 alpha-3 codes
// and model regions.
//
// Resolution runs in three steps: a fixed alias table rewrites names that
// agencies spell in non-standard ways, the ISO catalogue is searched
// case-insensitively, and the resulting code is looked up in the region map.
// A Resolver memoizes results per input string.
package country

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

//go:embed data/iso_3166-1.json
var isoJSON []byte

// Entry is one ISO 3166-1 record.
type Entry struct {
	Alpha2       string `json:"alpha_2"`
	Alpha3       string `json:"alpha_3"`
	Numeric      string `json:"numeric"`
	Name         string `json:"name"`
	OfficialName string `json:"official_name,omitempty"`
	CommonName   string `json:"common_name,omitempty"`
}

// Catalogue is an ordered, searchable list of countries.
type Catalogue struct {
	entries []Entry
	// folded name or code -> position of the first entry carrying it
	byKey map[string]int
}

// LoadCatalogue reads the iso-codes JSON layout: {"3166-1": [ ... ]}.
func LoadCatalogue(r io.Reader) (*Catalogue, error) {
	var doc struct {
		Entries []Entry `json:"3166-1"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode country catalogue: %w", err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("decode country catalogue: no entries")
	}
	return NewCatalogue(doc.Entries), nil
}

// NewCatalogue indexes entries. When two entries share a name, the earlier
// one wins.
func NewCatalogue(entries []Entry) *Catalogue {
	c := &Catalogue{
		entries: append([]Entry(nil), entries...),
		byKey:   make(map[string]int, len(entries)*4),
	}
	for i, e := range c.entries {
		for _, key := range []string{e.Name, e.OfficialName, e.CommonName, e.Alpha3, e.Alpha2} {
			if key == "" {
				continue
			}
			k := fold(key)
			if _, taken := c.byKey[k]; !taken {
				c.byKey[k] = i
			}
		}
	}
	return c
}

var (
	defaultCatalogue     *Catalogue
	defaultCatalogueOnce sync.Once
)

// DefaultCatalogue returns the embedded ISO 3166-1 catalogue.
func DefaultCatalogue() *Catalogue {
	defaultCatalogueOnce.Do(func() {
		c, err := LoadCatalogue(bytes.NewReader(isoJSON))
		if err != nil {
			panic(fmt.Sprintf("embedded country catalogue: %v", err))
		}
		defaultCatalogue = c
	})
	return defaultCatalogue
}

// Lookup finds the entry whose name, official name, common name or code
// equals name under Unicode case folding.
func (c *Catalogue) Lookup(name string) (Entry, bool) {
	i, ok := c.byKey[fold(name)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Len returns the number of entries.
func (c *Catalogue) Len() int {
	return len(c.entries)
}

// fold normalizes a name for comparison. A Caser carries state, so each
// call gets its own.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
