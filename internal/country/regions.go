package country

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrRegionConflict is returned when a country code is listed under more
// than one region.
var ErrRegionConflict = errors.New("country assigned to more than one region")

// RegionMap maps ISO 3166-1 alpha-3 codes to region names.
type RegionMap map[string]string

// regionDoc is one entry of regions.yaml. Other keys are ignored.
type regionDoc struct {
	Countries []string `yaml:"countries"`
}

// ParseRegions reads a region definition document of the form
//
//	R11_AFR:
//	  countries: [AGO, BDI, ...]
//
// and inverts it to code -> region.
func ParseRegions(r io.Reader) (RegionMap, error) {
	var doc map[string]regionDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return RegionMap{}, nil
		}
		return nil, fmt.Errorf("parse regions: %w", err)
	}

	// Walk regions in sorted order so a conflict is reported deterministically.
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	m := make(RegionMap)
	for _, region := range names {
		for _, code := range doc[region].Countries {
			code = strings.ToUpper(strings.TrimSpace(code))
			if prev, ok := m[code]; ok && prev != region {
				return nil, fmt.Errorf("%w: %s in %s and %s", ErrRegionConflict, code, prev, region)
			}
			m[code] = region
		}
	}
	return m, nil
}

// LoadRegions reads a region definition file.
func LoadRegions(path string) (RegionMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open regions file: %w", err)
	}
	defer f.Close()
	return ParseRegions(f)
}

// Regions returns the distinct region names, sorted.
func (m RegionMap) Regions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range m {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}
