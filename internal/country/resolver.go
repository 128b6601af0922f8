package country

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ErrUnknownCountry is returned when a name matches no catalogue entry,
// even after alias substitution.
var ErrUnknownCountry = errors.New("unknown country")

// UnknownRegion is the region reported for a code that no region lists.
const UnknownRegion = "N/A"

// DefaultAliases rewrites names that source agencies spell differently from
// the ISO catalogue.
var DefaultAliases = map[string]string{
	"Montenegro, Republic of": "Montenegro",
	"Bosnia-Herzegovina":      "Bosnia and Herzegovina",
	"Korea":                   "Korea, Republic of",
	"Serbia, Republic of":     "Serbia",
}

// Result is the outcome of resolving one country name.
type Result struct {
	ISOCode string `json:"iso_code"`
	Region  string `json:"region"`
}

// Resolver maps country names to ISO codes and regions. It is safe for
// concurrent use; the first resolution of a name is computed once and every
// later call with the same literal string returns the cached result.
type Resolver struct {
	catalogue *Catalogue
	aliases   map[string]string
	regions   RegionMap

	cache   sync.Map // name -> Result
	group   singleflight.Group
	lookups atomic.Int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCatalogue replaces the embedded ISO catalogue.
func WithCatalogue(c *Catalogue) Option {
	return func(r *Resolver) { r.catalogue = c }
}

// WithAliases replaces the alias table.
func WithAliases(aliases map[string]string) Option {
	return func(r *Resolver) {
		r.aliases = make(map[string]string, len(aliases))
		for k, v := range aliases {
			r.aliases[k] = v
		}
	}
}

// NewResolver creates a resolver over the given region map.
func NewResolver(regions RegionMap, opts ...Option) *Resolver {
	r := &Resolver{
		regions: regions,
	}
	WithAliases(DefaultAliases)(r)
	for _, opt := range opts {
		opt(r)
	}
	if r.catalogue == nil {
		r.catalogue = DefaultCatalogue()
	}
	if r.regions == nil {
		r.regions = RegionMap{}
	}
	return r
}

// Resolve returns the ISO 3166-1 alpha-3 code and region for name.
// Failures are not cached.
func (r *Resolver) Resolve(name string) (Result, error) {
	if v, ok := r.cache.Load(name); ok {
		return v.(Result), nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		if v, ok := r.cache.Load(name); ok {
			return v, nil
		}
		res, err := r.resolve(name)
		if err != nil {
			return nil, err
		}
		r.cache.Store(name, res)
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (r *Resolver) resolve(name string) (Result, error) {
	r.lookups.Add(1)

	query := name
	if alias, ok := r.aliases[name]; ok {
		query = alias
	}

	entry, ok := r.catalogue.Lookup(query)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCountry, name)
	}

	region, ok := r.regions[entry.Alpha3]
	if !ok {
		region = UnknownRegion
	}
	return Result{ISOCode: entry.Alpha3, Region: region}, nil
}

// Lookups returns how many times the catalogue has been searched, which
// is the number of cache misses so far.
func (r *Resolver) Lookups() int64 {
	return r.lookups.Load()
}

// Cached returns the number of memoized names.
func (r *Resolver) Cached() int {
	n := 0
	r.cache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
