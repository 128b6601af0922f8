package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/histnorm/internal/schema"
	"github.com/JonMunkholm/histnorm/internal/source"
)

var (
	// ErrUnknownDataset is returned when no plugin is registered for an id.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrUnknownDimension is returned when CommonDims names a column that is
	// not a canonical dimension.
	ErrUnknownDimension = errors.New("unknown dimension")
)

// Registry maps dataset identifiers to plugins.
type Registry struct {
	mu       sync.RWMutex
	datasets map[string]Dataset
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{datasets: make(map[string]Dataset)}
}

// defaultRegistry holds the plugins that register themselves from init().
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a dataset to the default registry.
// Panics if the definition is invalid or the id is already registered.
func Register(ds Dataset) {
	defaultRegistry.Register(ds)
}

// Get returns a dataset from the default registry.
func Get(id any) (Dataset, bool) {
	return defaultRegistry.Get(id)
}

// Register adds a dataset. The id is canonicalized first.
// Panics if the definition is invalid or the id is already registered.
func (r *Registry) Register(ds Dataset) {
	if err := r.add(ds); err != nil {
		panic(err.Error())
	}
}

// add is Register returning the error instead of panicking.
func (r *Registry) add(ds Dataset) error {
	if ds.Info.ID == "" {
		return fmt.Errorf("dataset has no id")
	}
	ds.Info.ID = source.CanonicalID(ds.Info.ID)

	if ds.Transform == nil {
		return fmt.Errorf("dataset %s: transform is required", ds.Info.ID)
	}
	if err := validateCommonDims(ds.CommonDims); err != nil {
		return fmt.Errorf("dataset %s: %w", ds.Info.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.datasets[ds.Info.ID]; exists {
		return fmt.Errorf("dataset already registered: %s", ds.Info.ID)
	}
	r.datasets[ds.Info.ID] = ds
	return nil
}

// validateCommonDims rejects keys outside the canonical schema, and the
// measure column, which is never constant.
func validateCommonDims(dims map[string]string) error {
	for k := range dims {
		col, ok := schema.Lookup(k)
		if !ok || col == schema.Value {
			return fmt.Errorf("%w: %q", ErrUnknownDimension, k)
		}
	}
	return nil
}

// Get returns a dataset by id in any accepted form.
// Returns false if not found.
func (r *Registry) Get(id any) (Dataset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ds, ok := r.datasets[source.CanonicalID(id)]
	return ds, ok
}

// Lookup is Get returning ErrUnknownDataset.
func (r *Registry) Lookup(id any) (Dataset, error) {
	ds, ok := r.Get(id)
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %s", ErrUnknownDataset, source.CanonicalID(id))
	}
	return ds, nil
}

// All returns all registered datasets sorted by id.
func (r *Registry) All() []Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Dataset, 0, len(r.datasets))
	for _, ds := range r.datasets {
		result = append(result, ds)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.ID < result[j].Info.ID
	})

	return result
}

// Count returns the number of registered datasets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.datasets)
}

// Clear removes all registered datasets.
// Primarily useful for testing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets = make(map[string]Dataset)
}
