// Package datasets registers the dataset plugins with the core registry.
// Import this package for its side effects to make every plugin available.
package datasets

// Each plugin file registers itself from init().
