// Package core provides the normalization pipeline for historical datasets.
//
// This package contains the domain logic independent of any transport. It
// is driven by the CLI, the HTTP API and tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Datasets: Registered via the registry, each plugin supplies a
//     transform and optionally a raw check, a drop list and constant
//     dimensions.
//   - Pipeline: Loads a raw table, runs the plugin, resolves countries,
//     validates the canonical schema and writes the outputs.
//   - Fetcher: Materializes remote sources as local CSV files.
//   - OutputWriter: Writes the long (_PF) and wide (_UF) views.
//
// # Dataset Registry
//
// Datasets are registered at init time using [Register]:
//
//	core.Register(core.Dataset{
//	    Info:      core.Info{ID: "T001", Name: "Coastal shipping"},
//	    Columns:   &core.ColumnConfig{Drop: []string{"Flags"}},
//	    Transform: transformT001,
//	    CommonDims: map[string]string{
//	        "mode": "Shipping",
//	    },
//	})
//
// Identifiers are canonicalized, so 1, "1" and "t001" all find T001.
//
// # Error Handling
//
// Raw check failures are logged and returned as warnings. Every other
// failure aborts the run before any output file is written. Technical
// errors are mapped to user-facing messages using [MapError]:
//
//   - SRC001-SRC003: Source errors (unknown id, unsupported kind)
//   - NET001-NET002: Network errors
//   - CTY001-CTY002: Country errors
//   - DIM001-DIM002: Dimension errors
//   - VAL001-VAL006: Validation errors
//   - FILE001-FILE004: File errors
//   - RUN001-RUN004: Run errors (busy, cancelled, timeout)
//
// # Run Audit
//
// With [WithRecorder], every run is recorded with its status, row count,
// warnings and duration, including runs that failed.
package core
