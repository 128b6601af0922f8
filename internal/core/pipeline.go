package core

// pipeline.go turns one raw per-dataset table into the canonical schema.
//
// Steps for one dataset:
//  1. Load <input dir>/<ID>_input.csv
//  2. Run the plugin's check; failures become warnings
//  3. Drop the configured raw columns
//  4. Transform
//  5. Resolve each row's country to ISO Code and Region
//  6. Set ID and the plugin's common dimensions on every row
//  7. Validate and reorder to canonical column order
//  8. Write the long and wide views, then publish to sinks
//
// Any error from steps 1 and 3-8 aborts the run. Nothing is written unless
// steps 1-7 succeed.

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/histnorm/internal/country"
	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/logging"
	"github.com/JonMunkholm/histnorm/internal/schema"
	"github.com/JonMunkholm/histnorm/internal/source"
)

// CountryResolver maps a country name to its ISO code and region.
type CountryResolver interface {
	Resolve(name string) (country.Result, error)
}

// Pipeline runs datasets through normalization.
type Pipeline struct {
	registry *Registry
	resolver CountryResolver
	writer   *OutputWriter
	inputDir string
	sinks    []Sink
	recorder RunRecorder
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRegistry replaces the default plugin registry.
func WithRegistry(r *Registry) PipelineOption {
	return func(p *Pipeline) { p.registry = r }
}

// WithSinks adds sinks that receive every finished table.
func WithSinks(sinks ...Sink) PipelineOption {
	return func(p *Pipeline) { p.sinks = append(p.sinks, sinks...) }
}

// WithRecorder records every run, successful or not, to r.
func WithRecorder(r RunRecorder) PipelineOption {
	return func(p *Pipeline) { p.recorder = r }
}

// NewPipeline creates a pipeline reading raw tables from inputDir.
func NewPipeline(resolver CountryResolver, inputDir string, writer *OutputWriter, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		registry: DefaultRegistry(),
		resolver: resolver,
		writer:   writer,
		inputDir: inputDir,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the plugin registry the pipeline dispatches to.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Writer returns the output writer.
func (p *Pipeline) Writer() *OutputWriter {
	return p.writer
}

// InputPath returns the raw input file for a dataset.
func (p *Pipeline) InputPath(id any) string {
	return filepath.Join(p.inputDir, source.CanonicalID(id)+"_input.csv")
}

// Process normalizes one dataset and writes its output files.
//
// When publishing to a sink fails, the files are already written; Process
// then returns both the result and the error.
func (p *Pipeline) Process(ctx context.Context, id any) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.NewString(), DatasetID: source.CanonicalID(id)}
	ctx = logging.WithRunID(ctx, result.RunID)

	res, err := p.process(ctx, result, start)
	p.record(ctx, result, start, err)
	return res, err
}

// record writes the audit entry of a run when a recorder is configured.
func (p *Pipeline) record(ctx context.Context, result *Result, start time.Time, runErr error) {
	if p.recorder == nil {
		return
	}

	entry := RunEntry{
		RunID:     result.RunID,
		DatasetID: result.DatasetID,
		Status:    RunSucceeded,
		Rows:      result.Rows,
		Warnings:  result.Warnings,
		StartedAt: start,
		Duration:  time.Since(start),
	}
	if runErr != nil {
		entry.Status = RunFailed
		entry.Error = runErr.Error()
	}

	if err := p.recorder.RecordRun(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("failed to record run", "dataset", result.DatasetID, "error", err)
	}
}

func (p *Pipeline) process(ctx context.Context, result *Result, start time.Time) (*Result, error) {
	key := result.DatasetID
	logger := logging.WithFields(ctx, "dataset", key)

	ds, err := p.registry.Lookup(key)
	if err != nil {
		return nil, err
	}

	// Step 1: load
	inputPath := p.InputPath(key)
	table, err := frame.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	logger.Info("raw table loaded", "path", inputPath, "rows", table.Len(), "columns", len(table.Columns()))

	// Step 2: check
	if ds.Check == nil {
		logger.Info("no check defined, skipping validation")
	} else if err := ds.Check(table); err != nil {
		for _, e := range flattenErrors(err) {
			logger.Warn("raw table check failed", "error", e)
			result.Warnings = append(result.Warnings, e.Error())
		}
	}

	// Step 3: drop columns
	if drop := ds.dropColumns(); len(drop) == 0 {
		logger.Info("nothing to drop")
	} else if err := table.Drop(drop...); err != nil {
		return nil, fmt.Errorf("drop columns: %w", err)
	} else {
		logger.Debug("columns dropped", "count", len(drop))
	}

	// Step 4: transform
	table, err = ds.Transform(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", key, err)
	}
	if table == nil {
		return nil, fmt.Errorf("transform %s: returned no table", key)
	}
	logger.Info("transform complete", "rows", table.Len())

	// Step 5: country and region
	if err := p.resolveCountries(table, ds.countryColumn()); err != nil {
		return nil, err
	}

	// Step 6: constants
	table.SetConstant(schema.ID.String(), key)
	dims := make([]string, 0, len(ds.CommonDims))
	for k := range ds.CommonDims {
		dims = append(dims, k)
	}
	sort.Strings(dims)
	for _, k := range dims {
		col, ok := schema.Lookup(k)
		if !ok || col == schema.Value {
			return nil, fmt.Errorf("%s: %w: %q", key, ErrUnknownDimension, k)
		}
		table.SetConstant(col.String(), ds.CommonDims[k])
	}

	// Step 7: validate and reorder
	if err := ValidateCanonical(table); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	table, err = table.Select(schema.Names()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 8: write and publish
	result.LongPath, result.WidePath, err = p.writer.Write(key, table)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", key, err)
	}
	result.Table = table
	result.Rows = table.Len()

	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, key, table); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("publish %s to %s: %w", key, sink.Name(), err)
		}
		result.Published = append(result.Published, sink.Name())
	}

	result.Duration = time.Since(start)
	logger.Info("dataset processed",
		"rows", result.Rows,
		"warnings", len(result.Warnings),
		"long", result.LongPath,
		"wide", result.WidePath,
		"duration", result.Duration,
	)
	return result, nil
}

// resolveCountries fills ISO Code and Region from the country column,
// renaming that column to Country if the plugin used another name.
func (p *Pipeline) resolveCountries(table *frame.Frame, countryCol string) error {
	canonical := schema.Country.String()
	if countryCol != canonical {
		if table.Has(canonical) {
			if err := table.Drop(canonical); err != nil {
				return err
			}
		}
		if err := table.Rename(countryCol, canonical); err != nil {
			return fmt.Errorf("country column: %w", err)
		}
	}

	names, err := table.Column(canonical)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMissingDimension, canonical)
	}

	codes := make([]string, len(names))
	regions := make([]string, len(names))
	for i, name := range names {
		res, err := p.resolver.Resolve(name)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		codes[i] = res.ISOCode
		regions[i] = res.Region
	}

	for _, pair := range []struct {
		col    string
		values []string
	}{
		{schema.ISOCode.String(), codes},
		{schema.Region.String(), regions},
	} {
		table.SetConstant(pair.col, "")
		for i, v := range pair.values {
			if err := table.Set(i, pair.col, v); err != nil {
				return err
			}
		}
	}
	return nil
}
