package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/histnorm/internal/country"
	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/schema"
	"github.com/JonMunkholm/histnorm/internal/testutil"
)

var allDims = map[string]string{
	"variable":     "Freight Activity",
	"unit":         "Gt km / year",
	"source":       "Test Agency",
	"service":      "Freight",
	"technology":   "All",
	"fuel":         "All",
	"mode":         "Shipping",
	"vehicle_type": "Coastal",
}

type pipelineEnv struct {
	dir      string
	inputDir string
	outDir   string
	registry *Registry
	resolver *country.Resolver
	pipeline *Pipeline
}

func newPipelineEnv(t *testing.T, opts ...PipelineOption) *pipelineEnv {
	t.Helper()
	dir := t.TempDir()
	env := &pipelineEnv{
		dir:      dir,
		inputDir: filepath.Join(dir, "input"),
		outDir:   filepath.Join(dir, "output"),
		registry: NewRegistry(),
	}
	require.NoError(t, os.MkdirAll(env.inputDir, 0o755))

	regions, err := country.ParseRegions(strings.NewReader("R11_CPA:\n  countries: [CHN]\nR11_PAO:\n  countries: [JPN]\n"))
	require.NoError(t, err)
	env.resolver = country.NewResolver(regions)

	opts = append([]PipelineOption{WithRegistry(env.registry)}, opts...)
	env.pipeline = NewPipeline(env.resolver, env.inputDir, NewOutputWriter(env.outDir), opts...)
	return env
}

func (e *pipelineEnv) writeInput(t *testing.T, id, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.inputDir, id+"_input.csv"), []byte(body), 0o644))
}

func (e *pipelineEnv) outputs(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.outDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, en := range entries {
		names = append(names, en.Name())
	}
	return names
}

const simpleInput = "Nation,Year,Value,Junk\nChina,1995,1,x\nJapan,1995,2,y\nKorea,1996,3,z\n"

func simpleDataset(id string) Dataset {
	return Dataset{
		Info:       Info{ID: id},
		Columns:    &ColumnConfig{Drop: []string{"Junk"}, CountryColumn: "Nation"},
		Transform:  identity,
		CommonDims: allDims,
	}
}

func TestPipeline_Process(t *testing.T) {
	env := newPipelineEnv(t)
	env.registry.Register(simpleDataset("T005"))
	env.writeInput(t, "T005", simpleInput)

	res, err := env.pipeline.Process(testutil.Context(t), 5)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "T005", res.DatasetID)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, filepath.Join(env.outDir, "T005_cleaned_PF.csv"), res.LongPath)
	assert.Equal(t, filepath.Join(env.outDir, "T005_cleaned_UF.csv"), res.WidePath)

	table := res.Table
	assert.Equal(t, schema.Names(), table.Columns(), "canonical columns in canonical order")
	for i := 0; i < table.Len(); i++ {
		for _, c := range schema.Names() {
			assert.NotEmpty(t, table.Get(i, c), "row %d column %s", i, c)
		}
		assert.Equal(t, "T005", table.Get(i, "ID"))
	}

	assert.Equal(t, "CHN", table.Get(0, "ISO Code"))
	assert.Equal(t, "R11_CPA", table.Get(0, "Region"))
	assert.Equal(t, "JPN", table.Get(1, "ISO Code"))
	assert.Equal(t, "KOR", table.Get(2, "ISO Code"))
	assert.Equal(t, country.UnknownRegion, table.Get(2, "Region"))

	written, err := frame.ReadFile(res.LongPath)
	require.NoError(t, err)
	assert.Equal(t, table.Records(), written.Records())
}

func TestPipeline_Deterministic(t *testing.T) {
	env := newPipelineEnv(t)
	env.registry.Register(simpleDataset("T005"))
	env.writeInput(t, "T005", simpleInput)
	ctx := testutil.Context(t)

	first, err := env.pipeline.Process(ctx, "T005")
	require.NoError(t, err)
	long1, _ := os.ReadFile(first.LongPath)
	wide1, _ := os.ReadFile(first.WidePath)

	second, err := env.pipeline.Process(ctx, "5")
	require.NoError(t, err)
	long2, _ := os.ReadFile(second.LongPath)
	wide2, _ := os.ReadFile(second.WidePath)

	assert.Equal(t, long1, long2)
	assert.Equal(t, wide1, wide2)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestPipeline_CheckFailureIsNotFatal(t *testing.T) {
	env := newPipelineEnv(t)
	ds := simpleDataset("T006")
	ds.Check = func(raw *frame.Frame) error {
		return Checks(raw,
			func(f *frame.Frame) error { return ExpectValues(f, "Nation", "China") },
			func(f *frame.Frame) error { return ExpectColumns(f, "Unit") },
		)
	}
	env.registry.Register(ds)
	env.writeInput(t, "T006", simpleInput)

	ctx, logs := testutil.CaptureContext(t)
	res, err := env.pipeline.Process(ctx, 6)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Table.Len())
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "Nation")
	assert.Contains(t, res.Warnings[1], "Unit")
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "raw table check failed")
	assert.Len(t, env.outputs(t), 2)
}

func TestPipeline_OptionalCapabilitiesLogged(t *testing.T) {
	env := newPipelineEnv(t)
	env.registry.Register(Dataset{
		Info:       Info{ID: "T007"},
		Transform:  identity,
		CommonDims: allDims,
	})
	env.writeInput(t, "T007", "Country,Year,Value\nChina,2000,1\n")

	ctx, logs := testutil.CaptureContext(t)
	_, err := env.pipeline.Process(ctx, 7)
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "no check defined")
	assert.Contains(t, logs.String(), "nothing to drop")
	assert.Contains(t, logs.String(), "run_id=")
}

func TestPipeline_UnknownCountryIsFatal(t *testing.T) {
	env := newPipelineEnv(t)
	env.registry.Register(simpleDataset("T008"))
	env.writeInput(t, "T008", "Nation,Year,Value,Junk\nChina,1995,1,x\nNowhereland,1995,2,y\n")

	res, err := env.pipeline.Process(testutil.Context(t), 8)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, country.ErrUnknownCountry)
	assert.Contains(t, err.Error(), "Nowhereland")
	assert.Empty(t, env.outputs(t), "no output files for a failed run")
}

func TestPipeline_MissingDimensionIsFatal(t *testing.T) {
	env := newPipelineEnv(t)
	dims := map[string]string{}
	for k, v := range allDims {
		if k != "fuel" {
			dims[k] = v
		}
	}
	ds := simpleDataset("T009")
	ds.CommonDims = dims
	env.registry.Register(ds)
	env.writeInput(t, "T009", simpleInput)

	_, err := env.pipeline.Process(testutil.Context(t), 9)
	assert.ErrorIs(t, err, ErrMissingDimension)
	assert.ErrorContains(t, err, "Fuel")
	assert.Empty(t, env.outputs(t))
}

func TestPipeline_DropOfAbsentColumnIsFatal(t *testing.T) {
	env := newPipelineEnv(t)
	ds := simpleDataset("T010")
	ds.Columns.Drop = []string{"Junk", "Flags"}
	env.registry.Register(ds)
	env.writeInput(t, "T010", simpleInput)

	_, err := env.pipeline.Process(testutil.Context(t), 10)
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)
}

func TestPipeline_Errors(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := testutil.Context(t)

	_, err := env.pipeline.Process(ctx, 42)
	assert.ErrorIs(t, err, ErrUnknownDataset)

	env.registry.Register(simpleDataset("T011"))
	_, err = env.pipeline.Process(ctx, 11)
	assert.ErrorIs(t, err, os.ErrNotExist)

	env.registry.Register(Dataset{
		Info: Info{ID: "T012"},
		Transform: func(context.Context, *frame.Frame) (*frame.Frame, error) {
			return nil, errors.New("bad data")
		},
	})
	env.writeInput(t, "T012", simpleInput)
	_, err = env.pipeline.Process(ctx, 12)
	assert.ErrorContains(t, err, "transform T012: bad data")
}

func TestPipeline_ResolverMemoizes(t *testing.T) {
	env := newPipelineEnv(t)
	env.registry.Register(Dataset{Info: Info{ID: "T013"}, Transform: identity, CommonDims: allDims})
	env.writeInput(t, "T013", "Country,Year,Value\nChina,1990,1\nChina,1991,2\nChina,1992,3\nKorea,1990,4\n")

	_, err := env.pipeline.Process(testutil.Context(t), 13)
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.resolver.Lookups())
}

type recordingSink struct {
	name   string
	err    error
	tables map[string]int
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, id string, table *frame.Frame) error {
	if s.err != nil {
		return s.err
	}
	if s.tables == nil {
		s.tables = map[string]int{}
	}
	s.tables[id] = table.Len()
	return nil
}

func TestPipeline_Sinks(t *testing.T) {
	ok := &recordingSink{name: "memory"}
	failing := &recordingSink{name: "broken", err: errors.New("connection refused")}
	env := newPipelineEnv(t, WithSinks(ok, failing))
	env.registry.Register(simpleDataset("T014"))
	env.writeInput(t, "T014", simpleInput)

	res, err := env.pipeline.Process(testutil.Context(t), 14)
	require.Error(t, err)
	assert.ErrorContains(t, err, "broken")
	require.NotNil(t, res, "files were written, so the result is returned")
	assert.Equal(t, []string{"memory"}, res.Published)
	assert.Equal(t, 3, ok.tables["T014"])
	assert.Len(t, env.outputs(t), 2)
}

type memoryRecorder struct {
	entries []RunEntry
	err     error
}

func (r *memoryRecorder) RecordRun(_ context.Context, e RunEntry) error {
	r.entries = append(r.entries, e)
	return r.err
}

func TestPipeline_RecordsRuns(t *testing.T) {
	rec := &memoryRecorder{}
	env := newPipelineEnv(t, WithRecorder(rec))
	env.registry.Register(simpleDataset("T015"))
	env.writeInput(t, "T015", simpleInput)

	res, err := env.pipeline.Process(testutil.Context(t), 15)
	require.NoError(t, err)

	_, err = env.pipeline.Process(testutil.Context(t), 16)
	require.Error(t, err)

	require.Len(t, rec.entries, 2)

	ok := rec.entries[0]
	assert.Equal(t, res.RunID, ok.RunID)
	assert.Equal(t, "T015", ok.DatasetID)
	assert.Equal(t, RunSucceeded, ok.Status)
	assert.Equal(t, 3, ok.Rows)
	assert.Empty(t, ok.Error)

	failed := rec.entries[1]
	assert.Equal(t, "T016", failed.DatasetID)
	assert.Equal(t, RunFailed, failed.Status)
	assert.NotEmpty(t, failed.RunID)
	assert.Contains(t, failed.Error, "unknown dataset")
}

func TestPipeline_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &memoryRecorder{err: errors.New("connection refused")}
	env := newPipelineEnv(t, WithRecorder(rec))
	env.registry.Register(simpleDataset("T017"))
	env.writeInput(t, "T017", simpleInput)

	ctx, logs := testutil.CaptureContext(t)
	res, err := env.pipeline.Process(ctx, 17)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Contains(t, logs.String(), "failed to record run")
}
