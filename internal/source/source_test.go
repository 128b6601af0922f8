package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSources = `
T001:
  name: Coastal shipping (national transport)
  url: https://stats.oecd.org/Index.aspx?DataSetCode=ITF_GOODS_TRANSPORT
  fetch:
    type: SDMX
    source: OECD
    resource_id: ITF_GOODS_TRANSPORT
    key: ..T-SEA-CAB
3:
  fetch:
    type: OpenKAPSARC
    dataset: passenger-cars
`

func TestCanonicalID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"int", 1, "T001"},
		{"int64", int64(42), "T042"},
		{"wide int", 1234, "T1234"},
		{"digit string", "7", "T007"},
		{"padded digit string", " 007 ", "T007"},
		{"canonical string", "T001", "T001"},
		{"lower case", "t003", "T003"},
		{"other string", "custom", "CUSTOM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalID(tt.in))
		})
	}
}

func TestParse(t *testing.T) {
	reg, err := Parse(strings.NewReader(testSources))
	require.NoError(t, err)
	assert.Equal(t, []string{"T001", "T003"}, reg.IDs())

	ds, err := reg.Describe(1)
	require.NoError(t, err)
	assert.Equal(t, "T001", ds.ID)
	assert.Equal(t, KindSDMX, ds.Fetch.Kind)
	assert.Equal(t, "ITF_GOODS_TRANSPORT", ds.Fetch.Param("resource_id"))
	assert.Equal(t, "OECD", ds.Fetch.Param("source"))
	assert.NotContains(t, ds.Fetch.Params, "type")

	ds, err = reg.Describe("T003")
	require.NoError(t, err)
	assert.Equal(t, KindOpenKAPSARC, ds.Fetch.Kind)
	assert.Equal(t, "passenger-cars", ds.Fetch.Param("dataset"))
	assert.Equal(t, "", ds.Fetch.Param("missing"))
}

func TestDescribe_Unknown(t *testing.T) {
	reg, err := Parse(strings.NewReader(testSources))
	require.NoError(t, err)

	_, err = reg.Describe(99)
	require.ErrorIs(t, err, ErrUnknownSource)
	assert.Contains(t, err.Error(), "T099")
}

func TestDescribe_ReturnsCopy(t *testing.T) {
	reg, err := Parse(strings.NewReader(testSources))
	require.NoError(t, err)

	ds, err := reg.Describe(1)
	require.NoError(t, err)
	ds.Fetch.Params["resource_id"] = "changed"

	again, err := reg.Describe(1)
	require.NoError(t, err)
	assert.Equal(t, "ITF_GOODS_TRANSPORT", again.Fetch.Param("resource_id"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing type", "T001:\n  fetch:\n    resource_id: X\n"},
		{"colliding ids", "1:\n  fetch: {type: sdmx}\nT001:\n  fetch: {type: sdmx}\n"},
		{"not yaml", "T001: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSources), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Empty(t *testing.T) {
	reg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
}
