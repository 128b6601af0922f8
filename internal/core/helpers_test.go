package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/testutil"
)

func TestDropEmpty(t *testing.T) {
	f := frame.New("Country", "Year", "Value")
	require.NoError(t, f.Append("Japan", "2000", "1"))
	require.NoError(t, f.Append("Chile", "2000", " "))
	require.NoError(t, f.Append("Peru", "2001", "3"))

	ctx, logs := testutil.CaptureContext(t)
	out, err := DropEmpty(ctx, f, "Value", "Country")
	require.NoError(t, err)

	assert.Equal(t, 2, out.Len())
	countries, _ := out.Column("Country")
	assert.Equal(t, []string{"Japan", "Peru"}, countries)
	assert.Contains(t, logs.String(), "Chile")
	assert.Equal(t, 3, f.Len(), "input must not change")
}

func TestDropEmpty_MissingColumn(t *testing.T) {
	f := frame.New("Country")
	_, err := DropEmpty(testutil.Context(t), f, "Value")
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)
}

func TestDropIncomplete(t *testing.T) {
	f := frame.New("Country", "Year", "Value")
	require.NoError(t, f.Append("Japan", "2000", "1"))
	require.NoError(t, f.Append("Chile", "", "2"))
	require.NoError(t, f.Append("", "2001", "3"))

	out := DropIncomplete(f)
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, "Japan", out.Get(0, "Country"))
}
