package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/histnorm/internal/frame"
)

func identity(_ context.Context, f *frame.Frame) (*frame.Frame, error) {
	return f, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(Dataset{Info: Info{ID: "t002"}, Transform: identity})
	r.Register(Dataset{Info: Info{ID: "1"}, Transform: identity})

	tests := []struct {
		id   any
		want string
	}{
		{1, "T001"},
		{"1", "T001"},
		{"T001", "T001"},
		{2, "T002"},
		{" t002 ", "T002"},
	}
	for _, tt := range tests {
		ds, ok := r.Get(tt.id)
		if assert.True(t, ok, "Get(%v)", tt.id) {
			assert.Equal(t, tt.want, ds.Info.ID)
		}
	}

	_, ok := r.Get(3)
	assert.False(t, ok)

	_, err := r.Lookup(3)
	assert.ErrorIs(t, err, ErrUnknownDataset)
	assert.Contains(t, err.Error(), "T003")
}

func TestRegistry_All_Sorted(t *testing.T) {
	r := NewRegistry()
	r.Register(Dataset{Info: Info{ID: "T003"}, Transform: identity})
	r.Register(Dataset{Info: Info{ID: "T001"}, Transform: identity})
	r.Register(Dataset{Info: Info{ID: "T002"}, Transform: identity})

	var ids []string
	for _, ds := range r.All() {
		ids = append(ids, ds.Info.ID)
	}
	assert.Equal(t, []string{"T001", "T002", "T003"}, ids)
	assert.Equal(t, 3, r.Count())

	r.Clear()
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_RegisterPanics(t *testing.T) {
	tests := []struct {
		name string
		ds   Dataset
	}{
		{"no id", Dataset{Transform: identity}},
		{"no transform", Dataset{Info: Info{ID: "T009"}}},
		{"unknown dimension", Dataset{
			Info:       Info{ID: "T009"},
			Transform:  identity,
			CommonDims: map[string]string{"colour": "blue"},
		}},
		{"value is not a dimension", Dataset{
			Info:       Info{ID: "T009"},
			Transform:  identity,
			CommonDims: map[string]string{"value": "1"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { NewRegistry().Register(tt.ds) })
		})
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(Dataset{Info: Info{ID: "T001"}, Transform: identity})
	assert.Panics(t, func() {
		r.Register(Dataset{Info: Info{ID: "001"}, Transform: identity})
	})
}

func TestRegistry_UnknownDimensionError(t *testing.T) {
	err := NewRegistry().add(Dataset{
		Info:       Info{ID: "T009"},
		Transform:  identity,
		CommonDims: map[string]string{"colour": "blue"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownDimension)
}

func TestRegistry_CommonDimsAcceptHeaders(t *testing.T) {
	r := NewRegistry()
	assert.NotPanics(t, func() {
		r.Register(Dataset{
			Info:       Info{ID: "T010"},
			Transform:  identity,
			CommonDims: map[string]string{"Vehicle Type": "Coastal", "mode": "Shipping"},
		})
	})
}
