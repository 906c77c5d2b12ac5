package pipeline

import (
	"testing"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHyperparamConfig() config.HyperparameterConfig {
	return config.HyperparameterConfig{
		SHDegree:             3,
		MaxIterations:        30000,
		TargetPSNR:           35.0,
		DensifyGradThreshold: 0.0002,
		PlateauWindow:        5,
		MinPoints:            1000,
		ResolutionSchedule:   []int{4, 2, 1},
	}
}

func TestDefaultHyperparams(t *testing.T) {
	h := DefaultHyperparams(testHyperparamConfig())

	assert.Equal(t, 3, h.SHDegree)
	assert.Equal(t, 30000, h.MaxIterations)
	assert.Equal(t, []int{4, 2, 1}, h.ResolutionSchedule)
	require.NoError(t, h.Validate())
}

func TestDefaultHyperparamsEmptySchedule(t *testing.T) {
	cfg := testHyperparamConfig()
	cfg.ResolutionSchedule = nil

	h := DefaultHyperparams(cfg)
	assert.Equal(t, []int{1}, h.ResolutionSchedule)
}

func TestWithOverrides(t *testing.T) {
	h := DefaultHyperparams(testHyperparamConfig())

	merged, err := h.WithOverrides(map[string]any{
		"max_iterations": 10000,
		"target_psnr":    28.5,
	})
	require.NoError(t, err)

	assert.Equal(t, 10000, merged.MaxIterations)
	assert.Equal(t, 28.5, merged.TargetPSNR)
	// untouched fields keep defaults
	assert.Equal(t, 3, merged.SHDegree)
	assert.Equal(t, 0.0002, merged.DensifyGradThreshold)

	// the receiver is not mutated
	assert.Equal(t, 30000, h.MaxIterations)
}

func TestWithOverridesJSONNumbers(t *testing.T) {
	h := DefaultHyperparams(testHyperparamConfig())

	// decoded JSON bodies hand integers over as float64
	merged, err := h.WithOverrides(map[string]any{
		"sh_degree":      float64(2),
		"max_iterations": float64(5000),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, merged.SHDegree)
	assert.Equal(t, 5000, merged.MaxIterations)
}

func TestWithOverridesUnknownKey(t *testing.T) {
	h := DefaultHyperparams(testHyperparamConfig())

	_, err := h.WithOverrides(map[string]any{
		"max_iteration": 10000,
	})
	require.Error(t, err)
}

func TestWithOverridesInvalidResult(t *testing.T) {
	h := DefaultHyperparams(testHyperparamConfig())

	_, err := h.WithOverrides(map[string]any{"max_iterations": -5})
	require.Error(t, err)

	_, err = h.WithOverrides(map[string]any{"sh_degree": 7})
	require.Error(t, err)

	_, err = h.WithOverrides(map[string]any{"max_iterations": maxIterationsCeiling + 1})
	require.Error(t, err)
}

func TestValidateResolutionSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule []int
		wantErr  bool
	}{
		{"standard", []int{4, 2, 1}, false},
		{"full only", []int{1}, false},
		{"repeated factors", []int{4, 4, 2, 1}, false},
		{"empty", []int{}, true},
		{"increasing", []int{2, 4, 1}, true},
		{"zero factor", []int{4, 0, 1}, true},
		{"does not end at full", []int{4, 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := DefaultHyperparams(testHyperparamConfig())
			h.ResolutionSchedule = tt.schedule

			err := h.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
