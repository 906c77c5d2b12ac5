package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrainMetric(t *testing.T) {
	m, ok := ParseTrainMetric(`{"iteration":500,"psnr":21.4,"loss":0.12,"num_gaussians":120000}`)
	require.True(t, ok)
	assert.Equal(t, 500, m.Iteration)
	assert.InDelta(t, 21.4, m.PSNR, 1e-9)
	assert.Equal(t, 120000, m.NumGaussians)

	_, ok = ParseTrainMetric("loading images from /tmp/job/images")
	assert.False(t, ok)

	_, ok = ParseTrainMetric(`{"psnr":21.4}`)
	assert.False(t, ok)
}

func TestStopPolicyTargetPSNR(t *testing.T) {
	policy := NewStopPolicy(Hyperparams{TargetPSNR: 30, PlateauWindow: 5, MaxIterations: 30000})

	_, stop := policy.Observe(TrainMetric{Iteration: 100, PSNR: 22})
	assert.False(t, stop)

	reason, stop := policy.Observe(TrainMetric{Iteration: 200, PSNR: 30.1})
	require.True(t, stop)
	assert.Equal(t, StopTargetPSNR, reason)
}

func TestStopPolicyPlateau(t *testing.T) {
	policy := NewStopPolicy(Hyperparams{TargetPSNR: 50, PlateauWindow: 3, MaxIterations: 30000})

	_, stop := policy.Observe(TrainMetric{Iteration: 100, PSNR: 25})
	assert.False(t, stop)

	// Gains under the minimum delta do not reset the window.
	for i := 0; i < 2; i++ {
		_, stop = policy.Observe(TrainMetric{Iteration: 200 + i*100, PSNR: 25.01})
		assert.False(t, stop)
	}

	reason, stop := policy.Observe(TrainMetric{Iteration: 500, PSNR: 25.02})
	require.True(t, stop)
	assert.Equal(t, StopPlateau, reason)
}

func TestStopPolicyPlateauResetOnImprovement(t *testing.T) {
	policy := NewStopPolicy(Hyperparams{TargetPSNR: 50, PlateauWindow: 2, MaxIterations: 30000})

	policy.Observe(TrainMetric{Iteration: 100, PSNR: 25})
	policy.Observe(TrainMetric{Iteration: 200, PSNR: 25})

	// A real improvement restarts the plateau count.
	_, stop := policy.Observe(TrainMetric{Iteration: 300, PSNR: 26})
	assert.False(t, stop)

	_, stop = policy.Observe(TrainMetric{Iteration: 400, PSNR: 26})
	assert.False(t, stop)

	reason, stop := policy.Observe(TrainMetric{Iteration: 500, PSNR: 26})
	require.True(t, stop)
	assert.Equal(t, StopPlateau, reason)
}

func TestStopPolicyDisabledPlateau(t *testing.T) {
	policy := NewStopPolicy(Hyperparams{TargetPSNR: 50, PlateauWindow: 0, MaxIterations: 30000})

	for i := 1; i <= 20; i++ {
		_, stop := policy.Observe(TrainMetric{Iteration: i * 100, PSNR: 20})
		assert.False(t, stop)
	}
}

func TestStopPolicyMaxIterations(t *testing.T) {
	policy := NewStopPolicy(Hyperparams{TargetPSNR: 50, PlateauWindow: 0, MaxIterations: 1000})

	reason, stop := policy.Observe(TrainMetric{Iteration: 1000, PSNR: 20})
	require.True(t, stop)
	assert.Equal(t, StopMaxIterations, reason)
}

func TestResolutionForIteration(t *testing.T) {
	schedule := []int{4, 2, 1}

	tests := []struct {
		iteration int
		want      int
	}{
		{0, 4},
		{9999, 4},
		{10000, 2},
		{19999, 2},
		{20000, 1},
		{29999, 1},
		{30000, 1},
		{40000, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolutionForIteration(schedule, tt.iteration, 30000), "iteration %d", tt.iteration)
	}

	assert.Equal(t, 1, ResolutionForIteration(nil, 5000, 30000))
	assert.Equal(t, 1, ResolutionForIteration([]int{1}, 0, 30000))
}
