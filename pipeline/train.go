package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/config"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
)

type StopReason string

const (
	StopTargetPSNR    StopReason = "target_psnr"
	StopPlateau       StopReason = "psnr_plateau"
	StopMaxIterations StopReason = "max_iterations"
)

// plateauMinDelta is the PSNR gain below which an observation does not
// count as improvement.
const plateauMinDelta = 0.05

// TrainMetric is one progress line the trainer emits on stdout, one JSON
// object per line. Lines that do not parse are tool chatter and ignored.
type TrainMetric struct {
	Iteration    int     `json:"iteration"`
	PSNR         float64 `json:"psnr"`
	Loss         float64 `json:"loss"`
	NumGaussians int     `json:"num_gaussians"`
}

func ParseTrainMetric(line string) (TrainMetric, bool) {
	var m TrainMetric
	if err := json.Unmarshal([]byte(line), &m); err != nil || m.Iteration == 0 {
		return TrainMetric{}, false
	}

	return m, true
}

// StopPolicy decides when training has gone far enough. It stops on the
// first of: target PSNR reached, PSNR plateaued for a full window of
// observations, or the iteration budget spent.
type StopPolicy struct {
	TargetPSNR    float64
	PlateauWindow int
	MaxIterations int
	MinDelta      float64

	mu            sync.Mutex
	bestPSNR      float64
	sinceImproved int
	observations  int
}

func NewStopPolicy(params Hyperparams) *StopPolicy {
	return &StopPolicy{
		TargetPSNR:    params.TargetPSNR,
		PlateauWindow: params.PlateauWindow,
		MaxIterations: params.MaxIterations,
		MinDelta:      plateauMinDelta,
	}
}

// Observe feeds one metric into the policy and reports whether training
// should stop now.
func (p *StopPolicy) Observe(m TrainMetric) (StopReason, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.TargetPSNR > 0 && m.PSNR >= p.TargetPSNR {
		return StopTargetPSNR, true
	}

	if p.observations == 0 || m.PSNR > p.bestPSNR+p.MinDelta {
		p.bestPSNR = m.PSNR
		p.sinceImproved = 0
	} else {
		p.sinceImproved++
	}
	p.observations++

	if p.PlateauWindow > 0 && p.sinceImproved >= p.PlateauWindow {
		return StopPlateau, true
	}

	if m.Iteration >= p.MaxIterations {
		return StopMaxIterations, true
	}

	return "", false
}

// ResolutionForIteration maps an iteration onto the progressive
// resolution schedule: the budget is split into equal phases, one per
// schedule entry, and the entry is the image downsampling factor for
// that phase.
func ResolutionForIteration(schedule []int, iteration, maxIterations int) int {
	if len(schedule) == 0 {
		return 1
	}
	if iteration >= maxIterations {
		return schedule[len(schedule)-1]
	}
	if iteration < 0 {
		iteration = 0
	}

	phase := iteration * len(schedule) / maxIterations
	return schedule[phase]
}

// TrainResult summarizes a finished training stage.
type TrainResult struct {
	ModelPath  string
	Iterations int
	FinalPSNR  float64
	StopReason StopReason
}

// TrainStage runs the Gaussian splatting trainer over a sparse
// reconstruction.
type TrainStage struct {
	runner *Runner
	cfg    config.PipelineConfig
	logger *core.Logger
}

func NewTrainStage(runner *Runner, cfg config.PipelineConfig, logger *core.Logger) *TrainStage {
	return &TrainStage{runner: runner, cfg: cfg, logger: logger}
}

// Run trains a model from the images and sparse model under workDir and
// writes it to <workDir>/model.ply. The trainer is interrupted as soon
// as the stop policy fires; it checkpoints on interrupt, so an early
// stop still yields a usable model.
func (s *TrainStage) Run(ctx context.Context, workDir string, params Hyperparams) (*TrainResult, error) {
	modelPath := filepath.Join(workDir, core.ARTIFACT_TRAINED_MODEL)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	policy := NewStopPolicy(params)

	var (
		mu      sync.Mutex
		last    TrainMetric
		reason  StopReason
		stopped bool
	)

	args := []string{
		"--data", workDir,
		"--output", modelPath,
		"--sh-degree", strconv.Itoa(params.SHDegree),
		"--max-iterations", strconv.Itoa(params.MaxIterations),
		"--densify-grad-threshold", strconv.FormatFloat(params.DensifyGradThreshold, 'g', -1, 64),
		"--resolution-schedule", formatSchedule(params.ResolutionSchedule),
		"--log-format", "jsonl",
	}

	_, err := s.runner.Run(runCtx, Command{
		Bin:     s.cfg.TrainerBin,
		Args:    args,
		Dir:     workDir,
		Timeout: s.cfg.TrainTimeout,
		LineFunc: func(line string) {
			m, ok := ParseTrainMetric(line)
			if !ok {
				return
			}

			mu.Lock()
			last = m
			mu.Unlock()

			if r, stop := policy.Observe(m); stop {
				mu.Lock()
				if !stopped {
					stopped = true
					reason = r
				}
				mu.Unlock()

				s.logger.Info("stopping training early",
					zap.String("reason", string(r)),
					zap.Int("iteration", m.Iteration),
					zap.Float64("psnr", m.PSNR))
				cancel()
			}
		},
	})

	mu.Lock()
	defer mu.Unlock()

	if err != nil {
		// An interrupt we triggered ourselves is a clean early stop.
		if !stopped || !errors.Is(err, context.Canceled) {
			return nil, err
		}
	}

	if !stopped {
		reason = StopMaxIterations
	}

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("trainer produced no model: %w", err)
	}

	return &TrainResult{
		ModelPath:  modelPath,
		Iterations: last.Iteration,
		FinalPSNR:  last.PSNR,
		StopReason: reason,
	}, nil
}

func formatSchedule(schedule []int) string {
	out := ""
	for i, factor := range schedule {
		if i > 0 {
			out += ","
		}
		out += strconv.Itoa(factor)
	}

	return out
}
