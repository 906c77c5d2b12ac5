package pipeline

import (
	"errors"
	"fmt"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/config"
	"github.com/go-viper/mapstructure/v2"
)

const maxIterationsCeiling = 200000

// Hyperparams is the training configuration handed to the pipeline stages.
// Values start from the configured defaults; jobs may override any field
// at submission time.
type Hyperparams struct {
	SHDegree             int     `json:"sh_degree"`
	MaxIterations        int     `json:"max_iterations"`
	TargetPSNR           float64 `json:"target_psnr"`
	DensifyGradThreshold float64 `json:"densify_grad_threshold"`
	PlateauWindow        int     `json:"plateau_window"`
	MinPoints            int     `json:"min_points"`
	ResolutionSchedule   []int   `json:"resolution_schedule"`
}

func DefaultHyperparams(cfg config.HyperparameterConfig) Hyperparams {
	schedule := cfg.ResolutionSchedule
	if len(schedule) == 0 {
		schedule = []int{1}
	}

	return Hyperparams{
		SHDegree:             cfg.SHDegree,
		MaxIterations:        cfg.MaxIterations,
		TargetPSNR:           cfg.TargetPSNR,
		DensifyGradThreshold: cfg.DensifyGradThreshold,
		PlateauWindow:        cfg.PlateauWindow,
		MinPoints:            cfg.MinPoints,
		ResolutionSchedule:   schedule,
	}
}

// ParamError marks a hyperparameter override the caller got wrong, as
// opposed to an internal failure.
type ParamError struct {
	err error
}

func (e *ParamError) Error() string {
	return e.err.Error()
}

func (e *ParamError) Unwrap() error {
	return e.err
}

// WithOverrides returns a copy of h with the given overrides applied.
// Unknown keys are rejected so a typoed hyperparameter fails the request
// instead of silently training with defaults.
func (h Hyperparams) WithOverrides(overrides map[string]any) (Hyperparams, error) {
	if len(overrides) == 0 {
		return h, nil
	}

	merged := h

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &merged,
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return h, err
	}

	if err := decoder.Decode(overrides); err != nil {
		return h, &ParamError{err: fmt.Errorf("invalid hyperparameter overrides: %w", err)}
	}

	if err := merged.Validate(); err != nil {
		return h, &ParamError{err: err}
	}

	return merged, nil
}

func (h Hyperparams) Validate() error {
	if h.SHDegree < 0 || h.SHDegree > 3 {
		return errors.New("sh_degree must be between 0 and 3")
	}
	if h.MaxIterations <= 0 {
		return errors.New("max_iterations must be positive")
	}
	if h.MaxIterations > maxIterationsCeiling {
		return fmt.Errorf("max_iterations must not exceed %d", maxIterationsCeiling)
	}
	if h.TargetPSNR < 0 || h.TargetPSNR > 60 {
		return errors.New("target_psnr must be between 0 and 60")
	}
	if h.DensifyGradThreshold <= 0 {
		return errors.New("densify_grad_threshold must be positive")
	}
	if h.PlateauWindow < 0 {
		return errors.New("plateau_window must not be negative")
	}
	if h.MinPoints < 0 {
		return errors.New("min_points must not be negative")
	}
	if len(h.ResolutionSchedule) == 0 {
		return errors.New("resolution_schedule must not be empty")
	}

	prev := 0
	for i, factor := range h.ResolutionSchedule {
		if factor < 1 {
			return errors.New("resolution_schedule factors must be at least 1")
		}
		if i > 0 && factor > prev {
			return errors.New("resolution_schedule must not increase")
		}
		prev = factor
	}
	if h.ResolutionSchedule[len(h.ResolutionSchedule)-1] != 1 {
		return errors.New("resolution_schedule must end at full resolution")
	}

	return nil
}
