package config

import (
	"errors"
	"time"
)

var _ Defaults = (*PipelineConfig)(nil)
var _ Validator = (*PipelineConfig)(nil)

// PipelineConfig configures the reconstruction pipeline: where stage
// subprocesses run, which binaries are invoked, and the default
// hyperparameters applied to jobs without overrides.
type PipelineConfig struct {
	WorkDir         string               `mapstructure:"work_dir"`
	ColmapBin       string               `mapstructure:"colmap_bin"`
	TrainerBin      string               `mapstructure:"trainer_bin"`
	CompressorBin   string               `mapstructure:"compressor_bin"`
	SfmTimeout      time.Duration        `mapstructure:"sfm_timeout"`
	TrainTimeout    time.Duration        `mapstructure:"train_timeout"`
	CompressTimeout time.Duration        `mapstructure:"compress_timeout"`
	KeepWorkDirs    bool                 `mapstructure:"keep_work_dirs"`
	Hyperparams     HyperparameterConfig `mapstructure:"defaults"`
}

func (p PipelineConfig) Defaults() map[string]any {
	return map[string]any{
		"work_dir":         "/var/lib/spaceport/jobs",
		"colmap_bin":       "colmap",
		"trainer_bin":      "gsplat-train",
		"compressor_bin":   "sogs-compress",
		"sfm_timeout":      "2h",
		"train_timeout":    "6h",
		"compress_timeout": "30m",
		"keep_work_dirs":   false,
	}
}

func (p PipelineConfig) Validate() error {
	if p.WorkDir == "" {
		return errors.New("core.pipeline.work_dir is required")
	}
	if p.ColmapBin == "" {
		return errors.New("core.pipeline.colmap_bin is required")
	}
	if p.TrainerBin == "" {
		return errors.New("core.pipeline.trainer_bin is required")
	}
	if p.CompressorBin == "" {
		return errors.New("core.pipeline.compressor_bin is required")
	}
	return nil
}

var _ Defaults = (*HyperparameterConfig)(nil)
var _ Validator = (*HyperparameterConfig)(nil)

// HyperparameterConfig holds the training defaults passed to the pipeline.
// Individual jobs may override any of these at submission time.
type HyperparameterConfig struct {
	SHDegree             int     `mapstructure:"sh_degree"`
	MaxIterations        int     `mapstructure:"max_iterations"`
	TargetPSNR           float64 `mapstructure:"target_psnr"`
	DensifyGradThreshold float64 `mapstructure:"densify_grad_threshold"`
	PlateauWindow        int     `mapstructure:"plateau_window"`
	MinPoints            int     `mapstructure:"min_points"`
	ResolutionSchedule   []int   `mapstructure:"resolution_schedule"`
}

func (h HyperparameterConfig) Defaults() map[string]any {
	return map[string]any{
		"sh_degree":              3,
		"max_iterations":         30000,
		"target_psnr":            35.0,
		"densify_grad_threshold": 0.0002,
		"plateau_window":         5,
		"min_points":             1000,
		"resolution_schedule":    []int{4, 2, 1},
	}
}

func (h HyperparameterConfig) Validate() error {
	if h.MaxIterations <= 0 {
		return errors.New("core.pipeline.defaults.max_iterations must be positive")
	}
	if h.SHDegree < 0 || h.SHDegree > 3 {
		return errors.New("core.pipeline.defaults.sh_degree must be between 0 and 3")
	}
	return nil
}
