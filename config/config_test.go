package config

import (
	"testing"

	"github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineConfigValidate(t *testing.T) {
	valid := PipelineConfig{
		WorkDir:       "/tmp/jobs",
		ColmapBin:     "colmap",
		TrainerBin:    "gsplat-train",
		CompressorBin: "sogs-compress",
	}

	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*PipelineConfig)
	}{
		{"missing work dir", func(c *PipelineConfig) { c.WorkDir = "" }},
		{"missing colmap", func(c *PipelineConfig) { c.ColmapBin = "" }},
		{"missing trainer", func(c *PipelineConfig) { c.TrainerBin = "" }},
		{"missing compressor", func(c *PipelineConfig) { c.CompressorBin = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestHyperparameterConfigValidate(t *testing.T) {
	valid := HyperparameterConfig{
		SHDegree:      3,
		MaxIterations: 30000,
	}

	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*HyperparameterConfig)
	}{
		{"zero iterations", func(c *HyperparameterConfig) { c.MaxIterations = 0 }},
		{"negative sh degree", func(c *HyperparameterConfig) { c.SHDegree = -1 }},
		{"sh degree too high", func(c *HyperparameterConfig) { c.SHDegree = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestS3ConfigValidate(t *testing.T) {
	valid := S3Config{
		Bucket:    "spaceport",
		Endpoint:  "https://s3.example.com",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
	}

	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*S3Config)
	}{
		{"missing bucket", func(c *S3Config) { c.Bucket = "" }},
		{"missing endpoint", func(c *S3Config) { c.Endpoint = "" }},
		{"missing region", func(c *S3Config) { c.Region = "" }},
		{"missing access key", func(c *S3Config) { c.AccessKey = "" }},
		{"missing secret key", func(c *S3Config) { c.SecretKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMailConfigValidate(t *testing.T) {
	valid := MailConfig{
		Host:     "smtp.example.com",
		Username: "mailer",
		Password: "secret",
		From:     "portal@example.com",
	}

	require.NoError(t, valid.Validate())

	cfg := valid
	cfg.Host = ""
	assert.Error(t, cfg.Validate())

	cfg = valid
	cfg.From = ""
	assert.Error(t, cfg.Validate())
}

func TestPipelineConfigDecodesHyperparamDefaults(t *testing.T) {
	input := map[string]any{
		"work_dir": "/tmp/jobs",
		"defaults": map[string]any{
			"sh_degree":      2,
			"max_iterations": 1000,
		},
	}

	var cfg PipelineConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  &cfg,
	})
	require.NoError(t, err)
	require.NoError(t, dec.Decode(input))

	assert.Equal(t, "/tmp/jobs", cfg.WorkDir)
	assert.Equal(t, 2, cfg.Hyperparams.SHDegree)
	assert.Equal(t, 1000, cfg.Hyperparams.MaxIterations)
}

func TestPipelineConfigDefaults(t *testing.T) {
	defaults := PipelineConfig{}.Defaults()
	assert.Equal(t, "colmap", defaults["colmap_bin"])
	assert.Equal(t, false, defaults["keep_work_dirs"])

	hyper := HyperparameterConfig{}.Defaults()
	assert.Equal(t, 30000, hyper["max_iterations"])
	assert.Equal(t, []int{4, 2, 1}, hyper["resolution_schedule"])
}
