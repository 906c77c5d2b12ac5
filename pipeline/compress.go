package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/config"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
)

// CompressResult summarizes a finished compression stage.
type CompressResult struct {
	BundleZip        string
	ModelBytes       int64
	BundleBytes      int64
	CompressionRatio float64
}

// CompressStage packs a trained model into a SOGS web bundle.
type CompressStage struct {
	runner *Runner
	cfg    config.PipelineConfig
	logger *core.Logger
}

func NewCompressStage(runner *Runner, cfg config.PipelineConfig, logger *core.Logger) *CompressStage {
	return &CompressStage{runner: runner, cfg: cfg, logger: logger}
}

// Run compresses modelPath into <workDir>/sogs.zip. The compressor's
// output directory is verified before archiving so a silently truncated
// bundle fails the stage instead of shipping.
func (s *CompressStage) Run(ctx context.Context, workDir, modelPath string) (*CompressResult, error) {
	bundleDir := filepath.Join(workDir, "sogs")
	if err := os.MkdirAll(bundleDir, 0o755); err != nil {
		return nil, err
	}

	if _, err := s.runner.Run(ctx, Command{
		Bin:     s.cfg.CompressorBin,
		Args:    []string{"--input", modelPath, "--output", bundleDir},
		Dir:     workDir,
		Timeout: s.cfg.CompressTimeout,
	}); err != nil {
		return nil, err
	}

	if err := verifyBundle(bundleDir); err != nil {
		return nil, fmt.Errorf("compressor output: %w", err)
	}

	bundleZip := filepath.Join(workDir, core.ARTIFACT_COMPRESSED_MODEL)
	if err := zipDir(bundleDir, bundleZip); err != nil {
		return nil, fmt.Errorf("archive bundle: %w", err)
	}

	modelInfo, err := os.Stat(modelPath)
	if err != nil {
		return nil, err
	}
	bundleInfo, err := os.Stat(bundleZip)
	if err != nil {
		return nil, err
	}

	result := &CompressResult{
		BundleZip:   bundleZip,
		ModelBytes:  modelInfo.Size(),
		BundleBytes: bundleInfo.Size(),
	}
	if bundleInfo.Size() > 0 {
		result.CompressionRatio = float64(modelInfo.Size()) / float64(bundleInfo.Size())
	}

	s.logger.Info("model compressed",
		zap.Int64("model_bytes", result.ModelBytes),
		zap.Int64("bundle_bytes", result.BundleBytes),
		zap.Float64("ratio", result.CompressionRatio))

	return result, nil
}

// verifyBundle checks that a SOGS bundle has its metadata file and at
// least one texture.
func verifyBundle(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "meta.json")); err != nil {
		return fmt.Errorf("missing meta.json: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".webp") {
			return nil
		}
	}

	return fmt.Errorf("no texture files in bundle")
}
