package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/config"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
)

// minImageCount is the fewest photos a reconstruction can work with.
const minImageCount = 3

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

var (
	analyzerImagesRe = regexp.MustCompile(`(?i)images:\s*(\d+)`)
	analyzerPointsRe = regexp.MustCompile(`(?i)points:\s*(\d+)`)
)

// SfmResult summarizes a finished structure-from-motion stage.
type SfmResult struct {
	ImageCount      int
	RegisteredCount int
	PointCount      int
	SparseZip       string
}

// SfmStage recovers camera poses and a sparse point cloud from a photo
// set using COLMAP.
type SfmStage struct {
	runner *Runner
	cfg    config.PipelineConfig
	logger *core.Logger
}

func NewSfmStage(runner *Runner, cfg config.PipelineConfig, logger *core.Logger) *SfmStage {
	return &SfmStage{runner: runner, cfg: cfg, logger: logger}
}

// Run unpacks the photo archive, runs the COLMAP reconstruction steps
// and archives the sparse model to <workDir>/sparse.zip. gpsCSVPath may
// be empty; when set, per-image position priors are written next to the
// images for the mapper to pick up. The stage fails when the recovered
// point cloud is smaller than the configured minimum, which means the
// photo set has too little overlap to train from.
func (s *SfmStage) Run(ctx context.Context, workDir, zipPath, gpsCSVPath string, params Hyperparams) (*SfmResult, error) {
	imageDir := filepath.Join(workDir, "images")
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return nil, err
	}

	if err := Unpack(zipPath, imageDir); err != nil {
		return nil, fmt.Errorf("unpack photos: %w", err)
	}

	imageCount, err := countImages(imageDir)
	if err != nil {
		return nil, err
	}
	if imageCount < minImageCount {
		return nil, fmt.Errorf("archive contains %d images, need at least %d", imageCount, minImageCount)
	}

	if gpsCSVPath != "" {
		if err = s.writePositionPriors(gpsCSVPath, workDir); err != nil {
			return nil, err
		}
	}

	sparseDir := filepath.Join(workDir, "sparse")
	if err = os.MkdirAll(sparseDir, 0o755); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(workDir, "database.db")

	steps := [][]string{
		{"feature_extractor", "--database_path", dbPath, "--image_path", imageDir},
		{"exhaustive_matcher", "--database_path", dbPath},
		{"mapper", "--database_path", dbPath, "--image_path", imageDir, "--output_path", sparseDir},
	}

	for _, step := range steps {
		if _, err = s.runner.Run(ctx, Command{
			Bin:     s.cfg.ColmapBin,
			Args:    step,
			Dir:     workDir,
			Timeout: s.cfg.SfmTimeout,
		}); err != nil {
			return nil, fmt.Errorf("colmap %s: %w", step[0], err)
		}
	}

	modelDir := filepath.Join(sparseDir, "0")
	if _, err = os.Stat(modelDir); err != nil {
		return nil, fmt.Errorf("mapper produced no model: %w", err)
	}

	registered, points, err := s.analyzeModel(ctx, workDir, modelDir)
	if err != nil {
		return nil, err
	}

	s.logger.Info("sparse reconstruction done",
		zap.Int("images", imageCount),
		zap.Int("registered", registered),
		zap.Int("points", points))

	if points < params.MinPoints {
		return nil, fmt.Errorf("sparse model has %d points, need at least %d; photo set likely lacks overlap", points, params.MinPoints)
	}

	sparseZip := filepath.Join(workDir, core.ARTIFACT_SPARSE_MODEL)
	if err = zipDir(modelDir, sparseZip); err != nil {
		return nil, fmt.Errorf("archive sparse model: %w", err)
	}

	return &SfmResult{
		ImageCount:      imageCount,
		RegisteredCount: registered,
		PointCount:      points,
		SparseZip:       sparseZip,
	}, nil
}

func (s *SfmStage) writePositionPriors(gpsCSVPath, workDir string) error {
	f, err := os.Open(gpsCSVPath)
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := ParseGPSCSV(f)
	if err != nil {
		return fmt.Errorf("parse gps csv: %w", err)
	}

	priorsPath := filepath.Join(workDir, "position_priors.txt")
	if err = os.WriteFile(priorsPath, []byte(FormatPositionPriors(records)), 0o644); err != nil {
		return err
	}

	s.logger.Debug("wrote position priors", zap.Int("records", len(records)))

	return nil
}

func (s *SfmStage) analyzeModel(ctx context.Context, workDir, modelDir string) (registered int, points int, err error) {
	output, err := s.runner.Run(ctx, Command{
		Bin:     s.cfg.ColmapBin,
		Args:    []string{"model_analyzer", "--path", modelDir},
		Dir:     workDir,
		Timeout: s.cfg.SfmTimeout,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("colmap model_analyzer: %w", err)
	}

	registered, points, err = parseModelSummary(output)
	if err != nil {
		return 0, 0, fmt.Errorf("model_analyzer output: %w", err)
	}

	return registered, points, nil
}

func parseModelSummary(output string) (registered int, points int, err error) {
	images := analyzerImagesRe.FindStringSubmatch(output)
	pts := analyzerPointsRe.FindStringSubmatch(output)
	if images == nil || pts == nil {
		return 0, 0, fmt.Errorf("missing image or point counts")
	}

	registered, err = strconv.Atoi(images[1])
	if err != nil {
		return 0, 0, err
	}

	points, err = strconv.Atoi(pts[1])
	if err != nil {
		return 0, 0, err
	}

	return registered, points, nil
}

func countImages(dir string) (int, error) {
	count := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			count++
		}

		return nil
	})

	return count, err
}
