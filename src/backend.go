package src

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Classifier trains on one dataset and scores itself on another. workDir is
// private to the call and may receive intermediate files.
type Classifier interface {
	Name() string
	Evaluate(ctx context.Context, train *Dataset, test *Dataset, workDir string) (PerfRecord, error)
}

// SVMLightClassifier exports the datasets, runs the external learner and
// parses the classify report.
type SVMLightClassifier struct {
	Runner  *SVMLight
	Options ExportOptions
	Logger  *zap.SugaredLogger
}

func (c *SVMLightClassifier) Name() string { return "svmlight" }

func (c *SVMLightClassifier) Evaluate(ctx context.Context, train *Dataset, test *Dataset, workDir string) (PerfRecord, error) {
	trainFile, testFile, err := ExportSplit(train, test, workDir, c.Options, c.Logger)
	if err != nil {
		return PerfRecord{}, fmt.Errorf("export: %w", err)
	}
	p := Paths{
		Train:       trainFile,
		Test:        testFile,
		Model:       filepath.Join(workDir, "model"),
		Predictions: filepath.Join(workDir, "predictions"),
		TrainLog:    filepath.Join(workDir, "train.log"),
		TestLog:     filepath.Join(workDir, "test.log"),
	}
	if err := c.Runner.TrainAndClassify(ctx, p); err != nil {
		return PerfRecord{}, err
	}
	return ParseReportFile(p.TestLog)
}

// BackendConfig carries the settings of every backend, each reads its own.
type BackendConfig struct {
	LearnBin     string
	ClassifyBin  string
	LearnArgs    []string
	ClassifyArgs []string
	Timeout      time.Duration
	Export       ExportOptions

	C      float64
	Kernel string

	Trees    int
	Features int
}

// NewClassifier builds the named backend: svmlight, svc or forest.
func NewClassifier(name string, cfg BackendConfig, logger *zap.SugaredLogger) (Classifier, error) {
	switch name {
	case "svmlight":
		return &SVMLightClassifier{
			Runner: &SVMLight{
				LearnBin:     cfg.LearnBin,
				ClassifyBin:  cfg.ClassifyBin,
				LearnArgs:    cfg.LearnArgs,
				ClassifyArgs: cfg.ClassifyArgs,
				Timeout:      cfg.Timeout,
				Logger:       logger,
			},
			Options: cfg.Export,
			Logger:  logger,
		}, nil
	case "svc":
		return &SVCClassifier{C: cfg.C, Kernel: cfg.Kernel, Logger: logger}, nil
	case "forest":
		if cfg.Features == 1 || cfg.Features < 0 {
			return nil, fmt.Errorf("forest needs at least 2 features per tree, got %d", cfg.Features)
		}
		return &ForestClassifier{Trees: cfg.Trees, Features: cfg.Features, Logger: logger}, nil
	}
	return nil, fmt.Errorf("unknown model %q (svmlight, svc, forest)", name)
}
