// Package pipeline runs one host removal metrics extraction from config to
// output file.
package pipeline

import (
	"fmt"

	"hostmetrics/internal/config"
	"hostmetrics/internal/extract"
	"hostmetrics/internal/logging"
	"hostmetrics/internal/report"

	"go.uber.org/zap"
)

// Stage is a step of a run. Stages only move forward.
type Stage int

const (
	StageIdle Stage = iota
	StageLoading
	StageExtracting
	StageWriting
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageLoading:
		return "loading"
	case StageExtracting:
		return "extracting"
	case StageWriting:
		return "writing"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Result describes a finished run.
type Result struct {
	Metrics extract.Metrics
	// Table is nil when no sample was extracted.
	Table *report.Table
	// Written reports whether the output file was created.
	Written bool
	Output  string
	// Stage is the last stage reached, StageDone on success.
	Stage Stage
}

// Runner executes runs against one configuration.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger
	stage  Stage
}

// New creates a Runner. The configuration is validated up front.
func New(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}, nil
}

func (r *Runner) enter(s Stage) {
	logging.Get(r.logger, logging.CategoryPipeline).Debug("Stage",
		zap.Stringer("from", r.stage),
		zap.Stringer("to", s))
	r.stage = s
}

// Run loads the configured reports, merges their fields and writes the
// table. Nothing is written when no sample was found.
func (r *Runner) Run() (*Result, error) {
	r.stage = StageIdle
	res := &Result{Output: r.cfg.Output}

	mode := report.ModeFor(r.cfg.SingleEnd)
	ex := extract.New(logging.Get(r.logger, logging.CategoryExtract))

	r.enter(StageLoading)
	res.Stage = r.stage
	sources, err := ex.Load(r.cfg.DataDir, r.cfg.Files())
	if err != nil {
		return res, err
	}

	r.enter(StageExtracting)
	res.Stage = r.stage
	res.Metrics = ex.Merge(sources)
	r.logger.Info("Extracted metrics",
		zap.Int("files", len(sources)),
		zap.Int("samples", len(res.Metrics)),
		zap.Stringer("mode", mode))

	if len(res.Metrics) == 0 {
		r.enter(StageDone)
		res.Stage = r.stage
		return res, nil
	}

	r.enter(StageWriting)
	res.Stage = r.stage
	tbl, err := report.Build(res.Metrics, mode, report.Columns{
		Kept:      r.cfg.Report.Kept,
		Discarded: r.cfg.Report.Discarded,
	})
	if err != nil {
		return res, fmt.Errorf("failed to build report: %w", err)
	}
	res.Table = tbl
	if err := report.WriteFile(r.cfg.Output, tbl); err != nil {
		return res, err
	}
	res.Written = true
	logging.Get(r.logger, logging.CategoryReport).Info("Wrote report",
		zap.String("path", r.cfg.Output),
		zap.Int("rows", len(tbl.Rows)))

	r.enter(StageDone)
	res.Stage = r.stage
	return res, nil
}

// Run validates cfg and performs a single run.
func Run(cfg *config.Config, logger *zap.Logger) (*Result, error) {
	r, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return r.Run()
}
