package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/sonodraft/idgen"
	"github.com/hazyhaar/sonodraft/scrape"
	"github.com/hazyhaar/sonodraft/study"
)

// Generator drafts a report for one study.
type Generator interface {
	Generate(ctx context.Context, rec study.StudyRecord) (string, error)
}

// SingleConfig configures a single-study run.
type SingleConfig struct {
	Page    scrape.Page
	Scraper StudyScraper

	// Generator may be nil when DryRun is set.
	Generator Generator

	// Options default to scrape.SingleOptions().
	Options *scrape.Options

	// DryRun returns the record without submitting it.
	DryRun bool

	IDs    idgen.Generator
	Logger *slog.Logger
}

// SingleResult is the outcome of a single-study run.
type SingleResult struct {
	RunID  string             `json:"runId"`
	Record *study.StudyRecord `json:"record"`
	Report string             `json:"report,omitempty"`
}

// Single scrapes the active study page and, unless DryRun, asks for a
// draft report. Scrape and service errors are returned as is.
func Single(ctx context.Context, cfg SingleConfig) (*SingleResult, error) {
	if cfg.Page == nil {
		return nil, errors.New("orchestrate: Page is required")
	}
	if cfg.Generator == nil && !cfg.DryRun {
		return nil, errors.New("orchestrate: Generator is required unless DryRun")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Scraper == nil {
		cfg.Scraper = scrape.New(scrape.Config{Logger: cfg.Logger})
	}
	if cfg.IDs == nil {
		cfg.IDs = idgen.Default
	}
	opt := scrape.SingleOptions()
	if cfg.Options != nil {
		opt = *cfg.Options
	}

	res := &SingleResult{RunID: cfg.IDs()}
	log := cfg.Logger.With("run_id", res.RunID)

	rec, err := cfg.Scraper.Scrape(ctx, cfg.Page, opt)
	if err != nil {
		return res, fmt.Errorf("orchestrate: scrape: %w", err)
	}
	res.Record = rec
	if cfg.DryRun {
		log.Info("orchestrate: dry run, report not requested", "summary", rec.Summary())
		return res, nil
	}

	text, err := cfg.Generator.Generate(ctx, *rec)
	if err != nil {
		return res, err
	}
	res.Report = text
	log.Info("orchestrate: report drafted", "summary", rec.Summary(), "report_chars", len(text))
	return res, nil
}
