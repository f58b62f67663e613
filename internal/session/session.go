// CLAUDE:SUMMARY Owns the operator's tab and serializes every run against it for the CLI, HTTP and MCP surfaces.
// Package session binds the scraper, the study-list extractor, the report
// client and the event log to one browser tab. The tab can only show one page
// at a time, so runs are serialized: a second run while one is active fails
// with ErrBusy instead of queueing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/sonodraft/internal/eventlog"
	"github.com/hazyhaar/sonodraft/orchestrate"
	"github.com/hazyhaar/sonodraft/report"
	"github.com/hazyhaar/sonodraft/scrape"
	"github.com/hazyhaar/sonodraft/study"
	"github.com/hazyhaar/sonodraft/studylist"
)

// ErrBusy is returned when a run is already in progress on the tab.
var ErrBusy = errors.New("session: a run is already in progress")

// ErrNoEventLog is returned by Runs and Events when no event log is set.
var ErrNoEventLog = errors.New("session: event log disabled")

// Reports is the report service as seen by a session.
type Reports interface {
	orchestrate.Generator
	orchestrate.HistoryAnalyzer
	orchestrate.HealthChecker
}

// Limits are the scrape limits of both flows.
type Limits struct {
	SingleImageCap          int
	SinglePollTimeout       time.Duration
	LongitudinalImageCap    int
	LongitudinalPollTimeout time.Duration
	Settle                  time.Duration
}

// Config configures a Session.
type Config struct {
	Tab     orchestrate.Tab
	Reports Reports

	// Scraper defaults to scrape.New with default settings.
	Scraper orchestrate.StudyScraper
	// Lister defaults to studylist.New(nil).
	Lister orchestrate.Lister

	// Events may be nil.
	Events *eventlog.Store

	// ArtifactDir receives the audit file of every Done longitudinal run.
	// Empty disables artifacts.
	ArtifactDir string

	Limits    Limits
	Preflight bool

	Logger *slog.Logger
}

// Session serializes runs on one tab.
type Session struct {
	cfg Config
	log *slog.Logger
	mu  sync.Mutex
}

// New creates a Session.
func New(cfg Config) (*Session, error) {
	if cfg.Tab == nil {
		return nil, errors.New("session: Tab is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Scraper == nil {
		cfg.Scraper = scrape.New(scrape.Config{Logger: cfg.Logger})
	}
	if cfg.Lister == nil {
		cfg.Lister = studylist.New(nil)
	}
	return &Session{cfg: cfg, log: cfg.Logger}, nil
}

func (s *Session) acquire() (func(), error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	return s.mu.Unlock, nil
}

// Listing is the study list read from the current page.
type Listing struct {
	Page    string                 `json:"page"`
	Studies []study.StudyReference `json:"studies"`
}

// ListStudies reads the study references on the page the tab shows.
func (s *Session) ListStudies(ctx context.Context) (*Listing, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := s.cfg.Tab.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: snapshot: %w", err)
	}
	return &Listing{Page: doc.URL(), Studies: s.cfg.Lister.Extract(doc)}, nil
}

// ScrapeOptions select the single-study behavior.
type ScrapeOptions struct {
	DryRun bool
	// NoImages skips the clip collection.
	NoImages bool
}

// ScrapeActive scrapes the study the tab shows and, unless DryRun, drafts a
// report for it.
func (s *Session) ScrapeActive(ctx context.Context, o ScrapeOptions) (*orchestrate.SingleResult, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	opt := scrape.SingleOptions()
	if l := s.cfg.Limits; l.SingleImageCap > 0 {
		opt.ImageCap = l.SingleImageCap
	}
	if l := s.cfg.Limits; l.SinglePollTimeout > 0 {
		opt.PollTimeout = l.SinglePollTimeout
	}
	opt.IncludeImages = !o.NoImages

	var gen orchestrate.Generator
	if s.cfg.Reports != nil {
		gen = s.cfg.Reports
	}
	started := time.Now()
	res, err := orchestrate.Single(ctx, orchestrate.SingleConfig{
		Page:      s.cfg.Tab,
		Scraper:   s.cfg.Scraper,
		Generator: gen,
		Options:   &opt,
		DryRun:    o.DryRun,
		Logger:    s.log,
	})
	if s.cfg.Events != nil && res != nil {
		url := ""
		if res.Record != nil {
			url = res.Record.SourceURL
		}
		if lerr := s.cfg.Events.RecordSingle(ctx, res.RunID, url, started, err); lerr != nil {
			s.log.Warn("session: single run not recorded", "run_id", res.RunID, "error", lerr)
		}
	}
	return res, err
}

// HistoryResult is a finished longitudinal run and, when one was written,
// the path of its audit file.
type HistoryResult struct {
	*orchestrate.Result
	Artifact string `json:"artifact,omitempty"`
}

// RunHistory runs a longitudinal analysis with the given decider. Extra
// observers see every transition alongside the event log.
func (s *Session) RunHistory(ctx context.Context, dec orchestrate.Decider, extra ...orchestrate.Observer) (*HistoryResult, error) {
	if s.cfg.Reports == nil {
		return nil, errors.New("session: report service not configured")
	}
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	obs := orchestrate.Observers{orchestrate.LogObserver(s.log)}
	if s.cfg.Events != nil {
		obs = append(obs, s.cfg.Events)
	}
	obs = append(obs, extra...)

	l := s.cfg.Limits
	run, err := orchestrate.NewLongitudinal(orchestrate.Config{
		Tab:         s.cfg.Tab,
		Decider:     dec,
		Analyzer:    s.cfg.Reports,
		Lister:      s.cfg.Lister,
		Scraper:     s.cfg.Scraper,
		Settle:      l.Settle,
		ImageCap:    l.LongitudinalImageCap,
		PollTimeout: l.LongitudinalPollTimeout,
		Preflight:   s.cfg.Preflight,
		Observer:    obs,
		Logger:      s.log,
	})
	if err != nil {
		return nil, err
	}
	res, runErr := run.Run(ctx)
	out := &HistoryResult{Result: res}
	if res == nil {
		return out, runErr
	}

	if s.cfg.Events != nil {
		if err := s.cfg.Events.Finish(context.WithoutCancel(ctx), res); err != nil {
			s.log.Warn("session: run counts not recorded", "run_id", res.RunID, "error", err)
		}
	}
	if a, ok := res.Artifact(time.Now()); ok && s.cfg.ArtifactDir != "" {
		path, err := report.WriteArtifact(s.cfg.ArtifactDir, a)
		if err != nil {
			s.log.Warn("session: artifact not written", "run_id", res.RunID, "error", err)
		} else {
			out.Artifact = path
			s.log.Info("session: artifact written", "run_id", res.RunID, "path", path)
		}
	}
	return out, runErr
}

// Health checks the report service.
func (s *Session) Health(ctx context.Context) error {
	if s.cfg.Reports == nil {
		return errors.New("session: report service not configured")
	}
	return s.cfg.Reports.Health(ctx)
}

// Runs lists recent runs from the event log.
func (s *Session) Runs(ctx context.Context, limit int) ([]eventlog.Run, error) {
	if s.cfg.Events == nil {
		return nil, ErrNoEventLog
	}
	return s.cfg.Events.Runs(ctx, limit)
}

// Events lists the transitions of one run.
func (s *Session) Events(ctx context.Context, runID string) ([]eventlog.EventRow, error) {
	if s.cfg.Events == nil {
		return nil, ErrNoEventLog
	}
	return s.cfg.Events.Events(ctx, runID)
}
