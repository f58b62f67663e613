// CLAUDE:SUMMARY Longitudinal run: list studies, confirm with the operator, scrape each in turn, submit the aggregate.
// Package orchestrate drives scrape runs against the operator's browser tab.
//
// A longitudinal run is a state machine:
//
//	Idle → Listing → Confirming → TypeSelection → Scraping(i)… → Aggregating → Submitting → Done
//
// Any step may end in Aborted. Studies are visited strictly one after the
// other since navigating the tab invalidates the previous page.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/sonodraft/dom"
	"github.com/hazyhaar/sonodraft/idgen"
	"github.com/hazyhaar/sonodraft/report"
	"github.com/hazyhaar/sonodraft/scrape"
	"github.com/hazyhaar/sonodraft/study"
	"github.com/hazyhaar/sonodraft/studylist"
)

// Abort reasons.
const (
	ReasonNoStudies      = "no studies found"
	ReasonCancelled      = "user cancelled"
	ReasonNoneScraped    = "no studies scraped"
	ReasonInvalidType    = "invalid study type"
	ReasonServiceOffline = "report service unavailable"
)

// Tab is the operator's browser tab.
type Tab interface {
	scrape.Page
	Navigate(ctx context.Context, url string) error
}

// StudyScraper extracts the active study page.
type StudyScraper interface {
	Scrape(ctx context.Context, page scrape.Page, opt scrape.Options) (*study.StudyRecord, error)
}

// Lister finds study references on a study-list page.
type Lister interface {
	Extract(doc *dom.Document) []study.StudyReference
}

// HistoryAnalyzer submits a patient history.
type HistoryAnalyzer interface {
	AnalyzeHistory(ctx context.Context, h study.PatientHistory) (*report.HistoryReport, error)
}

// HealthChecker is implemented by analyzers that support a pre-flight check.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config configures a Longitudinal run.
type Config struct {
	Tab      Tab
	Decider  Decider
	Analyzer HistoryAnalyzer

	// Lister defaults to studylist.New(nil).
	Lister Lister

	// Scraper defaults to scrape.New with default settings.
	Scraper StudyScraper

	// Settle is the wait after each navigation. Default: 4s.
	Settle time.Duration

	// ImageCap and PollTimeout apply to the first study. Defaults:
	// scrape.LongitudinalImageCap and scrape.LongitudinalPollTimeout.
	ImageCap    int
	PollTimeout time.Duration

	// Preflight calls the analyzer's Health before listing, when supported.
	Preflight bool

	Observer Observer
	IDs      idgen.Generator
	Logger   *slog.Logger
}

func (c *Config) defaults() {
	if c.Lister == nil {
		c.Lister = studylist.New(nil)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Scraper == nil {
		c.Scraper = scrape.New(scrape.Config{Logger: c.Logger})
	}
	if c.Settle <= 0 {
		c.Settle = 4 * time.Second
	}
	if c.ImageCap <= 0 {
		c.ImageCap = scrape.LongitudinalImageCap
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = scrape.LongitudinalPollTimeout
	}
	if c.IDs == nil {
		c.IDs = idgen.Default
	}
}

// Outcome is the fate of one listed study.
type Outcome struct {
	Reference study.StudyReference `json:"reference"`
	Scraped   bool                 `json:"scraped"`
	Error     string               `json:"error,omitempty"`
}

// Result is the end state of a run.
type Result struct {
	RunID    string                `json:"runId"`
	State    State                 `json:"state"`
	Reason   string                `json:"reason,omitempty"`
	History  *study.PatientHistory `json:"history,omitempty"`
	Report   *report.HistoryReport `json:"report,omitempty"`
	Outcomes []Outcome             `json:"outcomes"`

	// Err is the service or infrastructure error behind an abort, if any.
	Err error `json:"-"`
}

// Longitudinal runs one multi-study analysis.
type Longitudinal struct {
	cfg Config
}

// NewLongitudinal checks the required collaborators.
func NewLongitudinal(cfg Config) (*Longitudinal, error) {
	if cfg.Tab == nil || cfg.Decider == nil || cfg.Analyzer == nil {
		return nil, errors.New("orchestrate: Tab, Decider and Analyzer are required")
	}
	cfg.defaults()
	return &Longitudinal{cfg: cfg}, nil
}

// run carries the state of one Run call.
type run struct {
	cfg   *Config
	res   *Result
	state State
}

func (r *run) to(ctx context.Context, next State, index int, url, reason string) {
	ev := Event{RunID: r.res.RunID, From: r.state, To: next, Index: index, URL: url, Reason: reason, At: time.Now()}
	r.state = next
	r.res.State = next
	if r.cfg.Observer != nil {
		r.cfg.Observer.Transition(ctx, ev)
	}
}

func (r *run) abort(ctx context.Context, reason string, err error) *Result {
	r.res.Reason = reason
	r.res.Err = err
	r.to(ctx, Aborted, 0, "", reason)
	return r.res
}

// Run executes the state machine. Operator cancellation, an empty list, no
// successful scrape and a service failure all end in Aborted with a nil
// error; the error is non-nil only when the run could not proceed at all
// (decider failure, page unreadable, context cancelled).
func (l *Longitudinal) Run(ctx context.Context) (*Result, error) {
	cfg := &l.cfg
	r := &run{cfg: cfg, res: &Result{RunID: cfg.IDs(), State: Idle, Outcomes: []Outcome{}}, state: Idle}
	log := cfg.Logger.With("run_id", r.res.RunID)

	if hc, ok := cfg.Analyzer.(HealthChecker); ok && cfg.Preflight {
		if err := hc.Health(ctx); err != nil {
			log.Warn("orchestrate: report service pre-flight failed", "error", err)
			return r.abort(ctx, ReasonServiceOffline+": "+err.Error(), err), nil
		}
	}

	r.to(ctx, Listing, 0, "", "")
	doc, err := cfg.Tab.Snapshot(ctx)
	if err != nil {
		err = fmt.Errorf("orchestrate: read study list: %w", err)
		return r.abort(ctx, err.Error(), err), err
	}
	refs := cfg.Lister.Extract(doc)
	if len(refs) == 0 {
		return r.abort(ctx, ReasonNoStudies, nil), nil
	}
	log.Info("orchestrate: studies listed", "count", len(refs), "page", doc.URL())

	r.to(ctx, Confirming, 0, "", "")
	ok, err := cfg.Decider.Confirm(ctx, planFor(refs))
	if err != nil {
		err = fmt.Errorf("orchestrate: confirm: %w", err)
		return r.abort(ctx, err.Error(), err), err
	}
	if !ok {
		return r.abort(ctx, ReasonCancelled, nil), nil
	}

	r.to(ctx, TypeSelection, 0, "", "")
	analysis, err := cfg.Decider.SelectStudyType(ctx)
	if err != nil {
		err = fmt.Errorf("orchestrate: select study type: %w", err)
		return r.abort(ctx, err.Error(), err), err
	}
	if !analysis.Valid() {
		return r.abort(ctx, fmt.Sprintf("%s %q", ReasonInvalidType, analysis), nil), nil
	}

	var records []study.StudyRecord
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return r.abort(ctx, "interrupted: "+err.Error(), err), err
		}
		r.to(ctx, Scraping, i, ref.URL, "")

		rec, err := l.scrapeOne(ctx, i, ref)
		if err != nil {
			log.Warn("orchestrate: study skipped", "index", i, "url", ref.URL, "error", err)
			r.res.Outcomes = append(r.res.Outcomes, Outcome{Reference: ref, Error: err.Error()})
			continue
		}
		kept := *rec
		if ref.DateHint != study.Unknown {
			kept.ListedDate = ref.DateHint
		}
		records = append(records, kept)
		r.res.Outcomes = append(r.res.Outcomes, Outcome{Reference: ref, Scraped: true})
		log.Info("orchestrate: study scraped", "index", i, "summary", kept.Summary())
	}

	if err := ctx.Err(); err != nil {
		return r.abort(ctx, "interrupted: "+err.Error(), err), err
	}

	r.to(ctx, Aggregating, 0, "", "")
	if len(records) == 0 {
		return r.abort(ctx, ReasonNoneScraped, nil), nil
	}
	history := study.PatientHistory{
		PatientName: records[0].PatientInfo.Name,
		StudyType:   analysis,
		Studies:     records,
	}
	r.res.History = &history

	r.to(ctx, Submitting, 0, "", "")
	rep, err := cfg.Analyzer.AnalyzeHistory(ctx, history)
	if err != nil {
		return r.abort(ctx, serviceMessage(err), err), nil
	}
	r.res.Report = rep
	r.to(ctx, Done, 0, "", "")
	return r.res, nil
}

func (l *Longitudinal) scrapeOne(ctx context.Context, i int, ref study.StudyReference) (*study.StudyRecord, error) {
	cfg := &l.cfg
	if err := cfg.Tab.Navigate(ctx, ref.URL); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	t := time.NewTimer(cfg.Settle)
	select {
	case <-ctx.Done():
		t.Stop()
		return nil, ctx.Err()
	case <-t.C:
	}

	opt := scrape.LongitudinalOptions(i == 0)
	opt.ImageCap = cfg.ImageCap
	opt.PollTimeout = cfg.PollTimeout
	return cfg.Scraper.Scrape(ctx, cfg.Tab, opt)
}

func planFor(refs []study.StudyReference) Plan {
	return Plan{
		Studies: append([]study.StudyReference(nil), refs...),
		Actions: []string{
			fmt.Sprintf("navigate to each of the %d studies in turn", len(refs)),
			"extract measurements and conclusions from every study",
			"download images from the most recent study only",
			"send the aggregated history to the report service",
		},
	}
}

// serviceMessage is the service's own message when it answered, else the
// error text.
func serviceMessage(err error) string {
	var rej *report.RejectedError
	if errors.As(err, &rej) {
		return rej.Message
	}
	return err.Error()
}

// Artifact returns the audit record of a Done run.
func (res *Result) Artifact(at time.Time) (report.Artifact, bool) {
	if res == nil || res.State != Done || res.History == nil || res.Report == nil {
		return report.Artifact{}, false
	}
	return report.Artifact{
		PatientName:     res.History.PatientName,
		StudyType:       res.History.StudyType,
		AnalyzedAt:      at,
		StudiesAnalyzed: res.Report.StudiesAnalyzed,
		DateRange:       res.Report.DateRange,
		Report:          res.Report.Report,
	}, true
}
