// CLAUDE:SUMMARY Turns one rendered UltraLinq study page into a StudyRecord: view, patient, measurements, conclusion, images.
// Package scrape extracts a StudyRecord from the active study page.
//
// The page is read once as a DOM snapshot. When images are requested the clip
// poll runs alongside field extraction; extraction failures never abort the
// scrape, they only leave fields at study.NotAvailable.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/sonodraft/dom"
	"github.com/hazyhaar/sonodraft/resolve"
	"github.com/hazyhaar/sonodraft/selectors"
	"github.com/hazyhaar/sonodraft/study"
	"github.com/hazyhaar/sonodraft/view"
)

// DOMSource returns the rendered element tree of the active page.
type DOMSource interface {
	Snapshot(ctx context.Context) (*dom.Document, error)
}

// ClipSource reads the viewer's clip collection once. An empty result is
// not an error: the viewer may not have populated it yet.
type ClipSource interface {
	Clips(ctx context.Context) ([]study.Clip, error)
}

// Fetcher downloads a resource with the page's credentials.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (study.Resource, error)
}

// Page is everything a scrape needs from the execution sandbox.
type Page interface {
	DOMSource
	ClipSource
	Fetcher
}

// Defaults for the two flows. The asymmetry is kept on purpose.
const (
	SingleImageCap          = 60
	SinglePollTimeout       = 7 * time.Second
	LongitudinalImageCap    = 15
	LongitudinalPollTimeout = 5 * time.Second
)

// Options controls one scrape.
type Options struct {
	IncludeImages bool
	ImageCap      int
	PollTimeout   time.Duration
}

// SingleOptions returns the options of the single-study flow.
func SingleOptions() Options {
	return Options{IncludeImages: true, ImageCap: SingleImageCap, PollTimeout: SinglePollTimeout}
}

// LongitudinalOptions returns the options of one batch step.
func LongitudinalOptions(includeImages bool) Options {
	return Options{IncludeImages: includeImages, ImageCap: LongitudinalImageCap, PollTimeout: LongitudinalPollTimeout}
}

// Config configures a Scraper.
type Config struct {
	Resolver *resolve.Resolver

	// PollInterval between clip collection reads. Default: 300ms.
	PollInterval time.Duration

	// FetchTimeout bounds each image download. Default: 10s.
	FetchTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Resolver == nil {
		c.Resolver = resolve.New(nil)
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 300 * time.Millisecond
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Scraper extracts study records. It holds no per-page state.
type Scraper struct {
	cfg Config
	res *resolve.Resolver
	log *slog.Logger
}

// New creates a Scraper.
func New(cfg Config) *Scraper {
	cfg.defaults()
	return &Scraper{cfg: cfg, res: cfg.Resolver, log: cfg.Logger}
}

// Scrape reads the active page and returns its record.
func (s *Scraper) Scrape(ctx context.Context, page Page, opt Options) (*study.StudyRecord, error) {
	doc, err := page.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("scrape: snapshot: %w", err)
	}
	if !s.res.Present(selectors.FieldPageMarker, doc.Root()) {
		return nil, &NotAStudyPageError{URL: doc.URL()}
	}

	var (
		rec    *study.StudyRecord
		images []study.Image
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = s.Extract(doc)
		return err
	})
	if opt.IncludeImages {
		g.Go(func() error {
			images = s.collectImages(gctx, page, opt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if images != nil {
		rec.Images = images
	}

	s.log.Info("scrape: study extracted",
		"url", rec.SourceURL,
		"view", rec.View,
		"study_type", rec.StudyType,
		"measurements", len(rec.Measurements),
		"images", len(rec.Images),
	)
	return rec, nil
}

// Extract builds a record from an already captured document, without images.
func (s *Scraper) Extract(doc *dom.Document) (*study.StudyRecord, error) {
	root := doc.Root()
	if !s.res.Present(selectors.FieldPageMarker, root) {
		return nil, &NotAStudyPageError{URL: doc.URL()}
	}

	label := s.res.ResolveOr(selectors.FieldSelectedTab, root, "")
	kind := view.Classify(label)
	if kind == view.Unrecognized {
		s.log.Warn("scrape: unrecognized view, using generic extraction", "tab", label, "url", doc.URL())
	}

	title, _ := s.res.Resolve(selectors.FieldStudyTitle, root)

	return &study.StudyRecord{
		StudyType:    study.InferStudyType(title),
		PatientInfo:  s.patient(root, kind),
		Measurements: s.measurements(root),
		Conclusion:   s.conclusion(root),
		Images:       []study.Image{},
		SourceURL:    doc.URL(),
		View:         kind.String(),
	}, nil
}

func (s *Scraper) patient(root *dom.Element, kind view.Kind) study.PatientInfo {
	header := [3]string{selectors.FieldHeaderPatientName, selectors.FieldHeaderDOB, selectors.FieldHeaderStudyDate}
	report := [3]string{selectors.FieldReportPatientName, selectors.FieldReportDOB, selectors.FieldReportStudyDate}
	first, second := header, report
	if kind == view.Report {
		first, second = report, header
	}

	var out [3]string
	for i := range out {
		v, ok := s.res.First(root, first[i], second[i])
		if !ok {
			v = study.NotAvailable
		}
		out[i] = v
	}
	return study.PatientInfo{Name: out[0], DateOfBirth: out[1], StudyDate: out[2]}
}
