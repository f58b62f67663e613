package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/sonodraft/internal/browser"
	"github.com/hazyhaar/sonodraft/internal/config"
	"github.com/hazyhaar/sonodraft/internal/eventlog"
	"github.com/hazyhaar/sonodraft/internal/session"
	"github.com/hazyhaar/sonodraft/report"
	"github.com/hazyhaar/sonodraft/resolve"
	"github.com/hazyhaar/sonodraft/scrape"
	"github.com/hazyhaar/sonodraft/selectors"
	"github.com/hazyhaar/sonodraft/studylist"
)

// runtime is everything a command needs to drive the operator's tab.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	mgr     *browser.Manager
	tab     *browser.Tab
	events  *eventlog.Store
	reports *report.Client
	sess    *session.Session
}

// loginPrompt is shown after a fresh Chrome opens the start page.
type loginPrompt func(ctx context.Context) error

// openRuntime starts or attaches to Chrome and builds the session. When
// Chrome is launched here, login runs once the start page is open so the
// operator can sign in and open the page to work on.
func openRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, login loginPrompt) (_ *runtime, err error) {
	rt := &runtime{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	reg, err := loadSelectors(cfg.Selectors)
	if err != nil {
		return nil, err
	}
	res := resolve.New(reg)

	rt.reports, err = report.New(report.Config{
		BaseURL:     cfg.Service.URL,
		HistoryPath: cfg.Service.HistoryPath,
		Timeout:     cfg.Service.Timeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.EventLog != "" {
		if rt.events, err = eventlog.Open(cfg.EventLog, logger); err != nil {
			return nil, err
		}
	}

	rt.mgr = browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Headless:         cfg.Browser.Headless,
		Stealth:          cfg.Browser.Stealth,
		UserDataDir:      cfg.Browser.UserDataDir,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		NavigateTimeout:  cfg.Browser.NavigateTimeout,
		ClipFrames:       clipFrames(reg),
		Logger:           logger,
	})
	if _, err := rt.mgr.Start(ctx); err != nil {
		return nil, err
	}
	if cfg.Browser.Remote != "" {
		rt.tab, err = browser.AttachTab(ctx, rt.mgr, cfg.Browser.AttachMatch)
	} else {
		rt.tab, err = browser.OpenTab(ctx, rt.mgr, cfg.Browser.StartURL)
		if err == nil && login != nil {
			err = login(ctx)
		}
	}
	if err != nil {
		return nil, err
	}

	rt.sess, err = session.New(session.Config{
		Tab:     rt.tab,
		Reports: rt.reports,
		Scraper: scrape.New(scrape.Config{
			Resolver:     res,
			PollInterval: cfg.Scrape.PollInterval,
			FetchTimeout: cfg.Scrape.FetchTimeout,
			Logger:       logger,
		}),
		Lister:      studylist.New(res),
		Events:      rt.events,
		ArtifactDir: cfg.Artifacts,
		Limits: session.Limits{
			SingleImageCap:          cfg.Scrape.ImageCap,
			SinglePollTimeout:       cfg.Scrape.PollTimeout,
			LongitudinalImageCap:    cfg.History.ImageCap,
			LongitudinalPollTimeout: cfg.History.PollTimeout,
			Settle:                  cfg.History.Settle,
		},
		Preflight: cfg.PreflightEnabled(),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// Close releases the tab, the browser and the event log.
func (rt *runtime) Close() error {
	var errs []error
	if rt.tab != nil {
		errs = append(errs, rt.tab.Close())
	}
	if rt.mgr != nil {
		errs = append(errs, rt.mgr.Close())
	}
	if rt.events != nil {
		errs = append(errs, rt.events.Close())
	}
	return errors.Join(errs...)
}

func loadSelectors(path string) (*selectors.Registry, error) {
	if path == "" {
		return selectors.Default(), nil
	}
	reg, err := selectors.LoadFile(path, selectors.Default())
	if err != nil {
		return nil, fmt.Errorf("selectors %s: %w", path, err)
	}
	return reg, nil
}

func clipFrames(reg *selectors.Registry) []string {
	var frames []string
	for _, s := range reg.Lookup(selectors.FieldClipsFrame).Strategies {
		frames = append(frames, s.Element)
	}
	return frames
}
