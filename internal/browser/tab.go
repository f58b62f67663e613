package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/sonodraft/dom"
	"github.com/hazyhaar/sonodraft/study"
)

// Tab is the operator's page. It implements the scrape and orchestrate
// page interfaces.
type Tab struct {
	Page     *rod.Page
	manager  *Manager
	attached bool
}

// OpenTab creates a tab and navigates it to pageURL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, mgr.cfg.ResourceBlocking); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	t := &Tab{Page: page, manager: mgr}
	if pageURL != "" {
		if err := t.Navigate(ctx, pageURL); err != nil {
			page.Close()
			return nil, err
		}
	}
	return t, nil
}

// AttachTab picks an existing tab whose URL contains match.
func AttachTab(ctx context.Context, mgr *Manager, match string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	pages, err := b.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("browser: list tabs: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if strings.Contains(info.URL, match) {
			mgr.cfg.Logger.Info("browser: attached to tab", "url", info.URL)
			return &Tab{Page: p, manager: mgr, attached: true}, nil
		}
	}
	return nil, fmt.Errorf("browser: no tab matching %q", match)
}

// URL returns the tab's current location.
func (t *Tab) URL() string {
	info, err := t.Page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Navigate loads url and waits for the load event.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, t.manager.cfg.NavigateTimeout)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		t.manager.cfg.Logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}
	return nil
}

// Snapshot serialises the rendered DOM, form state included.
func (t *Tab) Snapshot(ctx context.Context) (*dom.Document, error) {
	res, err := t.Page.Context(ctx).Eval(snapshotJS)
	if err != nil {
		return nil, fmt.Errorf("browser: snapshot: %w", err)
	}
	var snap struct {
		URL  string `json:"url"`
		HTML string `json:"html"`
	}
	if err := res.Value.Unmarshal(&snap); err != nil {
		return nil, fmt.Errorf("browser: decode snapshot: %w", err)
	}
	return dom.ParseBytes([]byte(snap.HTML), snap.URL)
}

// Clips reads the clip collection once, from the page and then from the
// viewer frame.
func (t *Tab) Clips(ctx context.Context) ([]study.Clip, error) {
	clips, err := evalClips(t.Page.Context(ctx))
	if err != nil || len(clips) > 0 {
		return clips, err
	}
	for _, sel := range t.manager.cfg.ClipFrames {
		els, err := t.Page.Context(ctx).Elements(sel)
		if err != nil || len(els) == 0 {
			continue
		}
		frame, err := els[0].Frame()
		if err != nil {
			t.manager.cfg.Logger.Debug("browser: viewer frame not reachable", "selector", sel, "error", err)
			continue
		}
		clips, err := evalClips(frame.Context(ctx))
		if err != nil {
			return nil, err
		}
		if len(clips) > 0 {
			return clips, nil
		}
	}
	return nil, nil
}

func evalClips(p *rod.Page) ([]study.Clip, error) {
	res, err := p.Eval(clipsJS)
	if err != nil {
		return nil, fmt.Errorf("browser: read clips: %w", err)
	}
	var clips []study.Clip
	if err := res.Value.Unmarshal(&clips); err != nil {
		return nil, fmt.Errorf("browser: decode clips: %w", err)
	}
	return clips, nil
}

// Fetch downloads url from inside the page so the session cookies apply.
func (t *Tab) Fetch(ctx context.Context, url string) (study.Resource, error) {
	res, err := t.Page.Context(ctx).Eval(fetchJS, url)
	if err != nil {
		return study.Resource{}, fmt.Errorf("browser: fetch %s: %w", url, err)
	}
	var out struct {
		B64  string `json:"b64"`
		Mime string `json:"mime"`
	}
	if err := res.Value.Unmarshal(&out); err != nil {
		return study.Resource{}, fmt.Errorf("browser: decode fetch: %w", err)
	}
	return decodeResource(out.B64, out.Mime)
}

func decodeResource(b64, mime string) (study.Resource, error) {
	body, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return study.Resource{}, fmt.Errorf("browser: decode body: %w", err)
	}
	return study.Resource{Body: body, MediaType: mime}, nil
}

// Close closes the tab. Attached tabs belong to the operator and are left
// open.
func (t *Tab) Close() error {
	if t.Page == nil || t.attached {
		return nil
	}
	return t.Page.Close()
}
