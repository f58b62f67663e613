// CLAUDE:SUMMARY Chrome lifecycle for the operator session: launch headful or attach to a running Chrome, optional Xvfb.
// Package browser is the go-rod execution sandbox: it owns the Chrome
// process and exposes the operator's tab as a scrape page.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a Chrome the operator
	// already runs. Empty = launch a local Chrome.
	RemoteURL string

	// Headless runs the launched Chrome without a window. The default is
	// headful so the operator can log in by hand.
	Headless bool

	// Stealth opens new tabs through go-rod/stealth.
	Stealth bool

	// UserDataDir keeps cookies between runs. Empty = throwaway profile.
	UserDataDir string

	// ResourceBlocking lists resource types to block (fonts, media, stylesheets).
	ResourceBlocking []string

	// XvfbDisplay starts Xvfb on that display for headful Chrome on a
	// machine without X (operator attaches over VNC). Empty = use $DISPLAY.
	XvfbDisplay string

	// NavigateTimeout bounds one navigation. Default: 30s.
	NavigateTimeout time.Duration

	// ClipFrames are the selectors of the image viewer frame.
	ClipFrames []string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if len(c.ClipFrames) == 0 {
		c.ClipFrames = []string{"#html5-embed"}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the Chrome connection.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *exec.Cmd
	closed  bool
}

// NewManager creates a Manager. Call Start to launch or attach.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome, or connects to RemoteURL.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	b, err := m.launch(ctx)
	if err != nil {
		m.cleanup()
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Browser returns the current Rod browser handle, nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Close shuts down a launched Chrome and Xvfb. A remote Chrome is only
// disconnected.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		u, err := launcher.ResolveURL(m.cfg.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("browser: resolve remote %s: %w", m.cfg.RemoteURL, err)
		}
		wsURL = u
		log.Info("browser: attaching to running chrome", "url", wsURL)
	} else {
		if m.cfg.XvfbDisplay != "" && !m.cfg.Headless {
			if err := m.startXvfb(); err != nil {
				return nil, fmt.Errorf("browser: xvfb: %w", err)
			}
		}

		l := launcher.New().Context(ctx).Headless(m.cfg.Headless)
		if m.xvfb != nil {
			l = l.Env("DISPLAY=" + m.cfg.XvfbDisplay)
		}
		if m.cfg.UserDataDir != "" {
			l = l.UserDataDir(m.cfg.UserDataDir)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headless", m.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

func (m *Manager) cleanup() error {
	if m.browser != nil {
		if m.lnch != nil {
			m.browser.Close()
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
	return nil
}
