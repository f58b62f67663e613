package browser

import (
	"fmt"
	"os/exec"
	"time"
)

// startXvfb launches a virtual display for headful Chrome.
func (m *Manager) startXvfb() error {
	if m.xvfb != nil {
		return nil
	}

	display := m.cfg.XvfbDisplay
	cmd := exec.Command("Xvfb", display, "-screen", "0", "1600x1000x24", "-ac")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xvfb: %w", err)
	}
	m.xvfb = cmd

	// Xvfb accepts connections shortly after start.
	time.Sleep(500 * time.Millisecond)

	m.cfg.Logger.Info("browser: xvfb started", "display", display, "pid", cmd.Process.Pid)
	return nil
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil || m.xvfb.Process == nil {
		return
	}
	m.xvfb.Process.Kill()
	m.xvfb.Wait()
	m.xvfb = nil
}
