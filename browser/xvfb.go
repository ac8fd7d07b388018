package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// xvfbReadyTimeout bounds the wait for the display socket to appear.
const xvfbReadyTimeout = 5 * time.Second

// x11SocketDir is where an X server creates its display sockets.
var x11SocketDir = "/tmp/.X11-unix"

// startXvfb runs the virtual display headful Chrome renders into, sized by
// XvfbScreen so the recorded viewport matches the configuration. It returns
// once the display accepts connections.
func (m *Manager) startXvfb(ctx context.Context) error {
	if m.xvfb != nil {
		return nil
	}
	sock, err := displaySocket(m.cfg.XvfbDisplay)
	if err != nil {
		return err
	}

	cmd := exec.Command("Xvfb", m.cfg.XvfbDisplay, "-screen", "0", m.cfg.XvfbScreen, "-ac", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xvfb: %w", err)
	}
	m.xvfb = cmd

	if err := waitSocket(ctx, sock, xvfbReadyTimeout); err != nil {
		m.stopXvfb()
		return fmt.Errorf("display %s: %w", m.cfg.XvfbDisplay, err)
	}
	m.cfg.Logger.Info("browser: xvfb started",
		"display", m.cfg.XvfbDisplay, "screen", m.cfg.XvfbScreen, "pid", cmd.Process.Pid)
	return nil
}

func (m *Manager) stopXvfb() {
	if m.xvfb == nil {
		return
	}
	if m.xvfb.Process != nil {
		m.xvfb.Process.Kill()
		m.xvfb.Wait()
	}
	m.cfg.Logger.Info("browser: xvfb stopped", "display", m.cfg.XvfbDisplay)
	m.xvfb = nil
}

// displaySocket maps a display name like ":99" or ":99.0" to its socket.
func displaySocket(display string) (string, error) {
	num, ok := strings.CutPrefix(display, ":")
	if !ok {
		return "", fmt.Errorf("browser: xvfb display %q: want :N", display)
	}
	num, _, _ = strings.Cut(num, ".")
	if _, err := strconv.Atoi(num); err != nil {
		return "", fmt.Errorf("browser: xvfb display %q: want :N", display)
	}
	return filepath.Join(x11SocketDir, "X"+num), nil
}

func waitSocket(ctx context.Context, path string, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("not ready after %s", timeout)
		case <-tick.C:
		}
	}
}
