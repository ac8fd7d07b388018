package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDisplaySocket(t *testing.T) {
	tests := []struct {
		display string
		want    string
		wantErr bool
	}{
		{":99", filepath.Join(x11SocketDir, "X99"), false},
		{":1.0", filepath.Join(x11SocketDir, "X1"), false},
		{"99", "", true},
		{":abc", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := displaySocket(tt.display)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v, wantErr %v", tt.display, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.display, got, tt.want)
		}
	}
}

func TestWaitSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "X42")
	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(path, nil, 0o600)
	}()
	if err := waitSocket(context.Background(), path, 2*time.Second); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestWaitSocket_Timeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "X43")
	if err := waitSocket(context.Background(), path, 120*time.Millisecond); err == nil {
		t.Fatal("expected timeout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitSocket(ctx, path, time.Second); err != context.Canceled {
		t.Fatalf("cancelled: got %v", err)
	}
}

func TestStartXvfb_BadDisplay(t *testing.T) {
	m := NewManager(Config{Stealth: LevelHeadful, XvfbDisplay: "nodisplay"})
	if err := m.startXvfb(context.Background()); err == nil {
		t.Fatal("expected error for malformed display")
	}
	if m.xvfb != nil {
		t.Fatal("xvfb started for malformed display")
	}
}
