package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// Host derives signals from the local process environment. It stands in for
// the browser signals when the vault runs outside the extension (CLI, tests).
//
// Screen geometry comes from PAGEGUARD_SCREEN ("WIDTHxHEIGHTxDEPTH") and the
// canvas hash from the hostname, since neither exists for a headless process.
type Host struct {
	Getenv   func(string) string
	Hostname func() (string, error)
	Now      func() time.Time
}

// NewHost returns a Host bound to the real environment.
func NewHost() Host {
	return Host{Getenv: os.Getenv, Hostname: os.Hostname, Now: time.Now}
}

func (h Host) Signals(context.Context) (Signals, error) {
	getenv := h.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	hostname := h.Hostname
	if hostname == nil {
		hostname = os.Hostname
	}
	now := h.Now
	if now == nil {
		now = time.Now
	}

	name, err := hostname()
	if err != nil {
		return Signals{}, fmt.Errorf("hostname: %w", err)
	}
	canvas := sha256.Sum256([]byte("pageguard-canvas|" + name))

	// Standard-time offset, so the key does not change across DST.
	t := now()
	_, offset := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location()).Zone()
	signals := Signals{
		UserAgent:      fmt.Sprintf("go-pageguard (%s; %s)", runtime.GOOS, runtime.GOARCH),
		Language:       hostLanguage(getenv),
		TimezoneOffset: -offset / 60,
		CanvasHash:     hex.EncodeToString(canvas[:]),
	}
	if raw := strings.TrimSpace(getenv("PAGEGUARD_SCREEN")); raw != "" {
		if _, err := fmt.Sscanf(raw, "%dx%dx%d", &signals.ScreenWidth, &signals.ScreenHeight, &signals.ColorDepth); err != nil {
			return Signals{}, fmt.Errorf("PAGEGUARD_SCREEN %q: %w", raw, err)
		}
	}
	return signals, nil
}

// hostLanguage maps a POSIX locale ("en_US.UTF-8") to a BCP 47 tag ("en-US").
func hostLanguage(getenv func(string) string) string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" || raw == "C" || raw == "POSIX" {
			continue
		}
		if idx := strings.IndexAny(raw, ".@"); idx >= 0 {
			raw = raw[:idx]
		}
		return strings.ReplaceAll(raw, "_", "-")
	}
	return "en-US"
}
