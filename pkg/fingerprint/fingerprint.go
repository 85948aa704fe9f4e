// Package fingerprint renders the device fingerprint the vault derives its
// key from. The fingerprint only has to be stable for one device; it is not
// a secret and anyone with local code execution can recompute it.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoSignals is returned when every signal is empty.
var ErrNoSignals = errors.New("fingerprint: no environment signals")

// Signals are the environment values folded into the fingerprint.
type Signals struct {
	UserAgent      string `json:"user_agent"`
	Language       string `json:"language"`
	ScreenWidth    int    `json:"screen_width"`
	ScreenHeight   int    `json:"screen_height"`
	ColorDepth     int    `json:"color_depth"`
	TimezoneOffset int    `json:"timezone_offset"` // minutes, UTC minus local
	CanvasHash     string `json:"canvas_hash"`
}

// Source yields the current signals.
type Source interface {
	Signals(ctx context.Context) (Signals, error)
}

// String concatenates the signals in a fixed order.
func (s Signals) String() string {
	return strings.Join([]string{
		s.UserAgent,
		s.Language,
		fmt.Sprintf("%dx%dx%d", s.ScreenWidth, s.ScreenHeight, s.ColorDepth),
		strconv.Itoa(s.TimezoneOffset),
		s.CanvasHash,
	}, "|")
}

// IsZero reports whether no signal carries a value.
func (s Signals) IsZero() bool {
	return s == Signals{}
}

// Digest returns SHA-256 over the rendered fingerprint.
func (s Signals) Digest() [sha256.Size]byte {
	return sha256.Sum256([]byte(s.String()))
}

// Compute reads the source and returns the fingerprint digest.
func Compute(ctx context.Context, src Source) ([sha256.Size]byte, error) {
	if src == nil {
		return [sha256.Size]byte{}, ErrNoSignals
	}
	signals, err := src.Signals(ctx)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("fingerprint: read signals: %w", err)
	}
	if signals.IsZero() {
		return [sha256.Size]byte{}, ErrNoSignals
	}
	return signals.Digest(), nil
}

// Static returns fixed signals, typically forwarded by the browser host.
type Static Signals

func (s Static) Signals(context.Context) (Signals, error) {
	return Signals(s), nil
}

// Func adapts a function to Source.
type Func func(ctx context.Context) (Signals, error)

func (f Func) Signals(ctx context.Context) (Signals, error) {
	return f(ctx)
}
