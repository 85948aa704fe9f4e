package firewall

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-pageguard/pkg/interfaces/logger"
)

const rateLimitPrefix = "rate_limit_"

// RateLimitResult reports whether a call may proceed. ResetTime is when the
// oldest request in the window expires.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// RateLimitOption overrides the configured budget for a single check.
type RateLimitOption func(*rateLimitSettings)

type rateLimitSettings struct {
	maxRequests int
	window      time.Duration
}

// WithMaxRequests sets the number of calls allowed per window.
func WithMaxRequests(n int) RateLimitOption {
	return func(s *rateLimitSettings) { s.maxRequests = n }
}

// WithWindow sets the sliding window length.
func WithWindow(d time.Duration) RateLimitOption {
	return func(s *rateLimitSettings) { s.window = d }
}

// CheckRateLimit enforces a sliding window budget for identifier. Only
// allowed calls are recorded. The read-modify-write is not atomic across
// concurrent callers; the limit is advisory.
func (f *Firewall) CheckRateLimit(ctx context.Context, identifier string, opts ...RateLimitOption) (RateLimitResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return RateLimitResult{}, ErrInvalidIdentifier
	}
	settings := rateLimitSettings{
		maxRequests: f.opts.RateLimit.MaxRequests,
		window:      f.opts.RateLimit.Window,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	// Windows are stored at millisecond resolution.
	if settings.maxRequests <= 0 || settings.window < time.Millisecond {
		return RateLimitResult{}, fmt.Errorf("%w: max_requests=%d window=%s", ErrInvalidRateLimit, settings.maxRequests, settings.window)
	}

	key := rateLimitPrefix + identifier
	values, err := f.store.Get(ctx, []string{key})
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("firewall: read rate limit %q: %w", identifier, err)
	}
	now := f.now().UnixMilli()
	windowMs := settings.window.Milliseconds()
	timestamps, changed := pruneWindow(f.decodeTimestamps(identifier, values[key]), now, windowMs)

	if len(timestamps) >= settings.maxRequests {
		if changed {
			f.persistTimestamps(ctx, key, timestamps)
		}
		return RateLimitResult{
			Allowed:   false,
			Remaining: 0,
			ResetTime: time.UnixMilli(timestamps[0] + windowMs),
		}, nil
	}

	timestamps = append(timestamps, now)
	payload, err := json.Marshal(timestamps)
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("firewall: encode rate limit %q: %w", identifier, err)
	}
	if err := f.store.Set(ctx, map[string]string{key: string(payload)}); err != nil {
		return RateLimitResult{}, fmt.Errorf("firewall: write rate limit %q: %w", identifier, err)
	}
	return RateLimitResult{
		Allowed:   true,
		Remaining: settings.maxRequests - len(timestamps),
		ResetTime: time.UnixMilli(timestamps[0] + windowMs),
	}, nil
}

// ResetRateLimit forgets every recorded call for identifier.
func (f *Firewall) ResetRateLimit(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ErrInvalidIdentifier
	}
	if err := f.store.Remove(ctx, []string{rateLimitPrefix + identifier}); err != nil {
		return fmt.Errorf("firewall: reset rate limit %q: %w", identifier, err)
	}
	return nil
}

// decodeTimestamps treats an unreadable record as empty; losing an advisory
// budget is preferable to blocking the caller forever.
func (f *Firewall) decodeTimestamps(identifier, raw string) []int64 {
	if raw == "" {
		return nil
	}
	var out []int64
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		f.logger.Warn("firewall: discarding malformed rate limit record",
			logger.Field{Key: "identifier", Value: identifier},
			logger.Field{Key: "error", Value: err},
		)
		return nil
	}
	return out
}

// persistTimestamps rewrites a pruned record on the denied path so clamped
// entries start ageing. The denied call itself is not added.
func (f *Firewall) persistTimestamps(ctx context.Context, key string, timestamps []int64) {
	payload, err := json.Marshal(timestamps)
	if err == nil {
		err = f.store.Set(ctx, map[string]string{key: string(payload)})
	}
	if err != nil {
		f.logger.Warn("firewall: rewrite rate limit record failed",
			logger.Field{Key: "record", Value: key},
			logger.Field{Key: "error", Value: err},
		)
	}
}

// pruneWindow keeps timestamps younger than the window. Timestamps from the
// future (clock moved backwards) are clamped to now so they still expire.
// changed reports whether anything was dropped or clamped.
func pruneWindow(timestamps []int64, now, windowMs int64) (kept []int64, changed bool) {
	kept = make([]int64, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts > now {
			ts = now
			changed = true
		}
		if now-ts < windowMs {
			kept = append(kept, ts)
			continue
		}
		changed = true
	}
	slices.Sort(kept)
	return kept, changed
}
