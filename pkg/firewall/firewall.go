// Package firewall gates page-derived text before it leaves the device:
// destination checks, redaction, boundary truncation, credential shape
// checks and a sliding-window call budget.
package firewall

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-pageguard/pkg/interfaces/kv"
	"github.com/goliatone/go-pageguard/pkg/interfaces/logger"
)

// Options tune the firewall. Zero values fall back to DefaultOptions.
type Options struct {
	MaxURLLength     int
	MaxContentLength int
	// BoundaryRatio is the fraction of the limit a sentence or word
	// boundary must reach to be used for truncation.
	BoundaryRatio float64
	Ellipsis      string
	RateLimit     RateLimitOptions
}

// RateLimitOptions is the default per-identifier budget.
type RateLimitOptions struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{
		MaxURLLength:     2048,
		MaxContentLength: 50000,
		BoundaryRatio:    0.8,
		Ellipsis:         "...",
		RateLimit: RateLimitOptions{
			MaxRequests: 100,
			Window:      time.Hour,
		},
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.MaxURLLength == 0 {
		o.MaxURLLength = defaults.MaxURLLength
	}
	if o.MaxContentLength == 0 {
		o.MaxContentLength = defaults.MaxContentLength
	}
	if o.BoundaryRatio == 0 {
		o.BoundaryRatio = defaults.BoundaryRatio
	}
	if o.Ellipsis == "" {
		o.Ellipsis = defaults.Ellipsis
	}
	if o.RateLimit.MaxRequests == 0 {
		o.RateLimit.MaxRequests = defaults.RateLimit.MaxRequests
	}
	if o.RateLimit.Window == 0 {
		o.RateLimit.Window = defaults.RateLimit.Window
	}
	return o
}

func (o Options) validate() error {
	if o.MaxURLLength < 0 || o.MaxContentLength < 0 {
		return errInvalidMaxLength
	}
	if o.BoundaryRatio <= 0 || o.BoundaryRatio > 1 {
		return errInvalidBoundaryPct
	}
	if o.RateLimit.MaxRequests < 0 || o.RateLimit.Window < time.Millisecond {
		return ErrInvalidRateLimit
	}
	return nil
}

// Dependencies wires the firewall.
type Dependencies struct {
	// Store keeps rate limit records.
	Store   kv.Store
	Logger  logger.Logger
	Options Options
	Now     func() time.Time
}

// Firewall is safe for concurrent use; see CheckRateLimit for the one
// accepted race.
type Firewall struct {
	store  kv.Store
	logger logger.Logger
	opts   Options
	now    func() time.Time
}

// New constructs a firewall.
func New(deps Dependencies) (*Firewall, error) {
	if deps.Store == nil {
		return nil, errStoreRequired
	}
	deps.Logger = logger.OrNop(deps.Logger)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	opts := deps.Options.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Firewall{
		store:  deps.Store,
		logger: deps.Logger,
		opts:   opts,
		now:    deps.Now,
	}, nil
}

// Options returns the effective options.
func (f *Firewall) Options() Options {
	return f.opts
}

// SanitizationResult is the only text allowed to leave the device.
// Lengths count Unicode code points.
type SanitizationResult struct {
	Content         string
	OriginalLength  int
	SanitizedLength int
	Truncated       bool
	// Redactions counts replaced matches per rule name.
	Redactions map[string]int
}

// Sanitize validates the destination and content, redacts sensitive
// substrings, normalizes whitespace and finally truncates oversized text at
// a boundary. Redacting before the cut keeps a sensitive value straddling
// the limit from surviving as a partial match.
func (f *Firewall) Sanitize(content, destination string) (SanitizationResult, error) {
	if check := f.IsDestinationSafe(destination); !check.Safe {
		return SanitizationResult{}, &UnsafeDestinationError{URL: destination, Reason: check.Reason}
	}
	if reason := contentReason(content); reason != "" {
		return SanitizationResult{}, &InvalidContentError{Reason: reason}
	}

	original := utf8.RuneCountInString(content)
	result := SanitizationResult{OriginalLength: original}
	content, result.Redactions = redact(content)
	content = collapseWhitespace(content)
	if utf8.RuneCountInString(content) > f.opts.MaxContentLength {
		content = f.Truncate(content, f.opts.MaxContentLength)
		result.Truncated = true
	}
	result.Content = content
	result.SanitizedLength = utf8.RuneCountInString(result.Content)

	f.logger.Debug("firewall: content sanitized",
		logger.Field{Key: "original_length", Value: result.OriginalLength},
		logger.Field{Key: "sanitized_length", Value: result.SanitizedLength},
		logger.Field{Key: "truncated", Value: result.Truncated},
		logger.Field{Key: "redactions", Value: len(result.Redactions)},
	)
	return result, nil
}

// Gate sanitizes content and, when it is acceptable, spends one call from
// identifier's budget. A denied call returns *RateLimitError.
func (f *Firewall) Gate(ctx context.Context, identifier, content, destination string, opts ...RateLimitOption) (SanitizationResult, error) {
	result, err := f.Sanitize(content, destination)
	if err != nil {
		return SanitizationResult{}, err
	}
	limit, err := f.CheckRateLimit(ctx, identifier, opts...)
	if err != nil {
		return SanitizationResult{}, err
	}
	if !limit.Allowed {
		f.logger.Info("firewall: call rejected by rate limit",
			logger.Field{Key: "identifier", Value: identifier},
			logger.Field{Key: "reset_time", Value: limit.ResetTime},
		)
		return SanitizationResult{}, &RateLimitError{Identifier: identifier, ResetTime: limit.ResetTime}
	}
	return result, nil
}

func contentReason(content string) string {
	if !utf8.ValidString(content) {
		return "content is not valid UTF-8 text"
	}
	if collapseWhitespace(content) == "" {
		return "content is empty"
	}
	return ""
}
