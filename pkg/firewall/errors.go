package firewall

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnsafeDestination  = errors.New("firewall: unsafe destination")
	ErrInvalidContent     = errors.New("firewall: invalid content")
	ErrRateLimitExceeded  = errors.New("firewall: rate limit exceeded")
	ErrInvalidIdentifier  = errors.New("firewall: rate limit identifier is required")
	ErrInvalidRateLimit   = errors.New("firewall: invalid rate limit settings")
	ErrExtractionFailed   = errors.New("firewall: text extraction failed")
	errStoreRequired      = errors.New("firewall: store is required")
	errInvalidMaxLength   = errors.New("firewall: max lengths must be > 0")
	errInvalidBoundaryPct = errors.New("firewall: boundary ratio must be within (0, 1]")
)

// UnsafeDestinationError carries the reason a destination was rejected.
type UnsafeDestinationError struct {
	URL    string
	Reason string
}

func (e *UnsafeDestinationError) Error() string {
	return fmt.Sprintf("firewall: unsafe destination: %s", e.Reason)
}

func (e *UnsafeDestinationError) Is(target error) bool { return target == ErrUnsafeDestination }

// InvalidContentError carries the reason content was refused.
type InvalidContentError struct {
	Reason string
}

func (e *InvalidContentError) Error() string {
	return fmt.Sprintf("firewall: invalid content: %s", e.Reason)
}

func (e *InvalidContentError) Is(target error) bool { return target == ErrInvalidContent }

// RateLimitError tells the caller when the identifier may call again.
type RateLimitError struct {
	Identifier string
	ResetTime  time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("firewall: rate limit exceeded for %q until %s", e.Identifier, e.ResetTime.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimitExceeded }
