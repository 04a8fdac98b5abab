// Package ratelimit implements a points-based rate limiter over an
// interchangeable backing store (in-process or Redis).
//
// Each limiter instance owns a namespace in the store and is configured with
// points per window, the window duration, and an independent block duration.
// Three modes exist: limit consumes a point up front on every request, fail
// consumes only after a failed outcome (clearing on success), and success is
// the mirror of fail. Instances stack: a route can carry several limiters
// with independent namespaces.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Mode selects when a limiter consumes points.
type Mode string

const (
	// ModeLimit consumes one point before forwarding every request.
	ModeLimit Mode = "limit"
	// ModeFail consumes a point after a failed outcome and clears the key
	// after a successful one. Punishes repeated failures only.
	ModeFail Mode = "fail"
	// ModeSuccess consumes a point only after a successful outcome.
	ModeSuccess Mode = "success"
)

// Config describes one limiter instance.
type Config struct {
	// Name is the store namespace for this instance (e.g. "rate_limits", "auth_fail").
	Name string
	// Points per window.
	Points int
	// Duration is the window length.
	Duration time.Duration
	// BlockDuration is how long a key stays blocked once points are
	// exhausted, independent of remaining window time.
	BlockDuration time.Duration
	Mode          Mode
}

// effectivePoints is the threshold actually applied. The fail and success
// modes spend one point of headroom on the post-outcome bookkeeping, so with
// Points=5 a fail-mode key blocks after the 5th failure, on the 6th request.
func (c Config) effectivePoints() int {
	if c.Mode == ModeFail || c.Mode == ModeSuccess {
		return c.Points - 1
	}
	return c.Points
}

// Result reports the state of a key after a consume or peek.
type Result struct {
	// ConsumedPoints is the total consumed within the current window.
	ConsumedPoints int
	// MsBeforeNext is the time remaining until the window (or block) resets.
	MsBeforeNext int64
}

// RetryAfterSeconds converts MsBeforeNext to whole seconds, minimum 1,
// suitable for a Retry-After header.
func (r Result) RetryAfterSeconds() int {
	secs := int((r.MsBeforeNext + 999) / 1000)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Rejection is the error returned by Store.Consume when the point could not
// be granted. It carries the key's state so callers can build a retry hint.
type Rejection struct {
	Result
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d points consumed, %dms before next", r.ConsumedPoints, r.MsBeforeNext)
}

// Store is the backing state for one limiter instance.
//
// Consume must atomically grant one point and return the new total with the
// time to reset in a single round trip or native atomic primitive, never a
// read-modify-write pair, so two concurrent requests for the same key cannot
// lose an update. A *Rejection error means the window or block refused the
// point. Peek reads without mutating; it returns nil when the key has no
// live record. Delete clears the key.
type Store interface {
	Consume(ctx context.Context, key string) (Result, error)
	Peek(ctx context.Context, key string) (*Result, error)
	Delete(ctx context.Context, key string) error
}
