package devol

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConfigError reports an invalid combination of pool parameters discovered
// at creation time. It is the Go analogue of the C library's DEVOL_ERR
// creation-failure return code (spec.md §7): the pool is never partially
// constructed, and no goroutines are started.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("devol: invalid %s: %s", e.Field, e.Reason)
}

// ErrPoolClosed is returned by Iterate once Close has been called.
var ErrPoolClosed = errors.New("devol: gene pool closed")

// CallbackError wraps a failure surfaced by a user Callbacks method. Runtime
// errors inside callbacks are not the engine's concern (spec.md §7); the
// engine only adds enough context to locate which worker and which callback
// failed, and aborts that worker's current generation.
type CallbackError struct {
	Timestamp  time.Time
	Err        error
	Path       []string
	Generation int
	Duration   time.Duration
}

func (e *CallbackError) Error() string {
	if e == nil {
		return "<nil>"
	}
	path := strings.Join(e.Path, " -> ")
	if path == "" {
		path = "unknown"
	}
	return fmt.Sprintf("devol: generation %d: %s failed after %v: %v", e.Generation, path, e.Duration, e.Err)
}

// Unwrap supports errors.Is/errors.As against the underlying callback error.
func (e *CallbackError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsCanceled reports whether the callback failed because the driver's
// context was canceled mid-generation.
func (e *CallbackError) IsCanceled() bool {
	if e == nil {
		return false
	}
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}
