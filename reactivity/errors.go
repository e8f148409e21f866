package reactivity

import (
	"errors"
	"fmt"
	"log"

	"github.com/dustin/go-humanize"
)

var errRecursiveUpdate = errors.New("reactivity: maximum recursive updates exceeded")

// recursiveUpdateError wraps errRecursiveUpdate with the actual call count
// for the flush's error-handler diagnostic.
func recursiveUpdateError(count int) error {
	return fmt.Errorf("%w: %s calls of the same job in one flush", errRecursiveUpdate, humanize.Comma(int64(count)))
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

// ErrorCode classifies why the runtime's error handler was invoked.
type ErrorCode int

const (
	// ErrCodeScheduler marks a user job that failed during a flush.
	ErrCodeScheduler ErrorCode = iota
	// ErrCodeAppErrorHandler marks a job that exceeded the recursion
	// limit and was skipped.
	ErrCodeAppErrorHandler
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeScheduler:
		return "SCHEDULER"
	case ErrCodeAppErrorHandler:
		return "APP_ERROR_HANDLER"
	default:
		return "UNKNOWN"
	}
}

// ErrorHandler is the external collaborator invoked with the failing
// error, whatever context caused it (a *Job, an *Effect, ...), and an
// error code.
type ErrorHandler func(err error, ctx any, code ErrorCode)

func (rt *Runtime) reportError(err error, ctx any, code ErrorCode) {
	if rt.errorHandler != nil {
		rt.errorHandler(err, ctx, code)
		return
	}
	log.Printf("reactivity: unhandled %s error: %v", code, err)
}

// warnf is the dev-mode diagnostic path for readonly writes.
func warnf(format string, args ...any) {
	log.Printf("reactivity: "+format, args...)
}
