package bodypipe

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidCapacity is returned by New when the capacity is not positive.
	ErrInvalidCapacity = errors.New("bodypipe: capacity must be positive")

	// ErrChannelAbandoned is reported to the writer once the reader is gone.
	// Every write and flush after that point fails with it.
	ErrChannelAbandoned = errors.New("bodypipe: channel abandoned by reader")

	// ErrWriterClosed is reported by writes after Close or Abort.
	ErrWriterClosed = errors.New("bodypipe: write on closed writer")
)

// AbandonedError is reported to the writer when the reader closed the
// channel with a cause. It matches ErrChannelAbandoned under errors.Is and
// unwraps to the cause.
type AbandonedError struct {
	Cause error
}

func (e *AbandonedError) Error() string {
	return ErrChannelAbandoned.Error() + ": " + e.Cause.Error()
}

func (e *AbandonedError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrChannelAbandoned.
func (e *AbandonedError) Is(target error) bool { return target == ErrChannelAbandoned }
