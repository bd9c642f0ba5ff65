package bodypipe

import (
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/jacoelho/bodypipe/internal/obs"
)

var (
	_ io.Reader     = (*Reader)(nil)
	_ io.WriterTo   = (*Reader)(nil)
	_ io.Closer     = (*Reader)(nil)
	_ io.Writer     = (*Writer)(nil)
	_ io.ReaderFrom = (*Writer)(nil)
	_ io.Closer     = (*Writer)(nil)
)

type state int

const (
	stateOpen state = iota
	stateClosed
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateClosed:
		return "closed"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	outcomeClosed    = "closed"
	outcomeFailed    = "failed"
	outcomeAbandoned = "abandoned"
)

// pipe is the state shared by one Writer and one Reader.
//
// Waiters take the current wait channel under mu and block on it outside the
// lock. Any change the other side may be waiting for closes the channel, so
// a waiter that gives up early leaves nothing behind.
type pipe struct {
	failErr    error // producer error, set on open -> failed
	abandonErr error // returned to the writer once the reader is gone

	readerWait chan struct{}
	writerWait chan struct{}

	ring *chunkRing
	mu   sync.Mutex

	state        state
	failReported bool
	readerClosed bool

	declared  int64 // -1 until the writer declares a total
	delivered int64

	log     obs.Logger
	metrics *Metrics
}

func newPipe(capacity int, opts *Options) *pipe {
	p := &pipe{
		ring:     newChunkRing(capacity),
		declared: -1,
		log:      obs.With(opts.logger(), "capacity", capacity),
		metrics:  opts.metrics(),
	}
	p.metrics.opened()
	return p
}

// New creates a channel buffering at most capacity chunks and returns its
// two ends. It fails with ErrInvalidCapacity if capacity < 1.
func New(capacity int, opts *Options) (*Writer, *Reader, error) {
	if capacity < 1 {
		return nil, nil, errors.Wrapf(ErrInvalidCapacity, "capacity %d", capacity)
	}
	p := newPipe(capacity, opts)

	w := &Writer{p: p, size: opts.chunkSize()}
	w.cleanup = runtime.AddCleanup(w, func(p *pipe) { p.closeWriter(nil) }, p)

	r := &Reader{p: p}
	r.cleanup = runtime.AddCleanup(r, func(p *pipe) { p.closeReader(nil) }, p)

	return w, r, nil
}

// Pipe is like New with default options, but returns the ends in io.Pipe
// order. It panics if capacity < 1.
func Pipe(capacity int) (*Reader, *Writer) {
	w, r, err := New(capacity, nil)
	if err != nil {
		panic(err)
	}
	return r, w
}

func (p *pipe) writableLocked() error {
	if p.readerClosed {
		return p.abandonErr
	}
	if p.state != stateOpen {
		return ErrWriterClosed
	}
	return nil
}

func (p *pipe) writable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writableLocked()
}

// push enqueues c, waiting for room while the queue is full.
func (p *pipe) push(ctx context.Context, c Chunk) error {
	waited := false
	for {
		p.mu.Lock()
		if err := p.writableLocked(); err != nil {
			p.mu.Unlock()
			return err
		}
		if p.ring.push(c) {
			wakeLocked(&p.readerWait)
			p.mu.Unlock()
			p.metrics.transfer("enqueued", c.Len())
			return nil
		}
		wait := waitLocked(&p.writerWait)
		p.mu.Unlock()

		if !waited {
			waited = true
			p.metrics.suspended("writer")
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pop dequeues the oldest chunk, waiting while the queue is empty and the
// writer is still open.
func (p *pipe) pop(ctx context.Context) (Chunk, error) {
	waited := false
	for {
		p.mu.Lock()
		if p.readerClosed {
			p.mu.Unlock()
			return Chunk{}, io.ErrClosedPipe
		}
		if c, ok := p.ring.pop(); ok {
			p.delivered += int64(c.Len())
			wakeLocked(&p.writerWait)
			p.mu.Unlock()
			p.metrics.transfer("dequeued", c.Len())
			return c, nil
		}
		if err := p.drainedLocked(); err != nil {
			p.mu.Unlock()
			return Chunk{}, err
		}
		wait := waitLocked(&p.readerWait)
		p.mu.Unlock()

		if !waited {
			waited = true
			p.metrics.suspended("reader")
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return Chunk{}, ctx.Err()
		}
	}
}

// drainedLocked returns the terminal result for an empty queue, or nil if
// the writer may still produce chunks. The producer error is reported once.
func (p *pipe) drainedLocked() error {
	switch p.state {
	case stateClosed:
		return io.EOF
	case stateFailed:
		if p.failReported {
			return io.EOF
		}
		p.failReported = true
		return p.failErr
	}
	return nil
}

// closeWriter moves the channel out of the open state. A nil err closes it,
// anything else fails it. Only the first call has an effect.
func (p *pipe) closeWriter(err error) {
	p.mu.Lock()
	if p.state != stateOpen {
		p.mu.Unlock()
		return
	}
	outcome := outcomeClosed
	if err == nil {
		p.state = stateClosed
	} else {
		outcome = outcomeFailed
		p.state = stateFailed
		p.failErr = err
	}
	pending := p.ring.len()
	wakeLocked(&p.readerWait)
	wakeLocked(&p.writerWait)
	p.mu.Unlock()

	p.metrics.terminated(outcome)
	if err != nil {
		p.log.Log(obs.Debug, "writer aborted", "pending_chunks", pending, "err", err)
	} else {
		p.log.Log(obs.Debug, "writer closed", "pending_chunks", pending)
	}
}

// closeReader abandons the channel. Pending chunks are dropped and every
// later write fails.
func (p *pipe) closeReader(cause error) {
	p.mu.Lock()
	if p.readerClosed {
		p.mu.Unlock()
		return
	}
	p.readerClosed = true
	p.abandonErr = ErrChannelAbandoned
	if cause != nil {
		p.abandonErr = &AbandonedError{Cause: cause}
	}
	dropped := p.ring.len()
	p.ring.reset()
	writerState := p.state
	wakeLocked(&p.readerWait)
	wakeLocked(&p.writerWait)
	p.mu.Unlock()

	if writerState == stateOpen {
		p.metrics.terminated(outcomeAbandoned)
	}
	p.log.Log(obs.Debug, "reader closed", "writer_state", writerState, "dropped_chunks", dropped, "cause", cause)
}

func (p *pipe) declare(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.declared = total
}

func (p *pipe) sizeHint() (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declared < 0 {
		return 0, false
	}
	return max(p.declared-p.delivered, 0), true
}

func waitLocked(ch *chan struct{}) <-chan struct{} {
	if *ch == nil {
		*ch = make(chan struct{})
	}
	return *ch
}

func wakeLocked(ch *chan struct{}) {
	if *ch != nil {
		close(*ch)
		*ch = nil
	}
}
