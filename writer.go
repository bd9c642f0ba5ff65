package bodypipe

import (
	"context"
	"io"
	"runtime"
)

// Writer is the producing end of a channel.
//
// Written bytes are staged and sealed into a chunk each time the stage
// reaches the chunk size. Bytes still staged when the writer is closed are
// discarded, so producers call Flush before Close. A Writer that becomes
// unreachable without being closed is closed for its reader.
type Writer struct {
	p       *pipe
	stage   []byte
	size    int
	cleanup runtime.Cleanup
}

// Write implements io.Writer. It blocks while the queue is full.
func (w *Writer) Write(b []byte) (int, error) {
	return w.WriteContext(context.Background(), b)
}

// WriteContext is like Write, but gives up waiting for queue space when ctx
// is done. Bytes counted in n stay staged after a failure and are sent by
// the next successful Write or Flush.
func (w *Writer) WriteContext(ctx context.Context, b []byte) (n int, err error) {
	if err := w.p.writable(); err != nil {
		return 0, err
	}
	for len(b) > 0 {
		if w.stage == nil {
			w.stage = make([]byte, 0, w.size)
		}
		m := len(w.stage)
		k := copy(w.stage[m:w.size], b)
		w.stage = w.stage[:m+k]
		b = b[k:]
		n += k
		if len(w.stage) == w.size {
			if err := w.seal(ctx); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// ReadFrom implements io.ReaderFrom by reading straight into the stage
// until r reports io.EOF. Like Write, it leaves the final partial chunk
// staged.
func (w *Writer) ReadFrom(r io.Reader) (n int64, err error) {
	ctx := context.Background()
	for {
		if err := w.p.writable(); err != nil {
			return n, err
		}
		if w.stage == nil {
			w.stage = make([]byte, 0, w.size)
		}
		if len(w.stage) == w.size {
			if err := w.seal(ctx); err != nil {
				return n, err
			}
			continue
		}
		m := len(w.stage)
		k, rErr := r.Read(w.stage[m:w.size])
		w.stage = w.stage[:m+k]
		n += int64(k)
		if rErr == io.EOF {
			return n, nil
		}
		if rErr != nil {
			return n, rErr
		}
	}
}

// Flush seals the staged bytes, if any, into a chunk and enqueues it,
// blocking while the queue is full.
func (w *Writer) Flush() error {
	return w.FlushContext(context.Background())
}

// FlushContext is like Flush, but gives up waiting when ctx is done. The
// staged bytes are kept on failure.
func (w *Writer) FlushContext(ctx context.Context) error {
	if err := w.p.writable(); err != nil {
		return err
	}
	return w.seal(ctx)
}

// seal hands the stage over to the queue. The stage is only released once
// the chunk is enqueued.
func (w *Writer) seal(ctx context.Context) error {
	if len(w.stage) == 0 {
		return nil
	}
	if err := w.p.push(ctx, Chunk{b: w.stage}); err != nil {
		return err
	}
	w.stage = nil
	return nil
}

// Close ends the stream. The reader sees io.EOF after draining the queued
// chunks. Staged bytes are discarded. Closing an already closed or aborted
// writer has no effect.
func (w *Writer) Close() error {
	w.finish(nil)
	return nil
}

// Abort ends the stream with err. The reader drains the queued chunks, then
// receives err once, then io.EOF. A nil err is the same as Close.
func (w *Writer) Abort(err error) {
	w.finish(err)
}

// CloseWithError is Abort, with the signature of io.PipeWriter.CloseWithError.
func (w *Writer) CloseWithError(err error) error {
	w.finish(err)
	return nil
}

func (w *Writer) finish(err error) {
	w.p.closeWriter(err)
	w.cleanup.Stop()
}

// DeclareSize records the total number of bytes the producer intends to
// write, for Reader.SizeHint.
func (w *Writer) DeclareSize(total int64) {
	w.p.declare(total)
}

// Buffered returns the number of bytes staged but not yet enqueued.
func (w *Writer) Buffered() int { return len(w.stage) }
