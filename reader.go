package bodypipe

import (
	"context"
	"io"
	"runtime"
)

// Reader is the consuming end of a channel. A Reader that becomes
// unreachable without being closed abandons the channel.
type Reader struct {
	p       *pipe
	cur     []byte // unread remainder of a chunk split by Read
	cleanup runtime.Cleanup
}

// Next returns the oldest queued chunk, waiting while the queue is empty
// and the writer is open. At the end of a closed stream it returns io.EOF.
// If the writer aborted, the producer error is returned once after the
// queued chunks, then io.EOF. After Close it returns io.ErrClosedPipe.
func (r *Reader) Next(ctx context.Context) (Chunk, error) {
	if len(r.cur) > 0 {
		c := Chunk{b: r.cur}
		r.cur = nil
		return c, nil
	}
	return r.p.pop(ctx)
}

// Read implements io.Reader over the chunk stream.
func (r *Reader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if len(r.cur) == 0 {
		c, err := r.p.pop(context.Background())
		if err != nil {
			return 0, err
		}
		r.cur = c.b
	}
	n := copy(b, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

// WriteTo implements io.WriterTo by writing each chunk to w as it arrives
// until the end of the stream.
func (r *Reader) WriteTo(w io.Writer) (n int64, err error) {
	ctx := context.Background()
	for {
		c, err := r.Next(ctx)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		wn, wErr := w.Write(c.b)
		if wn < 0 || wn > c.Len() {
			wn = 0
			if wErr == nil {
				wErr = io.ErrShortWrite
			}
		}
		n += int64(wn)
		if wErr != nil {
			return n, wErr
		}
		if wn != c.Len() {
			return n, io.ErrShortWrite
		}
	}
}

// SizeHint reports how many bytes remain to be read, if the writer declared
// a total with DeclareSize.
func (r *Reader) SizeHint() (remaining int64, ok bool) {
	rem, ok := r.p.sizeHint()
	if !ok {
		return 0, false
	}
	return rem + int64(len(r.cur)), true
}

// Close abandons the channel: queued chunks are dropped and the writer's
// pending and future writes fail with ErrChannelAbandoned.
func (r *Reader) Close() error {
	return r.CloseWithError(nil)
}

// CloseWithError is like Close, but the writer's errors also wrap err.
// Only the first close has an effect.
func (r *Reader) CloseWithError(err error) error {
	r.cur = nil
	r.p.closeReader(err)
	r.cleanup.Stop()
	return nil
}
