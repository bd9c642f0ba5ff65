// Package httpbody serves bodypipe channels as streaming HTTP bodies.
package httpbody

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jacoelho/bodypipe"
	"github.com/jacoelho/bodypipe/internal/obs"
)

// Options control Serve and Handler. A nil *Options provides sensible
// defaults.
type Options struct {
	// If not nil, log aborted responses to this writer.
	LogWriter io.Writer

	// If set, the Content-Type of responses written by Handler.
	ContentType string

	// Options for the channels created by Handler.
	Pipe *bodypipe.Options
}

func (o *Options) logger() obs.Logger {
	if o == nil {
		return obs.NopLogger{}
	}
	return obs.With(obs.New(o.LogWriter, obs.Info), "component", "httpbody")
}

func (o *Options) pipeOptions() *bodypipe.Options {
	if o == nil {
		return nil
	}
	return o.Pipe
}

func (o *Options) contentType() string {
	if o == nil {
		return ""
	}
	return o.ContentType
}

// Serve copies chunks from r to w until the end of the stream, flushing the
// response after each chunk so the client sees data as it is produced.
//
// It returns the number of body bytes written. A producer error is returned
// wrapped. If ctx ends or the response cannot be written, r is closed with
// that cause so the producer stops, and the cause is returned.
func Serve(ctx context.Context, w http.ResponseWriter, r *bodypipe.Reader) (int64, error) {
	rc := http.NewResponseController(w)
	var n int64
	for {
		c, err := r.Next(ctx)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				r.CloseWithError(ctx.Err())
				return n, errors.Wrap(ctx.Err(), "client went away")
			}
			return n, errors.Wrap(err, "body producer failed")
		}

		wn, err := w.Write(c.Bytes())
		n += int64(wn)
		if err != nil {
			r.CloseWithError(err)
			return n, errors.Wrap(err, "write response body")
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			r.CloseWithError(err)
			return n, errors.Wrap(err, "flush response body")
		}
	}
}

// A ProduceFunc writes a response body to w. Returning nil ends the body
// normally; staged bytes are flushed for it. Returning an error aborts the
// body. ctx is the request context.
type ProduceFunc func(ctx context.Context, w *bodypipe.Writer) error

// Handler returns a handler that streams the output of produce, run on its
// own goroutine, through a channel of the given capacity.
//
// If produce fails before any byte was sent, the client gets a 500 response.
// If it fails later, the response is aborted with http.ErrAbortHandler so
// the client sees a truncated body rather than a complete one.
func Handler(capacity int, produce ProduceFunc, opts *Options) http.Handler {
	logger := opts.logger()
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		log := obs.With(logger, "method", req.Method, "path", req.URL.Path)

		pw, pr, err := bodypipe.New(capacity, opts.pipeOptions())
		if err != nil {
			log.Log(obs.Error, "cannot create body channel", "err", err)
			http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if ct := opts.contentType(); ct != "" {
			rw.Header().Set("Content-Type", ct)
		}

		ctx := req.Context()
		var g errgroup.Group
		g.Go(func() error {
			err := produce(ctx, pw)
			if err == nil {
				err = pw.FlushContext(ctx)
			}
			if err != nil {
				pw.Abort(err)
				return err
			}
			return pw.Close()
		})

		n, serveErr := Serve(ctx, rw, pr)
		pr.Close()
		prodErr := g.Wait()

		if serveErr == nil {
			log.Log(obs.Debug, "served body", "bytes", n)
			return
		}
		log.Log(obs.Warn, "aborting response", "bytes", n, "err", serveErr, "producer_err", prodErr)
		if n == 0 && ctx.Err() == nil {
			http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		panic(http.ErrAbortHandler)
	})
}

// NewRequest returns a request whose body is streamed from the returned
// Writer. The caller produces the body on another goroutine while the
// request is sent, and must Flush and Close the Writer to finish it.
func NewRequest(ctx context.Context, method, url string, capacity int, opts *bodypipe.Options) (*http.Request, *bodypipe.Writer, error) {
	pw, pr, err := bodypipe.New(capacity, opts)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, pr)
	if err != nil {
		pr.Close()
		pw.Close()
		return nil, nil, errors.Wrap(err, "build request")
	}
	req.ContentLength = -1
	return req, pw, nil
}
