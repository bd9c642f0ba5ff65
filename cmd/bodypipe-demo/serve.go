package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jacoelho/bodypipe"
	"github.com/jacoelho/bodypipe/httpbody"
	"github.com/jacoelho/bodypipe/internal/obs"
)

type config struct {
	addr      string
	capacity  int
	chunkSize int
	level     obs.Level
}

func newConfig(addr string, capacity, chunkSize int, level string) (config, error) {
	if capacity < 1 {
		return config{}, errors.Errorf("capacity must be positive, got %d", capacity)
	}
	if chunkSize < 1 {
		return config{}, errors.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	l, err := obs.ParseLevel(level)
	if err != nil {
		return config{}, err
	}
	return config{addr: addr, capacity: capacity, chunkSize: chunkSize, level: l}, nil
}

// newMux wires the streaming endpoint and the metrics endpoint.
func newMux(cfg config, logw io.Writer, reg *prometheus.Registry) *http.ServeMux {
	metrics := bodypipe.NewMetrics(nil)
	metrics.Register(reg)

	pipeOpts := &bodypipe.Options{ChunkSize: cfg.chunkSize, Metrics: metrics}
	if cfg.level <= obs.Debug {
		pipeOpts.LogWriter = logw
	}

	mux := http.NewServeMux()
	mux.Handle("GET /stream", httpbody.Handler(cfg.capacity, produceLines, &httpbody.Options{
		LogWriter:   logw,
		ContentType: "text/plain; charset=utf-8",
		Pipe:        pipeOpts,
	}))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// produceLines writes numbered lines. Query parameters: lines (count,
// default 10), delay (pause between lines), fail (abort before this line).
func produceLines(ctx context.Context, w *bodypipe.Writer) error {
	q := requestQuery(ctx)
	lines, err := intParam(q.Get("lines"), 10)
	if err != nil {
		return errors.Wrap(err, "lines")
	}
	fail, err := intParam(q.Get("fail"), -1)
	if err != nil {
		return errors.Wrap(err, "fail")
	}
	var delay time.Duration
	if d := q.Get("delay"); d != "" {
		if delay, err = time.ParseDuration(d); err != nil {
			return errors.Wrap(err, "delay")
		}
	}

	bw := bufio.NewWriter(w)
	for i := range lines {
		if i == fail {
			return errors.Errorf("producer failed at line %d", i)
		}
		if _, err := bw.WriteString("line " + strconv.Itoa(i) + "\n"); err != nil {
			return err
		}
		if delay > 0 {
			if err := bw.Flush(); err != nil {
				return err
			}
			if err := w.FlushContext(ctx); err != nil {
				return err
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return bw.Flush()
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func runServe(ctx context.Context, cfg config, logw io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := obs.New(logw, cfg.level)
	reg := prometheus.NewRegistry()
	srv := &http.Server{
		Addr:    cfg.addr,
		Handler: withQuery(newMux(cfg, logw, reg)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Log(obs.Info, "listening", "addr", cfg.addr, "capacity", cfg.capacity, "chunk_size", cfg.chunkSize)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Log(obs.Info, "shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
