package bodypipe

import (
	"io"

	"github.com/jacoelho/bodypipe/internal/obs"
)

// DefaultChunkSize is the staging threshold used when Options.ChunkSize is
// not set.
const DefaultChunkSize = 32 * 1024

// Options control the behaviour of a channel created by New.
// A nil *Options provides sensible defaults.
type Options struct {
	// Bytes staged by the writer are sealed into a chunk once they reach
	// this size. A value less than 1 uses DefaultChunkSize.
	ChunkSize int

	// If not nil, send debug logs about channel state changes to this writer.
	LogWriter io.Writer

	// If not nil, channel activity is recorded here.
	Metrics *Metrics
}

func (o *Options) chunkSize() int {
	if o == nil || o.ChunkSize < 1 {
		return DefaultChunkSize
	}
	return o.ChunkSize
}

func (o *Options) logger() obs.Logger {
	if o == nil {
		return obs.NopLogger{}
	}
	return obs.With(obs.New(o.LogWriter, obs.Debug), "component", "bodypipe")
}

func (o *Options) metrics() *Metrics {
	if o == nil {
		return nil
	}
	return o.Metrics
}
