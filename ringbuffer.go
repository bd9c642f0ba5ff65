package bodypipe

// chunkRing is a fixed-capacity FIFO of chunks for a single producer and a
// single consumer. Callers serialize access.
type chunkRing struct {
	data    []Chunk
	readPos int
	count   int
}

// newChunkRing creates a ring that holds at most size chunks.
func newChunkRing(size int) *chunkRing {
	return &chunkRing{
		data: make([]Chunk, size),
	}
}

// push appends c and reports whether there was room for it.
func (r *chunkRing) push(c Chunk) bool {
	if r.full() {
		return false
	}
	r.data[(r.readPos+r.count)%len(r.data)] = c
	r.count++
	return true
}

// pop removes and returns the oldest chunk.
func (r *chunkRing) pop() (Chunk, bool) {
	if r.empty() {
		return Chunk{}, false
	}
	c := r.data[r.readPos]
	r.data[r.readPos] = Chunk{} // release the buffer to its new owner
	r.readPos = (r.readPos + 1) % len(r.data)
	r.count--
	return c, true
}

// reset drops every pending chunk.
func (r *chunkRing) reset() {
	clear(r.data)
	r.readPos = 0
	r.count = 0
}

func (r *chunkRing) len() int { return r.count }

// empty returns true if the ring holds no chunks.
func (r *chunkRing) empty() bool {
	return r.count == 0
}

// full returns true if the ring is at capacity.
func (r *chunkRing) full() bool {
	return r.count == len(r.data)
}
