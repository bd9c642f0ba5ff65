package bodypipe

// A Chunk is one unit of body data handed from the writer to the reader.
// Chunks delivered by a Reader are never empty. Ownership of the underlying
// buffer moves to the receiver: the writer never touches it again, and the
// receiver must not hand it back.
type Chunk struct {
	b []byte
}

// Bytes returns the chunk contents. The caller must treat the result as
// read-only.
func (c Chunk) Bytes() []byte { return c.b }

// Len reports the number of bytes in c.
func (c Chunk) Len() int { return len(c.b) }

func (c Chunk) String() string { return string(c.b) }
