// Package bodypipe connects a push-style byte writer to a pull-style chunk
// reader, the shape an HTTP server expects from a streaming response body.
//
// Bytes written to a Writer are staged until they reach the chunk size (or
// until Flush), then handed to the Reader as one Chunk through a queue that
// holds at most capacity chunks. A full queue suspends the writer, an empty
// one suspends the reader, and both suspensions honor context cancellation.
//
// Closing the Writer ends the stream after the queued chunks drain. Aborting
// it delivers the producer's error to the reader once, after the queued
// chunks, and io.EOF from then on. Closing the Reader abandons the channel:
// every later write fails with ErrChannelAbandoned.
//
// Exactly one goroutine may use each handle at a time. Close and Abort on
// the Writer may be called while a write is suspended.
package bodypipe
