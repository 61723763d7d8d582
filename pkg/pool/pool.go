// Package pool provides the shared byte-buffer pool used by the encoders.
//
//	buf := pool.GetBuffer()
//	defer pool.PutBuffer(buf)
package pool

import (
	"bytes"
	"sync"
)

const (
	// MaxPooledBuffer is the largest buffer capacity PutBuffer keeps.
	MaxPooledBuffer = 1 << 20

	initialBuffer = 4096
)

var buffers = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, initialBuffer))
	},
}

// GetBuffer returns an empty buffer.
func GetBuffer() *bytes.Buffer {
	return buffers.Get().(*bytes.Buffer)
}

// PutBuffer resets buf and returns it to the pool. Buffers grown past
// MaxPooledBuffer are dropped.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > MaxPooledBuffer {
		return
	}
	buf.Reset()
	buffers.Put(buf)
}

// Bytes copies the contents of buf into a new slice.
func Bytes(buf *bytes.Buffer) []byte {
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}
