package pool

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffers(t *testing.T) {
	buf := GetBuffer()
	require.NotNil(t, buf)
	assert.Equal(t, 0, buf.Len())

	buf.WriteString("payload")
	out := Bytes(buf)
	PutBuffer(buf)
	assert.Equal(t, []byte("payload"), out)
	assert.Equal(t, 0, buf.Len())

	big := GetBuffer()
	big.Write(bytes.Repeat([]byte{'x'}, MaxPooledBuffer+1))
	PutBuffer(big)
	assert.Equal(t, MaxPooledBuffer+1, big.Len())
	PutBuffer(nil)
}

func TestBytesIsACopy(t *testing.T) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	buf.WriteString("abc")

	out := Bytes(buf)
	buf.Reset()
	buf.WriteString("xyz")
	assert.Equal(t, []byte("abc"), out)
}

func TestBuffersConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := GetBuffer()
			assert.Equal(t, 0, buf.Len())
			buf.WriteString("data")
			PutBuffer(buf)
		}()
	}
	wg.Wait()
}
