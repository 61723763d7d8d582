package compression

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
)

func envelope() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x0e})
	buf.WriteString("node1:8087")
	for i := 0; i < 200; i++ {
		buf.WriteString("users:key-with-a-common-prefix-")
		buf.WriteByte(byte('a' + i%26))
	}
	return buf.Bytes()
}

func TestRoundTripAllAlgorithms(t *testing.T) {
	data := envelope()

	for _, algo := range Algorithms {
		for _, level := range []Level{Fastest, Default, Better, Best} {
			t.Run(string(algo)+"/"+level.String(), func(t *testing.T) {
				c, err := NewCompressor(&Config{Algorithm: algo, Level: level})
				require.NoError(t, err)
				assert.Equal(t, algo, c.Algorithm())
				assert.Equal(t, level, c.Level())

				packed, err := c.Compress(data)
				require.NoError(t, err)
				if algo != None {
					assert.Less(t, len(packed), len(data))
				}

				unpacked, err := c.Decompress(packed)
				require.NoError(t, err)
				assert.Equal(t, data, unpacked)
			})
		}
	}
}

func TestEmptyInput(t *testing.T) {
	for _, algo := range []Algorithm{None, Gzip, Snappy, S2, Zstd} {
		t.Run(string(algo), func(t *testing.T) {
			c, err := NewCompressor(&Config{Algorithm: algo})
			require.NoError(t, err)
			packed, err := c.Compress(nil)
			require.NoError(t, err)
			unpacked, err := c.Decompress(packed)
			require.NoError(t, err)
			assert.Empty(t, unpacked)
		})
	}
}

func TestDecompressCorruptInput(t *testing.T) {
	garbage := []byte("definitely not a compressed stream")
	for _, algo := range []Algorithm{Gzip, Snappy, S2, Zstd, LZ4} {
		t.Run(string(algo), func(t *testing.T) {
			c, err := NewCompressor(&Config{Algorithm: algo})
			require.NoError(t, err)
			_, err = c.Decompress(garbage)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeFormat), "got %v", err)
		})
	}
}

func TestNewCompressorDefaults(t *testing.T) {
	c, err := NewCompressor(nil)
	require.NoError(t, err)
	assert.Equal(t, Snappy, c.Algorithm())

	c, err = NewCompressor(&Config{})
	require.NoError(t, err)
	assert.Equal(t, None, c.Algorithm())
	assert.Equal(t, Default, c.Level())

	_, err = NewCompressor(&Config{Algorithm: "brotli"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"GZIP", Gzip, false},
		{" zstd ", Zstd, false},
		{"lz4", LZ4, false},
		{"deflate", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "", None.Extension())
	assert.Equal(t, ".gz", Gzip.Extension())
	assert.Equal(t, ".zst", Zstd.Extension())
	assert.Equal(t, ".lz4", LZ4.Extension())
}

func TestConcurrentUse(t *testing.T) {
	data := envelope()
	for _, algo := range []Algorithm{Gzip, Zstd, LZ4} {
		c, err := NewCompressor(&Config{Algorithm: algo})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				packed, err := c.Compress(data)
				if !assert.NoError(t, err) {
					return
				}
				unpacked, err := c.Decompress(packed)
				assert.NoError(t, err)
				assert.Equal(t, data, unpacked)
			}()
		}
		wg.Wait()
	}
}
