package pof

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var compressors = []struct {
	name string
	c    Compressor
}{
	{"snappy", SnappyCompressor{}},
	{"snappy/incremental", SnappyCompressor{Incremental: true}},
	{"zlib", ZlibCompressor{Level: ZlibDefaultCompression}},
	{"zlib/none", ZlibCompressor{Level: ZlibNoCompression}},
	{"zstd", ZstdCompressor{}},
	{"zstd/best", ZstdCompressor{Level: ZstdBestCompression}},
}

func TestCompressors(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x41, 0x05},
		[]byte(strings.Repeat("compress me please ", 200)),
	}

	for _, tt := range compressors {
		for _, in := range inputs {
			c, err := tt.c.Compress(in)
			if err != nil {
				t.Errorf("%s: compressing %d bytes: %v\n", tt.name, len(in), err)
				continue
			}
			got, err := tt.c.Decompress(c)
			if err != nil {
				t.Errorf("%s: decompressing %d bytes: %v\n", tt.name, len(in), err)
				continue
			}
			if !bytes.Equal(got, in) {
				t.Errorf("%s: roundtrip of %d bytes gave %d bytes\n", tt.name, len(in), len(got))
			}
		}
	}
}

func TestCompressorsShrink(t *testing.T) {
	in := []byte(strings.Repeat("compress me please ", 200))
	for _, tt := range compressors {
		if tt.name == "zlib/none" {
			continue
		}
		c, err := tt.c.Compress(in)
		require.NoError(t, err)
		assert.Less(t, len(c), len(in)/4, tt.name)
	}
}

func TestCompressorsCorrupt(t *testing.T) {
	for _, tt := range []struct {
		name string
		c    Compressor
	}{
		{"snappy/incremental", SnappyCompressor{Incremental: true}},
		{"zlib", ZlibCompressor{}},
		{"zstd", ZstdCompressor{}},
	} {
		c, err := tt.c.Compress([]byte(strings.Repeat("x", 100)))
		require.NoError(t, err)

		// the length prefix claims more bytes than there are
		_, err = tt.c.Decompress(c[:len(c)-1])
		assert.Error(t, err, "%s: truncated", tt.name)

		_, err = tt.c.Decompress(nil)
		assert.Error(t, err, "%s: empty", tt.name)
	}

	_, err := SnappyCompressor{}.Decompress([]byte{0xFF, 0xFF, 0xFF})
	assert.True(t, errors.Is(err, ErrMalformedStream), "snappy garbage: %v", err)
}

func TestEncoderCompression(t *testing.T) {
	v := Collection{strings.Repeat("abc", 100), int32(7), Map{{Key: "k", Value: []int64{1, 2, 3}}}}

	for _, tt := range compressors {
		e := &Encoder{Compression: tt.c}
		d := &Decoder{Compression: tt.c}

		b, err := e.Marshal(v)
		require.NoError(t, err, tt.name)
		got, err := d.Unmarshal(b)
		require.NoError(t, err, tt.name)
		if diff := cmp.Diff(v, got); diff != "" {
			t.Errorf("%s: roundtrip (-want +got):\n%s\n", tt.name, diff)
		}
	}
}
