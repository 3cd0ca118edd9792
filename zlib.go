package pof

import (
	"compress/zlib"
)

// ZlibCompressor compresses using the zlib format.
type ZlibCompressor struct {
	Level int // compression level
}

const (
	ZlibNoCompression      = zlib.NoCompression
	ZlibBestSpeed          = zlib.BestSpeed
	ZlibBestCompression    = zlib.BestCompression
	ZlibDefaultCompression = zlib.DefaultCompression
)

func (c ZlibCompressor) Compress(buf []byte) ([]byte, error) {
	tail, err := zlibEncode(buf, c.Level)
	if err != nil {
		return nil, err
	}

	// <packed uncompressed length><packed compressed length><zlib blob>
	head, err := appendLength(nil, len(buf))
	if err != nil {
		return nil, err
	}
	if head, err = appendLength(head, len(tail)); err != nil {
		return nil, err
	}
	return append(head, tail...), nil
}

func (c ZlibCompressor) Decompress(buf []byte) ([]byte, error) {
	uln, usz, err := DecodePackedInt32(buf)
	if err != nil {
		return nil, err
	}
	if uln < 0 {
		return nil, malformed(errBadLength).at(0)
	}
	buf = buf[usz:]

	cln, csz, err := readLength(buf)
	if err != nil {
		return nil, err
	}

	dec, err := zlibDecode(int(uln), buf[csz:csz+cln])
	if err != nil {
		return nil, err
	}
	if len(dec) != int(uln) {
		return nil, malformed("zlib: expected %d bytes, got %d", uln, len(dec))
	}
	return dec, nil
}
