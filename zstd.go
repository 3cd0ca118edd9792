package pof

// ZstdCompressor compresses using the zstd format.
type ZstdCompressor struct {
	Level int // compression level, set to ZstdDefaultCompression by default
}

// Zstd constants
const (
	ZstdBestSpeed          = 1
	ZstdBestCompression    = 20
	ZstdDefaultCompression = 3
)

func (c ZstdCompressor) Compress(buf []byte) ([]byte, error) {
	if c.Level == 0 {
		c.Level = ZstdDefaultCompression
	}

	tail, err := zstdEncode(buf, c.Level)
	if err != nil {
		return nil, err
	}

	// <packed compressed length><zstd blob>
	head, err := appendLength(make([]byte, 0, len(tail)+5), len(tail))
	if err != nil {
		return nil, err
	}
	return append(head, tail...), nil
}

func (c ZstdCompressor) Decompress(buf []byte) ([]byte, error) {
	ln, sz, err := readLength(buf)
	if err != nil {
		return nil, err
	}
	return zstdDecode(nil, buf[sz:sz+ln])
}
