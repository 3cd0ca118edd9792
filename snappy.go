package pof

import "github.com/golang/snappy"

// SnappyCompressor compresses using the Snappy format.
type SnappyCompressor struct {
	Incremental bool // prefix the block with its length
}

func (c SnappyCompressor) Compress(b []byte) ([]byte, error) {
	if snappy.MaxEncodedLen(len(b)) < 0 {
		return nil, ErrTooLarge
	}

	compressed := snappy.Encode(nil, b)
	if !c.Incremental {
		return compressed, nil
	}

	out, err := appendLength(make([]byte, 0, len(compressed)+5), len(compressed))
	if err != nil {
		return nil, err
	}
	return append(out, compressed...), nil
}

func (c SnappyCompressor) Decompress(b []byte) ([]byte, error) {
	if c.Incremental {
		ln, sz, err := readLength(b)
		if err != nil {
			return nil, err
		}
		b = b[sz : sz+ln]
	}

	decompressed, err := snappy.Decode(nil, b)
	if err != nil {
		return nil, malformed("snappy: %v", err).because(err)
	}
	return decompressed, nil
}
