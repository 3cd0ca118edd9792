package pof

import "math"

// Compressor compresses a whole encoded document or delta.
type Compressor interface {
	Compress(b []byte) ([]byte, error)
	Decompress(b []byte) ([]byte, error)
}

// appendLength prefixes b with a packed length.
func appendLength(dst []byte, n int) ([]byte, error) {
	if n > math.MaxInt32 {
		return nil, ErrTooLarge
	}
	return AppendPackedInt32(dst, int32(n)), nil
}

// readLength decodes a packed length and checks that it fits in b after
// the prefix. It returns the length and the size of the prefix.
func readLength(b []byte) (int, int, error) {
	ln, sz, err := DecodePackedInt32(b)
	if err != nil {
		return 0, 0, err
	}
	if ln < 0 || sz+int(ln) > len(b) {
		return 0, 0, malformed(errBadOffset).at(0)
	}
	return int(ln), sz, nil
}
