package pof

import (
	"math"
	"math/big"
)

// AppendPackedInt32 appends the packed encoding of v to b.
func AppendPackedInt32(b []byte, v int32) []byte {
	return AppendPackedInt64(b, int64(v))
}

// AppendPackedInt64 appends the packed encoding of v to b. The first byte
// holds a continuation bit, a sign bit and six data bits; every following
// byte holds a continuation bit and seven data bits.
func AppendPackedInt64(b []byte, v int64) []byte {
	var lead byte
	if v < 0 {
		lead = 0x40
		v = ^v
	}

	lead |= byte(v & 0x3F)
	v >>= 6

	for v != 0 {
		b = append(b, lead|0x80)
		lead = byte(v & 0x7F)
		v >>= 7
	}

	return append(b, lead)
}

// appendPacked is the int flavour used for tags, lengths and indices.
func appendPacked(b []byte, v int) []byte {
	return AppendPackedInt64(b, int64(v))
}

// DecodePackedInt32 decodes a packed int from the start of b and returns the
// value and the number of bytes consumed.
func DecodePackedInt32(b []byte) (int32, int, error) {
	v, n, err := decodePacked(b, 32)
	return int32(v), n, err
}

// DecodePackedInt64 decodes a packed long from the start of b and returns
// the value and the number of bytes consumed.
func DecodePackedInt64(b []byte) (int64, int, error) {
	return decodePacked(b, 64)
}

func decodePacked(b []byte, width uint) (int64, int, error) {
	if len(b) == 0 {
		return 0, 0, endOfStream(0)
	}

	c := b[0]
	neg := c&0x40 != 0
	v := uint64(c & 0x3F)
	shift := uint(6)
	i := 1

	for c&0x80 != 0 {
		if i >= len(b) {
			return 0, 0, endOfStream(i)
		}
		c = b[i]
		i++

		bits := uint64(c & 0x7F)
		if shift >= width || (bits<<shift)>>shift != bits {
			return 0, 0, malformed(errBadPackedInt).at(0)
		}
		v |= bits << shift
		shift += 7
	}

	// the magnitude must leave room for the sign
	if v > uint64(1)<<(width-1)-1 {
		return 0, 0, malformed(errBadPackedInt).at(0)
	}

	n := int64(v)
	if neg {
		n = ^n
	}

	return n, i, nil
}

// packedLen returns the encoded size of v.
func packedLen(v int64) int {
	if v < 0 {
		v = ^v
	}
	n := 1
	for v >>= 6; v != 0; v >>= 7 {
		n++
	}
	return n
}

var bigMaxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))

// appendPackedBig appends an int128 using the packed scheme. Values that fit
// in 64 bits take the packed long path so both encodings agree.
func appendPackedBig(b []byte, n *big.Int) ([]byte, error) {
	if n.IsInt64() {
		return AppendPackedInt64(b, n.Int64()), nil
	}

	neg := n.Sign() < 0
	m := new(big.Int).Set(n)
	if neg {
		m.Not(m)
	}
	if m.Cmp(bigMaxInt128) > 0 {
		return b, invariantViolation("%s: %d", errInt128Overflow, n.BitLen()+1)
	}

	lo := new(big.Int).And(m, new(big.Int).SetUint64(math.MaxUint64)).Uint64()
	hi := new(big.Int).Rsh(m, 64).Uint64()

	var lead byte
	if neg {
		lead = 0x40
	}
	lead |= byte(lo & 0x3F)
	lo, hi = shr128(lo, hi, 6)

	for lo != 0 || hi != 0 {
		b = append(b, lead|0x80)
		lead = byte(lo & 0x7F)
		lo, hi = shr128(lo, hi, 7)
	}

	return append(b, lead), nil
}

func shr128(lo, hi uint64, s uint) (uint64, uint64) {
	return lo>>s | hi<<(64-s), hi >> s
}

// int128FromParts builds the signed value from a 128-bit magnitude.
func int128FromParts(lo, hi uint64, neg bool) *big.Int {
	n := new(big.Int).SetUint64(hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(lo))
	if neg {
		n.Not(n)
	}
	return n
}
