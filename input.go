package pof

import (
	"encoding/binary"
	"math"
	"math/big"
	"unicode/utf16"
	"unicode/utf8"
)

// input is a read cursor over an encoded stream. Its read methods panic
// with *Error; callers convert with recoverError at the API boundary.
type input struct {
	buf  []byte
	off  int
	mark int
}

func newInput(b []byte) *input { return &input{buf: b} }

func (in *input) offset() int    { return in.off }
func (in *input) remaining() int { return len(in.buf) - in.off }
func (in *input) setMark()       { in.mark = in.off }
func (in *input) reset()         { in.off = in.mark }

func (in *input) need(n int) {
	if n < 0 || in.off+n > len(in.buf) || in.off+n < in.off {
		panic(endOfStream(in.off))
	}
}

func (in *input) skip(n int) {
	in.need(n)
	in.off += n
}

func (in *input) readByte() byte {
	in.need(1)
	b := in.buf[in.off]
	in.off++
	return b
}

func (in *input) readBytes(n int) []byte {
	in.need(n)
	b := in.buf[in.off : in.off+n]
	in.off += n
	return b
}

func (in *input) readUint32() uint32 {
	return binary.BigEndian.Uint32(in.readBytes(4))
}

func (in *input) readUint64() uint64 {
	return binary.BigEndian.Uint64(in.readBytes(8))
}

func (in *input) readFloat32() float32 { return math.Float32frombits(in.readUint32()) }
func (in *input) readFloat64() float64 { return math.Float64frombits(in.readUint64()) }

func (in *input) readPackedInt32() int32 {
	v, n, err := decodePacked(in.buf[in.off:], 32)
	if err != nil {
		panic(err.(*Error).at(in.off + errOffset(err)))
	}
	in.off += n
	return int32(v)
}

func (in *input) readPackedInt64() int64 {
	v, n, err := decodePacked(in.buf[in.off:], 64)
	if err != nil {
		panic(err.(*Error).at(in.off + errOffset(err)))
	}
	in.off += n
	return v
}

// readPacked reads a packed int as a Go int.
func (in *input) readPacked() int { return int(in.readPackedInt32()) }

func errOffset(err error) int {
	if e, ok := err.(*Error); ok && e.Offset > 0 {
		return e.Offset
	}
	return 0
}

// readBigInt reads a packed int128.
func (in *input) readBigInt() *big.Int {
	start := in.off
	c := in.readByte()
	neg := c&0x40 != 0
	lo, hi := uint64(c&0x3F), uint64(0)
	shift := uint(6)

	for c&0x80 != 0 {
		c = in.readByte()
		bits := uint64(c & 0x7F)
		if shift >= 128 {
			panic(malformed(errInt128Overflow).at(start))
		}
		switch {
		case shift < 64:
			lo |= bits << shift
			if shift > 57 {
				hi |= bits >> (64 - shift)
			}
		default:
			if s := shift - 64; (bits<<s)>>s != bits {
				panic(malformed(errInt128Overflow).at(start))
			} else {
				hi |= bits << s
			}
		}
		shift += 7
	}

	if hi>>63 != 0 {
		panic(malformed(errInt128Overflow).at(start))
	}

	return int128FromParts(lo, hi, neg)
}

// readChar reads a single BMP character in its 1 to 3 byte form.
func (in *input) readChar() rune {
	start := in.off
	b0 := in.readByte()
	switch {
	case b0&0x80 == 0:
		return rune(b0)
	case b0&0xE0 == 0xC0:
		b1 := in.readByte()
		if b1&0xC0 != 0x80 {
			panic(malformed(errBadChar).at(start))
		}
		return rune(b0&0x1F)<<6 | rune(b1&0x3F)
	case b0&0xF0 == 0xE0:
		b1 := in.readByte()
		b2 := in.readByte()
		if b1&0xC0 != 0x80 || b2&0xC0 != 0x80 {
			panic(malformed(errBadChar).at(start))
		}
		return rune(b0&0x0F)<<12 | rune(b1&0x3F)<<6 | rune(b2&0x3F)
	default:
		panic(malformed(errBadChar).at(start))
	}
}

// readString reads a length-prefixed string. ok is false for a null: a
// length of -1, or the null tag written in a uniform context.
func (in *input) readString() (s string, ok bool) {
	start := in.off
	n := in.readPacked()
	if n == -1 || n == VReferenceNull {
		return "", false
	}
	if n < 0 {
		panic(malformed(errBadLength).at(start))
	}
	return decodeUTF(in.readBytes(n)), true
}

// readOctets reads a length-prefixed binary. ok is false for a null.
func (in *input) readOctets() (b []byte, ok bool) {
	start := in.off
	n := in.readPacked()
	if n == -1 || n == VReferenceNull {
		return nil, false
	}
	if n < 0 {
		panic(malformed(errBadLength).at(start))
	}
	return in.readBytes(n), true
}

// appendChar appends c in its 1 to 3 byte form. c must be in the BMP.
func appendChar(b []byte, c rune) []byte {
	switch {
	case c >= 0 && c <= 0x7F:
		return append(b, byte(c))
	case c <= 0x7FF:
		return append(b, 0xC0|byte(c>>6&0x1F), 0x80|byte(c&0x3F))
	default:
		return append(b, 0xE0|byte(c>>12&0x0F), 0x80|byte(c>>6&0x3F), 0x80|byte(c&0x3F))
	}
}

// appendUTF appends s with characters outside the BMP written as surrogate
// pairs, each half in its 3 byte form.
func appendUTF(b []byte, s string) []byte {
	for _, r := range s {
		if r >= 0x10000 {
			r1, r2 := utf16.EncodeRune(r)
			b = appendChar(b, r1)
			b = appendChar(b, r2)
			continue
		}
		b = appendChar(b, r)
	}
	return b
}

// utfLen returns the encoded size of s as produced by appendUTF.
func utfLen(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r <= 0x7F:
			n++
		case r <= 0x7FF:
			n += 2
		case r < 0x10000:
			n += 3
		default:
			n += 6
		}
	}
	return n
}

// decodeUTF accepts both paired surrogates and plain four byte UTF-8.
func decodeUTF(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			// surrogate halves are rejected by utf8.DecodeRune
			if c, n := decodeChar3(b[i:]); n == 3 && utf16.IsSurrogate(c) {
				if c2, n2 := decodeChar3(b[i+3:]); n2 == 3 {
					if p := utf16.DecodeRune(c, c2); p != utf8.RuneError {
						out = utf8.AppendRune(out, p)
						i += 6
						continue
					}
				}
			}
		}
		out = utf8.AppendRune(out, r)
		i += size
	}
	return string(out)
}

func decodeChar3(b []byte) (rune, int) {
	if len(b) < 3 || b[0]&0xF0 != 0xE0 || b[1]&0xC0 != 0x80 || b[2]&0xC0 != 0x80 {
		return 0, 0
	}
	return rune(b[0]&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F), 3
}
