package pof

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

var packedVectors = []struct {
	v   int64
	enc []byte
}{
	{0, []byte{0x00}},
	{1, []byte{0x01}},
	{63, []byte{0x3F}},
	{64, []byte{0x80, 0x01}},
	{100, []byte{0xA4, 0x01}},
	{-1, []byte{0x40}},
	{-2, []byte{0x41}},
	{-41, []byte{0x68}},
	{-64, []byte{0x7F}},
	{-65, []byte{0xC0, 0x01}},
	{8191, []byte{0xBF, 0x7F}},
	{8192, []byte{0x80, 0x80, 0x01}},
}

func TestPackedVectors(t *testing.T) {
	for _, tt := range packedVectors {
		if got := AppendPackedInt64(nil, tt.v); !bytes.Equal(got, tt.enc) {
			t.Errorf("encode %d: got % X, want % X\n", tt.v, got, tt.enc)
		}
		v, n, err := DecodePackedInt64(tt.enc)
		if err != nil || v != tt.v || n != len(tt.enc) {
			t.Errorf("decode % X: got %d/%d/%v, want %d/%d\n", tt.enc, v, n, err, tt.v, len(tt.enc))
		}
		if got := packedLen(tt.v); got != len(tt.enc) {
			t.Errorf("packedLen(%d)=%d, want %d\n", tt.v, got, len(tt.enc))
		}
	}
}

func TestPackedInt32Roundtrip(t *testing.T) {
	values := []int32{0, 1, -1, 22, 63, -64, 64, 1 << 20, -(1 << 20), math.MaxInt32, math.MinInt32}
	for _, v := range values {
		b := AppendPackedInt32(nil, v)
		got, n, err := DecodePackedInt32(b)
		if err != nil {
			t.Errorf("decoding %d: %v\n", v, err)
			continue
		}
		if got != v || n != len(b) {
			t.Errorf("roundtrip %d: got %d after %d of %d bytes\n", v, got, n, len(b))
		}
	}
}

func TestPackedInt64Roundtrip(t *testing.T) {
	values := []int64{0, -1, 1 << 40, -(1 << 40), math.MaxInt64, math.MinInt64, math.MaxInt32 + 1, math.MinInt32 - 1}
	for _, v := range values {
		b := AppendPackedInt64(nil, v)
		got, n, err := DecodePackedInt64(b)
		if err != nil || got != v || n != len(b) {
			t.Errorf("roundtrip %d: got %d, %d bytes, err %v\n", v, got, n, err)
		}
	}
}

func TestPackedErrors(t *testing.T) {
	if _, _, err := DecodePackedInt32(nil); !errors.Is(err, ErrUnexpectedEndOfStream) {
		t.Errorf("empty input: got %v\n", err)
	}
	if _, _, err := DecodePackedInt32([]byte{0x80, 0x80}); !errors.Is(err, ErrUnexpectedEndOfStream) {
		t.Errorf("truncated input: got %v\n", err)
	}

	// a long does not fit in an int
	b := AppendPackedInt64(nil, math.MaxInt32+1)
	if _, _, err := DecodePackedInt32(b); !errors.Is(err, ErrMalformedStream) {
		t.Errorf("int32 overflow: got %v\n", err)
	}

	tooLong := bytes.Repeat([]byte{0xFF}, 10)
	tooLong = append(tooLong, 0x01)
	if _, _, err := DecodePackedInt64(tooLong); !errors.Is(err, ErrMalformedStream) {
		t.Errorf("int64 overflow: got %v\n", err)
	}
}

func TestTinyInts(t *testing.T) {
	for n := -1; n <= 22; n++ {
		tag := EncodeTinyInt(n)
		if !IsTinyInt(tag) || !IsTinyValue(tag) {
			t.Errorf("tag %d for %d is not a tiny int\n", tag, n)
		}
		if got := DecodeTinyInt(tag); got != n {
			t.Errorf("DecodeTinyInt(%d)=%d, want %d\n", tag, got, n)
		}
	}
	if EncodeTinyInt(-1) != VIntNeg1 || EncodeTinyInt(22) != VInt22 {
		t.Errorf("tiny int range does not match the tags\n")
	}
	if IsTinyValue(TInt16) || IsTinyValue(TUnknown) || IsTinyInt(VBooleanTrue) {
		t.Errorf("non tiny tags reported as tiny\n")
	}
}
