//go:build gofuzz
// +build gofuzz

package pof

import (
	"math/big"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func validate(b []byte) error {
	v := NewValidatingHandler(nil)
	if err := NewParser(v).Parse(b); err != nil {
		return err
	}
	return v.Finish()
}

func bigIntEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// Fuzz parses data, and when it is a valid stream checks that copying it
// through a WritingHandler yields a stream that decodes to the same value.
func Fuzz(data []byte) int {
	if err := validate(data); err != nil {
		return 0
	}

	h := NewWritingHandler(nil)
	if err := NewParser(h).Parse(data); err != nil {
		panic("valid stream rejected by the writing handler: " + err.Error())
	}
	enc := h.Bytes()

	if err := validate(enc); err != nil {
		panic("rewritten stream is invalid: " + err.Error())
	}

	d := NewDecoder(nil)
	v1, err1 := d.Unmarshal(data)
	v2, err2 := d.Unmarshal(enc)
	if (err1 == nil) != (err2 == nil) {
		panic("decoding disagrees between original and rewritten stream")
	}
	if err1 != nil {
		return 0
	}

	if s := cmp.Diff(v1, v2, cmp.Comparer(bigIntEqual), cmp.Comparer(Decimal.Equal), cmpopts.EquateNaNs()); s != "" {
		panic("failed to roundtrip: " + s)
	}
	return 1
}

// FuzzDelta splits data in two and checks that the delta between the
// halves turns the first into the second.
func FuzzDelta(data []byte) int {
	mid := len(data) / 2
	old, new := data[:mid], data[mid:]

	var c PofDeltaCompressor
	delta, err := c.ExtractDelta(old, new)
	if err != nil {
		panic(err)
	}
	got, err := c.ApplyDelta(old, delta)
	if err != nil {
		panic(err)
	}
	if s := cmp.Diff(new, got); s != "" && !(len(new) == 0 && len(got) == 0) {
		panic("delta does not reproduce the new value: " + s)
	}
	return 1
}
