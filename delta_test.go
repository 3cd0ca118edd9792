package pof

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deltaRegressions = []struct {
	old, new string
}{
	{
		"0401004BBA016102584205DFE5BEF1CFC6C0B58501DFC4E192C9E8CB4ECFF4F5EAD0C0EED3970180A9B5DFC6C9DF998E01A5E0A8ACE3C28AF8C701034B56066107419BE9A5B2050841B3F1B1C00B0B584B000C40D27440",
		"0403004BBA016102584205DFE5BEF1CFC6C0B58501DFC4E192C9E8CB4ECFF4F5EAD0C0EED3970180A9B5DFC6C9DF998E01A5E0A8ACE3C28AF8C701034B56066107419BE9A5B2050B584B000C40C83440",
	},
	{
		"040100584101AB8287DF040141F184A2ED0202443F44C77003429FCD9587F4C6C7CDEC01044D3205453FEA6D7DD135DFDF06584101ADDA92B40307453FEB3C73CC246F2B084D2F09584A0C0100000101000001010100010A40B2490B4B2F40",
		"040100584101AB8287DF040141F184A2ED0202443F44C77003429FCD9587F4C6C7CDEC01044D3205453FEA6D7DD135DFDF06584101ADDA92B40307453FEB3C73CC246F2B084DE184BD09584A000A40B24940",
	},
	{
		"0401004E00015204012583A189E60203584D0F5A6E56203D45333F6157613B686775054DE29195065845053FE21023061C4F673FE282E41AA8AEBE3FD2B9E68302EEA23FEA8540D7FBCFEE3FBF6D9E12E2DAC807584001D6BF02084FB51E0407095844063F72D7843E2725C83E841CC43E8D6FE83E65859C3F35EFCB0A58400FFDA102BFD701D18902DAAB02FD8602948D039C4AC986039A850195D301F3FD01A1BA02F7FE03C920C9DC020B443F2B2EF30C443F7579C00D541E071E1C9AD4A6D50340",
		"0401004E00015204012583A189E6020349D1869CA0BAE8F0B2540B054DE29195065845053FE21023061C4F673FE282E41AA8AEBE3FD2B9E68302EEA23FEA8540D7FBCFEE3FBF6D9E12E2DAC807584001D6BF02084FB51E0407095844063F72D7843E2725C83E841CC43E8D6FE83E65859C3F35EFCB0A58400FFDA102BFD701D18902DAAB02FD8602948D039C4AC986039A850195D301F3FD01A1BA02F7FE03C920C9DC020B443F2B2EF30C443F7579C00D541E071E1C9AD4A6D50340",
	},
}

var deltaCompressors = []struct {
	name string
	c    DeltaCompressor
}{
	{"pof", PofDeltaCompressor{}},
	{"binary", BinaryDeltaCompressor{}},
	{"binary/4", BinaryDeltaCompressor{BlockSize: 4}},
}

func checkDelta(t *testing.T, name string, c DeltaCompressor, old, new []byte) {
	t.Helper()
	d, err := c.ExtractDelta(old, new)
	if err != nil {
		t.Errorf("%s: extract: %v\n", name, err)
		return
	}
	got, err := c.ApplyDelta(old, d)
	if err != nil {
		t.Errorf("%s: apply % X: %v\n", name, d, err)
		return
	}
	if !bytes.Equal(got, new) {
		t.Errorf("%s: delta % X applied to % X\ngot  % X\nwant % X\n", name, d, old, got, new)
	}
}

func TestDeltaRegressions(t *testing.T) {
	for _, dc := range deltaCompressors {
		for _, tt := range deltaRegressions {
			old, new := unhex(t, tt.old), unhex(t, tt.new)
			checkDelta(t, dc.name, dc.c, old, new)
			checkDelta(t, dc.name, dc.c, new, old)
		}
	}
}

func TestDeltaTrivial(t *testing.T) {
	v := []byte{0x41, 0x05}
	for _, dc := range deltaCompressors {
		d, err := dc.c.ExtractDelta(v, append([]byte(nil), v...))
		require.NoError(t, err)
		assert.Nil(t, d, "%s: equal values", dc.name)

		got, err := dc.c.ApplyDelta(v, nil)
		require.NoError(t, err)
		assert.Equal(t, v, got)

		d, err = dc.c.ExtractDelta(v, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{FmtEmpty}, d, "%s: to empty", dc.name)
		got, err = dc.c.ApplyDelta(v, d)
		require.NoError(t, err)
		assert.Empty(t, got)

		d, err = dc.c.ExtractDelta(nil, v)
		require.NoError(t, err)
		assert.Equal(t, []byte{FmtReplace, 0x41, 0x05}, d, "%s: from empty", dc.name)

		d, err = dc.c.ExtractDelta(nil, nil)
		require.NoError(t, err)
		assert.Nil(t, d)
	}
}

func TestDeltaStructural(t *testing.T) {
	long := strings.Repeat("the quick brown fox jumps over the lazy dog ", 8)
	enc := NewEncoder(nil)

	old, err := enc.Marshal(Collection{long, int32(1), long})
	require.NoError(t, err)
	new, err := enc.Marshal(Collection{long, int32(2), long})
	require.NoError(t, err)

	d, err := PofDeltaCompressor{}.ExtractDelta(old, new)
	require.NoError(t, err)
	require.NotEmpty(t, d)
	assert.Equal(t, byte(FmtBinDiff), d[0])
	assert.Less(t, len(d), len(new)/4)

	got, err := PofDeltaCompressor{}.ApplyDelta(old, d)
	require.NoError(t, err)
	assert.Equal(t, new, got)
}

func TestDeltaAcrossValues(t *testing.T) {
	enc := NewEncoder(nil)
	var encoded [][]byte
	for _, v := range roundtrips {
		b, err := enc.Marshal(v)
		require.NoError(t, err)
		encoded = append(encoded, b)
	}

	for _, dc := range deltaCompressors {
		for i := 1; i < len(encoded); i++ {
			checkDelta(t, dc.name, dc.c, encoded[i-1], encoded[i])
		}
	}
}

func TestDeltaNotPof(t *testing.T) {
	old := []byte("this is not a pof stream but it is long enough to be diffed")
	new := []byte("this is not a pof stream and it is long enough to be diffed!")
	checkDelta(t, "pof fallback", PofDeltaCompressor{}, old, new)
}

func TestBinaryDelta(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	old := make([]byte, 1024)
	r.Read(old)

	new := append([]byte(nil), old...)
	copy(new[500:], "0123456789")
	new = append(new, "and a tail"...)

	c := BinaryDeltaCompressor{}
	d, err := c.ExtractDelta(old, new)
	require.NoError(t, err)
	assert.Equal(t, byte(FmtBinDiff), d[0])
	assert.Less(t, len(d), len(new)/4)

	got, err := c.ApplyDelta(old, d)
	require.NoError(t, err)
	assert.Equal(t, new, got)

	// shorter than a block
	d, err = c.ExtractDelta([]byte{1, 2, 3}, []byte{1, 2, 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{FmtReplace, 1, 2, 4}, d)
}

func TestApplyMalformedDelta(t *testing.T) {
	old := []byte{1, 2, 3, 4}
	tests := []struct {
		name  string
		delta []byte
	}{
		{"empty", []byte{}},
		{"unknown format", []byte{0x42}},
		{"empty with payload", []byte{FmtEmpty, 0x00}},
		{"unknown op", []byte{FmtBinDiff, 0x09, OpTerm}},
		{"extract past end", []byte{FmtBinDiff, OpExtract, 0x02, 0x05, OpTerm}},
		{"negative length", []byte{FmtBinDiff, OpAppend, 0x40, OpTerm}},
		{"bytes after term", []byte{FmtBinDiff, OpTerm, 0x00}},
	}

	for _, tt := range tests {
		_, err := applyDelta(old, tt.delta)
		if !errors.Is(err, ErrMalformedStream) {
			t.Errorf("%s: got %v, want a malformed stream\n", tt.name, err)
		}
	}

	_, err := applyDelta(old, []byte{FmtBinDiff, OpAppend, 0x05, 0x01})
	assert.True(t, errors.Is(err, ErrUnexpectedEndOfStream), "truncated append: %v", err)
}

func randomValue(r *rand.Rand, depth int) interface{} {
	n := 8
	if depth > 2 {
		n = 5
	}
	switch r.Intn(n) {
	case 0:
		return nil
	case 1:
		return r.Intn(2) == 0
	case 2:
		return int32(r.Intn(2000) - 1000)
	case 3:
		return r.Int63() - r.Int63()
	case 4:
		b := make([]byte, r.Intn(40))
		for i := range b {
			b[i] = byte('a' + r.Intn(26))
		}
		return string(b)
	case 5:
		a := make([]int32, r.Intn(20))
		for i := range a {
			a[i] = r.Int31n(1 << 20)
		}
		return a
	case 6:
		c := make(Collection, r.Intn(6))
		for i := range c {
			c[i] = randomValue(r, depth+1)
		}
		return c
	default:
		m := make(Map, r.Intn(5))
		for i := range m {
			m[i] = Entry{Key: randomValue(r, depth+1), Value: randomValue(r, depth+1)}
		}
		return m
	}
}

// perturb returns a copy of v with some leaves replaced.
func perturb(r *rand.Rand, v interface{}) interface{} {
	switch x := v.(type) {
	case Collection:
		c := append(Collection(nil), x...)
		for i := range c {
			if r.Intn(3) == 0 {
				c[i] = perturb(r, c[i])
			}
		}
		if r.Intn(4) == 0 {
			c = append(c, randomValue(r, 3))
		}
		return c
	case Map:
		m := append(Map(nil), x...)
		for i := range m {
			if r.Intn(3) == 0 {
				m[i].Value = perturb(r, m[i].Value)
			}
		}
		return m
	}
	if r.Intn(2) == 0 {
		return v
	}
	return randomValue(r, 3)
}

func TestDeltaRandomized(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	enc := NewEncoder(nil)

	for i := 0; i < 300; i++ {
		v := Collection{randomValue(r, 0), randomValue(r, 0), randomValue(r, 0)}
		old, err := enc.Marshal(v)
		require.NoError(t, err)
		new, err := enc.Marshal(perturb(r, v))
		require.NoError(t, err)

		for _, dc := range deltaCompressors {
			checkDelta(t, dc.name, dc.c, old, new)
			checkDelta(t, dc.name, dc.c, new, old)
		}
	}

	// arbitrary bytes fall back to a binary diff
	for i := 0; i < 100; i++ {
		old := make([]byte, r.Intn(200))
		r.Read(old)
		new := append([]byte(nil), old...)
		for j := r.Intn(5); j > 0 && len(new) > 0; j-- {
			new[r.Intn(len(new))] ^= byte(1 + r.Intn(255))
		}
		if r.Intn(2) == 0 {
			new = append(new, byte(r.Intn(256)))
		}
		for _, dc := range deltaCompressors {
			checkDelta(t, dc.name, dc.c, old, new)
		}
	}
}
