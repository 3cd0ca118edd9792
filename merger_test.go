package pof

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerger(t *testing.T) {
	enc := NewEncoder(nil)
	values := []interface{}{int32(5), "hello", Collection{true, nil}}

	m := NewMerger()
	for _, v := range values {
		b, err := enc.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, m.Append(b))
	}
	assert.Equal(t, 3, m.Len())

	got, err := NewDecoder(nil).Unmarshal(m.Finish())
	require.NoError(t, err)
	if diff := cmp.Diff(Collection(values), got); diff != "" {
		t.Errorf("merged collection (-want +got):\n%s\n", diff)
	}
}

func TestMergerEmpty(t *testing.T) {
	got, err := NewDecoder(nil).Unmarshal(NewMerger().Finish())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMergerRejects(t *testing.T) {
	m := NewMerger()
	require.NoError(t, m.Append([]byte{0x69}))

	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", []byte{}, ErrUnexpectedEndOfStream},
		{"truncated", []byte{0x4E, 0x05, 0x68}, ErrUnexpectedEndOfStream},
		{"trailing bytes", []byte{0x69, 0x69}, ErrMalformedStream},
		{"unknown tag", []byte{0xC0, 0x01}, ErrMalformedStream},
	}
	for _, tt := range tests {
		if err := m.Append(tt.in); !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v\n", tt.name, err, tt.want)
		}
	}
	assert.Equal(t, 1, m.Len())

	assert.Equal(t, []byte{0x55, 0x01, 0x69}, m.Finish())
	assert.Equal(t, []byte{0x55, 0x01, 0x69}, m.Finish(), "Finish is idempotent")

	err := m.Append([]byte{0x69})
	assert.True(t, errors.Is(err, ErrProtocolViolation), "append after finish: %v", err)
}

func BenchmarkMerger(b *testing.B) {
	enc := NewEncoder(nil)
	var data [][]byte
	for _, v := range roundtrips {
		buf, err := enc.Marshal(v)
		if err != nil {
			b.Fatal(err)
		}
		data = append(data, buf)
	}

	b.ResetTimer()

	m := NewMerger()
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < b.N; i++ {
		buf := data[r.Int()%len(data)]
		if err := m.Append(buf); err != nil {
			b.Fatal(err)
		}
	}
}
