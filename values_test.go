package pof

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validateStream parses b through a ValidatingHandler.
func validateStream(t *testing.T, b []byte) error {
	t.Helper()
	v := NewValidatingHandler(nil)
	if err := NewParser(v).Parse(b); err != nil {
		return err
	}
	return v.Finish()
}

func TestTimeIntervalFromDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want RawTimeInterval
	}{
		{0, RawTimeInterval{}},
		{90 * time.Minute, RawTimeInterval{Hours: 1, Minutes: 30}},
		{-90 * time.Minute, RawTimeInterval{Hours: -1, Minutes: 30}},
		{-59 * time.Second, RawTimeInterval{Seconds: -59}},
		{-time.Nanosecond, RawTimeInterval{Nanos: -1}},
		{-(2*time.Minute + 500*time.Millisecond), RawTimeInterval{Minutes: -2, Nanos: 500000000}},
		{-(23*time.Hour + time.Nanosecond), RawTimeInterval{Hours: -23, Nanos: 1}},
	}

	for _, tt := range tests {
		got := TimeIntervalFromDuration(tt.d)
		if got != tt.want {
			t.Errorf("TimeIntervalFromDuration(%v)=%+v, want %+v\n", tt.d, got, tt.want)
		}
		if d := got.Duration(); d != tt.d {
			t.Errorf("%+v.Duration()=%v, want %v\n", got, d, tt.d)
		}
	}
}

func TestNegativeDurationValidates(t *testing.T) {
	b, err := NewEncoder(nil).Marshal(-90 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, unhex(t, "52 40 1E 00 00"), b)

	for _, d := range []time.Duration{-90 * time.Minute, -time.Second, -time.Nanosecond, -(time.Hour + 1), 45 * time.Minute} {
		b, err := NewEncoder(nil).Marshal(d)
		require.NoError(t, err)
		if err := validateStream(t, b); err != nil {
			t.Errorf("%v: %v\n", d, err)
			continue
		}

		got, err := NewDecoder(nil).Unmarshal(b)
		require.NoError(t, err)
		if iv, ok := got.(RawTimeInterval); !ok || iv.Duration() != d {
			t.Errorf("%v decoded as %#v\n", d, got)
		}
	}
}

func TestZoneOffsets(t *testing.T) {
	tests := []struct {
		offset    int // seconds east of UTC
		hour, min int
		text      string
	}{
		{-30 * 60, 0, -30, "-00:30"},
		{30 * 60, 0, 30, "+00:30"},
		{-(5*3600 + 30*60), -5, 30, "-05:30"},
		{9*3600 + 45*60, 9, 45, "+09:45"},
		{0, 0, 0, "+00:00"},
	}

	for _, tt := range tests {
		tm := time.Date(2020, 1, 2, 3, 4, 5, 0, time.FixedZone("", tt.offset))

		dt := RawDateTimeFromTime(tm)
		if dt.Time.HourOffset != tt.hour || dt.Time.MinuteOffset != tt.min {
			t.Errorf("%s: offsets %d/%d, want %d/%d\n", tt.text, dt.Time.HourOffset, dt.Time.MinuteOffset, tt.hour, tt.min)
		}
		if !strings.HasSuffix(dt.String(), tt.text) {
			t.Errorf("%s: String()=%q\n", tt.text, dt.String())
		}

		b, err := NewEncoder(nil).Marshal(tm)
		require.NoError(t, err)
		if err := validateStream(t, b); err != nil {
			t.Errorf("%s: %v\n", tt.text, err)
			continue
		}

		got, err := NewDecoder(nil).Unmarshal(b)
		require.NoError(t, err)
		gt := got.(RawDateTime).GoTime()
		if _, off := gt.Zone(); off != tt.offset || !gt.Equal(tm) {
			t.Errorf("%s: decoded %v with offset %d\n", tt.text, gt, off)
		}
	}
}

func TestTimeZoneRange(t *testing.T) {
	assert.NoError(t, checkTimeZone(0, -30))
	assert.Error(t, checkTimeZone(-1, -30), "minutes are unsigned once the hours carry the sign")
	assert.Error(t, checkTimeZone(0, 60))
	assert.Error(t, checkTimeZone(24, 0))

	// a leap second is allowed
	assert.NoError(t, checkTime(23, 59, 60, 0))
	assert.Error(t, checkTime(23, 59, 60, 1))
}

func TestHugeCounts(t *testing.T) {
	huge := func(tags ...int) []byte {
		var b []byte
		for _, tag := range tags {
			b = AppendPackedInt32(b, int32(tag))
		}
		return AppendPackedInt32(b, math.MaxInt32)
	}

	tests := []struct {
		name string
		in   []byte
	}{
		{"collection", huge(TCollection)},
		{"array", huge(TArray)},
		{"uniform collection", huge(TUniformCollection, TCharString)},
		{"uniform array", huge(TUniformArray, TInt64)},
		{"uniform octets", huge(TUniformArray, TOctet)},
		{"map", huge(TMap)},
		{"uniform keys map", huge(TUniformKeysMap, TInt32)},
		{"uniform map", huge(TUniformMap, TInt32, TInt32)},
	}

	for _, tt := range tests {
		_, err := NewDecoder(nil).Unmarshal(tt.in)
		if !errors.Is(err, ErrUnexpectedEndOfStream) {
			t.Errorf("%s: got %v\n", tt.name, err)
		}
		_, err = NewBufferReader(tt.in, nil).ReadInt32Array(0)
		if err == nil {
			t.Errorf("%s: read as an int32 array\n", tt.name)
		}
	}

	// a sparse array may declare more elements than it holds
	sparse := append(huge(TSparseArray), 0x03, 0x70, 0x40)
	got, err := NewDecoder(nil).Unmarshal(sparse)
	require.NoError(t, err)
	assert.Equal(t, SparseArray{3: int32(7)}, got)

	_, err = NewBufferReader(sparse, nil).ReadInt32Array(0)
	assert.True(t, errors.Is(err, ErrUnsupported), "sparse array too large for a slice: %v", err)

	small := append(AppendPackedInt32(AppendPackedInt32(nil, TSparseArray), 1000), 0x03, 0x70, 0x40)
	a, err := NewBufferReader(small, nil).ReadInt32Array(0)
	require.NoError(t, err)
	require.Len(t, a, 1000)
	assert.Equal(t, int32(7), a[3])
	assert.Equal(t, int32(0), a[999])
}
