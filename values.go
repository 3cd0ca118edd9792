package pof

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"time"
)

// Char is a single BMP character. It exists so that WriteObject can tell a
// character from an int32.
type Char rune

// Collection is an unordered bag of values; it encodes as a POF collection
// rather than an array.
type Collection []interface{}

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   interface{}
	Value interface{}
}

// Map keeps POF map entries in stream order so re-encoding is stable.
type Map []Entry

// Get returns the value of the first entry whose key equals k.
func (m Map) Get(k interface{}) (interface{}, bool) {
	for _, e := range m {
		if reflect.DeepEqual(e.Key, k) {
			return e.Value, true
		}
	}
	return nil, false
}

// SparseArray maps element indices to values.
type SparseArray map[int]interface{}

// Indices returns the populated indices in ascending order.
func (a SparseArray) Indices() []int {
	idx := make([]int, 0, len(a))
	for i := range a {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Len returns the declared size: one past the highest index.
func (a SparseArray) Len() int {
	n := 0
	for i := range a {
		if i+1 > n {
			n = i + 1
		}
	}
	return n
}

// Decimal is an arbitrary precision decimal: Unscaled * 10^-Scale.
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

// NewDecimal returns unscaled * 10^-scale.
func NewDecimal(unscaled int64, scale int32) Decimal {
	return Decimal{Unscaled: big.NewInt(unscaled), Scale: scale}
}

func (d Decimal) unscaled() *big.Int {
	if d.Unscaled == nil {
		return new(big.Int)
	}
	return d.Unscaled
}

// IsZero reports whether d is a zero with scale 0, the default value.
func (d Decimal) IsZero() bool { return d.Scale == 0 && d.unscaled().Sign() == 0 }

// Equal compares unscaled value and scale; 1.0 and 1.00 differ.
func (d Decimal) Equal(o Decimal) bool {
	return d.Scale == o.Scale && d.unscaled().Cmp(o.unscaled()) == 0
}

// Rat returns the exact value of d.
func (d Decimal) Rat() *big.Rat {
	r := new(big.Rat).SetInt(d.unscaled())
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(abs32(d.Scale))), nil)
	if d.Scale >= 0 {
		return r.Quo(r, new(big.Rat).SetInt(pow))
	}
	return r.Mul(r, new(big.Rat).SetInt(pow))
}

// Float64 returns the nearest float64 to d.
func (d Decimal) Float64() float64 {
	f, _ := d.Rat().Float64()
	return f
}

// Int64 truncates d toward zero.
func (d Decimal) Int64() int64 {
	r := d.Rat()
	return new(big.Int).Quo(r.Num(), r.Denom()).Int64()
}

func (d Decimal) String() string {
	return d.Rat().FloatString(int(max32(d.Scale, 0)))
}

// decimalClass returns 4, 8 or 16: the smallest decimal encoding that can
// hold d, or 0 if none can.
func decimalClass(d Decimal) int {
	digits := len(new(big.Int).Abs(d.unscaled()).String())
	switch {
	case digits <= MaxDecimal32Digits && d.Scale >= MinDecimal32Scale && d.Scale <= MaxDecimal32Scale:
		return 4
	case digits <= MaxDecimal64Digits && d.Scale >= MinDecimal64Scale && d.Scale <= MaxDecimal64Scale:
		return 8
	case digits <= MaxDecimal128Digits && d.Scale >= MinDecimal128Scale && d.Scale <= MaxDecimal128Scale:
		return 16
	}
	return 0
}

// checkDecimalRange fails if d does not fit the class of the given size.
func checkDecimalRange(d Decimal, size int) error {
	digits := len(new(big.Int).Abs(d.unscaled()).String())
	var maxDigits int
	var minScale, maxScale int32
	switch size {
	case 4:
		maxDigits, minScale, maxScale = MaxDecimal32Digits, MinDecimal32Scale, MaxDecimal32Scale
	case 8:
		maxDigits, minScale, maxScale = MaxDecimal64Digits, MinDecimal64Scale, MaxDecimal64Scale
	case 16:
		maxDigits, minScale, maxScale = MaxDecimal128Digits, MinDecimal128Scale, MaxDecimal128Scale
	default:
		return invariantViolation("byte count (%d) must be 4, 8 or 16", size)
	}
	if digits > maxDigits || d.Scale < minScale || d.Scale > maxScale {
		return fmt.Errorf("decimal value exceeds IEEE754r %d-bit range: %s", size*8, d)
	}
	return nil
}

// RawQuad holds the 16 bytes of an IEEE 754 binary128 value unchanged.
type RawQuad [16]byte

// Float64 is not implemented for quads.
func (q RawQuad) Float64() (float64, error) {
	return 0, unsupported("%s: conversion to float64", errQuadArithmetic)
}

// BigFloat is not implemented for quads.
func (q RawQuad) BigFloat() (*big.Float, error) {
	return nil, unsupported("%s: conversion to big.Float", errQuadArithmetic)
}

// QuadFromFloat64 is not implemented.
func QuadFromFloat64(f float64) (RawQuad, error) {
	return RawQuad{}, unsupported("%s: conversion from float64", errQuadArithmetic)
}

// ZoneKind tells how a time carries its zone.
type ZoneKind uint8

const (
	ZoneNone ZoneKind = iota
	ZoneUTC
	ZoneOffset
)

// RawDate is a calendar date without a zone.
type RawDate struct {
	Year, Month, Day int
}

// Time returns midnight of d in loc.
func (d RawDate) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

func (d RawDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// RawTime is a time of day with an optional zone.
type RawTime struct {
	Hour, Minute, Second, Nano int
	Zone                       ZoneKind
	HourOffset, MinuteOffset   int
}

// Location returns the zone of t; ZoneNone maps to time.Local.
func (t RawTime) Location() *time.Location {
	switch t.Zone {
	case ZoneUTC:
		return time.UTC
	case ZoneOffset:
		return time.FixedZone("", t.offsetSeconds())
	}
	return time.Local
}

// offsetSeconds returns the zone offset east of UTC. The minutes take the
// sign of the hours; with a zero hour offset they carry their own.
func (t RawTime) offsetSeconds() int {
	if t.HourOffset == 0 {
		return t.MinuteOffset * 60
	}
	return (t.HourOffset*60 + sign(t.HourOffset)*t.MinuteOffset) * 60
}

func (t RawTime) String() string {
	s := fmt.Sprintf("%02d:%02d:%02d.%09d", t.Hour, t.Minute, t.Second, t.Nano)
	switch t.Zone {
	case ZoneUTC:
		s += "Z"
	case ZoneOffset:
		off := t.offsetSeconds() / 60
		s += fmt.Sprintf("%c%02d:%02d", "+-"[boolIndex(off < 0)], abs(off)/60, abs(off)%60)
	}
	return s
}

// RawDateTime is a date and a time.
type RawDateTime struct {
	Date RawDate
	Time RawTime
}

// GoTime converts dt to a time.Time in its own zone.
func (dt RawDateTime) GoTime() time.Time {
	return time.Date(dt.Date.Year, time.Month(dt.Date.Month), dt.Date.Day,
		dt.Time.Hour, dt.Time.Minute, dt.Time.Second, dt.Time.Nano, dt.Time.Location())
}

func (dt RawDateTime) String() string { return dt.Date.String() + "T" + dt.Time.String() }

// RawDateTimeFromTime converts t keeping its zone offset. A UTC time is
// encoded with the UTC discriminant.
func RawDateTimeFromTime(t time.Time) RawDateTime {
	return RawDateTime{
		Date: RawDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()},
		Time: rawTimeFromTime(t),
	}
}

func rawTimeFromTime(t time.Time) RawTime {
	rt := RawTime{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nano: t.Nanosecond()}
	if t.Location() == time.UTC {
		rt.Zone = ZoneUTC
		return rt
	}
	_, off := t.Zone()
	rt.Zone = ZoneOffset
	off /= 60
	rt.HourOffset = off / 60
	if rt.HourOffset == 0 {
		rt.MinuteOffset = off
	} else {
		rt.MinuteOffset = abs(off % 60)
	}
	return rt
}

// RawYearMonthInterval is a span of years and months.
type RawYearMonthInterval struct {
	Years, Months int
}

// RawTimeInterval is a span of hours, minutes, seconds and nanoseconds.
type RawTimeInterval struct {
	Hours, Minutes, Seconds, Nanos int
}

// Duration converts i to a time.Duration. A negative leading field
// negates the whole interval.
func (i RawTimeInterval) Duration() time.Duration {
	d := time.Duration(abs(i.Hours))*time.Hour + time.Duration(abs(i.Minutes))*time.Minute +
		time.Duration(abs(i.Seconds))*time.Second + time.Duration(abs(i.Nanos))
	if i.Hours < 0 || i.Minutes < 0 || i.Seconds < 0 || i.Nanos < 0 {
		return -d
	}
	return d
}

// TimeIntervalFromDuration splits d into interval fields. Only the leading
// non-zero field of a negative duration is negative.
func TimeIntervalFromDuration(d time.Duration) RawTimeInterval {
	u := uint64(d)
	if d < 0 {
		u = uint64(-d)
	}
	i := RawTimeInterval{
		Hours:   int(u / uint64(time.Hour)),
		Minutes: int(u / uint64(time.Minute) % 60),
		Seconds: int(u / uint64(time.Second) % 60),
		Nanos:   int(u % uint64(time.Second)),
	}
	if d >= 0 {
		return i
	}
	switch {
	case i.Hours != 0:
		i.Hours = -i.Hours
	case i.Minutes != 0:
		i.Minutes = -i.Minutes
	case i.Seconds != 0:
		i.Seconds = -i.Seconds
	default:
		i.Nanos = -i.Nanos
	}
	return i
}

// RawDayTimeInterval is a span of days plus a time interval.
type RawDayTimeInterval struct {
	Days, Hours, Minutes, Seconds, Nanos int
}

// encodeFraction returns the wire form of a nanosecond field: whole
// milliseconds are written positive, anything else as negated nanos.
func encodeFraction(nanos int) int {
	switch {
	case nanos == 0:
		return 0
	case nanos%1000000 == 0:
		return nanos / 1000000
	default:
		return -nanos
	}
}

// decodeFraction inverts encodeFraction.
func decodeFraction(f int) int {
	if f <= 0 {
		return -f
	}
	return f * 1000000
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func abs32(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sign(n int) int {
	if n < 0 {
		return -1
	}
	return 1
}
