package pof

import (
	"math"
	"math/big"
)

// SkipValue returns the offset just past the tagged value (with its
// optional identity prefix) that starts at off.
func SkipValue(b []byte, off int) (end int, err error) {
	defer recoverError(&err)

	if off < 0 || off > len(b) {
		return 0, malformed(errBadOffset).at(off)
	}
	in := newInput(b)
	in.off = off
	skipValue(in)
	return in.off, nil
}

// SkipUniformValue is SkipValue for a value whose type tag is implied by
// its container.
func SkipUniformValue(b []byte, off, typ int) (end int, err error) {
	defer recoverError(&err)

	if off < 0 || off > len(b) {
		return 0, malformed(errBadOffset).at(off)
	}
	in := newInput(b)
	in.off = off
	skipUniformValue(in, typ)
	return in.off, nil
}

func skipValue(in *input) {
	typ := in.readPacked()
	if typ == TIdentity {
		skipPackedInts(in, 1)
		typ = in.readPacked()
	}
	skipUniformValue(in, typ)
}

func skipPackedInts(in *input, n int) {
	for ; n > 0; n-- {
		for in.readByte()&0x80 != 0 {
		}
	}
}

func skipUniformValue(in *input, typ int) {
	start := in.offset()

	switch typ {
	case TInt16, TInt32, TInt64, TInt128, TReference, TBoolean:
		skipPackedInts(in, 1)

	case TYearMonthInterval:
		skipPackedInts(in, 2)

	case TDate:
		skipPackedInts(in, 3)

	case TTimeInterval:
		skipPackedInts(in, 4)

	case TDayTimeInterval:
		skipPackedInts(in, 5)

	case TFloat32:
		in.skip(4)

	case TFloat64:
		in.skip(8)

	case TFloat128:
		in.skip(16)

	case TDecimal32, TDecimal64, TDecimal128:
		skipPackedInts(in, 2)

	case TOctet:
		in.skip(1)

	case TChar:
		in.readChar()

	case TOctetString, TCharString:
		n := in.readPacked()
		if n == -1 || n == VReferenceNull {
			break
		}
		if n < 0 {
			panic(malformed(errBadLength).at(start).withTag(typ))
		}
		in.skip(n)

	case TDateTime:
		skipPackedInts(in, 3)
		skipTime(in)

	case TTime:
		skipTime(in)

	case TCollection, TArray:
		for i, n := 0, readCount(in, typ); i < n; i++ {
			skipValue(in)
		}

	case TUniformCollection, TUniformArray:
		elem := readType(in)
		for i, n := 0, readCount(in, typ); i < n; i++ {
			skipUniformValue(in, elem)
		}

	case TSparseArray:
		readCount(in, typ)
		for in.readPacked() >= 0 {
			skipValue(in)
		}

	case TUniformSparseArray:
		elem := readType(in)
		readCount(in, typ)
		for in.readPacked() >= 0 {
			skipUniformValue(in, elem)
		}

	case TMap:
		for i, n := 0, readCount(in, typ); i < n; i++ {
			skipValue(in)
			skipValue(in)
		}

	case TUniformKeysMap:
		key := readType(in)
		for i, n := 0, readCount(in, typ); i < n; i++ {
			skipUniformValue(in, key)
			skipValue(in)
		}

	case TUniformMap:
		key := readType(in)
		val := readType(in)
		for i, n := 0, readCount(in, typ); i < n; i++ {
			skipUniformValue(in, key)
			skipUniformValue(in, val)
		}

	default:
		switch {
		case IsTinyValue(typ):
		case typ >= 0:
			v := in.readPacked()
			if v == TIdentity {
				skipPackedInts(in, 1)
				v = in.readPacked()
			}
			if v == VReferenceNull {
				break
			}
			if v < 0 {
				panic(malformed("negative version %d", v).at(start).withTag(typ))
			}
			for in.readPacked() >= 0 {
				skipValue(in)
			}
		default:
			panic(malformed(errIllegalType).at(start).withTag(typ))
		}
	}
}

func skipTime(in *input) {
	skipPackedInts(in, 4)
	if readZone(in) == zoneOffset {
		skipPackedInts(in, 2)
	}
}

// readCount reads an element count and rejects negative values.
func readCount(in *input, typ int) int {
	off := in.offset()
	n := in.readPacked()
	if n < 0 {
		panic(malformed(errBadCount).at(off).withTag(typ))
	}
	return n
}

// readDenseCount is readCount for containers that encode every element.
// Each element takes at least one byte, so a count larger than the rest
// of the stream is rejected before anything is allocated for it.
func readDenseCount(in *input, typ int) int {
	off := in.offset()
	n := readCount(in, typ)
	if n > in.remaining() {
		panic(endOfStream(off).withTag(typ))
	}
	return n
}

// readType reads a declared uniform type and rejects tags that cannot
// start a value.
func readType(in *input) int {
	off := in.offset()
	t := in.readPacked()
	if !IsValidTag(t) || IsTinyValue(t) || t == TIdentity {
		panic(malformed(errIllegalType).at(off).withTag(t))
	}
	return t
}

func readZone(in *input) int {
	off := in.offset()
	z := in.readPacked()
	if z < zoneNone || z > zoneOffset {
		panic(malformed("%s %d", errBadZone, z).at(off))
	}
	return z
}

func readRawDate(in *input) RawDate {
	y := in.readPacked()
	m := in.readPacked()
	d := in.readPacked()
	return RawDate{Year: y, Month: m, Day: d}
}

func readRawTime(in *input) RawTime {
	t := RawTime{
		Hour:   in.readPacked(),
		Minute: in.readPacked(),
		Second: in.readPacked(),
	}
	t.Nano = decodeFraction(in.readPacked())

	switch readZone(in) {
	case zoneUTC:
		t.Zone = ZoneUTC
	case zoneOffset:
		t.Zone = ZoneOffset
		t.HourOffset = in.readPacked()
		t.MinuteOffset = in.readPacked()
	}
	return t
}

func readRawDateTime(in *input) RawDateTime {
	d := readRawDate(in)
	return RawDateTime{Date: d, Time: readRawTime(in)}
}

func readYearMonthInterval(in *input) RawYearMonthInterval {
	y := in.readPacked()
	return RawYearMonthInterval{Years: y, Months: in.readPacked()}
}

func readTimeInterval(in *input) RawTimeInterval {
	var i RawTimeInterval
	i.Hours = in.readPacked()
	i.Minutes = in.readPacked()
	i.Seconds = in.readPacked()
	i.Nanos = in.readPacked()
	return i
}

func readDayTimeInterval(in *input) RawDayTimeInterval {
	var i RawDayTimeInterval
	i.Days = in.readPacked()
	i.Hours = in.readPacked()
	i.Minutes = in.readPacked()
	i.Seconds = in.readPacked()
	i.Nanos = in.readPacked()
	return i
}

func readDecimal(in *input) Decimal {
	u := in.readBigInt()
	return Decimal{Unscaled: u, Scale: in.readPackedInt32()}
}

func readQuad(in *input) RawQuad {
	var q RawQuad
	copy(q[:], in.readBytes(16))
	return q
}

func appendRawDate(b []byte, d RawDate) []byte {
	b = appendPacked(b, d.Year)
	b = appendPacked(b, d.Month)
	return appendPacked(b, d.Day)
}

func appendRawTime(b []byte, t RawTime) []byte {
	b = appendPacked(b, t.Hour)
	b = appendPacked(b, t.Minute)
	b = appendPacked(b, t.Second)
	b = appendPacked(b, encodeFraction(t.Nano))

	switch t.Zone {
	case ZoneUTC:
		b = appendPacked(b, zoneUTC)
	case ZoneOffset:
		b = appendPacked(b, zoneOffset)
		b = appendPacked(b, t.HourOffset)
		b = appendPacked(b, t.MinuteOffset)
	default:
		b = appendPacked(b, zoneNone)
	}
	return b
}

func appendDecimal(b []byte, d Decimal) ([]byte, error) {
	b, err := appendPackedBig(b, d.unscaled())
	if err != nil {
		return b, err
	}
	return AppendPackedInt32(b, d.Scale), nil
}

// Conversions applied when a property is read as a type other than the one
// it was written with. Each consumes the payload of a value of type typ
// whose tag has already been read.

func readAsInt64(in *input, typ int) int64 {
	switch typ {
	case TBoolean, TInt16, TInt32, TInt64:
		return in.readPackedInt64()
	case TInt128:
		return in.readBigInt().Int64()
	case TFloat32:
		return int64(in.readFloat32())
	case TFloat64:
		return int64(in.readFloat64())
	case TDecimal32, TDecimal64, TDecimal128:
		return readDecimal(in).Int64()
	case TOctet:
		return int64(in.readByte())
	case TChar:
		return int64(in.readChar())
	case VReferenceNull, VBooleanFalse:
		return 0
	case VBooleanTrue:
		return 1
	}
	if IsTinyInt(typ) {
		return int64(DecodeTinyInt(typ))
	}
	panic(malformed("unable to convert to a numeric type").at(in.offset()).withTag(typ))
}

func readAsFloat64(in *input, typ int) float64 {
	switch typ {
	case TInt64:
		return float64(in.readPackedInt64())
	case TFloat32:
		return float64(in.readFloat32())
	case TFloat64:
		return in.readFloat64()
	case TInt128:
		f, _ := new(big.Float).SetInt(in.readBigInt()).Float64()
		return f
	case TDecimal32, TDecimal64, TDecimal128:
		return readDecimal(in).Float64()
	case VFPNegInfinity:
		return math.Inf(-1)
	case VFPPosInfinity:
		return math.Inf(1)
	case VFPNaN:
		return math.NaN()
	}
	return float64(readAsInt64(in, typ))
}

func readAsFloat32(in *input, typ int) float32 {
	if typ == TFloat32 {
		return in.readFloat32()
	}
	return float32(readAsFloat64(in, typ))
}

func readAsBigInt(in *input, typ int) *big.Int {
	switch typ {
	case TInt128:
		return in.readBigInt()
	case TFloat32, TFloat64, TDecimal32, TDecimal64, TDecimal128:
		r := readAsDecimal(in, typ).Rat()
		return new(big.Int).Quo(r.Num(), r.Denom())
	}
	return big.NewInt(readAsInt64(in, typ))
}

func readAsDecimal(in *input, typ int) Decimal {
	switch typ {
	case TDecimal32, TDecimal64, TDecimal128:
		return readDecimal(in)
	case TInt128:
		return Decimal{Unscaled: in.readBigInt()}
	case TFloat32, TFloat64:
		return decimalFromFloat(readAsFloat64(in, typ))
	}
	return Decimal{Unscaled: big.NewInt(readAsInt64(in, typ))}
}

// decimalFromFloat returns the shortest decimal that reads back as f.
func decimalFromFloat(f float64) Decimal {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		panic(malformed("cannot convert %v to a decimal", f))
	}
	r, ok := new(big.Rat).SetString(new(big.Float).SetFloat64(f).Text('g', -1))
	if !ok {
		return Decimal{Unscaled: new(big.Int)}
	}
	scale := int32(0)
	ten := big.NewInt(10)
	for !r.IsInt() {
		r.Mul(r, new(big.Rat).SetInt(ten))
		scale++
	}
	return Decimal{Unscaled: new(big.Int).Set(r.Num()), Scale: scale}
}

func readAsChar(in *input, typ int) rune {
	switch typ {
	case TOctet:
		return rune(in.readByte())
	case TChar:
		return in.readChar()
	}
	return rune(uint16(readAsInt64(in, typ)))
}
