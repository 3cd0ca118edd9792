package pof

import (
	"math/big"
	"time"
)

// AtVersion returns r when its data version is at least v. Otherwise it
// returns a Reader whose reads yield zero values, so properties added in
// version v can be read unconditionally.
func AtVersion(r Reader, v int) Reader {
	if r.VersionID() >= v {
		return r
	}
	return zeroReader{r}
}

type zeroReader struct {
	r Reader
}

func (z zeroReader) ReadBool(int) (bool, error)                    { return false, nil }
func (z zeroReader) ReadOctet(int) (byte, error)                   { return 0, nil }
func (z zeroReader) ReadChar(int) (rune, error)                    { return 0, nil }
func (z zeroReader) ReadInt16(int) (int16, error)                  { return 0, nil }
func (z zeroReader) ReadInt32(int) (int32, error)                  { return 0, nil }
func (z zeroReader) ReadInt64(int) (int64, error)                  { return 0, nil }
func (z zeroReader) ReadInt128(int) (*big.Int, error)              { return nil, nil }
func (z zeroReader) ReadFloat32(int) (float32, error)              { return 0, nil }
func (z zeroReader) ReadFloat64(int) (float64, error)              { return 0, nil }
func (z zeroReader) ReadRawQuad(int) (RawQuad, error)              { return RawQuad{}, nil }
func (z zeroReader) ReadDecimal(int) (Decimal, error)              { return Decimal{}, nil }
func (z zeroReader) ReadBinary(int) ([]byte, error)                { return nil, nil }
func (z zeroReader) ReadString(int) (string, error)                { return "", nil }
func (z zeroReader) ReadRawDate(int) (RawDate, error)              { return RawDate{}, nil }
func (z zeroReader) ReadRawTime(int) (RawTime, error)              { return RawTime{}, nil }
func (z zeroReader) ReadRawDateTime(int) (RawDateTime, error)      { return RawDateTime{}, nil }
func (z zeroReader) ReadDate(int) (time.Time, error)               { return time.Time{}, nil }
func (z zeroReader) ReadDateTime(int) (time.Time, error)           { return time.Time{}, nil }
func (z zeroReader) ReadTimeInterval(int) (RawTimeInterval, error) { return RawTimeInterval{}, nil }

func (z zeroReader) ReadYearMonthInterval(int) (RawYearMonthInterval, error) {
	return RawYearMonthInterval{}, nil
}

func (z zeroReader) ReadDayTimeInterval(int) (RawDayTimeInterval, error) {
	return RawDayTimeInterval{}, nil
}

func (z zeroReader) ReadBoolArray(int) ([]bool, error)       { return nil, nil }
func (z zeroReader) ReadInt16Array(int) ([]int16, error)     { return nil, nil }
func (z zeroReader) ReadInt32Array(int) ([]int32, error)     { return nil, nil }
func (z zeroReader) ReadInt64Array(int) ([]int64, error)     { return nil, nil }
func (z zeroReader) ReadFloat32Array(int) ([]float32, error) { return nil, nil }
func (z zeroReader) ReadFloat64Array(int) ([]float64, error) { return nil, nil }
func (z zeroReader) ReadCharArray(int) ([]Char, error)       { return nil, nil }

func (z zeroReader) ReadArray(int) ([]interface{}, error)     { return nil, nil }
func (z zeroReader) ReadCollection(int) (Collection, error)   { return nil, nil }
func (z zeroReader) ReadMap(int) (Map, error)                 { return nil, nil }
func (z zeroReader) ReadSparseArray(int) (SparseArray, error) { return nil, nil }
func (z zeroReader) ReadObject(int) (interface{}, error)      { return nil, nil }

func (z zeroReader) Context() Context                     { return z.r.Context() }
func (z zeroReader) UserTypeID() int                      { return z.r.UserTypeID() }
func (z zeroReader) VersionID() int                       { return z.r.VersionID() }
func (z zeroReader) RegisterIdentity(v interface{}) error { return z.r.RegisterIdentity(v) }
func (z zeroReader) NextPropertyIndex() (int, error)      { return z.r.NextPropertyIndex() }

func (z zeroReader) CreateNestedReader(int) (Reader, error) { return z, nil }
func (z zeroReader) ReadRemainder() ([]byte, error)         { return nil, nil }
