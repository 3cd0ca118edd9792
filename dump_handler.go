package pof

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"

	"go.uber.org/zap"
)

// DumpHandler writes one indented line per event. It is meant for
// inspecting streams, not for parsing its output.
type DumpHandler struct {
	w      io.Writer
	depth  int
	prefix string

	// Log, when set, also receives every line at debug level.
	Log *zap.Logger
}

// NewDumpHandler returns a DumpHandler writing to w.
func NewDumpHandler(w io.Writer) *DumpHandler {
	return &DumpHandler{w: w}
}

func (d *DumpHandler) line(pos int, format string, args ...interface{}) error {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", d.depth))
	if pos >= 0 {
		fmt.Fprintf(&sb, "[%d] ", pos)
	}
	sb.WriteString(d.prefix)
	d.prefix = ""
	fmt.Fprintf(&sb, format, args...)

	if d.Log != nil {
		d.Log.Debug(sb.String())
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(d.w, sb.String())
	return err
}

func (d *DumpHandler) begin(pos int, format string, args ...interface{}) error {
	err := d.line(pos, format, args...)
	d.depth++
	return err
}

func (d *DumpHandler) RegisterIdentity(id int) error {
	d.prefix = fmt.Sprintf("#%d=", id)
	return nil
}

func (d *DumpHandler) OnNullReference(pos int) error {
	return d.line(pos, "null")
}

func (d *DumpHandler) OnIdentityReference(pos, id int) error {
	return d.line(pos, "ref #%d", id)
}

func (d *DumpHandler) OnInt16(pos int, v int16) error { return d.line(pos, "int16 %d", v) }
func (d *DumpHandler) OnInt32(pos int, v int32) error { return d.line(pos, "int32 %d", v) }
func (d *DumpHandler) OnInt64(pos int, v int64) error { return d.line(pos, "int64 %d", v) }

func (d *DumpHandler) OnInt128(pos int, v *big.Int) error {
	return d.line(pos, "int128 %s", v)
}

func (d *DumpHandler) OnFloat32(pos int, v float32) error { return d.line(pos, "float32 %v", v) }
func (d *DumpHandler) OnFloat64(pos int, v float64) error { return d.line(pos, "float64 %v", v) }

func (d *DumpHandler) OnFloat128(pos int, v RawQuad) error {
	return d.line(pos, "float128 0x%s", hex.EncodeToString(v[:]))
}

func (d *DumpHandler) OnDecimal32(pos int, v Decimal) error  { return d.line(pos, "decimal32 %s", v) }
func (d *DumpHandler) OnDecimal64(pos int, v Decimal) error  { return d.line(pos, "decimal64 %s", v) }
func (d *DumpHandler) OnDecimal128(pos int, v Decimal) error { return d.line(pos, "decimal128 %s", v) }

func (d *DumpHandler) OnBoolean(pos int, v bool) error { return d.line(pos, "boolean %t", v) }
func (d *DumpHandler) OnOctet(pos int, v byte) error   { return d.line(pos, "octet 0x%02X", v) }

func (d *DumpHandler) OnOctetString(pos int, v []byte) error {
	return d.line(pos, "octet-string(%d) %s", len(v), hex.EncodeToString(v))
}

func (d *DumpHandler) OnChar(pos int, v rune) error         { return d.line(pos, "char %q", v) }
func (d *DumpHandler) OnCharString(pos int, v string) error { return d.line(pos, "char-string %q", v) }

func (d *DumpHandler) OnDate(pos int, v RawDate) error { return d.line(pos, "date %s", v) }

func (d *DumpHandler) OnYearMonthInterval(pos int, v RawYearMonthInterval) error {
	return d.line(pos, "year-month-interval %dy%dm", v.Years, v.Months)
}

func (d *DumpHandler) OnTime(pos int, v RawTime) error { return d.line(pos, "time %s", v) }

func (d *DumpHandler) OnTimeInterval(pos int, v RawTimeInterval) error {
	return d.line(pos, "time-interval %s", v.Duration())
}

func (d *DumpHandler) OnDateTime(pos int, v RawDateTime) error { return d.line(pos, "datetime %s", v) }

func (d *DumpHandler) OnDayTimeInterval(pos int, v RawDayTimeInterval) error {
	return d.line(pos, "day-time-interval %dd %02d:%02d:%02d.%09d", v.Days, v.Hours, v.Minutes, v.Seconds, v.Nanos)
}

func (d *DumpHandler) BeginCollection(pos, count int) error {
	return d.begin(pos, "collection(%d)", count)
}

func (d *DumpHandler) BeginUniformCollection(pos, count, typ int) error {
	return d.begin(pos, "uniform-collection<%s>(%d)", TypeName(typ), count)
}

func (d *DumpHandler) BeginArray(pos, count int) error {
	return d.begin(pos, "array(%d)", count)
}

func (d *DumpHandler) BeginUniformArray(pos, count, typ int) error {
	return d.begin(pos, "uniform-array<%s>(%d)", TypeName(typ), count)
}

func (d *DumpHandler) BeginSparseArray(pos, count int) error {
	return d.begin(pos, "sparse-array(%d)", count)
}

func (d *DumpHandler) BeginUniformSparseArray(pos, count, typ int) error {
	return d.begin(pos, "uniform-sparse-array<%s>(%d)", TypeName(typ), count)
}

func (d *DumpHandler) BeginMap(pos, count int) error {
	return d.begin(pos, "map(%d)", count)
}

func (d *DumpHandler) BeginUniformKeysMap(pos, count, keyType int) error {
	return d.begin(pos, "uniform-keys-map<%s>(%d)", TypeName(keyType), count)
}

func (d *DumpHandler) BeginUniformMap(pos, count, keyType, valueType int) error {
	return d.begin(pos, "uniform-map<%s,%s>(%d)", TypeName(keyType), TypeName(valueType), count)
}

func (d *DumpHandler) BeginUserType(pos, typeID, version int) error {
	return d.begin(pos, "user-type %d v%d", typeID, version)
}

func (d *DumpHandler) EndComplexValue() error {
	if d.depth > 0 {
		d.depth--
	}
	return nil
}
