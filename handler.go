package pof

import "math/big"

// Handler receives the structural events of a POF stream. A Parser drives
// a Handler from encoded bytes; a WritingHandler turns events back into
// bytes. Any error returned by a method aborts the producer and is returned
// to its caller unchanged.
//
// pos is the property index inside a user type, the element index inside
// an array, collection or map, or -1 for a top level value.
type Handler interface {
	RegisterIdentity(id int) error
	OnNullReference(pos int) error
	OnIdentityReference(pos, id int) error

	OnInt16(pos int, v int16) error
	OnInt32(pos int, v int32) error
	OnInt64(pos int, v int64) error
	OnInt128(pos int, v *big.Int) error
	OnFloat32(pos int, v float32) error
	OnFloat64(pos int, v float64) error
	OnFloat128(pos int, v RawQuad) error
	OnDecimal32(pos int, v Decimal) error
	OnDecimal64(pos int, v Decimal) error
	OnDecimal128(pos int, v Decimal) error
	OnBoolean(pos int, v bool) error
	OnOctet(pos int, v byte) error
	OnOctetString(pos int, v []byte) error
	OnChar(pos int, v rune) error
	OnCharString(pos int, v string) error

	OnDate(pos int, v RawDate) error
	OnYearMonthInterval(pos int, v RawYearMonthInterval) error
	OnTime(pos int, v RawTime) error
	OnTimeInterval(pos int, v RawTimeInterval) error
	OnDateTime(pos int, v RawDateTime) error
	OnDayTimeInterval(pos int, v RawDayTimeInterval) error

	BeginCollection(pos, count int) error
	BeginUniformCollection(pos, count, typ int) error
	BeginArray(pos, count int) error
	BeginUniformArray(pos, count, typ int) error
	BeginSparseArray(pos, count int) error
	BeginUniformSparseArray(pos, count, typ int) error
	BeginMap(pos, count int) error
	BeginUniformKeysMap(pos, count, keyType int) error
	BeginUniformMap(pos, count, keyType, valueType int) error
	BeginUserType(pos, typeID, version int) error
	EndComplexValue() error
}

// NopHandler ignores every event. Embed it to implement only the events
// of interest.
type NopHandler struct{}

func (NopHandler) RegisterIdentity(int) error                          { return nil }
func (NopHandler) OnNullReference(int) error                           { return nil }
func (NopHandler) OnIdentityReference(int, int) error                  { return nil }
func (NopHandler) OnInt16(int, int16) error                            { return nil }
func (NopHandler) OnInt32(int, int32) error                            { return nil }
func (NopHandler) OnInt64(int, int64) error                            { return nil }
func (NopHandler) OnInt128(int, *big.Int) error                        { return nil }
func (NopHandler) OnFloat32(int, float32) error                        { return nil }
func (NopHandler) OnFloat64(int, float64) error                        { return nil }
func (NopHandler) OnFloat128(int, RawQuad) error                       { return nil }
func (NopHandler) OnDecimal32(int, Decimal) error                      { return nil }
func (NopHandler) OnDecimal64(int, Decimal) error                      { return nil }
func (NopHandler) OnDecimal128(int, Decimal) error                     { return nil }
func (NopHandler) OnBoolean(int, bool) error                           { return nil }
func (NopHandler) OnOctet(int, byte) error                             { return nil }
func (NopHandler) OnOctetString(int, []byte) error                     { return nil }
func (NopHandler) OnChar(int, rune) error                              { return nil }
func (NopHandler) OnCharString(int, string) error                      { return nil }
func (NopHandler) OnDate(int, RawDate) error                           { return nil }
func (NopHandler) OnYearMonthInterval(int, RawYearMonthInterval) error { return nil }
func (NopHandler) OnTime(int, RawTime) error                           { return nil }
func (NopHandler) OnTimeInterval(int, RawTimeInterval) error           { return nil }
func (NopHandler) OnDateTime(int, RawDateTime) error                   { return nil }
func (NopHandler) OnDayTimeInterval(int, RawDayTimeInterval) error     { return nil }
func (NopHandler) BeginCollection(int, int) error                      { return nil }
func (NopHandler) BeginUniformCollection(int, int, int) error          { return nil }
func (NopHandler) BeginArray(int, int) error                           { return nil }
func (NopHandler) BeginUniformArray(int, int, int) error               { return nil }
func (NopHandler) BeginSparseArray(int, int) error                     { return nil }
func (NopHandler) BeginUniformSparseArray(int, int, int) error         { return nil }
func (NopHandler) BeginMap(int, int) error                             { return nil }
func (NopHandler) BeginUniformKeysMap(int, int, int) error             { return nil }
func (NopHandler) BeginUniformMap(int, int, int, int) error            { return nil }
func (NopHandler) BeginUserType(int, int, int) error                   { return nil }
func (NopHandler) EndComplexValue() error                              { return nil }

// DuplexHandler sends every event to First and then to Second, stopping
// at the first error.
type DuplexHandler struct {
	First, Second Handler
}

// NewDuplexHandler returns a handler that feeds both a and b.
func NewDuplexHandler(a, b Handler) *DuplexHandler {
	return &DuplexHandler{First: a, Second: b}
}

func (d *DuplexHandler) both(f func(h Handler) error) error {
	if err := f(d.First); err != nil {
		return err
	}
	return f(d.Second)
}

func (d *DuplexHandler) RegisterIdentity(id int) error {
	return d.both(func(h Handler) error { return h.RegisterIdentity(id) })
}

func (d *DuplexHandler) OnNullReference(pos int) error {
	return d.both(func(h Handler) error { return h.OnNullReference(pos) })
}

func (d *DuplexHandler) OnIdentityReference(pos, id int) error {
	return d.both(func(h Handler) error { return h.OnIdentityReference(pos, id) })
}

func (d *DuplexHandler) OnInt16(pos int, v int16) error {
	return d.both(func(h Handler) error { return h.OnInt16(pos, v) })
}

func (d *DuplexHandler) OnInt32(pos int, v int32) error {
	return d.both(func(h Handler) error { return h.OnInt32(pos, v) })
}

func (d *DuplexHandler) OnInt64(pos int, v int64) error {
	return d.both(func(h Handler) error { return h.OnInt64(pos, v) })
}

func (d *DuplexHandler) OnInt128(pos int, v *big.Int) error {
	return d.both(func(h Handler) error { return h.OnInt128(pos, v) })
}

func (d *DuplexHandler) OnFloat32(pos int, v float32) error {
	return d.both(func(h Handler) error { return h.OnFloat32(pos, v) })
}

func (d *DuplexHandler) OnFloat64(pos int, v float64) error {
	return d.both(func(h Handler) error { return h.OnFloat64(pos, v) })
}

func (d *DuplexHandler) OnFloat128(pos int, v RawQuad) error {
	return d.both(func(h Handler) error { return h.OnFloat128(pos, v) })
}

func (d *DuplexHandler) OnDecimal32(pos int, v Decimal) error {
	return d.both(func(h Handler) error { return h.OnDecimal32(pos, v) })
}

func (d *DuplexHandler) OnDecimal64(pos int, v Decimal) error {
	return d.both(func(h Handler) error { return h.OnDecimal64(pos, v) })
}

func (d *DuplexHandler) OnDecimal128(pos int, v Decimal) error {
	return d.both(func(h Handler) error { return h.OnDecimal128(pos, v) })
}

func (d *DuplexHandler) OnBoolean(pos int, v bool) error {
	return d.both(func(h Handler) error { return h.OnBoolean(pos, v) })
}

func (d *DuplexHandler) OnOctet(pos int, v byte) error {
	return d.both(func(h Handler) error { return h.OnOctet(pos, v) })
}

func (d *DuplexHandler) OnOctetString(pos int, v []byte) error {
	return d.both(func(h Handler) error { return h.OnOctetString(pos, v) })
}

func (d *DuplexHandler) OnChar(pos int, v rune) error {
	return d.both(func(h Handler) error { return h.OnChar(pos, v) })
}

func (d *DuplexHandler) OnCharString(pos int, v string) error {
	return d.both(func(h Handler) error { return h.OnCharString(pos, v) })
}

func (d *DuplexHandler) OnDate(pos int, v RawDate) error {
	return d.both(func(h Handler) error { return h.OnDate(pos, v) })
}

func (d *DuplexHandler) OnYearMonthInterval(pos int, v RawYearMonthInterval) error {
	return d.both(func(h Handler) error { return h.OnYearMonthInterval(pos, v) })
}

func (d *DuplexHandler) OnTime(pos int, v RawTime) error {
	return d.both(func(h Handler) error { return h.OnTime(pos, v) })
}

func (d *DuplexHandler) OnTimeInterval(pos int, v RawTimeInterval) error {
	return d.both(func(h Handler) error { return h.OnTimeInterval(pos, v) })
}

func (d *DuplexHandler) OnDateTime(pos int, v RawDateTime) error {
	return d.both(func(h Handler) error { return h.OnDateTime(pos, v) })
}

func (d *DuplexHandler) OnDayTimeInterval(pos int, v RawDayTimeInterval) error {
	return d.both(func(h Handler) error { return h.OnDayTimeInterval(pos, v) })
}

func (d *DuplexHandler) BeginCollection(pos, count int) error {
	return d.both(func(h Handler) error { return h.BeginCollection(pos, count) })
}

func (d *DuplexHandler) BeginUniformCollection(pos, count, typ int) error {
	return d.both(func(h Handler) error { return h.BeginUniformCollection(pos, count, typ) })
}

func (d *DuplexHandler) BeginArray(pos, count int) error {
	return d.both(func(h Handler) error { return h.BeginArray(pos, count) })
}

func (d *DuplexHandler) BeginUniformArray(pos, count, typ int) error {
	return d.both(func(h Handler) error { return h.BeginUniformArray(pos, count, typ) })
}

func (d *DuplexHandler) BeginSparseArray(pos, count int) error {
	return d.both(func(h Handler) error { return h.BeginSparseArray(pos, count) })
}

func (d *DuplexHandler) BeginUniformSparseArray(pos, count, typ int) error {
	return d.both(func(h Handler) error { return h.BeginUniformSparseArray(pos, count, typ) })
}

func (d *DuplexHandler) BeginMap(pos, count int) error {
	return d.both(func(h Handler) error { return h.BeginMap(pos, count) })
}

func (d *DuplexHandler) BeginUniformKeysMap(pos, count, keyType int) error {
	return d.both(func(h Handler) error { return h.BeginUniformKeysMap(pos, count, keyType) })
}

func (d *DuplexHandler) BeginUniformMap(pos, count, keyType, valueType int) error {
	return d.both(func(h Handler) error { return h.BeginUniformMap(pos, count, keyType, valueType) })
}

func (d *DuplexHandler) BeginUserType(pos, typeID, version int) error {
	return d.both(func(h Handler) error { return h.BeginUserType(pos, typeID, version) })
}

func (d *DuplexHandler) EndComplexValue() error {
	return d.both(func(h Handler) error { return h.EndComplexValue() })
}
