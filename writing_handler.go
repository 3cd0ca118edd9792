package pof

import (
	"math"
	"math/big"
)

// frame is the bookkeeping for one open complex value.
type frame struct {
	sparse  bool
	uniform bool
	typ     int

	// maps with a uniform key and/or value type alternate between the two
	isMap      bool
	key        bool
	valUniform bool
	valType    int
}

func (f *frame) onValue() {
	if f.isMap {
		f.key = !f.key
	}
}

func (f *frame) isUniform() bool {
	if f.isMap && !f.key {
		return f.valUniform
	}
	return f.uniform
}

func (f *frame) uniformType() int {
	if f.isMap && !f.key {
		return f.valType
	}
	return f.typ
}

// WritingHandler is a Handler that encodes every event it receives into
// the most compact form the context allows. Driving it from a Parser
// re-encodes a stream.
type WritingHandler struct {
	buf    []byte
	frames []frame

	// hasIdentity is set from RegisterIdentity until the next position is
	// encoded; pending is the id still to be written, or -1.
	hasIdentity bool
	pending     int
}

// NewWritingHandler returns a handler that appends to buf.
func NewWritingHandler(buf []byte) *WritingHandler {
	return &WritingHandler{buf: buf, pending: -1}
}

// Bytes returns the encoded stream.
func (w *WritingHandler) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *WritingHandler) Len() int { return len(w.buf) }

// Reset discards the written bytes and all open frames.
func (w *WritingHandler) Reset() {
	w.buf = w.buf[:0]
	w.frames = w.frames[:0]
	w.hasIdentity = false
	w.pending = -1
}

// Depth returns the number of open complex values.
func (w *WritingHandler) Depth() int { return len(w.frames) }

// appendRaw copies already encoded bytes to the output.
func (w *WritingHandler) appendRaw(b []byte) { w.buf = append(w.buf, b...) }

func (w *WritingHandler) top() *frame {
	if len(w.frames) == 0 {
		return nil
	}
	return &w.frames[len(w.frames)-1]
}

func (w *WritingHandler) push(f frame) { w.frames = append(w.frames, f) }

func (w *WritingHandler) writePacked(n int) { w.buf = appendPacked(w.buf, n) }

func (w *WritingHandler) isSkippable() bool {
	if w.hasIdentity {
		return false
	}
	f := w.top()
	return f != nil && f.sparse
}

func (w *WritingHandler) isCompressable() bool { return !w.hasIdentity }

// encodePosition writes the index of the next value when its container is
// sparse, followed by any identity registered for the value.
func (w *WritingHandler) encodePosition(pos int) {
	if f := w.top(); f != nil {
		f.onValue()
		if pos >= 0 && f.sparse {
			w.writePacked(pos)
		}
	}
	if w.pending >= 0 {
		w.writePacked(TIdentity)
		w.writePacked(w.pending)
		w.pending = -1
	}
	w.hasIdentity = false
}

// isTypeIDEncoded reports whether the value needs its own tag. Inside a
// uniform container the tag is implied and must match the declaration.
func (w *WritingHandler) isTypeIDEncoded(typ int) (bool, error) {
	f := w.top()
	if f == nil || !f.isUniform() {
		return true, nil
	}
	if typ != f.uniformType() && typ != TReference {
		return false, invariantViolation("%s in uniform %s context", TypeName(typ), TypeName(f.uniformType())).withTag(typ)
	}
	return false, nil
}

// nextType returns the declared type of the value about to be written
// into f, and whether one is declared at all.
func (f *frame) nextType() (int, bool) {
	if f.isMap && f.key {
		return f.valType, f.valUniform
	}
	return f.typ, f.uniform
}

func (w *WritingHandler) RegisterIdentity(id int) error {
	if id >= 0 && w.pending >= 0 {
		return invariantViolation(errDoubleIdentity)
	}
	if f := w.top(); id >= 0 && f != nil {
		// only a user type element can carry an identity in a uniform container
		if typ, ok := f.nextType(); ok && typ < 0 {
			return invariantViolation("identity on a uniform %s element", TypeName(typ)).withTag(typ)
		}
	}
	if id >= 0 {
		w.pending = id
	}
	w.hasIdentity = true
	return nil
}

func (w *WritingHandler) OnNullReference(pos int) error {
	if w.isSkippable() {
		return nil
	}
	w.encodePosition(pos)
	w.writePacked(VReferenceNull)
	return nil
}

func (w *WritingHandler) OnIdentityReference(pos, id int) error {
	w.encodePosition(pos)
	enc, err := w.isTypeIDEncoded(TReference)
	if err != nil {
		return err
	}
	if enc {
		w.writePacked(TReference)
	}
	w.writePacked(id)
	return nil
}

// beginScalar handles the position and tag of a scalar. It returns done
// when the value was skipped or fully written as a tiny value; tiny is noTiny
// when the value has no compact form.
func (w *WritingHandler) beginScalar(pos, typ int, isDefault bool, tiny int) (done bool, err error) {
	if isDefault && w.isSkippable() {
		return true, nil
	}
	compress := w.isCompressable()
	w.encodePosition(pos)

	enc, err := w.isTypeIDEncoded(typ)
	if err != nil || !enc {
		return false, err
	}
	if compress && tiny != noTiny {
		w.writePacked(tiny)
		return true, nil
	}
	w.writePacked(typ)
	return false, nil
}

// noTiny marks a value without a compact form; 0 is never a tiny tag.
const noTiny = 0

func tinyInt(n int64) int {
	if isTinyRange(n) {
		return EncodeTinyInt(int(n))
	}
	return noTiny
}

func tinyBig(n *big.Int) int {
	if n.IsInt64() {
		return tinyInt(n.Int64())
	}
	return noTiny
}

func (w *WritingHandler) OnInt16(pos int, v int16) error {
	done, err := w.beginScalar(pos, TInt16, v == 0, tinyInt(int64(v)))
	if err == nil && !done {
		w.writePacked(int(v))
	}
	return err
}

func (w *WritingHandler) OnInt32(pos int, v int32) error {
	done, err := w.beginScalar(pos, TInt32, v == 0, tinyInt(int64(v)))
	if err == nil && !done {
		w.buf = AppendPackedInt32(w.buf, v)
	}
	return err
}

func (w *WritingHandler) OnInt64(pos int, v int64) error {
	done, err := w.beginScalar(pos, TInt64, v == 0, tinyInt(v))
	if err == nil && !done {
		w.buf = AppendPackedInt64(w.buf, v)
	}
	return err
}

func (w *WritingHandler) OnInt128(pos int, v *big.Int) error {
	if v == nil {
		v = new(big.Int)
	}
	if err := checkInt128(v); err != nil {
		return invariantViolation("%s", err)
	}
	done, err := w.beginScalar(pos, TInt128, v.Sign() == 0, tinyBig(v))
	if err != nil || done {
		return err
	}
	w.buf, err = appendPackedBig(w.buf, v)
	return err
}

// tinyFloat32 maps ±Inf, the canonical NaN and the integers -1..22 to
// their tiny tags. Negative zero keeps its full form.
func tinyFloat32(f float32) int {
	bits := math.Float32bits(f)
	if bits&0xFFFF != 0 {
		return noTiny
	}
	switch bits >> 16 {
	case 0xFF80:
		return VFPNegInfinity
	case 0x7F80:
		return VFPPosInfinity
	case 0x7FC0:
		return VFPNaN
	case 0x8000:
		return noTiny
	}
	if f == float32(int32(f)) {
		return tinyInt(int64(f))
	}
	return noTiny
}

func tinyFloat64(f float64) int {
	bits := math.Float64bits(f)
	if bits&0x0000FFFFFFFFFFFF != 0 {
		return noTiny
	}
	switch bits >> 48 {
	case 0xFFF0:
		return VFPNegInfinity
	case 0x7FF0:
		return VFPPosInfinity
	case 0x7FF8:
		return VFPNaN
	case 0x8000:
		return noTiny
	}
	if f == float64(int64(f)) {
		return tinyInt(int64(f))
	}
	return noTiny
}

func (w *WritingHandler) OnFloat32(pos int, v float32) error {
	done, err := w.beginScalar(pos, TFloat32, math.Float32bits(v) == 0, tinyFloat32(v))
	if err == nil && !done {
		w.buf = appendUint32(w.buf, math.Float32bits(v))
	}
	return err
}

func (w *WritingHandler) OnFloat64(pos int, v float64) error {
	done, err := w.beginScalar(pos, TFloat64, math.Float64bits(v) == 0, tinyFloat64(v))
	if err == nil && !done {
		w.buf = appendUint64(w.buf, math.Float64bits(v))
	}
	return err
}

func (w *WritingHandler) OnFloat128(pos int, v RawQuad) error {
	done, err := w.beginScalar(pos, TFloat128, v == RawQuad{}, noTiny)
	if err == nil && !done {
		w.buf = append(w.buf, v[:]...)
	}
	return err
}

func (w *WritingHandler) onDecimal(pos, typ, size int, v Decimal) error {
	if err := checkDecimalRange(v, size); err != nil {
		return invariantViolation("%s", err).withTag(typ)
	}
	tiny := noTiny
	if v.Scale == 0 {
		tiny = tinyBig(v.unscaled())
	}
	done, err := w.beginScalar(pos, typ, v.IsZero(), tiny)
	if err != nil || done {
		return err
	}
	w.buf, err = appendDecimal(w.buf, v)
	return err
}

func (w *WritingHandler) OnDecimal32(pos int, v Decimal) error {
	return w.onDecimal(pos, TDecimal32, 4, v)
}

func (w *WritingHandler) OnDecimal64(pos int, v Decimal) error {
	return w.onDecimal(pos, TDecimal64, 8, v)
}

func (w *WritingHandler) OnDecimal128(pos int, v Decimal) error {
	return w.onDecimal(pos, TDecimal128, 16, v)
}

func (w *WritingHandler) OnBoolean(pos int, v bool) error {
	tiny := VBooleanFalse
	if v {
		tiny = VBooleanTrue
	}
	done, err := w.beginScalar(pos, TBoolean, !v, tiny)
	if err == nil && !done {
		if v {
			w.writePacked(1)
		} else {
			w.writePacked(0)
		}
	}
	return err
}

func (w *WritingHandler) OnOctet(pos int, v byte) error {
	tiny := noTiny
	switch {
	case v <= 22:
		tiny = EncodeTinyInt(int(v))
	case v == 0xFF:
		tiny = VIntNeg1
	}
	done, err := w.beginScalar(pos, TOctet, v == 0, tiny)
	if err == nil && !done {
		w.buf = append(w.buf, v)
	}
	return err
}

func (w *WritingHandler) OnOctetString(pos int, v []byte) error {
	tiny := noTiny
	if len(v) == 0 {
		tiny = VStringZeroLength
	}
	done, err := w.beginScalar(pos, TOctetString, len(v) == 0, tiny)
	if err == nil && !done {
		w.writePacked(len(v))
		w.buf = append(w.buf, v...)
	}
	return err
}

func (w *WritingHandler) OnChar(pos int, v rune) error {
	if err := checkChar(v); err != nil {
		return invariantViolation("%s", err).withTag(TChar)
	}
	tiny := noTiny
	switch {
	case v <= 22:
		tiny = EncodeTinyInt(int(v))
	case v == 0xFFFF:
		tiny = VIntNeg1
	}
	done, err := w.beginScalar(pos, TChar, v == 0, tiny)
	if err == nil && !done {
		w.buf = appendChar(w.buf, v)
	}
	return err
}

func (w *WritingHandler) OnCharString(pos int, v string) error {
	tiny := noTiny
	if v == "" {
		tiny = VStringZeroLength
	}
	done, err := w.beginScalar(pos, TCharString, v == "", tiny)
	if err == nil && !done {
		w.writePacked(utfLen(v))
		w.buf = appendUTF(w.buf, v)
	}
	return err
}

// beginTyped handles the position and tag of a value that has neither a
// default to skip nor a compact form.
func (w *WritingHandler) beginTyped(pos, typ int) error {
	w.encodePosition(pos)
	enc, err := w.isTypeIDEncoded(typ)
	if err == nil && enc {
		w.writePacked(typ)
	}
	return err
}

func (w *WritingHandler) OnDate(pos int, v RawDate) error {
	if err := w.beginTyped(pos, TDate); err != nil {
		return err
	}
	w.buf = appendRawDate(w.buf, v)
	return nil
}

func (w *WritingHandler) OnYearMonthInterval(pos int, v RawYearMonthInterval) error {
	if err := w.beginTyped(pos, TYearMonthInterval); err != nil {
		return err
	}
	w.writePacked(v.Years)
	w.writePacked(v.Months)
	return nil
}

func (w *WritingHandler) OnTime(pos int, v RawTime) error {
	if err := w.beginTyped(pos, TTime); err != nil {
		return err
	}
	w.buf = appendRawTime(w.buf, v)
	return nil
}

func (w *WritingHandler) OnTimeInterval(pos int, v RawTimeInterval) error {
	if err := w.beginTyped(pos, TTimeInterval); err != nil {
		return err
	}
	w.writePacked(v.Hours)
	w.writePacked(v.Minutes)
	w.writePacked(v.Seconds)
	w.writePacked(v.Nanos)
	return nil
}

func (w *WritingHandler) OnDateTime(pos int, v RawDateTime) error {
	if err := w.beginTyped(pos, TDateTime); err != nil {
		return err
	}
	w.buf = appendRawDate(w.buf, v.Date)
	w.buf = appendRawTime(w.buf, v.Time)
	return nil
}

func (w *WritingHandler) OnDayTimeInterval(pos int, v RawDayTimeInterval) error {
	if err := w.beginTyped(pos, TDayTimeInterval); err != nil {
		return err
	}
	w.writePacked(v.Days)
	w.writePacked(v.Hours)
	w.writePacked(v.Minutes)
	w.writePacked(v.Seconds)
	w.writePacked(v.Nanos)
	return nil
}

// beginComplex writes the header of a container: the position, then either
// the tag and the declared types, or the empty collection tiny value. An
// empty container in a sparse context is skipped altogether. The frame is
// pushed in every case so EndComplexValue always has one to pop.
func (w *WritingHandler) beginComplex(pos, count, typ int, f frame, header ...int) error {
	if count < 0 {
		return invariantViolation("%s: %d", errBadCount, count).withTag(typ)
	}
	if count == 0 && w.isSkippable() {
		w.push(frame{})
		return nil
	}

	compress := w.isCompressable()
	w.encodePosition(pos)

	enc, err := w.isTypeIDEncoded(typ)
	if err != nil {
		return err
	}
	if enc {
		if count == 0 && compress {
			w.writePacked(VCollectionEmpty)
			// nothing follows, so neither elements nor a terminator
			w.push(frame{uniform: f.uniform, typ: f.typ})
			return nil
		}
		w.writePacked(typ)
	}
	for _, t := range header {
		w.writePacked(t)
	}
	w.writePacked(count)
	w.push(f)
	return nil
}

func (w *WritingHandler) BeginCollection(pos, count int) error {
	return w.beginComplex(pos, count, TCollection, frame{})
}

func (w *WritingHandler) BeginUniformCollection(pos, count, typ int) error {
	return w.beginComplex(pos, count, TUniformCollection, frame{uniform: true, typ: typ}, typ)
}

func (w *WritingHandler) BeginArray(pos, count int) error {
	return w.beginComplex(pos, count, TArray, frame{})
}

func (w *WritingHandler) BeginUniformArray(pos, count, typ int) error {
	return w.beginComplex(pos, count, TUniformArray, frame{uniform: true, typ: typ}, typ)
}

func (w *WritingHandler) BeginSparseArray(pos, count int) error {
	return w.beginComplex(pos, count, TSparseArray, frame{sparse: true})
}

func (w *WritingHandler) BeginUniformSparseArray(pos, count, typ int) error {
	return w.beginComplex(pos, count, TUniformSparseArray, frame{sparse: true, uniform: true, typ: typ}, typ)
}

func (w *WritingHandler) BeginMap(pos, count int) error {
	return w.beginComplex(pos, count, TMap, frame{})
}

func (w *WritingHandler) BeginUniformKeysMap(pos, count, keyType int) error {
	f := frame{isMap: true, uniform: true, typ: keyType}
	return w.beginComplex(pos, count, TUniformKeysMap, f, keyType)
}

func (w *WritingHandler) BeginUniformMap(pos, count, keyType, valueType int) error {
	f := frame{isMap: true, uniform: true, typ: keyType, valUniform: true, valType: valueType}
	return w.beginComplex(pos, count, TUniformMap, f, keyType, valueType)
}

func (w *WritingHandler) BeginUserType(pos, typeID, version int) error {
	return w.BeginUserTypeWithIdentity(pos, -1, typeID, version)
}

// BeginUserTypeWithIdentity begins a user type and registers id for it in
// one step; id -1 registers nothing. The first property of a user type is
// never skipped or compacted.
func (w *WritingHandler) BeginUserTypeWithIdentity(pos, id, typeID, version int) error {
	if typeID < 0 {
		return invariantViolation("illegal user type id %d", typeID)
	}
	if version < 0 {
		return invariantViolation("illegal version %d", version).withTag(typeID)
	}
	if id >= 0 && w.pending >= 0 {
		return invariantViolation(errDoubleIdentity)
	}

	w.encodePosition(pos)
	if id >= 0 {
		w.writePacked(TIdentity)
		w.writePacked(id)
	}
	w.hasIdentity = true

	enc, err := w.isTypeIDEncoded(typeID)
	if err != nil {
		return err
	}
	if enc {
		w.writePacked(typeID)
	}
	w.writePacked(version)
	w.push(frame{sparse: true})
	return nil
}

func (w *WritingHandler) EndComplexValue() error {
	f := w.top()
	if f == nil {
		return invariantViolation(errNoFrame)
	}
	if f.sparse {
		w.writePacked(-1)
	}
	w.frames = w.frames[:len(w.frames)-1]
	return nil
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func appendUint64(b []byte, v uint64) []byte {
	return append(b, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
