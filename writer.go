package pof

import (
	"math/big"
	"reflect"
	"time"
)

// Writer writes the properties of one user type, or the root value of a
// stream, by index. Indices of a user type must increase.
type Writer interface {
	WriteBool(i int, v bool) error
	WriteOctet(i int, v byte) error
	WriteChar(i int, v rune) error
	WriteInt16(i int, v int16) error
	WriteInt32(i int, v int32) error
	WriteInt64(i int, v int64) error
	WriteInt128(i int, v *big.Int) error
	WriteFloat32(i int, v float32) error
	WriteFloat64(i int, v float64) error
	WriteRawQuad(i int, v RawQuad) error
	WriteDecimal(i int, v Decimal) error

	WriteBinary(i int, v []byte) error
	WriteString(i int, v string) error

	WriteRawDate(i int, v RawDate) error
	WriteRawTime(i int, v RawTime) error
	WriteRawDateTime(i int, v RawDateTime) error
	WriteDate(i int, v time.Time) error
	WriteDateTime(i int, v time.Time) error
	WriteYearMonthInterval(i int, v RawYearMonthInterval) error
	WriteTimeInterval(i int, v RawTimeInterval) error
	WriteDayTimeInterval(i int, v RawDayTimeInterval) error

	WriteBoolArray(i int, v []bool) error
	WriteInt16Array(i int, v []int16) error
	WriteInt32Array(i int, v []int32) error
	WriteInt64Array(i int, v []int64) error
	WriteFloat32Array(i int, v []float32) error
	WriteFloat64Array(i int, v []float64) error
	WriteCharArray(i int, v []Char) error

	WriteObject(i int, v interface{}) error
	WriteArray(i int, v []interface{}) error
	WriteCollection(i int, v Collection) error
	WriteUniformCollection(i int, v Collection, elemType int) error
	WriteMap(i int, v Map) error
	WriteSparseArray(i int, v SparseArray) error

	Context() Context
	UserTypeID() int
	VersionID() int

	// SetVersionID sets the version written for this user type. It must
	// be called before the first property is written.
	SetVersionID(v int) error

	// CreateNestedWriter opens a user type of the same type id at property
	// i. It is closed by the next property access on the parent.
	CreateNestedWriter(i int) (Writer, error)
	CreateNestedWriterType(i, typeID int) (Writer, error)

	// WriteRemainder appends properties captured by Reader.ReadRemainder
	// and terminates the user type.
	WriteRemainder(b []byte) error
}

// references numbers user type pointers for one stream.
type references struct {
	ids map[interface{}]int
	n   int
}

func (l *references) register(v interface{}) int {
	l.n++
	l.ids[v] = l.n
	return l.n
}

// BufferWriter encodes through a WritingHandler.
type BufferWriter struct {
	h      *WritingHandler
	ctx    Context
	parent *BufferWriter
	refs   *references

	// evolvable is set inside evolvable types, where references are not
	// written
	evolvable bool

	user     bool
	typeID   int
	version  int
	pos      int
	id       int
	prevProp int
	begun    bool
	ended    bool
	depth    int

	nested *BufferWriter
}

var _ Writer = (*BufferWriter)(nil)

// NewBufferWriter returns a writer for the root value.
func NewBufferWriter(h *WritingHandler, ctx Context) *BufferWriter {
	w := &BufferWriter{h: h, ctx: ctx, typeID: -1, id: -1, prevProp: -1}
	if ctx != nil && ctx.ReferencesEnabled() {
		w.refs = &references{ids: make(map[interface{}]int)}
	}
	return w
}

func newUserTypeWriter(parent *BufferWriter, typeID, pos, id int) *BufferWriter {
	return &BufferWriter{
		h:         parent.h,
		ctx:       parent.ctx,
		parent:    parent,
		refs:      parent.refs,
		evolvable: parent.evolvable,
		user:      true,
		typeID:    typeID,
		pos:       pos,
		id:        id,
		prevProp:  -1,
	}
}

func (w *BufferWriter) Context() Context { return w.ctx }
func (w *BufferWriter) UserTypeID() int  { return w.typeID }
func (w *BufferWriter) VersionID() int   { return w.version }

// Handler returns the handler this writer encodes through.
func (w *BufferWriter) Handler() *WritingHandler { return w.h }

func (w *BufferWriter) do(fn func()) (err error) {
	defer func() {
		if err != nil && w.user {
			w.ended = true
		}
	}()
	defer recoverError(&err)

	fn()
	return nil
}

func (w *BufferWriter) check(err error) {
	if err != nil {
		fail(err)
	}
}

func (w *BufferWriter) SetVersionID(v int) error {
	return w.do(func() {
		switch {
		case !w.user:
			panic(protocolViolation("not in a user type"))
		case v < 0:
			panic(protocolViolation("negative version identifier: %d", v))
		case w.begun:
			panic(protocolViolation("version of user type %d set after its properties", w.typeID))
		}
		w.version = v
	})
}

// writeUserTypeInfo writes the user type header before the first property.
func (w *BufferWriter) writeUserTypeInfo() {
	if w.ended {
		panic(protocolViolation("user type %d stream terminated", w.typeID))
	}
	if !w.begun {
		w.check(w.h.BeginUserTypeWithIdentity(w.pos, w.id, w.typeID, w.version))
		w.begun = true
		w.depth = w.h.Depth()
	}
}

func (w *BufferWriter) beginProperty(i int) {
	if !w.user {
		if i > 0 && w.h.Depth() == 0 {
			panic(protocolViolation("property %d written outside a complex value", i))
		}
		return
	}

	w.closeNested()
	if i < 0 {
		panic(protocolViolation("negative property index: %d", i))
	}
	w.writeUserTypeInfo()
	if w.h.Depth() == w.depth && i <= w.prevProp {
		panic(protocolViolation("previous property index=%d, requested property index=%d while writing user type %d",
			w.prevProp, i, w.typeID))
	}
}

func (w *BufferWriter) endProperty(i int) {
	if w.user && w.h.Depth() == w.depth {
		w.prevProp = i
	}
}

func (w *BufferWriter) closeNested() {
	n := w.nested
	if n == nil {
		return
	}
	n.close()
	w.nested = nil
	w.endProperty(n.pos)
}

// close terminates the user type unless WriteRemainder already did.
func (w *BufferWriter) close() {
	w.closeNested()
	if !w.ended {
		w.writeUserTypeInfo()
		w.check(w.h.EndComplexValue())
		w.ended = true
	}
}

func (w *BufferWriter) WriteRemainder(b []byte) error {
	return w.do(func() {
		if !w.user {
			panic(protocolViolation("not in a user type"))
		}
		w.closeNested()
		w.writeUserTypeInfo()
		if len(b) > 0 {
			w.h.appendRaw(b)
		}
		w.check(w.h.EndComplexValue())
		w.ended = true
	})
}

func (w *BufferWriter) CreateNestedWriter(i int) (Writer, error) {
	return w.CreateNestedWriterType(i, w.typeID)
}

func (w *BufferWriter) CreateNestedWriterType(i, typeID int) (nw Writer, err error) {
	err = w.do(func() {
		if !w.user {
			panic(protocolViolation("not in a user type"))
		}
		if typeID < 0 {
			panic(protocolViolation("negative user type id %d", typeID))
		}
		w.beginProperty(i)
		w.check(w.h.RegisterIdentity(-1))
		n := newUserTypeWriter(w, typeID, i, -1)
		w.nested = n
		nw = n
	})
	return
}

// scalar writes one value at i. ref marks the value as referenceable,
// which keeps it from being skipped or compacted.
func (w *BufferWriter) scalar(i int, ref bool, fn func() error) {
	w.beginProperty(i)
	if ref {
		w.check(w.h.RegisterIdentity(-1))
	}
	w.check(fn())
	w.endProperty(i)
}

func (w *BufferWriter) null(i int) {
	w.scalar(i, false, func() error { return w.h.OnNullReference(i) })
}

func (w *BufferWriter) WriteBool(i int, v bool) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnBoolean(i, v) }) })
}

func (w *BufferWriter) WriteOctet(i int, v byte) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnOctet(i, v) }) })
}

func (w *BufferWriter) WriteChar(i int, v rune) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnChar(i, v) }) })
}

func (w *BufferWriter) WriteInt16(i int, v int16) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnInt16(i, v) }) })
}

func (w *BufferWriter) WriteInt32(i int, v int32) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnInt32(i, v) }) })
}

func (w *BufferWriter) WriteInt64(i int, v int64) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnInt64(i, v) }) })
}

// WriteInt128 writes a null for a nil v.
func (w *BufferWriter) WriteInt128(i int, v *big.Int) error {
	return w.do(func() { w.writeInt128(i, v) })
}

func (w *BufferWriter) writeInt128(i int, v *big.Int) {
	if v == nil {
		w.null(i)
		return
	}
	w.scalar(i, false, func() error { return w.h.OnInt128(i, v) })
}

func (w *BufferWriter) WriteFloat32(i int, v float32) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnFloat32(i, v) }) })
}

func (w *BufferWriter) WriteFloat64(i int, v float64) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnFloat64(i, v) }) })
}

func (w *BufferWriter) WriteRawQuad(i int, v RawQuad) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnFloat128(i, v) }) })
}

// WriteDecimal uses the smallest decimal type that holds v.
func (w *BufferWriter) WriteDecimal(i int, v Decimal) error {
	return w.do(func() { w.writeDecimal(i, v) })
}

func (w *BufferWriter) writeDecimal(i int, v Decimal) {
	w.scalar(i, false, func() error {
		switch decimalClass(v) {
		case 4:
			return w.h.OnDecimal32(i, v)
		case 8:
			return w.h.OnDecimal64(i, v)
		case 16:
			return w.h.OnDecimal128(i, v)
		}
		return invariantViolation("decimal value exceeds IEEE754r 128-bit range: %s", v)
	})
}

// WriteBinary writes a null for a nil v.
func (w *BufferWriter) WriteBinary(i int, v []byte) error {
	return w.do(func() { w.writeBinary(i, v) })
}

func (w *BufferWriter) writeBinary(i int, v []byte) {
	if v == nil {
		w.null(i)
		return
	}
	w.scalar(i, false, func() error { return w.h.OnOctetString(i, v) })
}

func (w *BufferWriter) WriteString(i int, v string) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnCharString(i, v) }) })
}

func (w *BufferWriter) WriteRawDate(i int, v RawDate) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnDate(i, v) }) })
}

func (w *BufferWriter) WriteRawTime(i int, v RawTime) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnTime(i, v) }) })
}

func (w *BufferWriter) WriteRawDateTime(i int, v RawDateTime) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnDateTime(i, v) }) })
}

// WriteDate writes the calendar date of v; the zero time is a null.
func (w *BufferWriter) WriteDate(i int, v time.Time) error {
	return w.do(func() {
		if v.IsZero() {
			w.null(i)
			return
		}
		d := RawDate{Year: v.Year(), Month: int(v.Month()), Day: v.Day()}
		w.scalar(i, false, func() error { return w.h.OnDate(i, d) })
	})
}

// WriteDateTime writes v with its zone offset; the zero time is a null.
func (w *BufferWriter) WriteDateTime(i int, v time.Time) error {
	return w.do(func() { w.writeDateTime(i, v) })
}

func (w *BufferWriter) writeDateTime(i int, v time.Time) {
	if v.IsZero() {
		w.null(i)
		return
	}
	dt := RawDateTimeFromTime(v)
	w.scalar(i, false, func() error { return w.h.OnDateTime(i, dt) })
}

func (w *BufferWriter) WriteYearMonthInterval(i int, v RawYearMonthInterval) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnYearMonthInterval(i, v) }) })
}

func (w *BufferWriter) WriteTimeInterval(i int, v RawTimeInterval) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnTimeInterval(i, v) }) })
}

func (w *BufferWriter) WriteDayTimeInterval(i int, v RawDayTimeInterval) error {
	return w.do(func() { w.scalar(i, false, func() error { return w.h.OnDayTimeInterval(i, v) }) })
}

// uniformArray writes n elements of type et; each writes element j.
func (w *BufferWriter) uniformArray(i, n, et int, each func(j int) error) {
	w.beginProperty(i)
	w.check(w.h.RegisterIdentity(-1))
	w.check(w.h.BeginUniformArray(i, n, et))
	for j := 0; j < n; j++ {
		w.check(each(j))
	}
	w.check(w.h.EndComplexValue())
	w.endProperty(i)
}

func (w *BufferWriter) WriteBoolArray(i int, v []bool) error {
	return w.do(func() { w.writeBoolArray(i, v) })
}

func (w *BufferWriter) writeBoolArray(i int, v []bool) {
	if v == nil {
		w.null(i)
		return
	}
	w.uniformArray(i, len(v), TBoolean, func(j int) error { return w.h.OnBoolean(j, v[j]) })
}

func (w *BufferWriter) WriteInt16Array(i int, v []int16) error {
	return w.do(func() { w.writeInt16Array(i, v) })
}

func (w *BufferWriter) writeInt16Array(i int, v []int16) {
	if v == nil {
		w.null(i)
		return
	}
	w.uniformArray(i, len(v), TInt16, func(j int) error { return w.h.OnInt16(j, v[j]) })
}

func (w *BufferWriter) WriteInt32Array(i int, v []int32) error {
	return w.do(func() { w.writeInt32Array(i, v) })
}

func (w *BufferWriter) writeInt32Array(i int, v []int32) {
	if v == nil {
		w.null(i)
		return
	}
	w.uniformArray(i, len(v), TInt32, func(j int) error { return w.h.OnInt32(j, v[j]) })
}

func (w *BufferWriter) WriteInt64Array(i int, v []int64) error {
	return w.do(func() { w.writeInt64Array(i, v) })
}

func (w *BufferWriter) writeInt64Array(i int, v []int64) {
	if v == nil {
		w.null(i)
		return
	}
	w.uniformArray(i, len(v), TInt64, func(j int) error { return w.h.OnInt64(j, v[j]) })
}

func (w *BufferWriter) WriteFloat32Array(i int, v []float32) error {
	return w.do(func() { w.writeFloat32Array(i, v) })
}

func (w *BufferWriter) writeFloat32Array(i int, v []float32) {
	if v == nil {
		w.null(i)
		return
	}
	w.uniformArray(i, len(v), TFloat32, func(j int) error { return w.h.OnFloat32(j, v[j]) })
}

func (w *BufferWriter) WriteFloat64Array(i int, v []float64) error {
	return w.do(func() { w.writeFloat64Array(i, v) })
}

func (w *BufferWriter) writeFloat64Array(i int, v []float64) {
	if v == nil {
		w.null(i)
		return
	}
	w.uniformArray(i, len(v), TFloat64, func(j int) error { return w.h.OnFloat64(j, v[j]) })
}

func (w *BufferWriter) WriteCharArray(i int, v []Char) error {
	return w.do(func() { w.writeCharArray(i, v) })
}

func (w *BufferWriter) writeCharArray(i int, v []Char) {
	if v == nil {
		w.null(i)
		return
	}
	w.uniformArray(i, len(v), TChar, func(j int) error { return w.h.OnChar(j, rune(v[j])) })
}

func (w *BufferWriter) WriteArray(i int, v []interface{}) error {
	return w.do(func() { w.writeElements(i, v, TArray) })
}

func (w *BufferWriter) WriteCollection(i int, v Collection) error {
	return w.do(func() { w.writeElements(i, v, TCollection) })
}

func (w *BufferWriter) writeElements(i int, v []interface{}, typ int) {
	if v == nil {
		w.null(i)
		return
	}
	w.beginProperty(i)
	w.check(w.h.RegisterIdentity(-1))
	if typ == TCollection {
		w.check(w.h.BeginCollection(i, len(v)))
	} else {
		w.check(w.h.BeginArray(i, len(v)))
	}
	for j, e := range v {
		w.writeObject(j, e)
	}
	w.check(w.h.EndComplexValue())
	w.endProperty(i)
}

// WriteUniformCollection writes v with every element of type elemType. A
// collection holding nil falls back to a plain collection.
func (w *BufferWriter) WriteUniformCollection(i int, v Collection, elemType int) error {
	return w.do(func() {
		for _, e := range v {
			if e == nil {
				w.writeElements(i, v, TCollection)
				return
			}
		}
		if v == nil {
			w.null(i)
			return
		}
		w.beginProperty(i)
		w.check(w.h.RegisterIdentity(-1))
		w.check(w.h.BeginUniformCollection(i, len(v), elemType))
		for j, e := range v {
			w.writeObject(j, e)
		}
		w.check(w.h.EndComplexValue())
		w.endProperty(i)
	})
}

func (w *BufferWriter) WriteMap(i int, v Map) error {
	return w.do(func() { w.writeMap(i, v) })
}

func (w *BufferWriter) writeMap(i int, v Map) {
	if v == nil {
		w.null(i)
		return
	}
	w.beginProperty(i)
	w.check(w.h.RegisterIdentity(-1))
	w.check(w.h.BeginMap(i, len(v)))
	for j, e := range v {
		w.writeObject(j, e.Key)
		w.writeObject(j, e.Value)
	}
	w.check(w.h.EndComplexValue())
	w.endProperty(i)
}

func (w *BufferWriter) WriteSparseArray(i int, v SparseArray) error {
	return w.do(func() { w.writeSparseArray(i, v) })
}

func (w *BufferWriter) writeSparseArray(i int, v SparseArray) {
	if v == nil {
		w.null(i)
		return
	}
	w.beginProperty(i)
	w.check(w.h.RegisterIdentity(-1))
	w.check(w.h.BeginSparseArray(i, v.Len()))
	for _, j := range v.Indices() {
		w.writeObject(j, v[j])
	}
	w.check(w.h.EndComplexValue())
	w.endProperty(i)
}

func (w *BufferWriter) WriteObject(i int, v interface{}) error {
	return w.do(func() { w.writeObject(i, v) })
}

func (w *BufferWriter) writeObject(i int, v interface{}) {
	switch x := v.(type) {
	case nil:
		w.scalar(i, true, func() error { return w.h.OnNullReference(i) })
	case bool:
		w.scalar(i, true, func() error { return w.h.OnBoolean(i, x) })
	case byte:
		w.scalar(i, true, func() error { return w.h.OnOctet(i, x) })
	case Char:
		w.scalar(i, true, func() error { return w.h.OnChar(i, rune(x)) })
	case int16:
		w.scalar(i, true, func() error { return w.h.OnInt16(i, x) })
	case int32:
		w.scalar(i, true, func() error { return w.h.OnInt32(i, x) })
	case int:
		w.scalar(i, true, func() error { return w.h.OnInt64(i, int64(x)) })
	case int64:
		w.scalar(i, true, func() error { return w.h.OnInt64(i, x) })
	case *big.Int:
		w.writeInt128(i, x)
	case float32:
		w.scalar(i, true, func() error { return w.h.OnFloat32(i, x) })
	case float64:
		w.scalar(i, true, func() error { return w.h.OnFloat64(i, x) })
	case RawQuad:
		w.scalar(i, false, func() error { return w.h.OnFloat128(i, x) })
	case Decimal:
		w.writeDecimal(i, x)
	case []byte:
		w.writeBinary(i, x)
	case string:
		w.scalar(i, false, func() error { return w.h.OnCharString(i, x) })
	case RawDate:
		w.scalar(i, false, func() error { return w.h.OnDate(i, x) })
	case RawTime:
		w.scalar(i, false, func() error { return w.h.OnTime(i, x) })
	case RawDateTime:
		w.scalar(i, false, func() error { return w.h.OnDateTime(i, x) })
	case RawYearMonthInterval:
		w.scalar(i, false, func() error { return w.h.OnYearMonthInterval(i, x) })
	case RawTimeInterval:
		w.scalar(i, false, func() error { return w.h.OnTimeInterval(i, x) })
	case RawDayTimeInterval:
		w.scalar(i, false, func() error { return w.h.OnDayTimeInterval(i, x) })
	case time.Time:
		w.writeDateTime(i, x)
	case time.Duration:
		ti := TimeIntervalFromDuration(x)
		w.scalar(i, false, func() error { return w.h.OnTimeInterval(i, ti) })
	case []bool:
		w.writeBoolArray(i, x)
	case []int16:
		w.writeInt16Array(i, x)
	case []int32:
		w.writeInt32Array(i, x)
	case []int64:
		w.writeInt64Array(i, x)
	case []float32:
		w.writeFloat32Array(i, x)
	case []float64:
		w.writeFloat64Array(i, x)
	case []Char:
		w.writeCharArray(i, x)
	case []interface{}:
		w.writeElements(i, x, TArray)
	case Collection:
		w.writeElements(i, x, TCollection)
	case SparseArray:
		w.writeSparseArray(i, x)
	case Map:
		w.writeMap(i, x)
	default:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			w.scalar(i, true, func() error { return w.h.OnNullReference(i) })
			return
		}
		w.writeUserType(i, v)
	}
}

func isEvolvable(v interface{}) bool {
	switch v.(type) {
	case Evolvable, PortableType:
		return true
	}
	return false
}

func (w *BufferWriter) writeUserType(i int, v interface{}) {
	if w.ctx == nil {
		panic(unknownType("no context for %T", v))
	}
	evolvable := w.evolvable || isEvolvable(v)

	w.beginProperty(i)
	id := -1
	if w.refs != nil && !evolvable && reflect.ValueOf(v).Kind() == reflect.Ptr {
		if ref, ok := w.refs.ids[v]; ok {
			w.check(w.h.OnIdentityReference(i, ref))
			w.endProperty(i)
			return
		}
		id = w.refs.register(v)
	}

	typeID, err := w.ctx.TypeID(v)
	w.check(err)
	s, err := w.ctx.Serializer(typeID)
	w.check(err)

	uw := newUserTypeWriter(w, typeID, i, id)
	uw.evolvable = evolvable
	w.check(s.Serialize(uw, v))
	uw.close()
	w.endProperty(i)
}
