package pof

import (
	"math"
	"math/big"
	"reflect"
	"time"
)

// Reader reads the properties of one user type, or the single root value
// of a stream, by index. Indices must be requested in increasing order;
// an index missing from the stream reads as the zero value of its type.
type Reader interface {
	ReadBool(i int) (bool, error)
	ReadOctet(i int) (byte, error)
	ReadChar(i int) (rune, error)
	ReadInt16(i int) (int16, error)
	ReadInt32(i int) (int32, error)
	ReadInt64(i int) (int64, error)
	ReadInt128(i int) (*big.Int, error)
	ReadFloat32(i int) (float32, error)
	ReadFloat64(i int) (float64, error)
	ReadRawQuad(i int) (RawQuad, error)
	ReadDecimal(i int) (Decimal, error)

	ReadBinary(i int) ([]byte, error)
	ReadString(i int) (string, error)

	ReadRawDate(i int) (RawDate, error)
	ReadRawTime(i int) (RawTime, error)
	ReadRawDateTime(i int) (RawDateTime, error)
	ReadDate(i int) (time.Time, error)
	ReadDateTime(i int) (time.Time, error)
	ReadYearMonthInterval(i int) (RawYearMonthInterval, error)
	ReadTimeInterval(i int) (RawTimeInterval, error)
	ReadDayTimeInterval(i int) (RawDayTimeInterval, error)

	ReadBoolArray(i int) ([]bool, error)
	ReadInt16Array(i int) ([]int16, error)
	ReadInt32Array(i int) ([]int32, error)
	ReadInt64Array(i int) ([]int64, error)
	ReadFloat32Array(i int) ([]float32, error)
	ReadFloat64Array(i int) ([]float64, error)
	ReadCharArray(i int) ([]Char, error)

	ReadArray(i int) ([]interface{}, error)
	ReadCollection(i int) (Collection, error)
	ReadMap(i int) (Map, error)
	ReadSparseArray(i int) (SparseArray, error)
	ReadObject(i int) (interface{}, error)

	Context() Context
	UserTypeID() int
	VersionID() int

	// RegisterIdentity binds the value being deserialized to the identity
	// the stream gave it, so that references inside its own properties
	// resolve. Serializers call it right after allocating the value.
	RegisterIdentity(v interface{}) error

	// CreateNestedReader returns a reader over the user type stored at
	// property i. The parent may not be used until the next property
	// access, which also finishes the nested reader.
	CreateNestedReader(i int) (Reader, error)

	// ReadRemainder returns the encoded index/value pairs of every
	// property not read yet, or nil if there are none.
	ReadRemainder() ([]byte, error)

	// NextPropertyIndex returns the index of the next property present in
	// the stream, or -1 at the end.
	NextPropertyIndex() (int, error)
}

// eops marks an exhausted property stream; it sorts after every index.
const eops = math.MaxInt32

// BufferReader reads an encoded stream. NewBufferReader returns a reader
// for the root value; user type readers are created as values are read.
type BufferReader struct {
	in     *input
	ctx    Context
	parent *BufferReader
	refs   map[int]interface{}

	user     bool
	typeID   int
	version  int
	prevProp int
	nextProp int
	offNext  int // offset of the index of nextProp

	nested     *BufferReader
	nestedProp int

	// identity the stream gave the value this reader deserializes, until
	// it is registered
	identity int
}

var _ Reader = (*BufferReader)(nil)

// NewBufferReader returns a reader over the value encoded in b.
func NewBufferReader(b []byte, ctx Context) *BufferReader {
	return &BufferReader{
		in:         newInput(b),
		ctx:        ctx,
		typeID:     -1,
		prevProp:   -1,
		nestedProp: -1,
		identity:   -1,
	}
}

// newUserTypeReader starts reading the properties of a user type whose
// type id and version have been consumed.
func newUserTypeReader(parent *BufferReader, typeID, version int) *BufferReader {
	r := &BufferReader{
		in:         parent.in,
		ctx:        parent.ctx,
		parent:     parent,
		user:       true,
		typeID:     typeID,
		version:    version,
		prevProp:   -1,
		nestedProp: -1,
		identity:   -1,
	}
	r.offNext = r.in.offset()
	r.nextProp = r.readIndex()
	return r
}

// Offset returns the current position in the stream.
func (r *BufferReader) Offset() int { return r.in.offset() }

func (r *BufferReader) Context() Context { return r.ctx }
func (r *BufferReader) UserTypeID() int  { return r.typeID }
func (r *BufferReader) VersionID() int   { return r.version }

func (r *BufferReader) do(fn func()) (err error) {
	defer recoverError(&err)
	fn()
	return nil
}

func (r *BufferReader) readIndex() int {
	if n := r.in.readPacked(); n >= 0 {
		return n
	}
	return eops
}

// advanceTo moves to property i, skipping anything before it, and reports
// whether the property is present.
func (r *BufferReader) advanceTo(i int) bool {
	if !r.user {
		if i > 0 {
			panic(protocolViolation("property %d requested outside a user type", i))
		}
		return true
	}

	r.closeNested()
	if i == -1 {
		i = eops
	}
	if i <= r.prevProp {
		panic(protocolViolation("previous property index=%d, requested property index=%d while reading user type %d",
			r.prevProp, i, r.typeID))
	}

	next, off := r.nextProp, r.offNext
	for next < i {
		skipValue(r.in)
		off = r.in.offset()
		next = r.readIndex()
	}
	r.nextProp, r.offNext = next, off
	return i == next
}

// complete finishes property i, reading the index of the one after it
// when i was present.
func (r *BufferReader) complete(i int) {
	if !r.user {
		return
	}
	if r.nextProp == i {
		r.offNext = r.in.offset()
		r.nextProp = r.readIndex()
	}
	r.prevProp = i
}

func (r *BufferReader) closeNested() {
	n := r.nested
	if n == nil {
		return
	}
	if n.nextProp != eops {
		n.readRemainder()
	}
	n.closeNested()
	r.nested = nil
	r.complete(r.nestedProp)
	r.nestedProp = -1
}

// finish consumes whatever a serializer left unread.
func (r *BufferReader) finish() {
	r.closeNested()
	if r.nextProp != eops {
		r.readRemainder()
	}
}

func (r *BufferReader) readRemainder() []byte {
	r.closeNested()
	if r.nextProp == eops {
		return nil
	}

	in := r.in
	begin, end := r.offNext, 0
	for {
		skipValue(in)
		end = in.offset()
		if in.readPacked() < 0 {
			break
		}
	}
	r.nextProp, r.offNext = eops, end
	return append([]byte(nil), in.buf[begin:end]...)
}

func (r *BufferReader) ReadRemainder() (b []byte, err error) {
	err = r.do(func() {
		if !r.user {
			panic(protocolViolation("not in a user type"))
		}
		b = r.readRemainder()
	})
	return
}

func (r *BufferReader) NextPropertyIndex() (i int, err error) {
	err = r.do(func() {
		r.closeNested()
		i = r.nextProp
		if i == eops || !r.user {
			i = -1
		}
	})
	return
}

func (r *BufferReader) CreateNestedReader(i int) (nr Reader, err error) {
	err = r.do(func() {
		if !r.user {
			panic(protocolViolation("not in a user type"))
		}
		var n *BufferReader
		if r.advanceTo(i) {
			off := r.in.offset()
			typeID := r.in.readPacked()
			if typeID < 0 {
				panic(malformed("property %d is not a user type", i).at(off).withTag(typeID))
			}
			version := r.in.readPacked()
			if version < 0 {
				panic(malformed("negative version %d", version).withTag(typeID))
			}
			n = newUserTypeReader(r, typeID, version)
		} else {
			r.complete(i)
			n = &BufferReader{in: r.in, ctx: r.ctx, parent: r, user: true,
				typeID: i, prevProp: -1, nextProp: eops, nestedProp: -1, identity: -1}
		}
		r.nested, r.nestedProp = n, i
		nr = n
	})
	return
}

func (r *BufferReader) identities() map[int]interface{} {
	if r.refs == nil {
		if r.parent != nil {
			r.refs = r.parent.identities()
		} else {
			r.refs = make(map[int]interface{})
		}
	}
	return r.refs
}

func (r *BufferReader) registerID(id int, v interface{}) {
	if id < 0 {
		return
	}
	refs := r.identities()
	if old, ok := refs[id]; ok && !identical(old, v) {
		panic(malformed("%s: %d", errDuplicateID, id))
	}
	refs[id] = v
}

func (r *BufferReader) lookupID(id int) interface{} {
	v, ok := r.identities()[id]
	if !ok {
		panic(malformed("%s: %d", errMissingID, id))
	}
	return v
}

func (r *BufferReader) RegisterIdentity(v interface{}) error {
	return r.do(func() {
		if id := r.identity; id >= 0 {
			r.identity = -1
			r.registerID(id, v)
		}
	})
}

func identical(a, b interface{}) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta == nil {
		return true
	}
	switch ta.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return reflect.DeepEqual(a, b)
}

func (r *BufferReader) convError(typ int, to string) *Error {
	return malformed("unable to convert %s to %s", TypeName(typ), to).at(r.in.offset()).withTag(typ)
}

// property moves to property i and, when it is present, hands its tag to
// fn. An identity prefix is registered against the value fn returns.
func (r *BufferReader) property(i int, fn func(typ int) interface{}) error {
	return r.do(func() {
		if r.advanceTo(i) {
			typ := r.in.readPacked()
			if typ == TIdentity {
				id := r.in.readPacked()
				r.registerID(id, fn(r.in.readPacked()))
			} else {
				fn(typ)
			}
		}
		r.complete(i)
	})
}

func refAs[T any](r *BufferReader) T {
	o := r.lookupID(r.in.readPacked())
	v, ok := o.(T)
	if !ok && o != nil {
		panic(malformed("reference to %T where %T was expected", o, v).at(r.in.offset()))
	}
	return v
}

func (r *BufferReader) asInt64(typ int) int64 {
	if typ == TReference {
		return int64Of(r.lookupID(r.in.readPacked()))
	}
	return readAsInt64(r.in, typ)
}

func (r *BufferReader) asFloat64(typ int) float64 {
	if typ == TReference {
		return float64Of(r.lookupID(r.in.readPacked()))
	}
	return readAsFloat64(r.in, typ)
}

func (r *BufferReader) asFloat32(typ int) float32 {
	if typ == TReference {
		return float32(float64Of(r.lookupID(r.in.readPacked())))
	}
	return readAsFloat32(r.in, typ)
}

func (r *BufferReader) asChar(typ int) rune {
	if typ == TReference {
		return rune(uint16(int64Of(r.lookupID(r.in.readPacked()))))
	}
	return readAsChar(r.in, typ)
}

func int64Of(o interface{}) int64 {
	switch x := o.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case byte:
		return int64(x)
	case Char:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case int:
		return int64(x)
	case float32:
		return int64(x)
	case float64:
		return int64(x)
	case *big.Int:
		return x.Int64()
	case Decimal:
		return x.Int64()
	}
	panic(malformed("reference to %T where a number was expected", o))
}

func float64Of(o interface{}) float64 {
	switch x := o.(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case Decimal:
		return x.Float64()
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	}
	return float64(int64Of(o))
}

func (r *BufferReader) ReadBool(i int) (v bool, err error) {
	err = r.property(i, func(typ int) interface{} {
		v = r.asInt64(typ) != 0
		return v
	})
	return
}

func (r *BufferReader) ReadOctet(i int) (v byte, err error) {
	err = r.property(i, func(typ int) interface{} {
		v = byte(r.asInt64(typ))
		return v
	})
	return
}

func (r *BufferReader) ReadChar(i int) (v rune, err error) {
	err = r.property(i, func(typ int) interface{} {
		v = r.asChar(typ)
		return Char(v)
	})
	return
}

func (r *BufferReader) ReadInt16(i int) (v int16, err error) {
	err = r.property(i, func(typ int) interface{} {
		v = int16(r.asInt64(typ))
		return v
	})
	return
}

func (r *BufferReader) ReadInt32(i int) (v int32, err error) {
	err = r.property(i, func(typ int) interface{} {
		v = int32(r.asInt64(typ))
		return v
	})
	return
}

func (r *BufferReader) ReadInt64(i int) (v int64, err error) {
	err = r.property(i, func(typ int) interface{} {
		v = r.asInt64(typ)
		return v
	})
	return
}

// ReadInt128 returns nil for an absent or null property.
func (r *BufferReader) ReadInt128(i int) (v *big.Int, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case VReferenceNull:
		case TReference:
			o := r.lookupID(r.in.readPacked())
			if n, ok := o.(*big.Int); ok {
				v = n
			} else if o != nil {
				v = big.NewInt(int64Of(o))
			}
		default:
			v = readAsBigInt(r.in, typ)
		}
		return v
	})
	return
}

func (r *BufferReader) ReadFloat32(i int) (v float32, err error) {
	err = r.property(i, func(typ int) interface{} {
		v = r.asFloat32(typ)
		return v
	})
	return
}

func (r *BufferReader) ReadFloat64(i int) (v float64, err error) {
	err = r.property(i, func(typ int) interface{} {
		v = r.asFloat64(typ)
		return v
	})
	return
}

func (r *BufferReader) ReadRawQuad(i int) (v RawQuad, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case TFloat128:
			v = readQuad(r.in)
		case VReferenceNull:
		case TReference:
			v = refAs[RawQuad](r)
		default:
			panic(unsupported("%s: reading %s as float128", errQuadArithmetic, TypeName(typ)).withTag(typ))
		}
		return v
	})
	return
}

func (r *BufferReader) ReadDecimal(i int) (v Decimal, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case VReferenceNull:
		case TReference:
			o := r.lookupID(r.in.readPacked())
			if d, ok := o.(Decimal); ok {
				v = d
			} else if o != nil {
				v = Decimal{Unscaled: big.NewInt(int64Of(o))}
			}
		default:
			v = readAsDecimal(r.in, typ)
		}
		return v
	})
	return
}

// ReadBinary returns nil for an absent or null property.
func (r *BufferReader) ReadBinary(i int) (v []byte, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case TOctetString:
			if b, ok := r.in.readOctets(); ok {
				v = append([]byte{}, b...)
			}
		case TCharString:
			if s, ok := r.in.readString(); ok {
				v = []byte(s)
			}
		case TReference:
			switch o := r.lookupID(r.in.readPacked()).(type) {
			case []byte:
				v = o
			case string:
				v = []byte(o)
			}
		default:
			r.array(typ, func(n int) { v = resize(v, n) }, func(j, et int) { v[j] = byte(r.asInt64(et)) })
		}
		return v
	})
	return
}

func (r *BufferReader) ReadString(i int) (v string, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case TCharString:
			v, _ = r.in.readString()
		case TOctetString:
			b, _ := r.in.readOctets()
			v = string(b)
		case TReference:
			switch o := r.lookupID(r.in.readPacked()).(type) {
			case string:
				v = o
			case []byte:
				v = string(o)
			}
		default:
			var cs []rune
			r.array(typ, func(n int) { cs = resize(cs, n) }, func(j, et int) { cs[j] = r.asChar(et) })
			v = string(cs)
		}
		return v
	})
	return
}

func (r *BufferReader) ReadRawDate(i int) (v RawDate, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case TDate:
			v = readRawDate(r.in)
		case TDateTime:
			v = readRawDateTime(r.in).Date
		case VReferenceNull:
		case TReference:
			v = refAs[RawDate](r)
		default:
			panic(r.convError(typ, "a date"))
		}
		return v
	})
	return
}

func (r *BufferReader) ReadRawTime(i int) (v RawTime, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case TTime:
			v = readRawTime(r.in)
		case TDateTime:
			v = readRawDateTime(r.in).Time
		case VReferenceNull:
		case TReference:
			v = refAs[RawTime](r)
		default:
			panic(r.convError(typ, "a time"))
		}
		return v
	})
	return
}

func (r *BufferReader) ReadRawDateTime(i int) (v RawDateTime, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case TDateTime:
			v = readRawDateTime(r.in)
		case TDate:
			v.Date = readRawDate(r.in)
		case VReferenceNull:
		case TReference:
			v = refAs[RawDateTime](r)
		default:
			panic(r.convError(typ, "a datetime"))
		}
		return v
	})
	return
}

// ReadDate returns midnight UTC of the stored date. A datetime keeps its
// time of day and zone.
func (r *BufferReader) ReadDate(i int) (v time.Time, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case TDate:
			v = readRawDate(r.in).Time(time.UTC)
		case TDateTime:
			v = readRawDateTime(r.in).GoTime()
		case VReferenceNull:
		case TReference:
			v = timeOf(r.lookupID(r.in.readPacked()))
		default:
			panic(r.convError(typ, "a date"))
		}
		return v
	})
	return
}

// ReadDateTime converts a datetime to a time.Time in its own zone; one
// written without a zone is read in time.Local.
func (r *BufferReader) ReadDateTime(i int) (v time.Time, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case TDateTime:
			v = readRawDateTime(r.in).GoTime()
		case TDate:
			v = readRawDate(r.in).Time(time.UTC)
		case VReferenceNull:
		case TReference:
			v = timeOf(r.lookupID(r.in.readPacked()))
		default:
			panic(r.convError(typ, "a datetime"))
		}
		return v
	})
	return
}

func timeOf(o interface{}) time.Time {
	switch x := o.(type) {
	case time.Time:
		return x
	case RawDateTime:
		return x.GoTime()
	case RawDate:
		return x.Time(time.UTC)
	}
	return time.Time{}
}

func (r *BufferReader) ReadYearMonthInterval(i int) (v RawYearMonthInterval, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case TYearMonthInterval:
			v = readYearMonthInterval(r.in)
		case VReferenceNull:
		case TReference:
			v = refAs[RawYearMonthInterval](r)
		default:
			panic(r.convError(typ, "a year-month interval"))
		}
		return v
	})
	return
}

func (r *BufferReader) ReadTimeInterval(i int) (v RawTimeInterval, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case TTimeInterval:
			v = readTimeInterval(r.in)
		case VReferenceNull:
		case TReference:
			v = refAs[RawTimeInterval](r)
		default:
			panic(r.convError(typ, "a time interval"))
		}
		return v
	})
	return
}

func (r *BufferReader) ReadDayTimeInterval(i int) (v RawDayTimeInterval, err error) {
	err = r.property(i, func(typ int) interface{} {
		switch typ {
		case TDayTimeInterval:
			v = readDayTimeInterval(r.in)
		case VReferenceNull:
		case TReference:
			v = refAs[RawDayTimeInterval](r)
		default:
			panic(r.convError(typ, "a day-time interval"))
		}
		return v
	})
	return
}

// array walks a value of an array-like type, calling grow to size the
// result and each for every element present. Dense arrays grow once to
// their count. Sparse arrays grow as indices are seen and then to their
// declared size, which may not exceed maxSparseLen. A null leaves grow
// uncalled.
func (r *BufferReader) array(typ int, grow func(n int), each func(j, et int)) {
	in := r.in
	switch typ {
	case VReferenceNull:
	case VStringZeroLength, VCollectionEmpty:
		grow(0)

	case TCollection, TArray:
		n := readDenseCount(in, typ)
		grow(n)
		for j := 0; j < n; j++ {
			each(j, in.readPacked())
		}

	case TUniformCollection, TUniformArray:
		et := readType(in)
		n := readDenseCount(in, typ)
		grow(n)
		for j := 0; j < n; j++ {
			each(j, et)
		}

	case TSparseArray, TUniformSparseArray:
		et := TUnknown
		if typ == TUniformSparseArray {
			et = readType(in)
		}
		off := in.offset()
		n := readCount(in, typ)
		if n > maxSparseLen {
			panic(unsupported("sparse array of %d elements read as a slice", n).at(off).withTag(typ))
		}
		size := 0
		grow(0)
		for j := in.readPacked(); j >= 0; j = in.readPacked() {
			if j >= n {
				panic(malformed("element index %d outside sparse array of %d", j, n).at(in.offset()).withTag(typ))
			}
			t := et
			if t == TUnknown {
				t = in.readPacked()
			}
			if j >= size {
				size = j + 1
				grow(size)
			}
			each(j, t)
		}
		grow(n)

	default:
		panic(r.convError(typ, "an array"))
	}
}

// maxSparseLen bounds the slice a sparse array is expanded into.
const maxSparseLen = 1 << 20

// resize returns a with length n, keeping its elements. It never returns
// nil.
func resize[T any](a []T, n int) []T {
	if a != nil && n <= cap(a) {
		return a[:n]
	}
	b := make([]T, n, n+n/4)
	copy(b, a)
	return b
}

func readTypedArray[T any](r *BufferReader, i int, conv func(et int) T) (a []T, err error) {
	err = r.property(i, func(typ int) interface{} {
		if typ == TReference {
			a = refAs[[]T](r)
			return a
		}
		r.array(typ, func(n int) { a = resize(a, n) }, func(j, et int) { a[j] = conv(et) })
		return a
	})
	return
}

func (r *BufferReader) ReadBoolArray(i int) ([]bool, error) {
	return readTypedArray(r, i, func(et int) bool { return r.asInt64(et) != 0 })
}

func (r *BufferReader) ReadInt16Array(i int) ([]int16, error) {
	return readTypedArray(r, i, func(et int) int16 { return int16(r.asInt64(et)) })
}

func (r *BufferReader) ReadInt32Array(i int) ([]int32, error) {
	return readTypedArray(r, i, func(et int) int32 { return int32(r.asInt64(et)) })
}

func (r *BufferReader) ReadInt64Array(i int) ([]int64, error) {
	return readTypedArray(r, i, r.asInt64)
}

func (r *BufferReader) ReadFloat32Array(i int) ([]float32, error) {
	return readTypedArray(r, i, r.asFloat32)
}

func (r *BufferReader) ReadFloat64Array(i int) ([]float64, error) {
	return readTypedArray(r, i, r.asFloat64)
}

func (r *BufferReader) ReadCharArray(i int) ([]Char, error) {
	return readTypedArray(r, i, func(et int) Char { return Char(r.asChar(et)) })
}

// elementsOf converts a decoded container to its elements.
func elementsOf(o interface{}) ([]interface{}, bool) {
	switch x := o.(type) {
	case nil:
		return nil, true
	case []interface{}:
		return x, true
	case Collection:
		return x, true
	case SparseArray:
		a := make([]interface{}, x.Len())
		for j, e := range x {
			a[j] = e
		}
		return a, true
	}
	v := reflect.ValueOf(o)
	if v.Kind() != reflect.Slice {
		return nil, false
	}
	a := make([]interface{}, v.Len())
	for j := range a {
		a[j] = v.Index(j).Interface()
	}
	return a, true
}

func (r *BufferReader) readElements(i int, what string) (a []interface{}, err error) {
	err = r.do(func() {
		if r.advanceTo(i) {
			o := r.readObject()
			var ok bool
			if a, ok = elementsOf(o); !ok {
				panic(malformed("unable to convert %T to %s", o, what))
			}
		}
		r.complete(i)
	})
	return
}

func (r *BufferReader) ReadArray(i int) ([]interface{}, error) {
	return r.readElements(i, "an array")
}

func (r *BufferReader) ReadCollection(i int) (Collection, error) {
	a, err := r.readElements(i, "a collection")
	if a == nil {
		return nil, err
	}
	return Collection(a), err
}

// ReadMap returns nil for an absent or null property.
func (r *BufferReader) ReadMap(i int) (m Map, err error) {
	err = r.do(func() {
		if r.advanceTo(i) {
			switch o := r.readObject().(type) {
			case nil:
			case Map:
				m = o
			case Collection:
				if len(o) != 0 {
					panic(malformed("unable to convert a collection to a map"))
				}
				m = Map{}
			default:
				panic(malformed("unable to convert %T to a map", o))
			}
		}
		r.complete(i)
	})
	return
}

// ReadSparseArray returns nil for an absent or null property. Dense
// arrays are converted.
func (r *BufferReader) ReadSparseArray(i int) (a SparseArray, err error) {
	err = r.do(func() {
		if r.advanceTo(i) {
			o := r.readObject()
			if sa, ok := o.(SparseArray); ok {
				a = sa
			} else if es, ok := elementsOf(o); ok {
				if es != nil {
					a = make(SparseArray, len(es))
					for j, e := range es {
						a[j] = e
					}
				}
			} else {
				panic(malformed("unable to convert %T to a sparse array", o))
			}
		}
		r.complete(i)
	})
	return
}

// ReadObject decodes property i into the Go value its tag maps to. Date
// and time values are returned as their Raw types so nothing is lost.
func (r *BufferReader) ReadObject(i int) (v interface{}, err error) {
	err = r.do(func() {
		if r.advanceTo(i) {
			v = r.readObject()
		}
		r.complete(i)
	})
	return
}

func (r *BufferReader) readObject() interface{} {
	typ := r.in.readPacked()
	if typ == TIdentity {
		id := r.in.readPacked()
		return r.readAsObject(r.in.readPacked(), id)
	}
	return r.readAsObject(typ, -1)
}

// readUniformObject reads an element whose type was declared by its
// container. A user type element may still carry an identity, be null, or
// be a reference to an earlier value of the same type.
func (r *BufferReader) readUniformObject(typ int) interface{} {
	if typ < 0 {
		return r.readAsObject(typ, -1)
	}

	in := r.in
	off := in.offset()
	switch n := in.readPacked(); {
	case n == TIdentity:
		return r.readAsObject(typ, in.readPacked())
	case n == VReferenceNull:
		return nil
	case n > 0:
		if o, ok := r.identities()[n]; ok && o != nil && r.ctx != nil {
			if id, err := r.ctx.TypeID(o); err == nil && id == typ {
				return o
			}
		}
	}
	in.off = off
	return r.readAsObject(typ, -1)
}

func (r *BufferReader) readAsObject(typ, id int) interface{} {
	in := r.in
	var v interface{}

	switch typ {
	case TInt16:
		v = int16(in.readPackedInt32())
	case TInt32:
		v = in.readPackedInt32()
	case TInt64:
		v = in.readPackedInt64()
	case TInt128:
		v = in.readBigInt()
	case TFloat32:
		v = in.readFloat32()
	case TFloat64:
		v = in.readFloat64()
	case TFloat128:
		v = readQuad(in)
	case TDecimal32, TDecimal64, TDecimal128:
		v = readDecimal(in)
	case TBoolean:
		v = in.readPacked() != 0
	case TOctet:
		v = in.readByte()
	case TOctetString:
		if b, ok := in.readOctets(); ok {
			v = append([]byte{}, b...)
		}
	case TChar:
		v = Char(in.readChar())
	case TCharString:
		if s, ok := in.readString(); ok {
			v = s
		}
	case TDate:
		v = readRawDate(in)
	case TYearMonthInterval:
		v = readYearMonthInterval(in)
	case TTime:
		v = readRawTime(in)
	case TTimeInterval:
		v = readTimeInterval(in)
	case TDateTime:
		v = readRawDateTime(in)
	case TDayTimeInterval:
		v = readDayTimeInterval(in)

	case TCollection, TArray:
		a := make([]interface{}, readDenseCount(in, typ))
		for j := range a {
			a[j] = r.readObject()
		}
		if typ == TCollection {
			v = Collection(a)
		} else {
			v = a
		}

	case TUniformCollection:
		et := readType(in)
		c := make(Collection, readDenseCount(in, typ))
		for j := range c {
			c[j] = r.readUniformObject(et)
		}
		v = c

	case TUniformArray:
		et := readType(in)
		v = r.readUniformArray(et, readDenseCount(in, typ))

	case TSparseArray, TUniformSparseArray:
		et := TUnknown
		if typ == TUniformSparseArray {
			et = readType(in)
		}
		n := readCount(in, typ)
		a := make(SparseArray)
		for j := in.readPacked(); j >= 0; j = in.readPacked() {
			if j >= n {
				panic(malformed("element index %d outside sparse array of %d", j, n).at(in.offset()).withTag(typ))
			}
			if et == TUnknown {
				a[j] = r.readObject()
			} else {
				a[j] = r.readUniformObject(et)
			}
		}
		v = a

	case TMap:
		m := make(Map, readDenseCount(in, typ))
		for j := range m {
			m[j].Key = r.readObject()
			m[j].Value = r.readObject()
		}
		v = m

	case TUniformKeysMap:
		kt := readType(in)
		m := make(Map, readDenseCount(in, typ))
		for j := range m {
			m[j].Key = r.readUniformObject(kt)
			m[j].Value = r.readObject()
		}
		v = m

	case TUniformMap:
		kt := readType(in)
		vt := readType(in)
		m := make(Map, readDenseCount(in, typ))
		for j := range m {
			m[j].Key = r.readUniformObject(kt)
			m[j].Value = r.readUniformObject(vt)
		}
		v = m

	case TReference:
		return r.lookupID(in.readPacked())

	case VBooleanFalse, VBooleanTrue:
		v = typ == VBooleanTrue
	case VStringZeroLength:
		v = ""
	case VCollectionEmpty:
		v = Collection{}
	case VReferenceNull:
	case VFPPosInfinity:
		v = posInf
	case VFPNegInfinity:
		v = negInf
	case VFPNaN:
		v = nan

	default:
		switch {
		case IsTinyInt(typ):
			v = int32(DecodeTinyInt(typ))
		case typ >= 0:
			return r.readUserType(typ, id)
		default:
			panic(malformed(errIllegalType).at(in.offset()).withTag(typ))
		}
	}

	r.registerID(id, v)
	return v
}

// readUniformArray returns a typed slice for primitive element types.
func (r *BufferReader) readUniformArray(et, n int) interface{} {
	in := r.in
	switch et {
	case TBoolean:
		a := make([]bool, n)
		for j := range a {
			a[j] = in.readPacked() != 0
		}
		return a
	case TOctet:
		return append([]byte{}, in.readBytes(n)...)
	case TChar:
		a := make([]Char, n)
		for j := range a {
			a[j] = Char(in.readChar())
		}
		return a
	case TInt16:
		a := make([]int16, n)
		for j := range a {
			a[j] = int16(in.readPackedInt32())
		}
		return a
	case TInt32:
		a := make([]int32, n)
		for j := range a {
			a[j] = in.readPackedInt32()
		}
		return a
	case TInt64:
		a := make([]int64, n)
		for j := range a {
			a[j] = in.readPackedInt64()
		}
		return a
	case TFloat32:
		a := make([]float32, n)
		for j := range a {
			a[j] = in.readFloat32()
		}
		return a
	case TFloat64:
		a := make([]float64, n)
		for j := range a {
			a[j] = in.readFloat64()
		}
		return a
	}

	a := make([]interface{}, n)
	for j := range a {
		a[j] = r.readUniformObject(et)
	}
	return a
}

func (r *BufferReader) readUserType(typ, id int) interface{} {
	if r.ctx == nil {
		panic(unknownType("no context for user type %d", typ))
	}
	s, err := r.ctx.Serializer(typ)
	if err != nil {
		fail(err)
	}
	version := r.in.readPacked()
	if version < 0 {
		panic(malformed("negative version %d", version).at(r.in.offset()).withTag(typ))
	}

	ur := newUserTypeReader(r, typ, version)
	ur.identity = id
	v, err := s.Deserialize(ur)
	if err != nil {
		fail(err)
	}
	ur.finish()
	if ur.identity >= 0 {
		r.registerID(id, v)
	}
	return v
}
