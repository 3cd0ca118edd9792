package pof

import "math/big"

type vframe struct {
	typ    int // container tag, or the user type id
	count  int
	sparse bool
	user   bool

	uniform bool
	elem    int

	isMap      bool
	valUniform bool
	valType    int
	inEntry    bool

	next int // dense: next expected index
	last int // sparse and user types: last index seen
}

// ValidatingHandler checks that an event stream describes a well formed
// value and passes every event on to an optional next Handler. The first
// rule broken is returned as a *Error of kind KindFormatViolation; the
// event is not forwarded.
type ValidatingHandler struct {
	next   Handler
	frames []vframe
	ids    map[int]struct{}

	pending  bool
	topLevel bool
}

// NewValidatingHandler returns a validator forwarding to next, which may
// be nil.
func NewValidatingHandler(next Handler) *ValidatingHandler {
	return &ValidatingHandler{next: next, ids: make(map[int]struct{})}
}

// Finish reports an error if the stream ended inside a complex value or
// with an identity that no value claimed.
func (v *ValidatingHandler) Finish() error {
	if n := len(v.frames); n > 0 {
		return violation("%d complex value(s) not terminated, innermost %s", n, TypeName(v.frames[n-1].typ))
	}
	if v.pending {
		return violation("identity registered without a value")
	}
	return nil
}

func violation(format string, args ...interface{}) *Error {
	return formatViolation(format, args...)
}

func (v *ValidatingHandler) top() *vframe {
	if len(v.frames) == 0 {
		return nil
	}
	return &v.frames[len(v.frames)-1]
}

// onValue validates the position of a value of type typ and consumes any
// pending identity. Nulls and references pass typ TReference.
func (v *ValidatingHandler) onValue(pos, typ int) error {
	v.pending = false

	f := v.top()
	if f == nil {
		if pos != -1 && pos != 0 {
			return violation("illegal top-level position %d", pos).withTag(typ)
		}
		if v.topLevel {
			return violation("more than one top-level value").withTag(typ)
		}
		v.topLevel = true
		return nil
	}

	uniform, elem := f.uniform, f.elem
	if f.isMap && f.inEntry {
		uniform, elem = f.valUniform, f.valType
	}
	if uniform && typ != TReference && typ != elem {
		return violation("%s value in uniform %s %s", TypeName(typ), TypeName(elem), TypeName(f.typ)).withTag(typ)
	}

	switch {
	case f.user:
		if pos < 0 {
			return violation("illegal property index %d in %s", pos, TypeName(f.typ))
		}
		if pos <= f.last {
			return violation("property index %d follows index %d in %s", pos, f.last, TypeName(f.typ))
		}
		f.last = pos

	case f.sparse:
		if pos < 0 || pos >= f.count {
			return violation("sparse index %d outside 0..%d", pos, f.count-1).withTag(f.typ)
		}
		if pos <= f.last {
			return violation("sparse index %d follows index %d", pos, f.last).withTag(f.typ)
		}
		f.last = pos

	default:
		if pos != f.next {
			return violation("position %d where %d was expected", pos, f.next).withTag(f.typ)
		}
		if pos >= f.count {
			return violation("position %d exceeds element count %d", pos, f.count).withTag(f.typ)
		}
		if f.isMap && !f.inEntry {
			f.inEntry = true
			break
		}
		f.inEntry = false
		f.next++
	}
	return nil
}

func (v *ValidatingHandler) push(f vframe) {
	f.last = -1
	v.frames = append(v.frames, f)
}

func (v *ValidatingHandler) RegisterIdentity(id int) error {
	if v.pending {
		return violation(errDoubleIdentity)
	}
	if err := checkReferenceRange(id); err != nil {
		return violation("%s", err)
	}
	if _, dup := v.ids[id]; dup {
		return violation("%s %d", errDuplicateID, id)
	}
	v.ids[id] = struct{}{}
	v.pending = true
	return v.forward(func(h Handler) error { return h.RegisterIdentity(id) })
}

func (v *ValidatingHandler) OnNullReference(pos int) error {
	if err := v.onValue(pos, TReference); err != nil {
		return err
	}
	return v.forward(func(h Handler) error { return h.OnNullReference(pos) })
}

func (v *ValidatingHandler) OnIdentityReference(pos, id int) error {
	if err := v.onValue(pos, TReference); err != nil {
		return err
	}
	if _, ok := v.ids[id]; !ok {
		return violation("reference to unregistered identity %d", id).withTag(TReference)
	}
	return v.forward(func(h Handler) error { return h.OnIdentityReference(pos, id) })
}

func (v *ValidatingHandler) forward(f func(h Handler) error) error {
	if v.next == nil {
		return nil
	}
	return f(v.next)
}

// scalar validates position and type, then runs an optional domain check.
func (v *ValidatingHandler) scalar(pos, typ int, check error, f func(h Handler) error) error {
	if err := v.onValue(pos, typ); err != nil {
		return err
	}
	if check != nil {
		return violation("%s", check).withTag(typ)
	}
	return v.forward(f)
}

func (v *ValidatingHandler) OnInt16(pos int, n int16) error {
	return v.scalar(pos, TInt16, nil, func(h Handler) error { return h.OnInt16(pos, n) })
}

func (v *ValidatingHandler) OnInt32(pos int, n int32) error {
	return v.scalar(pos, TInt32, nil, func(h Handler) error { return h.OnInt32(pos, n) })
}

func (v *ValidatingHandler) OnInt64(pos int, n int64) error {
	return v.scalar(pos, TInt64, nil, func(h Handler) error { return h.OnInt64(pos, n) })
}

func (v *ValidatingHandler) OnInt128(pos int, n *big.Int) error {
	return v.scalar(pos, TInt128, checkInt128(n), func(h Handler) error { return h.OnInt128(pos, n) })
}

func (v *ValidatingHandler) OnFloat32(pos int, f float32) error {
	return v.scalar(pos, TFloat32, nil, func(h Handler) error { return h.OnFloat32(pos, f) })
}

func (v *ValidatingHandler) OnFloat64(pos int, f float64) error {
	return v.scalar(pos, TFloat64, nil, func(h Handler) error { return h.OnFloat64(pos, f) })
}

func (v *ValidatingHandler) OnFloat128(pos int, q RawQuad) error {
	return v.scalar(pos, TFloat128, nil, func(h Handler) error { return h.OnFloat128(pos, q) })
}

func (v *ValidatingHandler) OnDecimal32(pos int, d Decimal) error {
	return v.scalar(pos, TDecimal32, checkDecimalRange(d, 4), func(h Handler) error { return h.OnDecimal32(pos, d) })
}

func (v *ValidatingHandler) OnDecimal64(pos int, d Decimal) error {
	return v.scalar(pos, TDecimal64, checkDecimalRange(d, 8), func(h Handler) error { return h.OnDecimal64(pos, d) })
}

func (v *ValidatingHandler) OnDecimal128(pos int, d Decimal) error {
	return v.scalar(pos, TDecimal128, checkDecimalRange(d, 16), func(h Handler) error { return h.OnDecimal128(pos, d) })
}

func (v *ValidatingHandler) OnBoolean(pos int, b bool) error {
	return v.scalar(pos, TBoolean, nil, func(h Handler) error { return h.OnBoolean(pos, b) })
}

func (v *ValidatingHandler) OnOctet(pos int, b byte) error {
	return v.scalar(pos, TOctet, nil, func(h Handler) error { return h.OnOctet(pos, b) })
}

func (v *ValidatingHandler) OnOctetString(pos int, b []byte) error {
	return v.scalar(pos, TOctetString, nil, func(h Handler) error { return h.OnOctetString(pos, b) })
}

func (v *ValidatingHandler) OnChar(pos int, c rune) error {
	return v.scalar(pos, TChar, checkChar(c), func(h Handler) error { return h.OnChar(pos, c) })
}

func (v *ValidatingHandler) OnCharString(pos int, s string) error {
	return v.scalar(pos, TCharString, nil, func(h Handler) error { return h.OnCharString(pos, s) })
}

func (v *ValidatingHandler) OnDate(pos int, d RawDate) error {
	return v.scalar(pos, TDate, checkDate(d.Year, d.Month, d.Day), func(h Handler) error { return h.OnDate(pos, d) })
}

func (v *ValidatingHandler) OnYearMonthInterval(pos int, i RawYearMonthInterval) error {
	return v.scalar(pos, TYearMonthInterval, checkYearMonthInterval(i.Years, i.Months),
		func(h Handler) error { return h.OnYearMonthInterval(pos, i) })
}

func (v *ValidatingHandler) OnTime(pos int, t RawTime) error {
	return v.scalar(pos, TTime, checkRawTime(t), func(h Handler) error { return h.OnTime(pos, t) })
}

func (v *ValidatingHandler) OnTimeInterval(pos int, i RawTimeInterval) error {
	return v.scalar(pos, TTimeInterval, checkTimeInterval(i.Hours, i.Minutes, i.Seconds, i.Nanos),
		func(h Handler) error { return h.OnTimeInterval(pos, i) })
}

func (v *ValidatingHandler) OnDateTime(pos int, dt RawDateTime) error {
	check := checkDate(dt.Date.Year, dt.Date.Month, dt.Date.Day)
	if check == nil {
		check = checkRawTime(dt.Time)
	}
	return v.scalar(pos, TDateTime, check, func(h Handler) error { return h.OnDateTime(pos, dt) })
}

func (v *ValidatingHandler) OnDayTimeInterval(pos int, i RawDayTimeInterval) error {
	return v.scalar(pos, TDayTimeInterval, checkDayTimeInterval(i.Days, i.Hours, i.Minutes, i.Seconds, i.Nanos),
		func(h Handler) error { return h.OnDayTimeInterval(pos, i) })
}

// begin validates a container header and pushes its frame.
func (v *ValidatingHandler) begin(pos int, f vframe, types ...int) error {
	if err := v.onValue(pos, f.typ); err != nil {
		return err
	}
	if err := checkElementCount(f.count); err != nil {
		return violation("%s", err).withTag(f.typ)
	}
	for _, t := range types {
		if err := checkType(t); err != nil || t == TIdentity {
			return violation("illegal uniform type %d", t).withTag(f.typ)
		}
	}
	v.push(f)
	return nil
}

func (v *ValidatingHandler) BeginCollection(pos, count int) error {
	if err := v.begin(pos, vframe{typ: TCollection, count: count}); err != nil {
		return err
	}
	return v.forward(func(h Handler) error { return h.BeginCollection(pos, count) })
}

func (v *ValidatingHandler) BeginUniformCollection(pos, count, typ int) error {
	f := vframe{typ: TUniformCollection, count: count, uniform: true, elem: typ}
	if err := v.begin(pos, f, typ); err != nil {
		return err
	}
	return v.forward(func(h Handler) error { return h.BeginUniformCollection(pos, count, typ) })
}

func (v *ValidatingHandler) BeginArray(pos, count int) error {
	if err := v.begin(pos, vframe{typ: TArray, count: count}); err != nil {
		return err
	}
	return v.forward(func(h Handler) error { return h.BeginArray(pos, count) })
}

func (v *ValidatingHandler) BeginUniformArray(pos, count, typ int) error {
	f := vframe{typ: TUniformArray, count: count, uniform: true, elem: typ}
	if err := v.begin(pos, f, typ); err != nil {
		return err
	}
	return v.forward(func(h Handler) error { return h.BeginUniformArray(pos, count, typ) })
}

func (v *ValidatingHandler) BeginSparseArray(pos, count int) error {
	if err := v.begin(pos, vframe{typ: TSparseArray, count: count, sparse: true}); err != nil {
		return err
	}
	return v.forward(func(h Handler) error { return h.BeginSparseArray(pos, count) })
}

func (v *ValidatingHandler) BeginUniformSparseArray(pos, count, typ int) error {
	f := vframe{typ: TUniformSparseArray, count: count, sparse: true, uniform: true, elem: typ}
	if err := v.begin(pos, f, typ); err != nil {
		return err
	}
	return v.forward(func(h Handler) error { return h.BeginUniformSparseArray(pos, count, typ) })
}

func (v *ValidatingHandler) BeginMap(pos, count int) error {
	if err := v.begin(pos, vframe{typ: TMap, count: count, isMap: true}); err != nil {
		return err
	}
	return v.forward(func(h Handler) error { return h.BeginMap(pos, count) })
}

func (v *ValidatingHandler) BeginUniformKeysMap(pos, count, keyType int) error {
	f := vframe{typ: TUniformKeysMap, count: count, isMap: true, uniform: true, elem: keyType}
	if err := v.begin(pos, f, keyType); err != nil {
		return err
	}
	return v.forward(func(h Handler) error { return h.BeginUniformKeysMap(pos, count, keyType) })
}

func (v *ValidatingHandler) BeginUniformMap(pos, count, keyType, valueType int) error {
	f := vframe{
		typ: TUniformMap, count: count, isMap: true,
		uniform: true, elem: keyType,
		valUniform: true, valType: valueType,
	}
	if err := v.begin(pos, f, keyType, valueType); err != nil {
		return err
	}
	return v.forward(func(h Handler) error { return h.BeginUniformMap(pos, count, keyType, valueType) })
}

func (v *ValidatingHandler) BeginUserType(pos, typeID, version int) error {
	if typeID < 0 {
		return violation("illegal user type id %d", typeID)
	}
	if version < 0 {
		return violation("illegal version %d", version).withTag(typeID)
	}
	if err := v.begin(pos, vframe{typ: typeID, user: true}); err != nil {
		return err
	}
	return v.forward(func(h Handler) error { return h.BeginUserType(pos, typeID, version) })
}

func (v *ValidatingHandler) EndComplexValue() error {
	f := v.top()
	if f == nil {
		return violation(errNoFrame)
	}
	if v.pending {
		return violation("identity registered without a value").withTag(f.typ)
	}
	if !f.sparse && !f.user {
		if f.inEntry {
			return violation("map entry %d has a key but no value", f.next).withTag(f.typ)
		}
		if f.next != f.count {
			return violation("%d of %d elements present", f.next, f.count).withTag(f.typ)
		}
	}
	v.frames = v.frames[:len(v.frames)-1]
	return v.forward(func(h Handler) error { return h.EndComplexValue() })
}
