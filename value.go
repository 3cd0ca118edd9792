package pof

import "sort"

// Value is a view of one value inside an encoded stream. Children are
// located by walking the encoded bytes, so nothing is decoded until Get is
// called. Set replaces the encoding of a value; the replacements are
// collected by the root and turned into a new stream by ApplyChanges or a
// delta by Changes.
type Value struct {
	doc    *valueDoc
	parent *Value
	pos    int // index in the parent, -1 for the root

	typ     int
	start   int  // first byte, including any identity prefix
	body    int  // first byte after the type id and identity
	end     int
	uniform bool // the type id is declared by the container

	dirty    bool
	repl     []byte
	children map[int]*Value
}

type valueDoc struct {
	buf     []byte
	ctx     Context
	changes []change
}

// change replaces buf[start:end].
type change struct {
	start, end int
	b          []byte
}

// NewValue returns a view of the single value encoded in b. ctx is only
// needed to Get or Set user types.
func NewValue(b []byte, ctx Context) (v *Value, err error) {
	defer recoverError(&err)

	v = newValue(&valueDoc{buf: b, ctx: ctx}, nil, -1, 0, TUnknown)
	if v.end != len(b) {
		return nil, malformed(errTrailingBytes).at(v.end)
	}
	return v, nil
}

// newValue locates the value at off. typ is the declared type of a
// uniform value, or TUnknown when the value carries its own.
func newValue(doc *valueDoc, parent *Value, pos, off, typ int) *Value {
	in := newInput(doc.buf)
	in.off = off

	v := &Value{doc: doc, parent: parent, pos: pos, start: off, typ: typ, uniform: typ != TUnknown}
	if !v.uniform {
		v.typ = in.readPacked()
		if v.typ == TIdentity {
			skipPackedInts(in, 1)
			v.typ = in.readPacked()
		}
	}
	v.body = in.offset()
	skipUniformValue(in, v.typ)
	v.end = in.offset()
	return v
}

// TypeID returns the type id the value was encoded with. Tiny values
// report their tiny tag.
func (v *Value) TypeID() int { return v.typ }

// Offset returns the position of the value in the root stream.
func (v *Value) Offset() int { return v.start }

// Size returns the length of the original encoding of the value.
func (v *Value) Size() int { return v.end - v.start }

// Index returns the index v was located by in its parent.
func (v *Value) Index() int { return v.pos }

// Parent returns the enclosing value, nil for the root.
func (v *Value) Parent() *Value { return v.parent }

// Root returns the outermost value.
func (v *Value) Root() *Value {
	for v.parent != nil {
		v = v.parent
	}
	return v
}

// IsDirty reports whether Set was called on v. For the root it reports
// whether anything in the stream was replaced.
func (v *Value) IsDirty() bool {
	if v.parent == nil {
		return len(v.doc.changes) != 0
	}
	return v.dirty
}

// Bytes returns the current encoding of v. A uniform value has no type
// id of its own.
func (v *Value) Bytes() []byte {
	if v.dirty {
		return v.repl
	}
	return v.doc.buf[v.start:v.end]
}

// Child returns element i of an array or collection, index i of a
// sparse array or property i of a user type. Map entry k is exposed as
// children 2k (key) and 2k+1 (value). ErrNotFound is returned for an
// absent child.
func (v *Value) Child(i int) (c *Value, err error) {
	if c, ok := v.children[i]; ok {
		return c, nil
	}
	if v.dirty {
		return nil, protocolViolation("children of a replaced value")
	}

	defer recoverError(&err)
	off, typ, ok := v.locate(i)
	if !ok {
		return nil, ErrNotFound
	}

	c = newValue(v.doc, v, i, off, typ)
	if v.children == nil {
		v.children = make(map[int]*Value)
	}
	v.children[i] = c
	return c, nil
}

// Locate follows path from v, one Child call per index.
func (v *Value) Locate(path ...int) (*Value, error) {
	for _, i := range path {
		c, err := v.Child(i)
		if err != nil {
			return nil, err
		}
		v = c
	}
	return v, nil
}

// locate returns the offset and declared type of child i.
func (v *Value) locate(i int) (off, typ int, ok bool) {
	in := newInput(v.doc.buf)
	in.off = v.body

	skip := func(t int) {
		if t == TUnknown {
			skipValue(in)
		} else {
			skipUniformValue(in, t)
		}
	}

	switch t := v.typ; t {
	case TCollection, TArray, TUniformCollection, TUniformArray:
		et := TUnknown
		if t == TUniformCollection || t == TUniformArray {
			et = readType(in)
		}
		n := readCount(in, t)
		if i < 0 || i >= n {
			return 0, 0, false
		}
		for j := 0; j < i; j++ {
			skip(et)
		}
		return in.offset(), et, true

	case TSparseArray, TUniformSparseArray:
		et := TUnknown
		if t == TUniformSparseArray {
			et = readType(in)
		}
		readCount(in, t)
		for j := in.readPacked(); j >= 0 && j <= i; j = in.readPacked() {
			if j == i {
				return in.offset(), et, true
			}
			skip(et)
		}
		return 0, 0, false

	case TMap, TUniformKeysMap, TUniformMap:
		kt, vt := TUnknown, TUnknown
		if t != TMap {
			kt = readType(in)
		}
		if t == TUniformMap {
			vt = readType(in)
		}
		n := readCount(in, t)
		if i < 0 || i >= 2*n {
			return 0, 0, false
		}
		for j := 0; j < i; j++ {
			if j%2 == 0 {
				skip(kt)
			} else {
				skip(vt)
			}
		}
		if i%2 == 0 {
			return in.offset(), kt, true
		}
		return in.offset(), vt, true
	}

	if v.typ == VCollectionEmpty {
		return 0, 0, false
	}
	if v.typ < 0 {
		panic(protocolViolation("%s has no children", TypeName(v.typ)))
	}

	version := in.readPacked()
	if version == TIdentity {
		skipPackedInts(in, 1)
		version = in.readPacked()
	}
	if version < 0 {
		return 0, 0, false
	}
	for j := in.readPacked(); j >= 0 && j <= i; j = in.readPacked() {
		if j == i {
			return in.offset(), TUnknown, true
		}
		skipValue(in)
	}
	return 0, 0, false
}

// Get decodes the current value of v. A reference to an identity
// registered outside v cannot be resolved.
func (v *Value) Get() (x interface{}, err error) {
	r := NewBufferReader(v.Bytes(), v.doc.ctx)
	if !v.uniform {
		return r.ReadObject(0)
	}
	err = r.do(func() { x = r.readUniformObject(v.typ) })
	return
}

// Set replaces v with the encoding of x. A uniform value must keep its
// declared type. Any identity v carried is dropped, and children located
// before the call no longer describe the stream.
func (v *Value) Set(x interface{}) error {
	for p := v.parent; p != nil; p = p.parent {
		if p.dirty {
			return protocolViolation("an enclosing value was replaced")
		}
	}

	b, err := v.encode(x)
	if err != nil {
		return err
	}
	v.doc.replace(change{start: v.start, end: v.end, b: b})
	v.dirty, v.repl, v.children = true, b, nil
	return nil
}

func (v *Value) encode(x interface{}) ([]byte, error) {
	h := NewWritingHandler(nil)
	if !v.uniform {
		if err := (&Encoder{Context: v.doc.ctx}).MarshalTo(h, x); err != nil {
			return nil, err
		}
		return h.Bytes(), nil
	}

	if x == nil && v.typ < 0 {
		return nil, invariantViolation("null in a uniform %s context", TypeName(v.typ)).withTag(v.typ)
	}
	// the value is written as the only element of a uniform collection
	// and the collection header is cut off
	if err := h.BeginUniformCollection(-1, 1, v.typ); err != nil {
		return nil, err
	}
	head := h.Len()
	if err := NewBufferWriter(h, v.doc.ctx).WriteObject(0, x); err != nil {
		return nil, err
	}
	if err := h.EndComplexValue(); err != nil {
		return nil, err
	}
	return h.Bytes()[head:], nil
}

// replace records c, dropping the changes it covers.
func (d *valueDoc) replace(c change) {
	kept := d.changes[:0]
	for _, o := range d.changes {
		if o.start < c.start || o.end > c.end {
			kept = append(kept, o)
		}
	}
	d.changes = append(kept, c)
	sort.Slice(d.changes, func(i, j int) bool { return d.changes[i].start < d.changes[j].start })
}

// Changes returns a binary delta that turns the original stream into the
// one ApplyChanges returns, or nil when nothing was replaced.
func (v *Value) Changes() []byte {
	d := v.doc
	if len(d.changes) == 0 {
		return nil
	}

	out := []byte{FmtBinDiff}
	extract := func(from, to int) {
		if to > from {
			out = append(out, OpExtract)
			out = appendPacked(out, from)
			out = appendPacked(out, to-from)
		}
	}

	pos := 0
	for _, c := range d.changes {
		extract(pos, c.start)
		out = appendOp(out, c.b)
		pos = c.end
	}
	extract(pos, len(d.buf))
	return append(out, OpTerm)
}

// ApplyChanges returns the root stream with every replacement applied.
// The view itself keeps describing the original stream.
func (v *Value) ApplyChanges() []byte {
	d := v.doc
	out := make([]byte, 0, len(d.buf))
	pos := 0
	for _, c := range d.changes {
		out = append(out, d.buf[pos:c.start]...)
		out = append(out, c.b...)
		pos = c.end
	}
	return append(out, d.buf[pos:]...)
}
