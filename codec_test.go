package pof

import (
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bigIntComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

var roundtrips = []interface{}{
	nil,
	true,
	false,
	byte(0),
	byte(0xFF),
	Char('x'),
	Char(0x263A),
	int16(-300),
	int32(0),
	int32(-1),
	int32(22),
	int32(100),
	int32(math.MaxInt32),
	int32(math.MinInt32),
	int64(1) << 40,
	int64(math.MinInt64),
	new(big.Int).Lsh(big.NewInt(1), 100),
	new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(3), 90)),
	float32(2.2),
	float32(9891234567890.098),
	float64(2.2),
	math.Inf(-1),
	NewDecimal(12345, 2),
	NewDecimal(-987654321012, 6),
	"",
	"hello",
	"twas brillig and the slithy toves did gyre and gimble in the wabe",
	"héllo wörld ☃",
	[]byte{1, 2, 3},
	RawDate{Year: 2024, Month: 2, Day: 29},
	RawTime{Hour: 13, Minute: 45, Second: 30, Nano: 500000000, Zone: ZoneUTC},
	RawTime{Hour: 1, Minute: 2, Second: 3, Nano: 123, Zone: ZoneOffset, HourOffset: -5, MinuteOffset: 30},
	RawDateTime{Date: RawDate{Year: 1999, Month: 12, Day: 31}, Time: RawTime{Hour: 23, Minute: 59, Second: 59}},
	RawYearMonthInterval{Years: 2, Months: 11},
	RawTimeInterval{Hours: 4, Minutes: 3, Seconds: 2, Nanos: 1},
	RawDayTimeInterval{Days: 9, Hours: 8, Minutes: 7, Seconds: 6, Nanos: 5000000},
	[]bool{true, false, true},
	[]int16{1, -2, 3},
	[]int32{},
	[]int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
	[]int64{1, 100, 1000, 2000, 0xdeadbeef},
	[]float32{1.5, -2.25},
	[]float64{2.2, 9891234567890.098},
	[]Char{'a', 'b'},
	[]interface{}{int32(1), "two", nil, float64(3)},
	Collection{},
	Collection{int64(1), true, Collection{"nested"}},
	Map{{Key: "foo", Value: int32(1)}, {Key: int32(2), Value: []interface{}{"bar"}}},
	SparseArray{0: int32(1), 7: "x"},
}

func TestRoundtrip(t *testing.T) {
	e := NewEncoder(nil)
	d := NewDecoder(nil)

	for _, v := range roundtrips {
		b, err := e.Marshal(v)
		if err != nil {
			t.Errorf("failed marshalling %#v: %v\n", v, err)
			continue
		}

		got, err := d.Unmarshal(b)
		if err != nil {
			t.Errorf("error unmarshalling %#v: %v\n", v, err)
			continue
		}
		if diff := cmp.Diff(v, got, bigIntComparer); diff != "" {
			t.Errorf("failed roundtripping %s (-want +got):\n%s\n", spew.Sdump(v), diff)
		}
	}
}

func TestRoundtripConversions(t *testing.T) {
	utc := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		in   interface{}
		want interface{}
	}{
		{7, int64(7)},
		{utc, RawDateTime{Date: RawDate{Year: 2024, Month: 3, Day: 1}, Time: RawTime{Hour: 12, Minute: 30, Zone: ZoneUTC}}},
		{90 * time.Minute, RawTimeInterval{Hours: 1, Minutes: 30}},
		{time.Time{}, nil},
		{(*person)(nil), nil},
	}

	e, d := NewEncoder(nil), NewDecoder(nil)
	for _, tt := range tests {
		b, err := e.Marshal(tt.in)
		require.NoError(t, err)
		got, err := d.Unmarshal(b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%#v", tt.in)
	}
}

func TestMarshalBytes(t *testing.T) {
	tests := []struct {
		v    interface{}
		want string
	}{
		{int32(5), "41 05"},
		{"hello", "4E 05 68 65 6C 6C 6F"},
		{nil, "64"},
		{true, "4A 01"},
		{Collection{}, "55 00"},
		{&person{Name: "Ada", Age: 36}, "01 00 00 4E 03 41 64 61 01 41 24 02 64 40"},
	}

	e := NewEncoder(testContext())
	for _, tt := range tests {
		got, err := e.Marshal(tt.v)
		require.NoError(t, err)
		assert.Equal(t, unhex(t, tt.want), got, "%#v", tt.v)
	}
}

type person struct {
	Name   string
	Age    int32
	Friend *person
	Scores []int32
}

func (p *person) WriteExternal(w Writer) error {
	if err := w.WriteString(0, p.Name); err != nil {
		return err
	}
	if err := w.WriteInt32(1, p.Age); err != nil {
		return err
	}
	if err := w.WriteObject(2, p.Friend); err != nil {
		return err
	}
	return w.WriteInt32Array(3, p.Scores)
}

func (p *person) ReadExternal(r Reader) (err error) {
	if p.Name, err = r.ReadString(0); err != nil {
		return
	}
	if p.Age, err = r.ReadInt32(1); err != nil {
		return
	}
	f, err := r.ReadObject(2)
	if err != nil {
		return err
	}
	if f != nil {
		p.Friend = f.(*person)
	}
	p.Scores, err = r.ReadInt32Array(3)
	return
}

func testContext() *SimpleContext {
	return NewSimpleContext().MustRegister(1, &person{}, nil)
}

func TestUserTypeRoundtrip(t *testing.T) {
	ctx := testContext()
	p := &person{Name: "Ada", Age: 36, Scores: []int32{3, 1, 4}, Friend: &person{Name: "Bob"}}

	b, err := NewEncoder(ctx).Marshal(p)
	require.NoError(t, err)

	got, err := NewDecoder(ctx).Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	var q person
	require.NoError(t, NewDecoder(ctx).UnmarshalInto(b, &q))
	assert.Equal(t, *p, q)
}

func TestUserTypeInCollection(t *testing.T) {
	ctx := testContext()
	v := Collection{&person{Name: "a"}, int32(3), &person{Name: "b", Age: 2}}

	b, err := NewEncoder(ctx).Marshal(v)
	require.NoError(t, err)
	got, err := NewDecoder(ctx).Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestReferences(t *testing.T) {
	ctx := testContext()
	ctx.References = true

	shared := &person{Name: "shared"}
	b, err := NewEncoder(ctx).Marshal(Collection{shared, shared, &person{Name: "other"}})
	require.NoError(t, err)

	got, err := NewDecoder(ctx).Unmarshal(b)
	require.NoError(t, err)
	c := got.(Collection)
	require.Len(t, c, 3)
	assert.Same(t, c[0], c[1])
	assert.NotSame(t, c[0], c[2])
	assert.Equal(t, "shared", c[1].(*person).Name)

	// without references every occurrence is written in full
	ctx.References = false
	b, err = NewEncoder(ctx).Marshal(Collection{shared, shared})
	require.NoError(t, err)
	got, err = NewDecoder(ctx).Unmarshal(b)
	require.NoError(t, err)
	c = got.(Collection)
	assert.NotSame(t, c[0], c[1])
	assert.Equal(t, c[0], c[1])
}

func TestCyclicReference(t *testing.T) {
	ctx := testContext()
	ctx.References = true

	p := &person{Name: "self"}
	p.Friend = p

	b, err := NewEncoder(ctx).Marshal(p)
	require.NoError(t, err)
	got, err := NewDecoder(ctx).Unmarshal(b)
	require.NoError(t, err)

	q := got.(*person)
	assert.Same(t, q, q.Friend)
	assert.Equal(t, "self", q.Name)
}

func TestUnknownUserType(t *testing.T) {
	_, err := NewEncoder(nil).Marshal(&person{})
	assert.True(t, errors.Is(err, ErrUnknownType), "encode without context: %v", err)

	b, err := NewEncoder(testContext()).Marshal(&person{Name: "x"})
	require.NoError(t, err)
	_, err = NewDecoder(NewSimpleContext()).Unmarshal(b)
	assert.True(t, errors.Is(err, ErrUnknownType), "decode with empty context: %v", err)
}

func TestRegisterErrors(t *testing.T) {
	ctx := testContext()
	assert.Error(t, ctx.Register(1, &pointV1{}, nil), "duplicate id")
	assert.Error(t, ctx.Register(2, &person{}, nil), "duplicate type")
	assert.Error(t, ctx.Register(-1, &pointV1{}, nil), "negative id")
	assert.Error(t, ctx.Register(3, person{}, nil), "not a pointer")
	assert.Equal(t, []int{1}, ctx.TypeIDs())
}

func TestTrailingBytes(t *testing.T) {
	_, err := NewDecoder(nil).Unmarshal([]byte{0x69, 0x69})
	assert.True(t, errors.Is(err, ErrMalformedStream))
}

// badWriter writes its properties in the order given by props.
type badWriter struct {
	props []int
	after func(w Writer) error
}

func (b *badWriter) WriteExternal(w Writer) error {
	for _, i := range b.props {
		if err := w.WriteInt32(i, 1); err != nil {
			return err
		}
	}
	if b.after != nil {
		return b.after(w)
	}
	return nil
}

func (b *badWriter) ReadExternal(r Reader) error { return nil }

func TestWriterProtocolViolations(t *testing.T) {
	tests := []struct {
		name string
		v    *badWriter
	}{
		{"backwards index", &badWriter{props: []int{2, 1}}},
		{"repeated index", &badWriter{props: []int{0, 0}}},
		{"negative index", &badWriter{props: []int{-1}}},
		{"write after remainder", &badWriter{props: []int{0}, after: func(w Writer) error {
			if err := w.WriteRemainder(nil); err != nil {
				return err
			}
			return w.WriteInt32(5, 1)
		}}},
		{"version after properties", &badWriter{props: []int{0}, after: func(w Writer) error {
			return w.SetVersionID(3)
		}}},
	}

	ctx := NewSimpleContext().MustRegister(9, &badWriter{}, nil)
	for _, tt := range tests {
		_, err := NewEncoder(ctx).Marshal(tt.v)
		if !errors.Is(err, ErrProtocolViolation) {
			t.Errorf("%s: got %v, want a protocol violation\n", tt.name, err)
		}
	}

	w := NewBufferWriter(NewWritingHandler(nil), nil)
	assert.True(t, errors.Is(w.WriteInt32(1, 5), ErrProtocolViolation), "root property 1")
	assert.True(t, errors.Is(w.WriteRemainder(nil), ErrProtocolViolation), "remainder outside a user type")
}

// badReader reads its properties backwards.
type badReader struct{}

func (b *badReader) WriteExternal(w Writer) error {
	for i := 0; i < 3; i++ {
		if err := w.WriteInt32(i, int32(i)+30); err != nil {
			return err
		}
	}
	return nil
}

func (b *badReader) ReadExternal(r Reader) error {
	for _, i := range []int{2, 1} {
		if _, err := r.ReadInt32(i); err != nil {
			return err
		}
	}
	return nil
}

func TestReaderProtocolViolation(t *testing.T) {
	ctx := NewSimpleContext().MustRegister(9, &badReader{}, nil)
	b, err := NewEncoder(ctx).Marshal(&badReader{})
	require.NoError(t, err)

	_, err = NewDecoder(ctx).Unmarshal(b)
	assert.True(t, errors.Is(err, ErrProtocolViolation), "got %v", err)
}

// pointV1 and pointV2 are two versions of the same user type.
type pointV1 struct {
	EvolvableData
	X, Y int32
}

func (p *pointV1) ImplVersion() int { return 1 }

func (p *pointV1) WriteExternal(w Writer) error {
	if err := w.WriteInt32(0, p.X); err != nil {
		return err
	}
	return w.WriteInt32(1, p.Y)
}

func (p *pointV1) ReadExternal(r Reader) (err error) {
	if p.X, err = r.ReadInt32(0); err != nil {
		return
	}
	p.Y, err = r.ReadInt32(1)
	return
}

type pointV2 struct {
	EvolvableData
	X, Y  int32
	Label string
	Z     int32
}

func (p *pointV2) ImplVersion() int { return 2 }

func (p *pointV2) WriteExternal(w Writer) error {
	if err := w.WriteInt32(0, p.X); err != nil {
		return err
	}
	if err := w.WriteInt32(1, p.Y); err != nil {
		return err
	}
	if err := w.WriteString(2, p.Label); err != nil {
		return err
	}
	return w.WriteInt32(3, p.Z)
}

func (p *pointV2) ReadExternal(r Reader) (err error) {
	if p.X, err = r.ReadInt32(0); err != nil {
		return
	}
	if p.Y, err = r.ReadInt32(1); err != nil {
		return
	}
	r2 := AtVersion(r, 2)
	if p.Label, err = r2.ReadString(2); err != nil {
		return
	}
	p.Z, err = r2.ReadInt32(3)
	return
}

func TestEvolvableForwardCompatibility(t *testing.T) {
	v1 := NewSimpleContext().MustRegister(10, &pointV1{}, nil)
	v2 := NewSimpleContext().MustRegister(10, &pointV2{}, nil)

	orig := &pointV2{X: 1, Y: 2, Label: "p", Z: 300}
	b, err := NewEncoder(v2).Marshal(orig)
	require.NoError(t, err)

	old, err := NewDecoder(v1).Unmarshal(b)
	require.NoError(t, err)
	p := old.(*pointV1)
	assert.Equal(t, int32(1), p.X)
	assert.Equal(t, int32(2), p.Y)
	assert.Equal(t, 2, p.DataVersion())
	assert.NotEmpty(t, p.FutureData())

	again, err := NewEncoder(v1).Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, b, again, "old code must write back what it could not read")

	back, err := NewDecoder(v2).Unmarshal(again)
	require.NoError(t, err)
	q := back.(*pointV2)
	assert.Equal(t, "p", q.Label)
	assert.Equal(t, int32(300), q.Z)
	assert.Empty(t, q.FutureData())
}

func TestEvolvableBackwardCompatibility(t *testing.T) {
	v1 := NewSimpleContext().MustRegister(10, &pointV1{}, nil)
	v2 := NewSimpleContext().MustRegister(10, &pointV2{}, nil)

	b, err := NewEncoder(v1).Marshal(&pointV1{X: 4, Y: 5})
	require.NoError(t, err)

	got, err := NewDecoder(v2).Unmarshal(b)
	require.NoError(t, err)
	p := got.(*pointV2)
	assert.Equal(t, int32(4), p.X)
	assert.Equal(t, int32(5), p.Y)
	assert.Equal(t, "", p.Label)
	assert.Equal(t, int32(0), p.Z)
	assert.Equal(t, 1, p.DataVersion())

	// the newer implementation version wins when writing back
	b, err = NewEncoder(v2).Marshal(p)
	require.NoError(t, err)
	got, err = NewDecoder(v2).Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, 2, got.(*pointV2).DataVersion())
}

// shape is a two level hierarchy: level 1 holds the name, level 2 the
// number of sides.
type shape struct {
	holder EvolvableHolder
	Name   string
	Sides  int32
}

func (s *shape) Holder() *EvolvableHolder { return &s.holder }

func (s *shape) Levels() []PortableLevel {
	return []PortableLevel{
		{
			TypeID: 1, ImplVersion: 1,
			ReadLevel:  func(r Reader) (err error) { s.Name, err = r.ReadString(0); return },
			WriteLevel: func(w Writer) error { return w.WriteString(0, s.Name) },
		},
		{
			TypeID: 2, ImplVersion: 3,
			ReadLevel:  func(r Reader) (err error) { s.Sides, err = r.ReadInt32(0); return },
			WriteLevel: func(w Writer) error { return w.WriteInt32(0, s.Sides) },
		},
	}
}

// baseShape only knows the first level.
type baseShape struct {
	holder EvolvableHolder
	Name   string
}

func (s *baseShape) Holder() *EvolvableHolder { return &s.holder }

func (s *baseShape) Levels() []PortableLevel {
	return []PortableLevel{{
		TypeID: 1, ImplVersion: 1,
		ReadLevel:  func(r Reader) (err error) { s.Name, err = r.ReadString(0); return },
		WriteLevel: func(w Writer) error { return w.WriteString(0, s.Name) },
	}}
}

func TestHierarchySerializer(t *testing.T) {
	full := NewSimpleContext().MustRegister(20, &shape{}, HierarchySerializer{TypeID: 20})
	base := NewSimpleContext().MustRegister(20, &baseShape{}, HierarchySerializer{TypeID: 20})

	b, err := NewEncoder(full).Marshal(&shape{Name: "square", Sides: 4})
	require.NoError(t, err)

	got, err := NewDecoder(full).Unmarshal(b)
	require.NoError(t, err)
	s := got.(*shape)
	assert.Equal(t, "square", s.Name)
	assert.Equal(t, int32(4), s.Sides)
	assert.Equal(t, []int{1, 2}, s.holder.TypeIDs())

	got, err = NewDecoder(base).Unmarshal(b)
	require.NoError(t, err)
	bs := got.(*baseShape)
	assert.Equal(t, "square", bs.Name)
	assert.Equal(t, []int{1, 2}, bs.holder.TypeIDs(), "unknown level is kept")

	again, err := NewEncoder(base).Marshal(bs)
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestAtVersion(t *testing.T) {
	ctx := NewSimpleContext().MustRegister(10, &pointV2{}, nil)
	b, err := NewEncoder(ctx).Marshal(&pointV2{X: 1, Label: "l"})
	require.NoError(t, err)

	r := NewBufferReader(b, ctx)
	assert.Same(t, Reader(r), AtVersion(r, 0))

	z := AtVersion(r, 5)
	s, err := z.ReadString(0)
	require.NoError(t, err)
	assert.Equal(t, "", s)
	n, err := z.CreateNestedReader(3)
	require.NoError(t, err)
	assert.Equal(t, z, n)
}
