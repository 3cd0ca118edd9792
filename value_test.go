package pof

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueUserType(t *testing.T) {
	ctx := testContext()
	b, err := NewEncoder(ctx).Marshal(&person{Name: "Ada", Age: 36})
	require.NoError(t, err)

	root, err := NewValue(b, ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, root.TypeID())
	assert.Equal(t, len(b), root.Size())

	name, err := root.Child(0)
	require.NoError(t, err)
	assert.Equal(t, TCharString, name.TypeID())
	got, err := name.Get()
	require.NoError(t, err)
	assert.Equal(t, "Ada", got)

	age, err := root.Locate(1)
	require.NoError(t, err)
	got, err = age.Get()
	require.NoError(t, err)
	assert.Equal(t, int32(36), got)
	assert.Same(t, root, age.Parent())
	assert.Same(t, root, age.Root())

	friend, err := root.Child(2)
	require.NoError(t, err)
	assert.Equal(t, VReferenceNull, friend.TypeID())

	_, err = root.Child(3)
	assert.True(t, errors.Is(err, ErrNotFound), "nil scores are not written: %v", err)

	require.NoError(t, age.Set(int32(37)))
	require.NoError(t, name.Set("Grace"))
	assert.True(t, root.IsDirty())
	assert.True(t, age.IsDirty())
	assert.False(t, friend.IsDirty())

	got, err = age.Get()
	require.NoError(t, err)
	assert.Equal(t, int32(37), got)

	out := root.ApplyChanges()
	p, err := NewDecoder(ctx).Unmarshal(out)
	require.NoError(t, err)
	if diff := cmp.Diff(&person{Name: "Grace", Age: 37}, p); diff != "" {
		t.Errorf("changed person (-want +got):\n%s\n", diff)
	}

	fromDelta, err := PofDeltaCompressor{}.ApplyDelta(b, root.Changes())
	require.NoError(t, err)
	assert.Equal(t, out, fromDelta)
}

func TestValueContainers(t *testing.T) {
	in := Collection{"a", []int32{1, 2, 3}, Map{{Key: "k", Value: int64(1000)}}, SparseArray{4: "four"}}
	b, err := NewEncoder(nil).Marshal(in)
	require.NoError(t, err)

	root, err := NewValue(b, nil)
	require.NoError(t, err)

	tests := []struct {
		path []int
		want interface{}
	}{
		{[]int{0}, "a"},
		{[]int{1, 0}, int32(1)},
		{[]int{1, 2}, int32(3)},
		{[]int{2, 0}, "k"},
		{[]int{2, 1}, int64(1000)},
		{[]int{3, 4}, "four"},
	}
	for _, tt := range tests {
		v, err := root.Locate(tt.path...)
		if err != nil {
			t.Errorf("%v: %v\n", tt.path, err)
			continue
		}
		got, err := v.Get()
		if err != nil || !cmp.Equal(got, tt.want) {
			t.Errorf("%v: got %#v, %v, want %#v\n", tt.path, got, err, tt.want)
		}
	}

	for _, path := range [][]int{{4}, {1, 3}, {2, 2}, {3, 3}, {3, 5}} {
		if _, err := root.Locate(path...); !errors.Is(err, ErrNotFound) {
			t.Errorf("%v: got %v, want not found\n", path, err)
		}
	}

	_, err = root.Locate(0, 0)
	assert.True(t, errors.Is(err, ErrProtocolViolation), "a string has no children: %v", err)

	elem, err := root.Locate(1, 2)
	require.NoError(t, err)
	assert.True(t, errors.Is(elem.Set("x"), ErrInvariantViolation), "a uniform element keeps its type")
	assert.True(t, errors.Is(elem.Set(nil), ErrInvariantViolation), "a uniform int32 cannot be null")
	require.NoError(t, elem.Set(int32(30)))

	got, err := NewDecoder(nil).Unmarshal(root.ApplyChanges())
	require.NoError(t, err)
	want := Collection{"a", []int32{1, 2, 30}, Map{{Key: "k", Value: int64(1000)}}, SparseArray{4: "four"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("changed collection (-want +got):\n%s\n", diff)
	}
}

func TestValueReplacedParent(t *testing.T) {
	b, err := NewEncoder(nil).Marshal(Collection{Collection{int32(1), int32(2)}, "tail"})
	require.NoError(t, err)

	root, err := NewValue(b, nil)
	require.NoError(t, err)
	inner, err := root.Child(0)
	require.NoError(t, err)
	first, err := inner.Child(0)
	require.NoError(t, err)

	require.NoError(t, first.Set(int32(100)))
	require.NoError(t, inner.Set("flat"))
	assert.True(t, errors.Is(first.Set(int32(5)), ErrProtocolViolation), "set below a replaced value")
	_, err = inner.Child(1)
	assert.True(t, errors.Is(err, ErrProtocolViolation), "children of a replaced value")

	got, err := NewDecoder(nil).Unmarshal(root.ApplyChanges())
	require.NoError(t, err)
	assert.Equal(t, Collection{"flat", "tail"}, got)

	d := root.Changes()
	out, err := applyDelta(b, d)
	require.NoError(t, err)
	assert.Equal(t, root.ApplyChanges(), out)

	// the root itself can be replaced
	require.NoError(t, root.Set(int32(7)))
	assert.Equal(t, []byte{0x70}, root.ApplyChanges())
}

func TestValueUnchanged(t *testing.T) {
	b := unhex(t, userTypeHex)
	root, err := NewValue(b, nil)
	require.NoError(t, err)
	assert.False(t, root.IsDirty())
	assert.Nil(t, root.Changes())
	assert.Equal(t, b, root.ApplyChanges())

	list, err := root.Locate(2)
	require.NoError(t, err)
	assert.Equal(t, TCollection, list.TypeID())
	assert.Equal(t, 2, list.Index())
	assert.Equal(t, unhex(t, "55 02 68 7F"), list.Bytes())
}

func TestNewValueErrors(t *testing.T) {
	_, err := NewValue(unhex(t, "69 69"), nil)
	assert.True(t, errors.Is(err, ErrMalformedStream), "trailing bytes: %v", err)

	_, err = NewValue(unhex(t, "55 02 69"), nil)
	assert.True(t, errors.Is(err, ErrUnexpectedEndOfStream), "truncated: %v", err)
}
