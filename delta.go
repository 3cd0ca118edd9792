package pof

import (
	"bytes"

	"go.uber.org/zap"
)

// DeltaCompressor computes and applies the difference between two
// encoded values.
type DeltaCompressor interface {
	// ExtractDelta returns a delta that turns old into new, or nil when
	// they are equal.
	ExtractDelta(old, new []byte) ([]byte, error)

	// ApplyDelta applies a delta produced by ExtractDelta to old. A nil
	// delta returns old.
	ApplyDelta(old, delta []byte) ([]byte, error)
}

// Delta formats, the first byte of every delta.
const (
	FmtEmpty   = 0xF6
	FmtReplace = 0xF7
	FmtBinDiff = 0xF8
)

// Operations of a FmtBinDiff delta.
const (
	OpTerm    = 0x00
	OpExtract = 0x01
	OpAppend  = 0x02
)

// MinBlock is the shortest run of equal bytes worth an OpExtract.
const MinBlock = 12

// trivialDelta handles the cases that need no diff.
func trivialDelta(old, new []byte) ([]byte, bool) {
	switch {
	case len(new) == 0:
		if len(old) == 0 {
			return nil, true
		}
		return []byte{FmtEmpty}, true
	case len(old) == 0:
		return replaceDelta(new), true
	case bytes.Equal(old, new):
		return nil, true
	}
	return nil, false
}

func replaceDelta(new []byte) []byte {
	d := make([]byte, 0, len(new)+1)
	d = append(d, FmtReplace)
	return append(d, new...)
}

// smallest returns a FmtReplace delta when it is no larger than d.
func smallest(d, new []byte) []byte {
	if len(d) >= len(new)+1 {
		return replaceDelta(new)
	}
	return d
}

func applyDelta(old, delta []byte) ([]byte, error) {
	if delta == nil {
		return old, nil
	}
	if len(delta) == 0 {
		return nil, malformed(errBadDelta).at(0)
	}

	switch delta[0] {
	case FmtEmpty:
		if len(delta) != 1 {
			return nil, malformed(errBadDelta).at(1)
		}
		return []byte{}, nil
	case FmtReplace:
		return append([]byte(nil), delta[1:]...), nil
	case FmtBinDiff:
		return applyOps(old, delta)
	}
	return nil, malformed("unknown delta format 0x%02X", delta[0]).at(0)
}

func applyOps(old, delta []byte) (out []byte, err error) {
	defer recoverError(&err)

	in := newInput(delta)
	in.off = 1
	out = make([]byte, 0, len(old))
	for {
		off := in.offset()
		switch op := in.readByte(); op {
		case OpTerm:
			if in.remaining() != 0 {
				return nil, malformed(errTrailingBytes).at(in.offset())
			}
			return out, nil

		case OpExtract:
			from, n := in.readPacked(), in.readPacked()
			if from < 0 || n < 0 || from+n > len(old) || from+n < from {
				return nil, malformed("extract [%d:+%d] outside old value of %d bytes", from, n, len(old)).at(off)
			}
			out = append(out, old[from:from+n]...)

		case OpAppend:
			n := in.readPacked()
			if n < 0 {
				return nil, malformed(errBadLength).at(off)
			}
			out = append(out, in.readBytes(n)...)

		default:
			return nil, malformed("unknown delta operation 0x%02X", op).at(off)
		}
	}
}

// PofDeltaCompressor diffs two encoded values structurally, comparing
// them value by value. Inputs it cannot walk in step are handed to
// Fallback.
type PofDeltaCompressor struct {
	// Fallback defaults to a BinaryDeltaCompressor.
	Fallback DeltaCompressor
}

func (c PofDeltaCompressor) fallback() DeltaCompressor {
	if c.Fallback == nil {
		return BinaryDeltaCompressor{}
	}
	return c.Fallback
}

func (c PofDeltaCompressor) ExtractDelta(old, new []byte) ([]byte, error) {
	if d, ok := trivialDelta(old, new); ok {
		return d, nil
	}

	d, err := diffPof(old, new)
	if err != nil {
		Logger().Debug("reverting to binary delta",
			zap.Int("old", len(old)), zap.Int("new", len(new)), zap.Error(err))
		return c.fallback().ExtractDelta(old, new)
	}
	return smallest(d, new), nil
}

func (c PofDeltaCompressor) ApplyDelta(old, delta []byte) ([]byte, error) {
	return applyDelta(old, delta)
}

func diffPof(old, new []byte) (d []byte, err error) {
	defer recoverError(&err)

	df := &differ{old: newInput(old), new: newInput(new)}
	df.t = newChangeTracker(df.old, df.new)
	df.diffValue()
	if df.old.remaining() != 0 || df.new.remaining() != 0 {
		return nil, malformed(errTrailingBytes).at(df.new.offset())
	}
	return df.t.delta(), nil
}

// differ walks two streams in step and reports equal and different
// regions to its tracker.
type differ struct {
	old, new *input
	t        *changeTracker
}

func (d *differ) advance(same bool) { d.t.advance(same) }

func (d *differ) diffValue() {
	d.old.setMark()
	d.new.setMark()
	oldType, newType := d.old.readPacked(), d.new.readPacked()

	if oldType == TIdentity || newType == TIdentity {
		bothID := true
		oldID, newID := -1, -1
		if oldType == TIdentity {
			oldID = d.old.readPacked()
		} else {
			bothID = false
			d.old.reset()
		}
		if newType == TIdentity {
			newID = d.new.readPacked()
		} else {
			bothID = false
			d.new.reset()
		}
		d.advance(bothID && oldID == newID)
		oldType, newType = d.old.readPacked(), d.new.readPacked()
	}

	if oldType == newType {
		d.advance(true)
		d.diffUniformValue(oldType)
		return
	}
	skipUniformValue(d.old, oldType)
	skipUniformValue(d.new, newType)
	d.advance(false)
}

func (d *differ) diffUniformValue(typ int) {
	if typ >= 0 {
		d.diffSparseArray()
		return
	}

	switch typ {
	case TInt16, TInt32, TInt64, TBoolean, TReference:
		d.diffPackedInts(1)

	case TInt128:
		d.advance(d.old.readBigInt().Cmp(d.new.readBigInt()) == 0)

	case TFloat32:
		d.advance(d.old.readUint32() == d.new.readUint32())

	case TFloat64:
		d.advance(d.old.readUint64() == d.new.readUint64())

	case TFloat128:
		d.advance(bytes.Equal(d.old.readBytes(16), d.new.readBytes(16)))

	case TDecimal32, TDecimal64, TDecimal128:
		d.advance(readDecimal(d.old).Equal(readDecimal(d.new)))

	case TOctet:
		d.advance(d.old.readByte() == d.new.readByte())

	case TChar:
		d.advance(d.old.readChar() == d.new.readChar())

	case TOctetString, TCharString:
		oldLen, newLen := d.old.readPacked(), d.new.readPacked()
		if oldLen == newLen {
			d.advance(true)
			if oldLen > 0 {
				d.advance(bytes.Equal(d.old.readBytes(oldLen), d.new.readBytes(newLen)))
			}
			return
		}
		if oldLen > 0 {
			d.old.skip(oldLen)
		}
		if newLen > 0 {
			d.new.skip(newLen)
		}
		d.advance(false)

	case TDate:
		d.diffPackedInts(3)

	case TYearMonthInterval:
		d.diffPackedInts(2)

	case TTime:
		d.diffPackedInts(4)
		d.diffTimeZone()

	case TTimeInterval:
		d.diffPackedInts(4)

	case TDateTime:
		d.diffPackedInts(7)
		d.diffTimeZone()

	case TDayTimeInterval:
		d.diffPackedInts(5)

	case TCollection, TArray:
		d.diffCollection(1)

	case TUniformCollection, TUniformArray:
		d.diffUniformCollection()

	case TSparseArray:
		d.diffSparseArray()

	case TUniformSparseArray:
		d.diffUniformSparseArray()

	case TMap:
		d.diffCollection(2)

	case TUniformKeysMap:
		d.diffUniformKeysMap()

	case TUniformMap:
		d.diffUniformMap()

	default:
		if IsTinyValue(typ) {
			d.advance(true)
			return
		}
		panic(malformed(errIllegalType).at(d.new.offset()).withTag(typ))
	}
}

// diffCollection diffs a count followed by count groups of width values.
func (d *differ) diffCollection(width int) {
	oldCount, newCount := d.old.readPacked(), d.new.readPacked()
	same := oldCount == newCount
	d.advance(same)

	n := oldCount
	if newCount < n {
		n = newCount
	}
	for i := 0; i < n*width; i++ {
		d.diffValue()
	}
	if same {
		return
	}

	in, from, to := d.longer(oldCount, newCount)
	for i := from * width; i < to*width; i++ {
		skipValue(in)
	}
	d.advance(false)
}

// longer returns the input with more elements and the element range it
// has beyond the other.
func (d *differ) longer(oldCount, newCount int) (*input, int, int) {
	if oldCount > newCount {
		return d.old, newCount, oldCount
	}
	return d.new, oldCount, newCount
}

func (d *differ) diffUniformCollection() {
	oldType, newType := d.old.readPacked(), d.new.readPacked()
	sameType := oldType == newType
	d.advance(sameType)

	oldCount, newCount := d.old.readPacked(), d.new.readPacked()
	sameCount := oldCount == newCount
	d.advance(sameCount)

	if !sameType {
		for i := 0; i < oldCount; i++ {
			skipUniformValue(d.old, oldType)
		}
		for i := 0; i < newCount; i++ {
			skipUniformValue(d.new, newType)
		}
		d.advance(false)
		return
	}

	n := oldCount
	if newCount < n {
		n = newCount
	}
	for i := 0; i < n; i++ {
		d.diffUniformValue(oldType)
	}
	if !sameCount {
		in, from, to := d.longer(oldCount, newCount)
		for i := from; i < to; i++ {
			skipUniformValue(in, oldType)
		}
		d.advance(false)
	}
}

// diffSparseArray diffs a count (or user type version) followed by
// indexed values up to -1. Indices present on one side only are skipped
// so both sides stay on the same index.
func (d *differ) diffSparseArray() {
	d.diffPackedInts(1)
	for {
		d.old.setMark()
		d.new.setMark()
		oldNext, newNext := d.old.readPacked(), d.new.readPacked()
		if oldNext == newNext {
			d.advance(true)
			if oldNext < 0 {
				return
			}
			d.diffValue()
			continue
		}

		if oldNext < 0 || (oldNext > newNext && newNext >= 0) {
			d.old.reset()
			skipValue(d.new)
		} else {
			d.new.reset()
			skipValue(d.old)
		}
		d.advance(false)
	}
}

func (d *differ) diffUniformSparseArray() {
	oldType, newType := d.old.readPacked(), d.new.readPacked()
	sameType := oldType == newType
	d.advance(sameType)

	oldCount, newCount := d.old.readPacked(), d.new.readPacked()
	d.advance(oldCount == newCount)

	if !sameType {
		skipSparse(d.old, oldType, oldCount)
		skipSparse(d.new, newType, newCount)
		d.advance(false)
		return
	}

	for {
		d.old.setMark()
		d.new.setMark()
		oldNext, newNext := d.old.readPacked(), d.new.readPacked()
		if oldNext == newNext {
			d.advance(true)
			if oldNext < 0 {
				return
			}
			d.diffUniformValue(oldType)
			continue
		}

		if oldNext < 0 || (oldNext > newNext && newNext >= 0) {
			d.old.reset()
			skipUniformValue(d.new, oldType)
		} else {
			d.new.reset()
			skipUniformValue(d.old, oldType)
		}
		d.advance(false)
	}
}

// skipSparse skips the indexed uniform values of a sparse array whose
// count was already read.
func skipSparse(in *input, typ, count int) {
	for i := 0; i <= count; i++ {
		if in.readPacked() < 0 {
			return
		}
		skipUniformValue(in, typ)
	}
	panic(malformed("sparse array holds more than %d values", count).at(in.offset()))
}

func (d *differ) diffUniformKeysMap() {
	oldType, newType := d.old.readPacked(), d.new.readPacked()
	sameType := oldType == newType
	d.advance(sameType)

	oldCount, newCount := d.old.readPacked(), d.new.readPacked()
	sameCount := oldCount == newCount
	d.advance(sameCount)

	n := oldCount
	if newCount < n {
		n = newCount
	}
	for i := 0; i < n; i++ {
		d.diffKeyOrValue(sameType, oldType, newType)
		d.diffValue()
	}
	if sameCount {
		return
	}

	in, from, to := d.longer(oldCount, newCount)
	typ := newType
	if in == d.old {
		typ = oldType
	}
	for i := from; i < to; i++ {
		skipUniformValue(in, typ)
		skipValue(in)
	}
	d.advance(false)
}

func (d *differ) diffUniformMap() {
	oldKey, newKey := d.old.readPacked(), d.new.readPacked()
	sameKey := oldKey == newKey
	d.advance(sameKey)

	oldVal, newVal := d.old.readPacked(), d.new.readPacked()
	sameVal := oldVal == newVal
	d.advance(sameVal)

	oldCount, newCount := d.old.readPacked(), d.new.readPacked()
	sameCount := oldCount == newCount
	d.advance(sameCount)

	if !sameKey && !sameVal {
		for i := 0; i < oldCount; i++ {
			skipUniformValue(d.old, oldKey)
			skipUniformValue(d.old, oldVal)
		}
		for i := 0; i < newCount; i++ {
			skipUniformValue(d.new, newKey)
			skipUniformValue(d.new, newVal)
		}
		d.advance(false)
		return
	}

	n := oldCount
	if newCount < n {
		n = newCount
	}
	for i := 0; i < n; i++ {
		d.diffKeyOrValue(sameKey, oldKey, newKey)
		d.diffKeyOrValue(sameVal, oldVal, newVal)
	}
	if sameCount {
		return
	}

	in, from, to := d.longer(oldCount, newCount)
	keyType, valType := newKey, newVal
	if in == d.old {
		keyType, valType = oldKey, oldVal
	}
	for i := from; i < to; i++ {
		skipUniformValue(in, keyType)
		skipUniformValue(in, valType)
	}
	d.advance(false)
}

// diffKeyOrValue diffs one uniform value, or skips both sides when their
// declared types differ.
func (d *differ) diffKeyOrValue(same bool, oldType, newType int) {
	if same {
		d.diffUniformValue(oldType)
		return
	}
	skipUniformValue(d.old, oldType)
	skipUniformValue(d.new, newType)
	d.advance(false)
}

func (d *differ) diffTimeZone() {
	oldZone, newZone := d.old.readPacked(), d.new.readPacked()
	if oldZone == newZone {
		d.advance(true)
		if oldZone == int(ZoneOffset) {
			d.diffPackedInts(2)
		}
		return
	}

	if oldZone == int(ZoneOffset) {
		skipPackedInts(d.old, 2)
	} else if newZone == int(ZoneOffset) {
		skipPackedInts(d.new, 2)
	}
	d.advance(false)
}

func (d *differ) diffPackedInts(n int) {
	for i := 0; i < n; i++ {
		d.advance(d.old.readPackedInt64() == d.new.readPackedInt64())
	}
}

const (
	trackSame = iota
	trackDiff
	trackFinal
)

// changeTracker turns a sequence of same/different regions into delta
// operations. Equal regions shorter than MinBlock are folded into the
// surrounding append. Extracts copy from the old stream, since equal
// values may be encoded differently.
type changeTracker struct {
	old, new *input
	out      []byte

	lastOldDiff  int
	lastOldSame  int
	lastNewWrite int
	lastNewDiff  int
	lastNewSame  int
}

func newChangeTracker(old, new *input) *changeTracker {
	n := len(old.buf)
	if len(new.buf) > n {
		n = len(new.buf)
	}
	if n < 64 {
		n = 64
	} else if n > 1024 {
		n = 1024
	}

	out := make([]byte, 0, n)
	return &changeTracker{old: old, new: new, out: append(out, FmtBinDiff)}
}

func (t *changeTracker) advance(same bool) {
	if same {
		t.update(trackSame)
	} else {
		t.update(trackDiff)
	}
}

// delta flushes the pending region and terminates the delta.
func (t *changeTracker) delta() []byte {
	t.update(trackFinal)
	return append(t.out, OpTerm)
}

func (t *changeTracker) update(u int) {
	currOld, currNew := t.old.offset(), t.new.offset()
	prevSame := t.lastOldSame > t.lastOldDiff || t.lastNewSame > t.lastNewDiff

	// flushing toggles the state to force out the pending region
	last := u == trackFinal
	same := u == trackSame
	if last {
		same = !prevSame
	}

	if same || last {
		// a long enough same run ends the diff run before it
		if (currNew-t.lastNewDiff > MinBlock || last) && t.lastNewDiff > t.lastNewWrite {
			from, n := t.lastNewWrite, t.lastNewDiff-t.lastNewWrite
			t.out = append(t.out, OpAppend)
			t.out = appendPacked(t.out, n)
			t.out = append(t.out, t.new.buf[from:from+n]...)
			t.lastNewWrite = t.lastNewDiff
		}
	}

	if same {
		t.lastOldSame, t.lastNewSame = currOld, currNew
		return
	}

	if prevSame {
		from, n := t.lastOldDiff, t.lastOldSame-t.lastOldDiff
		if n > 0 {
			if n > MinBlock || last {
				t.out = append(t.out, OpExtract)
				t.out = appendPacked(t.out, from)
				t.out = appendPacked(t.out, n)
				t.lastNewWrite = t.lastNewSame
			} else {
				// too short; becomes part of the diff run
				t.lastOldSame, t.lastNewSame = 0, 0
			}
		}
	}
	t.lastOldDiff, t.lastNewDiff = currOld, currNew
}
