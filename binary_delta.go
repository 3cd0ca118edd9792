package pof

import (
	"bytes"

	"github.com/dchest/siphash"
)

// block index keys
const (
	blockKey0 = 0x706f662d64656c74
	blockKey1 = 0x612d626c6f636b73
)

// BinaryDeltaCompressor diffs two byte slices without interpreting them.
// Blocks of the old value are indexed by hash, and matches found in the
// new value are extended as far as the bytes agree.
type BinaryDeltaCompressor struct {
	// BlockSize is the indexed block length; it defaults to 16.
	BlockSize int
}

func (c BinaryDeltaCompressor) blockSize() int {
	if c.BlockSize <= 0 {
		return 16
	}
	return c.BlockSize
}

func (c BinaryDeltaCompressor) ApplyDelta(old, delta []byte) ([]byte, error) {
	return applyDelta(old, delta)
}

func (c BinaryDeltaCompressor) ExtractDelta(old, new []byte) ([]byte, error) {
	if d, ok := trivialDelta(old, new); ok {
		return d, nil
	}

	bs := c.blockSize()
	if len(old) < bs || len(new) < bs {
		return replaceDelta(new), nil
	}

	index := make(map[uint64][]int, len(old)/bs)
	for off := 0; off+bs <= len(old); off += bs {
		h := siphash.Hash(blockKey0, blockKey1, old[off:off+bs])
		index[h] = append(index[h], off)
	}

	out := make([]byte, 0, len(new)/4+8)
	out = append(out, FmtBinDiff)

	pending := 0 // start of new bytes not yet covered
	for p := 0; p+bs <= len(new); {
		h := siphash.Hash(blockKey0, blockKey1, new[p:p+bs])
		oldOff, newOff, n := longestMatch(old, new, index[h], p, pending, bs)
		if n < bs || n <= MinBlock {
			p++
			continue
		}

		out = appendOp(out, new[pending:newOff])
		out = append(out, OpExtract)
		out = appendPacked(out, oldOff)
		out = appendPacked(out, n)
		p = newOff + n
		pending = p
	}
	out = appendOp(out, new[pending:])
	out = append(out, OpTerm)

	return smallest(out, new), nil
}

// appendOp appends b as an OpAppend operation unless it is empty.
func appendOp(out, b []byte) []byte {
	if len(b) == 0 {
		return out
	}
	out = append(out, OpAppend)
	out = appendPacked(out, len(b))
	return append(out, b...)
}

// longestMatch checks the candidate blocks for new[p:p+bs] and extends
// each match in both directions, never back past floor. It returns the
// old and new offsets and the length of the longest match.
func longestMatch(old, new []byte, candidates []int, p, floor, bs int) (oldOff, newOff, n int) {
	for _, c := range candidates {
		if !bytes.Equal(old[c:c+bs], new[p:p+bs]) {
			continue
		}

		start, ns := c, p
		for start > 0 && ns > floor && old[start-1] == new[ns-1] {
			start--
			ns--
		}
		end := c + bs
		for ne := p + bs; end < len(old) && ne < len(new) && old[end] == new[ne]; ne++ {
			end++
		}

		if l := end - start; l > n {
			oldOff, newOff, n = start, ns, l
		}
	}
	return
}
