// Copyright 2026 by Corey Pennycuff

package huffman

import (
	"math/bits"
	"sort"

	"github.com/coreyp1/compress-sub001/internal/bitio"
)

// Encoder is a canonical Huffman code table ready for emission: for each
// symbol, length[i] and the bit-reversed code[i] (codes are transmitted
// most-significant-bit first, but bitio.Writer packs least-significant-bit
// first, so the bits are pre-reversed once at table-build time rather than
// on every emitted symbol).
type Encoder struct {
	code   []uint16
	length []int
}

// NewEncoder builds a canonical Huffman table over len(freq) symbols,
// weighted by freq, with no code longer than maxBits. Symbols with zero
// frequency are assigned length 0 (absent from the alphabet). Frequencies
// that are all zero produce an empty table.
func NewEncoder(freq []uint32, maxBits int) (*Encoder, error) {
	lengths, err := limitedLengthHuffman(freq, maxBits)
	if err != nil {
		return nil, err
	}
	cl, err := buildCanonical(lengths, maxBits)
	if err != nil {
		return nil, err
	}

	code := make([]uint16, len(lengths))
	for i, n := range lengths {
		if n == 0 {
			continue
		}
		code[i] = bits.Reverse16(cl.Codes[i]) >> (16 - uint(n))
	}
	return &Encoder{code: code, length: lengths}, nil
}

// Lengths returns the per-symbol code lengths (0 for absent symbols), the
// form needed both to serialize the dynamic-block code-length description
// and to feed a matching huffman.Decoder for round-trip tests.
func (e *Encoder) Lengths() []int { return e.length }

// Emit writes symbol's canonical code to w. ok is false (per bitio.Writer's
// contract) iff the output view filled before the whole code could be
// flushed; the caller must stop and retry on the next Update call.
func (e *Encoder) Emit(w *bitio.Writer, symbol int) (ok bool) {
	return w.Write(uint32(e.code[symbol]), uint(e.length[symbol]))
}

// BitLength returns the code length assigned to symbol, used by the block
// formatter to estimate a block's bit cost before committing to it.
func (e *Encoder) BitLength(symbol int) int { return e.length[symbol] }

type activeSymbol struct {
	symbol int
	freq   uint32
}

// huffTreeNode is a node in the unbounded-depth working tree: a leaf when
// left == -1, an internal merge of two earlier nodes otherwise.
type huffTreeNode struct {
	freq        uint64
	left, right int
}

// limitedLengthHuffman builds code lengths capped at maxBits. It first
// grows an ordinary (unbounded-depth) Huffman tree, then applies the
// classic overflow-repair histogram fix used by reference DEFLATE encoders
// when a code would otherwise exceed the format's maximum length. Bit-exact
// parity with any specific reference encoder is not a goal (spec.md §1
// Non-goals); only a valid, reasonably-short canonical code is required.
func limitedLengthHuffman(freq []uint32, maxBits int) ([]int, error) {
	lengths := make([]int, len(freq))

	var actives []activeSymbol
	for i, f := range freq {
		if f > 0 {
			actives = append(actives, activeSymbol{i, f})
		}
	}
	switch len(actives) {
	case 0:
		return lengths, nil
	case 1:
		lengths[actives[0].symbol] = 1
		return lengths, nil
	}

	depth := buildTreeDepths(actives)

	var blCount [MaxCodeLen + 2]int
	maxDepth := 0
	for _, d := range depth {
		if d > maxDepth {
			maxDepth = d
		}
	}
	if maxDepth <= maxBits {
		for i, a := range actives {
			lengths[a.symbol] = depth[i]
		}
		return lengths, nil
	}

	for _, d := range depth {
		if d > maxBits {
			d = maxBits
		}
		blCount[d]++
	}
	// Classic zlib-style overflow repair: while the clamped lengths
	// over-subscribe the code space, borrow a leaf from the deepest
	// populated level below the cap and push it and one maxBits leaf down
	// a level; each step frees exactly one maxBits-sized slot.
	overflow := -(1 << uint(maxBits))
	for l := 1; l <= maxBits; l++ {
		overflow += blCount[l] << uint(maxBits-l)
	}
	for overflow > 0 {
		l := maxBits - 1
		for l > 0 && blCount[l] == 0 {
			l--
		}
		if l == 0 {
			break // cannot happen for a valid alphabet with >1 symbol
		}
		blCount[l]--
		blCount[l+1] += 2
		blCount[maxBits]--
		overflow--
	}

	// Reassign lengths: symbols that started with a shallower
	// (higher-frequency) tree depth get the shortest corrected lengths,
	// preserving approximate frequency-ordering.
	order := make([]int, len(actives))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		da, db := depth[order[a]], depth[order[b]]
		if da != db {
			return da < db
		}
		return actives[order[a]].freq > actives[order[b]].freq
	})
	l := 1
	for blCount[l] == 0 {
		l++
	}
	remaining := blCount[l]
	for _, idx := range order {
		for remaining == 0 {
			l++
			remaining = blCount[l]
		}
		lengths[actives[idx].symbol] = l
		remaining--
	}
	return lengths, nil
}

// buildTreeDepths grows a standard two-smallest-first Huffman tree over
// actives and returns each active symbol's leaf depth (its unbounded code
// length), in the same order as actives.
func buildTreeDepths(actives []activeSymbol) []int {
	nodes := make([]huffTreeNode, len(actives))
	for i, a := range actives {
		nodes[i] = huffTreeNode{freq: uint64(a.freq), left: -1, right: -1}
	}

	var pq minHeap
	for i := range nodes {
		pq.push(nodes, i)
	}

	for len(pq) > 1 {
		a := pq.pop(nodes)
		b := pq.pop(nodes)
		nodes = append(nodes, huffTreeNode{freq: nodes[a].freq + nodes[b].freq, left: a, right: b})
		pq.push(nodes, len(nodes)-1)
	}

	depth := make([]int, len(nodes))
	root := pq[0]
	var walk func(n, d int)
	walk = func(n, d int) {
		if nodes[n].left == -1 {
			depth[n] = d
			return
		}
		walk(nodes[n].left, d+1)
		walk(nodes[n].right, d+1)
	}
	walk(root, 0)
	return depth[:len(actives)]
}

// minHeap is a tiny binary min-heap over node indices, keyed by the
// frequency of the (externally owned, growing) node slice passed to each
// operation.
type minHeap []int

func (q *minHeap) push(nodes []huffTreeNode, idx int) {
	*q = append(*q, idx)
	i := len(*q) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if nodes[(*q)[parent]].freq <= nodes[(*q)[i]].freq {
			break
		}
		(*q)[parent], (*q)[i] = (*q)[i], (*q)[parent]
		i = parent
	}
}

func (q *minHeap) pop(nodes []huffTreeNode) int {
	top := (*q)[0]
	last := len(*q) - 1
	(*q)[0] = (*q)[last]
	*q = (*q)[:last]
	i := 0
	for {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < len(*q) && nodes[(*q)[l]].freq < nodes[(*q)[smallest]].freq {
			smallest = l
		}
		if r < len(*q) && nodes[(*q)[r]].freq < nodes[(*q)[smallest]].freq {
			smallest = r
		}
		if smallest == i {
			break
		}
		(*q)[i], (*q)[smallest] = (*q)[smallest], (*q)[i]
		i = smallest
	}
	return top
}
