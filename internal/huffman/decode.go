// Copyright 2026 by Corey Pennycuff

package huffman

import (
	"math/bits"

	"github.com/coreyp1/compress-sub001/internal/bitio"
)

// The decode table layout (chunk & countMask is bit length, chunk >>
// valueShift is symbol or link index) is ported from compress/flate's
// huffmanDecoder, generalized to a caller-chosen table width so the
// deflate method can use 9 bits for literal/length and 7 for distance, per
// spec section 4.3.
const (
	countMask  = 15
	valueShift = 4
)

// Decoder is a fast canonical-Huffman decode table: direct lookup over the
// ChunkBits longest-used-code-length bits (bit-reversed to natural order,
// since codes are transmitted MSB-first but our bit reader is LSB-first),
// with an overflow link table for codes longer than ChunkBits.
type Decoder struct {
	min       int
	chunkBits uint
	chunks    []uint32
	links     [][]uint32
	linkMask  uint32
}

// Result is the outcome of a single Decode call.
type Result int

const (
	Ok Result = iota
	NeedMoreInput
	InvalidCode
)

// NewDecoder builds a fast decode table from per-symbol code lengths.
// chunkBits caps the direct-lookup table width (9 for literal/length, 7
// for distance, per spec section 4.3); codes longer than chunkBits spill
// into an overflow link table indexed by the remaining bits.
func NewDecoder(lengths []int, chunkBits uint) (*Decoder, error) {
	cl, err := buildCanonical(lengths, MaxCodeLen)
	if err != nil {
		return nil, err
	}

	d := &Decoder{min: cl.Min, chunkBits: chunkBits}
	d.chunks = make([]uint32, 1<<chunkBits)
	if cl.Max == 0 {
		return d, nil // empty tree; Decode will always report InvalidCode
	}

	if cl.Max > int(chunkBits) {
		numLinks := 1 << (uint(cl.Max) - chunkBits)
		d.linkMask = uint32(numLinks - 1)

		// Reconstruct the next_code state at chunkBits+1 to find where
		// the overflow region of the direct table begins.
		var count [MaxCodeLen + 1]int
		for _, n := range cl.Lengths {
			if n > 0 {
				count[n]++
			}
		}
		code := 0
		var nextCode [MaxCodeLen + 1]int
		for i := cl.Min; i <= cl.Max; i++ {
			code <<= 1
			nextCode[i] = code
			code += count[i]
		}
		link := nextCode[chunkBits+1] >> 1
		d.links = make([][]uint32, (1<<chunkBits)-link)
		for j := link; j < 1<<chunkBits; j++ {
			reverse := int(bits.Reverse16(uint16(j))) >> (16 - chunkBits)
			off := j - link
			d.chunks[reverse] = uint32(off<<valueShift | int(chunkBits+1))
			d.links[off] = make([]uint32, numLinks)
		}
	}

	for i, n := range cl.Lengths {
		if n == 0 {
			continue
		}
		code := cl.Codes[i]
		chunk := uint32(i<<valueShift | n)
		reverse := int(bits.Reverse16(code)) >> (16 - n)
		if n <= int(chunkBits) {
			for off := reverse; off < len(d.chunks); off += 1 << uint(n) {
				d.chunks[off] = chunk
			}
		} else {
			j := reverse & (1<<chunkBits - 1)
			value := d.chunks[j] >> valueShift
			linktab := d.links[value]
			reverse >>= chunkBits
			for off := reverse; off < len(linktab); off += 1 << uint(n-int(chunkBits)) {
				linktab[off] = chunk
			}
		}
	}

	return d, nil
}

// MemoryFootprint estimates the bytes held by this decode table's chunk
// array and overflow links, for a method's limits.max_memory_bytes
// accounting.
func (d *Decoder) MemoryFootprint() uint64 {
	n := uint64(len(d.chunks)) * 4
	for _, l := range d.links {
		n += uint64(len(l)) * 4
	}
	return n
}

// Decode reads the next Huffman-encoded symbol from r. NeedMoreInput means
// r's current view was exhausted before a full code could be read; the
// caller should return control to its driver and call Decode again once
// more input is available (any bits already pulled remain buffered).
func (d *Decoder) Decode(r *bitio.Reader) (sym int, res Result) {
	n := uint(d.min)
	for {
		if !r.FillAtLeast(n) {
			return 0, NeedMoreInput
		}
		chunk := d.chunks[r.Bits&(1<<d.chunkBits-1)]
		n = uint(chunk & countMask)
		if n > d.chunkBits {
			chunk = d.links[chunk>>valueShift][(r.Bits>>d.chunkBits)&d.linkMask]
			n = uint(chunk & countMask)
		}
		if n <= r.NBits {
			if n == 0 {
				return 0, InvalidCode
			}
			r.Consume(n)
			return int(chunk >> valueShift), Ok
		}
	}
}
