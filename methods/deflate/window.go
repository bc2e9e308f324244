// Copyright 2026 by Corey Pennycuff

package deflate

// levelParams holds the match-finder tuning for one compression level, per
// spec section 4.5's nine-level table. Exact numeric values are design
// targets, not a bit-exact contract with any reference encoder (spec.md
// section 1 Non-goals).
type levelParams struct {
	goodMatch int
	maxLazy   int
	niceMatch int
	maxChain  int
	lazy      bool
}

var levelTable = [10]levelParams{
	0: {0, 0, 0, 0, false},
	1: {4, 4, 8, 4, false},
	2: {4, 5, 16, 8, false},
	3: {4, 6, 32, 32, false},
	4: {4, 16, 32, 32, true},
	5: {8, 16, 32, 32, true},
	6: {8, 16, 128, 128, true},
	7: {8, 32, 128, 256, true},
	8: {32, 128, 258, 1024, true},
	9: {32, 258, 258, 4096, true},
}

const (
	minMatchLen = 3
	maxMatchLen = 258
	hashBits    = 15
	hashSize    = 1 << hashBits
)

func hash3(a, b, c byte) uint32 {
	v := uint32(a) | uint32(b)<<8 | uint32(c)<<16
	return (v * 2654435761) >> (32 - hashBits)
}

// token is one emitted LZ77 symbol: either a literal byte or a
// (length, distance) back-reference.
type token struct {
	isMatch bool
	lit     byte
	length  int
	dist    int
}

const maxTokensPerBlock = 16 << 10
