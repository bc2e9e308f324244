// Copyright 2026 by Corey Pennycuff

// Package deflate implements the "deflate" method: a from-scratch RFC 1951
// DEFLATE encoder and decoder plugged into the root registry as a
// MethodDescriptor. The decoder's fast Huffman lookup and window handling
// are grounded on compress/flate's huffmanDecoder as forked in
// internal/flate/inflate.go; the encoder's match finder and block
// formatter follow the same RFC but have no equivalent fork in the
// retrieval pack, so they are built from the standard's own description.
package deflate

// lengthBase and lengthExtraBits are indexed by (symbol - 257) for
// literal/length symbols 257..285, giving the base match length and the
// number of extra bits that follow the Huffman code (RFC 1951 3.2.5).
var lengthBase = [29]int{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13,
	15, 17, 19, 23, 27, 31, 35, 43, 51, 59,
	67, 83, 99, 115, 131, 163, 195, 227, 258,
}

var lengthExtraBits = [29]int{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1,
	1, 1, 2, 2, 2, 2, 3, 3, 3, 3,
	4, 4, 4, 4, 5, 5, 5, 5, 0,
}

// distBase and distExtraBits are indexed by distance symbol 0..29.
var distBase = [30]int{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25,
	33, 49, 65, 97, 129, 193, 257, 385, 513, 769,
	1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577,
}

var distExtraBits = [30]int{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3,
	4, 4, 5, 5, 6, 6, 7, 7, 8, 8,
	9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

// codeLengthOrder is the fixed permutation the HCLEN code-length-code
// lengths are transmitted in (RFC 1951 3.2.7).
var codeLengthOrder = [19]int{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

const (
	numLitLenSymbols = 288
	numDistSymbols   = 30
	endOfBlock       = 256
)

// fixedLitLenLengths and fixedDistLengths are the canonical fixed Huffman
// tables used by block type 01 (RFC 1951 3.2.6).
var fixedLitLenLengths = func() []int {
	l := make([]int, numLitLenSymbols)
	for i := 0; i <= 143; i++ {
		l[i] = 8
	}
	for i := 144; i <= 255; i++ {
		l[i] = 9
	}
	for i := 256; i <= 279; i++ {
		l[i] = 7
	}
	for i := 280; i <= 287; i++ {
		l[i] = 8
	}
	return l
}()

var fixedDistLengths = func() []int {
	l := make([]int, numDistSymbols)
	for i := range l {
		l[i] = 5
	}
	return l
}()

const windowSize = 32 << 10 // 32 KiB, RFC 1951's fixed back-reference limit
