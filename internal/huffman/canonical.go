// Copyright 2026 by Corey Pennycuff

// Package huffman builds and uses canonical Huffman codes for the DEFLATE
// literal/length, distance, and code-length alphabets. The construction
// procedure (bl_count / next_code) and completeness check are grounded on
// compress/flate's huffmanDecoder.init, generalized to also hand back the
// codes needed by an encoder.
package huffman

import "fmt"

// MaxCodeLen is the largest code length DEFLATE allows for the literal/
// length and distance alphabets (RFC 1951 3.2.7).
const MaxCodeLen = 15

// codesAndLengths is the canonical assignment derived from a vector of
// per-symbol code lengths: for each symbol with Lengths[i] > 0, Codes[i]
// holds its canonical (non-bit-reversed) code value.
type codesAndLengths struct {
	Codes   []uint16
	Lengths []int
	Min     int
	Max     int
}

// buildCanonical assigns a canonical Huffman code to each symbol with
// lengths[i] > 0, in ascending (length, symbol) order, and validates that
// the construction is neither over- nor under-subscribed (the sole
// exception being the degenerate single-code, length-1 case zlib and this
// library both accept for compatibility).
func buildCanonical(lengths []int, maxBits int) (codesAndLengths, error) {
	var count [MaxCodeLen + 1]int
	min, max := 0, 0
	for _, n := range lengths {
		if n == 0 {
			continue
		}
		if n > maxBits {
			return codesAndLengths{}, fmt.Errorf("huffman: code length %d exceeds max %d", n, maxBits)
		}
		if min == 0 || n < min {
			min = n
		}
		if n > max {
			max = n
		}
		count[n]++
	}

	codes := make([]uint16, len(lengths))
	if max == 0 {
		return codesAndLengths{Codes: codes, Lengths: lengths, Min: 0, Max: 0}, nil
	}

	code := 0
	var nextCode [MaxCodeLen + 1]int
	for i := min; i <= max; i++ {
		code <<= 1
		nextCode[i] = code
		code += count[i]
	}

	if code != 1<<uint(max) && !(code == 1 && max == 1) {
		return codesAndLengths{}, fmt.Errorf("huffman: code is %s", subscriptionError(code, max))
	}

	for i, n := range lengths {
		if n == 0 {
			continue
		}
		codes[i] = uint16(nextCode[n])
		nextCode[n]++
	}

	return codesAndLengths{Codes: codes, Lengths: lengths, Min: min, Max: max}, nil
}

func subscriptionError(code, max int) string {
	if code > 1<<uint(max) {
		return "over-subscribed"
	}
	return "under-subscribed"
}
