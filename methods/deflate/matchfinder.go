// Copyright 2026 by Corey Pennycuff

package deflate

// matchFinder is a classic 15-bit-hash hash-chain LZ77 match finder over
// three-byte prefixes (spec section 4.5): head maps a hash to the most
// recent position sharing it; prev maps a position to the previous
// position sharing the same hash, forming a singly-linked chain walked
// back in time, capped at windowSize behind the current position.
type matchFinder struct {
	head    []int32
	prev    []int32
	maxDist int
}

// newMatchFinder returns a match finder whose chain walk never considers a
// candidate more than maxDist bytes behind the current position — the
// format's own 32 KiB ceiling (windowSize) unless limits.max_window_bytes
// asks for something tighter.
func newMatchFinder(maxDist int) *matchFinder {
	head := make([]int32, hashSize)
	for i := range head {
		head[i] = -1
	}
	return &matchFinder{head: head, maxDist: maxDist}
}

// insert records position p (buf[p:p+3] must be valid) in the hash chain.
func (m *matchFinder) insert(buf []byte, p int) {
	for len(m.prev) <= p {
		m.prev = append(m.prev, -1)
	}
	h := hash3(buf[p], buf[p+1], buf[p+2])
	m.prev[p] = m.head[h]
	m.head[h] = int32(p)
}

// find searches for the longest match starting at buf[p], walking at most
// maxChain candidates and stopping early once a match reaches niceMatch;
// goodMatch is not consulted. limit caps how far beyond p the match may
// extend (the lookahead available). Returns length 0 if no match of at
// least minMatchLen was found.
func (m *matchFinder) find(buf []byte, p, limit int, params levelParams) (length, distance int) {
	if params.maxChain == 0 || p+minMatchLen > len(buf) {
		return 0, 0
	}
	h := hash3(buf[p], buf[p+1], buf[p+2])
	cand := m.head[h]
	chain := params.maxChain
	bestLen := minMatchLen - 1

	for cand >= 0 && chain > 0 {
		c := int(cand)
		dist := p - c
		if dist > m.maxDist {
			break
		}
		if dist >= 1 {
			l := matchLength(buf, c, p, limit)
			if l > bestLen {
				bestLen = l
				distance = dist
				if l >= params.niceMatch {
					break
				}
			}
		}
		cand = m.prev[c]
		chain--
	}

	if bestLen < minMatchLen {
		return 0, 0
	}
	return bestLen, distance
}

// matchLength returns how many bytes buf[a:] and buf[b:] (b > a) agree on,
// capped at maxMatchLen and at the available lookahead (limit bytes from
// b), never reading past len(buf).
func matchLength(buf []byte, a, b, limit int) int {
	max := limit
	if max > maxMatchLen {
		max = maxMatchLen
	}
	if b+max > len(buf) {
		max = len(buf) - b
	}
	n := 0
	for n < max && buf[a+n] == buf[b+n] {
		n++
	}
	return n
}
