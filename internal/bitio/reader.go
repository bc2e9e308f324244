// Copyright 2026 by Corey Pennycuff

// Package bitio provides least-significant-bit-first bit readers and
// writers over contiguous byte buffers. Both types are re-seated onto a
// fresh buffer on every call; the partial-byte carry (the accumulator and
// its bit count) is the caller's responsibility to persist between calls,
// matching the DEFLATE decoder/encoder's incremental resumption needs.
package bitio

// Reader pulls bits LSB-first out of a byte buffer. The zero value is a
// valid, empty reader. Callers that need to resume mid-stream keep a
// Reader value (or just its Bits/NBits fields) around between calls to
// Reseat.
type Reader struct {
	buf  []byte
	pos  int
	Bits  uint32 // bit accumulator, persisted by the caller across calls
	NBits uint   // number of valid low-order bits in Bits
}

// Reseat attaches the reader to a new input view, preserving any bits
// already buffered in the accumulator from a previous call.
func (r *Reader) Reseat(buf []byte) {
	r.buf = buf
	r.pos = 0
}

// Consumed reports how many bytes have been physically pulled from the
// current view into the accumulator. This is the only correct measure of
// "bytes consumed" for partial-I/O accounting: bytes sitting unconsumed in
// the accumulator were already charged against a prior call's view.
func (r *Reader) Consumed() int {
	return r.pos
}

// fill pulls one more byte from the view into the accumulator, reporting
// whether a byte was available.
func (r *Reader) fill() bool {
	if r.pos >= len(r.buf) {
		return false
	}
	r.Bits |= uint32(r.buf[r.pos]) << r.NBits
	r.NBits += 8
	r.pos++
	return true
}

// Read returns the next n bits (1 <= n <= 24) as the low bits of the
// result. ok is false if the view was exhausted before n bits could be
// assembled; in that case no bits are consumed and the caller should
// return control to its driver to request more input.
func (r *Reader) Read(n uint) (bits uint32, ok bool) {
	for r.NBits < n {
		if !r.fill() {
			return 0, false
		}
	}
	bits = r.Bits & (1<<n - 1)
	r.Bits >>= n
	r.NBits -= n
	return bits, true
}

// Peek is like Read but does not consume the bits; pair with Consume.
// It fills as many bytes as available, returning ok=false only when fewer
// than n bits could be buffered at all (the caller then needs more input).
func (r *Reader) Peek(n uint) (bits uint32, ok bool) {
	for r.NBits < n {
		if !r.fill() {
			return 0, false
		}
	}
	return r.Bits & (1<<n - 1), true
}

// Consume drops n already-peeked bits.
func (r *Reader) Consume(n uint) {
	r.Bits >>= n
	r.NBits -= n
}

// AlignToByte discards 0-7 bits so the next byte pulled via fill lines up
// with an original byte boundary of the underlying stream. Infallible.
func (r *Reader) AlignToByte() {
	drop := r.NBits % 8
	r.Bits >>= drop
	r.NBits -= drop
}

// ReadAlignedByte reads one raw byte directly from the view, bypassing the
// bit accumulator. Only valid when NBits == 0 (i.e. immediately after
// AlignToByte with no bits left over).
func (r *Reader) ReadAlignedByte() (b byte, ok bool) {
	if r.NBits != 0 {
		// Bits were pre-buffered past the alignment point; drain from
		// the accumulator instead of the raw view.
		v, ok := r.Read(8)
		return byte(v), ok
	}
	if r.pos >= len(r.buf) {
		return 0, false
	}
	b = r.buf[r.pos]
	r.pos++
	return b, true
}

// IsEOF reports whether the current view is exhausted and the accumulator
// holds no buffered bits.
func (r *Reader) IsEOF() bool {
	return r.pos >= len(r.buf) && r.NBits == 0
}

// FillAtLeast tries to ensure at least n bits are buffered, pulling bytes
// from the view as needed. It returns false if the view ran out first;
// whatever bits were pulled remain buffered for the next call. Exported
// for the huffman package's fast-decode loop, which must peek a
// table-width number of bits while tolerating fewer near end-of-stream.
func (r *Reader) FillAtLeast(n uint) (ok bool) {
	for r.NBits < n {
		if !r.fill() {
			return false
		}
	}
	return true
}
