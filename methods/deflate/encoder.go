// Copyright 2026 by Corey Pennycuff

package deflate

import (
	"github.com/coreyp1/compress-sub001"
	"github.com/coreyp1/compress-sub001/internal/bitio"
	"github.com/coreyp1/compress-sub001/internal/huffman"
)

type encStage int

const (
	encActive encStage = iota
	encDone
	encFailed
)

// scratchSize is the bit writer's working buffer; drained into outPending
// whenever it runs low on room, so a single token or block header never
// has to worry about running out of space mid-emission.
const scratchSize = 4096

// writeMargin is the most bytes any single writeBits/emitHuffman call can
// produce (a 15-bit Huffman code plus up to 13 extra bits, rounded up),
// kept well under scratchSize.
const writeMargin = 8

// encoder holds all DEFLATE encoder state across Update/Finish calls. Its
// own emitted bits live in outPending, a plain growing slice drained into
// the caller's output buffer — the same drain-cursor idiom the decoder
// uses for its window, generalized since the encoder's own bitstream has
// no back-reference needs.
type encoder struct {
	buf      []byte
	tokenPos int
	mf       *matchFinder
	maxDist  int
	level    int
	params   levelParams

	tokens     []token
	litLenFreq [numLitLenSymbols]uint32
	distFreq   [30]uint32

	scratch    [scratchSize]byte
	bw         bitio.Writer
	outPending []byte
	outDrained int

	stage         encStage
	wroteAnyBlock bool

	limits  compress.Limits
	totalIn uint64
}

func newEncoder(bag *compress.OptionsBag) (compress.MethodState, compress.UpdateFunc, compress.FinishFunc, compress.ResetFunc, compress.DestroyFunc, error) {
	level := int64(6)
	if v, ok := bag.GetInt("deflate.level"); ok {
		level = v
	}
	if level < 0 || level > 9 {
		return nil, nil, nil, nil, nil, compress.NewError(compress.InvalidArg, "deflate.level must be in [0, 9], got %d", level)
	}
	if wb, ok := bag.GetUint("deflate.window_bits"); ok {
		if wb < 8 || wb > 15 {
			return nil, nil, nil, nil, nil, compress.NewError(compress.InvalidArg, "deflate.window_bits must be in [8, 15], got %d", wb)
		}
	}

	limits := compress.ResolveLimits(bag)
	maxDist := windowSize
	if limits.MaxWindowBytes > 0 && limits.MaxWindowBytes < uint64(maxDist) {
		maxDist = int(limits.MaxWindowBytes)
	}

	e := &encoder{
		level:   int(level),
		params:  levelTable[level],
		mf:      newMatchFinder(maxDist),
		maxDist: maxDist,
		limits:  limits,
	}
	e.bw.Reseat(e.scratch[:])
	return e, encoderUpdate, encoderFinish, encoderReset, encoderDestroy, nil
}

// NewEncoderState constructs a DEFLATE encoder's state and closures
// directly, bypassing this method's own schema validation. The gzip
// method uses this to nest a body encoder inside a member without
// re-validating gzip's own option keys against deflate's schema.
func NewEncoderState(bag *compress.OptionsBag) (compress.MethodState, compress.UpdateFunc, compress.FinishFunc, compress.ResetFunc, compress.DestroyFunc, error) {
	return newEncoder(bag)
}

func encoderReset(state compress.MethodState) error {
	e := state.(*encoder)
	level, params, limits, maxDist := e.level, e.params, e.limits, e.maxDist
	*e = encoder{level: level, params: params, limits: limits, maxDist: maxDist, mf: newMatchFinder(maxDist)}
	e.bw.Reseat(e.scratch[:])
	return nil
}

func encoderDestroy(compress.MethodState) {}

func (e *encoder) ensureCapacity() {
	if scratchSize-e.bw.Written() < writeMargin {
		e.flushScratch()
	}
}

func (e *encoder) flushScratch() {
	e.outPending = append(e.outPending, e.scratch[:e.bw.Written()]...)
	e.bw.Reseat(e.scratch[:])
}

func (e *encoder) writeBits(v uint32, n uint) {
	e.ensureCapacity()
	if !e.bw.Write(v, n) {
		e.flushScratch()
		e.bw.Write(v, n)
	}
}

func (e *encoder) writeRawByte(b byte) {
	e.writeBits(uint32(b), 8)
}

func (e *encoder) alignToByte() {
	e.ensureCapacity()
	if !e.bw.FlushToByte() {
		e.flushScratch()
		e.bw.FlushToByte()
	}
}

func (e *encoder) emitHuffman(enc *huffman.Encoder, symbol int) {
	e.ensureCapacity()
	if !enc.Emit(&e.bw, symbol) {
		e.flushScratch()
		enc.Emit(&e.bw, symbol)
	}
}

// drainOutput copies buffered encoded bytes into out, as much as fits.
func (e *encoder) drainOutput(out *compress.Buffer) {
	avail := len(e.outPending) - e.outDrained
	room := len(out.Data) - out.Used
	n := avail
	if room < n {
		n = room
	}
	if n <= 0 {
		return
	}
	copy(out.Data[out.Used:], e.outPending[e.outDrained:e.outDrained+n])
	out.Used += n
	e.outDrained += n
	if e.outDrained == len(e.outPending) {
		e.outPending = e.outPending[:0]
		e.outDrained = 0
	} else if e.outDrained > 64<<10 {
		e.outPending = append(e.outPending[:0], e.outPending[e.outDrained:]...)
		e.outDrained = 0
	}
}

func (e *encoder) pendingUnread() int { return len(e.outPending) - e.outDrained }

// approxTokenBytes estimates one token's footprint (a bool, a byte, and two
// ints, padded for alignment) — an estimate for limits.max_memory_bytes
// accounting, not a sizeof.
const approxTokenBytes = 32

// memoryFootprint estimates the bytes this encoder currently holds in its
// growing input buffer, pending-output queue, token accumulator, and
// match-finder tables, for the limits.max_memory_bytes check (spec section
// 5: "each update checks the output and memory limits").
func (e *encoder) memoryFootprint() uint64 {
	n := uint64(cap(e.buf)) + uint64(cap(e.outPending)) + uint64(len(e.scratch))
	n += uint64(cap(e.tokens)) * approxTokenBytes
	if e.mf != nil {
		n += uint64(len(e.mf.head))*4 + uint64(cap(e.mf.prev))*4
	}
	return n
}

func encoderUpdate(state compress.MethodState, in, out *compress.Buffer) (compress.Status, error) {
	e := state.(*encoder)
	if e.stage == encFailed {
		return compress.Corrupt, compress.NewError(compress.Corrupt, "encoder previously failed")
	}

	n := len(in.Remaining())
	if n > 0 {
		e.buf = append(e.buf, in.Remaining()...)
		in.Advance(n)
		e.totalIn += uint64(n)
	}

	e.tokenize(false)
	for len(e.tokens) >= maxTokensPerBlock {
		e.emitBlock(false)
		e.tokenize(false)
	}

	e.drainOutput(out)

	if err := e.limits.CheckOutput(uint64(e.outDrained) + uint64(len(e.outPending))); err != nil {
		e.stage = encFailed
		return compress.Limit, err
	}
	if err := e.limits.CheckMemory(e.memoryFootprint()); err != nil {
		e.stage = encFailed
		return compress.Limit, err
	}
	return compress.OK, nil
}

func encoderFinish(state compress.MethodState, out *compress.Buffer) (compress.Status, error) {
	e := state.(*encoder)
	if e.stage == encFailed {
		return compress.Corrupt, compress.NewError(compress.Corrupt, "encoder previously failed")
	}
	if e.stage == encDone {
		e.drainOutput(out)
		if e.pendingUnread() > 0 {
			return compress.Limit, compress.NewError(compress.Limit, "output buffer too small to drain remaining bytes")
		}
		return compress.OK, nil
	}

	e.tokenize(true)
	for len(e.tokens) >= maxTokensPerBlock {
		e.emitBlock(false)
		e.tokenize(true)
	}
	e.emitBlock(true)
	e.alignToByte()
	e.flushScratch()
	e.stage = encDone

	e.drainOutput(out)
	if e.pendingUnread() > 0 {
		return compress.Limit, compress.NewError(compress.Limit, "output buffer too small to drain remaining bytes")
	}
	return compress.OK, nil
}

// tokenize converts as much of buf[tokenPos:] as is currently safe to
// process into tokens. Unless finishing, a maxMatchLen+1 byte lookahead
// reserve is kept unprocessed so the lazy-matching one-byte-ahead check
// always has real data to compare against rather than a premature
// end-of-buffer match.
func (e *encoder) tokenize(finishing bool) {
	buf := e.buf
	reserve := 0
	if !finishing {
		reserve = maxMatchLen + 1
	}
	processEnd := len(buf) - reserve
	if processEnd < e.tokenPos {
		processEnd = e.tokenPos
	}

	p := e.tokenPos
	for p < processEnd {
		if len(e.tokens) >= maxTokensPerBlock {
			break
		}
		if e.level == 0 || p+minMatchLen > len(buf) {
			e.emitLiteral(buf[p])
			p++
			continue
		}

		length, dist := e.mf.find(buf, p, len(buf)-p, e.params)
		e.mf.insert(buf, p)

		if length >= minMatchLen && e.params.lazy && p+1+minMatchLen <= len(buf) {
			length2, _ := e.mf.find(buf, p+1, len(buf)-(p+1), e.params)
			if length2 > length {
				e.emitLiteral(buf[p])
				p++
				continue
			}
		}

		if length >= minMatchLen {
			e.emitMatch(length, dist)
			for i := 1; i < length; i++ {
				if p+i+minMatchLen <= len(buf) {
					e.mf.insert(buf, p+i)
				}
			}
			p += length
		} else {
			e.emitLiteral(buf[p])
			p++
		}
	}
	e.tokenPos = p
}

func (e *encoder) emitLiteral(b byte) {
	e.tokens = append(e.tokens, token{lit: b})
	e.litLenFreq[b]++
}

func (e *encoder) emitMatch(length, dist int) {
	e.tokens = append(e.tokens, token{isMatch: true, length: length, dist: dist})
	e.litLenFreq[lengthSymbol(length)]++
	e.distFreq[distSymbol(dist)]++
}

func lengthSymbol(length int) int {
	for i := len(lengthBase) - 1; i >= 0; i-- {
		if length >= lengthBase[i] {
			return 257 + i
		}
	}
	return 257
}

func distSymbol(dist int) int {
	for i := len(distBase) - 1; i >= 0; i-- {
		if dist >= distBase[i] {
			return i
		}
	}
	return 0
}

// emitBlock flushes the currently buffered tokens as one block (stored
// chunks at level 0, a single dynamic-Huffman block otherwise) and resets
// the token buffer. final sets BFINAL on the block that ends the stream.
func (e *encoder) emitBlock(final bool) {
	if e.level == 0 {
		e.emitStoredBlocks(final)
	} else if len(e.tokens) > 0 || final {
		e.emitDynamicBlock(final)
	}
	e.tokens = e.tokens[:0]
	for i := range e.litLenFreq {
		e.litLenFreq[i] = 0
	}
	for i := range e.distFreq {
		e.distFreq[i] = 0
	}
	e.wroteAnyBlock = true
}

func (e *encoder) emitStoredBlocks(final bool) {
	raw := make([]byte, 0, len(e.tokens))
	for _, t := range e.tokens {
		raw = append(raw, t.lit)
	}
	if len(raw) == 0 {
		if final {
			e.writeStoredChunk(nil, true) // closing BFINAL block, whether or not any data preceded it
		}
		return
	}
	const maxChunk = 65535
	for off := 0; off < len(raw); off += maxChunk {
		end := off + maxChunk
		if end > len(raw) {
			end = len(raw)
		}
		isLast := end == len(raw)
		e.writeStoredChunk(raw[off:end], final && isLast)
	}
}

func (e *encoder) writeStoredChunk(data []byte, bfinal bool) {
	bf := uint32(0)
	if bfinal {
		bf = 1
	}
	e.writeBits(bf, 1)
	e.writeBits(0, 2)
	e.alignToByte()
	n := len(data)
	e.writeRawByte(byte(n))
	e.writeRawByte(byte(n >> 8))
	nlen := ^uint16(n)
	e.writeRawByte(byte(nlen))
	e.writeRawByte(byte(nlen >> 8))
	for _, b := range data {
		e.writeRawByte(b)
	}
}

type clToken struct {
	sym       int
	extra     uint32
	extraBits uint
}

// rleEncode applies the code-length alphabet's 16/17/18 repeat codes to a
// combined literal/length+distance code-length vector (RFC 1951 3.2.7).
func rleEncode(lens []int) ([]clToken, [19]uint32) {
	var syms []clToken
	var freq [19]uint32
	n := len(lens)
	i := 0
	for i < n {
		val := lens[i]
		runLen := 1
		for i+runLen < n && lens[i+runLen] == val {
			runLen++
		}
		if val == 0 {
			run := runLen
			for run > 0 {
				if run < 3 {
					for k := 0; k < run; k++ {
						syms = append(syms, clToken{sym: 0})
						freq[0]++
					}
					run = 0
					continue
				}
				chunk := run
				if chunk <= 10 {
					syms = append(syms, clToken{sym: 17, extra: uint32(chunk - 3), extraBits: 3})
					freq[17]++
				} else {
					if chunk > 138 {
						chunk = 138
					}
					syms = append(syms, clToken{sym: 18, extra: uint32(chunk - 11), extraBits: 7})
					freq[18]++
				}
				run -= chunk
			}
		} else {
			syms = append(syms, clToken{sym: val})
			freq[val]++
			rem := runLen - 1
			for rem > 0 {
				chunk := rem
				if chunk > 6 {
					chunk = 6
				}
				if chunk < 3 {
					for k := 0; k < chunk; k++ {
						syms = append(syms, clToken{sym: val})
						freq[val]++
					}
				} else {
					syms = append(syms, clToken{sym: 16, extra: uint32(chunk - 3), extraBits: 2})
					freq[16]++
				}
				rem -= chunk
			}
		}
		i += runLen
	}
	return syms, freq
}

func (e *encoder) emitDynamicBlock(final bool) {
	litFreq := e.litLenFreq
	litFreq[endOfBlock]++
	litLenEnc, err := huffman.NewEncoder(litFreq[:], huffman.MaxCodeLen)
	if err != nil {
		litLenEnc, _ = huffman.NewEncoder(fixedLitFreqFallback(), huffman.MaxCodeLen)
	}
	distFreq := e.distFreq
	distEnc, err := huffman.NewEncoder(distFreq[:], huffman.MaxCodeLen)
	if err != nil {
		distEnc, _ = huffman.NewEncoder([]uint32{1}, huffman.MaxCodeLen)
	}

	// Only literal/length symbols 0..285 are transmitted; 286 and 287 never
	// occur in a token stream, so their lengths are always 0.
	const hlitCodes = 286
	combined := make([]int, 0, hlitCodes+numDistSymbols)
	combined = append(combined, litLenEnc.Lengths()[:hlitCodes]...)
	combined = append(combined, distEnc.Lengths()...)
	clSyms, clFreq := rleEncode(combined)
	clEnc, err := huffman.NewEncoder(clFreq[:], 7)
	if err != nil {
		clEnc, _ = huffman.NewEncoder([]uint32{1}, 7)
	}

	bf := uint32(0)
	if final {
		bf = 1
	}
	e.writeBits(bf, 1)
	e.writeBits(2, 2) // BTYPE=10

	e.writeBits(uint32(hlitCodes-257), 5)
	e.writeBits(uint32(numDistSymbols-1), 5)
	e.writeBits(uint32(len(codeLengthOrder)-4), 4)

	clLengths := clEnc.Lengths()
	for i := 0; i < len(codeLengthOrder); i++ {
		e.writeBits(uint32(clLengths[codeLengthOrder[i]]), 3)
	}
	for _, s := range clSyms {
		e.emitHuffman(clEnc, s.sym)
		if s.extraBits > 0 {
			e.writeBits(s.extra, s.extraBits)
		}
	}

	for _, t := range e.tokens {
		if !t.isMatch {
			e.emitHuffman(litLenEnc, int(t.lit))
			continue
		}
		lsym := lengthSymbol(t.length)
		e.emitHuffman(litLenEnc, lsym)
		if eb := lengthExtraBits[lsym-257]; eb > 0 {
			e.writeBits(uint32(t.length-lengthBase[lsym-257]), uint(eb))
		}
		dsym := distSymbol(t.dist)
		e.emitHuffman(distEnc, dsym)
		if eb := distExtraBits[dsym]; eb > 0 {
			e.writeBits(uint32(t.dist-distBase[dsym]), uint(eb))
		}
	}
	e.emitHuffman(litLenEnc, endOfBlock)
}

// fixedLitFreqFallback should never actually be needed (a freq vector
// with at least the EOB symbol present always builds successfully), but
// guards against a theoretical NewEncoder failure turning into a panic.
func fixedLitFreqFallback() []uint32 {
	freq := make([]uint32, numLitLenSymbols)
	freq[endOfBlock] = 1
	return freq
}
