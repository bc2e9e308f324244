// Copyright 2026 by Corey Pennycuff

package deflate

import (
	"github.com/coreyp1/compress-sub001"
	"github.com/coreyp1/compress-sub001/internal/bitio"
	"github.com/coreyp1/compress-sub001/internal/huffman"
)

type decodeStage int

const (
	stageAwaitBlockHeader decodeStage = iota
	stageStoredLen
	stageStoredBytes
	stageBody // fixed or dynamic, per which tables are installed
	stageDynamicHeader
	stageAwaitFinalFlush
	stageDone
	stageFailed
)

// dynamic-header sub-steps, since HLIT/HDIST/HCLEN parsing, the HCLEN
// code-length-code lengths, and the combined lit/len+dist length vector
// (with its 16/17/18 repeat codes) may each be interrupted by input
// exhaustion and must resume exactly where they left off.
const (
	dhNeedCounts = iota
	dhNeedClLengths
	dhNeedLitDistLengths
)

// decoder holds all DEFLATE decoder state across Update calls. The bit
// reader's own Bits/NBits fields already carry partial-byte state between
// calls (bitio.Reader.Reseat never touches them); everything else that can
// be interrupted mid-field needs an explicit sub-state here, the same way
// compress/flate's decompressor keeps a `step` plus scratch fields.
type decoder struct {
	br bitio.Reader

	window [windowSize]byte
	wpos   int
	totalOut uint64
	drainPos uint64

	stage decodeStage
	final bool

	storedRemaining int

	dhStep       int
	hlit, hdist, hclen int
	clLengths    [19]int
	clFilled     int
	clDecoder    *huffman.Decoder
	llLengths    []int
	llFilled     int
	havePendingRepeat bool
	pendingSym   int

	litDecoder  *huffman.Decoder
	distDecoder *huffman.Decoder

	inMatch   bool
	matchLen  int
	matchDist int

	totalIn uint64
	limits  compress.Limits
}

func newDecoder(bag *compress.OptionsBag) (compress.MethodState, compress.UpdateFunc, compress.FinishFunc, compress.ResetFunc, compress.DestroyFunc, error) {
	d := &decoder{limits: compress.ResolveLimits(bag)}
	return d, decoderUpdate, decoderFinish, decoderReset, decoderDestroy, nil
}

// NewDecoderState constructs a DEFLATE decoder's state and closures
// directly, bypassing this method's own schema validation. The gzip
// method uses this to nest a body decoder inside a member without
// re-validating gzip's own option keys against deflate's schema.
func NewDecoderState(bag *compress.OptionsBag) (compress.MethodState, compress.UpdateFunc, compress.FinishFunc, compress.ResetFunc, compress.DestroyFunc, error) {
	return newDecoder(bag)
}

// IsDecoderDone reports whether a decoder state built by NewDecoderState
// has consumed its final block. Any further bytes belong to whatever
// framing wraps this DEFLATE stream, not to the bit-stream itself.
func IsDecoderDone(state compress.MethodState) bool {
	return state.(*decoder).stage == stageDone
}

func decoderReset(state compress.MethodState) error {
	d := state.(*decoder)
	limits := d.limits
	*d = decoder{limits: limits}
	return nil
}

func decoderDestroy(compress.MethodState) {}

// windowWrite appends one byte to the circular window and accounts it.
func (d *decoder) windowWrite(b byte) {
	d.window[d.wpos] = b
	d.wpos = (d.wpos + 1) % windowSize
	d.totalOut++
}

// undrained reports how many produced bytes have not yet been copied to a
// caller's output buffer.
func (d *decoder) undrained() uint64 {
	return d.totalOut - d.drainPos
}

// drain copies buffered window bytes into out until out fills or the
// window is fully drained.
func (d *decoder) drain(out *compress.Buffer) {
	for d.undrained() > 0 && !out.Full() {
		start := int(d.drainPos % windowSize)
		out.Data[out.Used] = d.window[start]
		out.Used++
		d.drainPos++
	}
}

func decoderUpdate(state compress.MethodState, in, out *compress.Buffer) (compress.Status, error) {
	d := state.(*decoder)
	if d.stage == stageFailed {
		return compress.Corrupt, compress.NewError(compress.Corrupt, "decoder previously failed")
	}

	d.br.Reseat(in.Remaining())
	startIn := d.br.Consumed()

	status, err := d.run(out)

	consumed := d.br.Consumed() - startIn
	if consumed > 0 {
		in.Advance(consumed)
		d.totalIn += uint64(consumed)
	}
	d.drain(out)

	if err != nil {
		d.stage = stageFailed
		return status, err
	}
	return compress.OK, nil
}

// memoryFootprint estimates the bytes this decoder currently holds: the
// fixed-size sliding window, the installed literal/length, distance and
// code-length Huffman tables, and the dynamic-header scratch vectors, for
// the limits.max_memory_bytes check. The window is a fixed array, so this
// only varies with the size of llLengths and of the installed tables.
func (d *decoder) memoryFootprint() uint64 {
	n := uint64(len(d.window)) + uint64(cap(d.llLengths))*8 + uint64(len(d.clLengths))*8
	if d.litDecoder != nil {
		n += d.litDecoder.MemoryFootprint()
	}
	if d.distDecoder != nil {
		n += d.distDecoder.MemoryFootprint()
	}
	if d.clDecoder != nil {
		n += d.clDecoder.MemoryFootprint()
	}
	return n
}

// run advances the state machine as far as it can against the currently
// re-seated bit reader and out buffer, stopping when no further forward
// progress is possible (input exhausted, output full, or a terminal
// stage reached).
func (d *decoder) run(out *compress.Buffer) (compress.Status, error) {
	for {
		if err := d.limits.CheckExpansion(d.totalIn+uint64(d.br.Consumed()), d.totalOut); err != nil {
			return compress.Limit, err
		}
		if err := d.limits.CheckOutput(d.totalOut); err != nil {
			return compress.Limit, err
		}
		if err := d.limits.CheckMemory(d.memoryFootprint()); err != nil {
			return compress.Limit, err
		}

		switch d.stage {
		case stageAwaitBlockHeader:
			v, ok := d.br.Read(3)
			if !ok {
				return compress.OK, nil
			}
			d.final = v&1 != 0
			switch v >> 1 {
			case 0:
				d.stage = stageStoredLen
			case 1:
				d.litDecoder, _ = huffman.NewDecoder(fixedLitLenLengths, 9)
				d.distDecoder, _ = huffman.NewDecoder(fixedDistLengths, 7)
				d.stage = stageBody
			case 2:
				d.dhStep = dhNeedCounts
				d.stage = stageDynamicHeader
			default:
				return compress.Corrupt, compress.NewError(compress.Corrupt, "reserved block type 11")
			}

		case stageStoredLen:
			if !d.readStoredLen() {
				return compress.OK, nil
			}

		case stageStoredBytes:
			if !d.copyStoredBytes() {
				return compress.OK, nil
			}

		case stageDynamicHeader:
			done, status, err := d.readDynamicHeader()
			if err != nil {
				return status, err
			}
			if !done {
				return compress.OK, nil
			}
			d.stage = stageBody

		case stageBody:
			progressed, status, err := d.decodeBodySymbol(out)
			if err != nil {
				return status, err
			}
			if !progressed {
				return compress.OK, nil
			}

		case stageAwaitFinalFlush:
			if d.undrained() > 0 {
				return compress.OK, nil // caller drains on next call once out has room
			}
			d.stage = stageDone
			return compress.OK, nil

		case stageDone:
			return compress.OK, nil

		case stageFailed:
			return compress.Corrupt, compress.NewError(compress.Corrupt, "decoder previously failed")
		}
	}
}

func (d *decoder) readStoredLen() bool {
	d.br.AlignToByte()
	// Buffer all four LEN/NLEN bytes before consuming any, so a short
	// read leaves them in the accumulator for the next call.
	if !d.br.FillAtLeast(32) {
		return false
	}
	lenBits, _ := d.br.Read(16)
	nlenBits, _ := d.br.Read(16)
	length := int(lenBits)
	nlen := int(nlenBits)
	if length != (^nlen & 0xFFFF) {
		d.stage = stageFailed
		return false
	}
	d.storedRemaining = length
	d.stage = stageStoredBytes
	return true
}

func (d *decoder) copyStoredBytes() bool {
	for d.storedRemaining > 0 {
		if d.undrained() >= windowSize {
			return false // window full of undrained bytes; must drain first
		}
		b, ok := d.br.ReadAlignedByte()
		if !ok {
			return false
		}
		d.windowWrite(b)
		d.storedRemaining--
	}
	if d.final {
		d.stage = stageAwaitFinalFlush
	} else {
		d.stage = stageAwaitBlockHeader
	}
	return true
}

// readDynamicHeader resumes the HLIT/HDIST/HCLEN + code-length-code +
// combined length vector parse, returning done=true once both Huffman
// tables are installed.
func (d *decoder) readDynamicHeader() (done bool, status compress.Status, err error) {
	for {
		switch d.dhStep {
		case dhNeedCounts:
			v, ok := d.br.Read(14)
			if !ok {
				return false, compress.OK, nil
			}
			d.hlit = int(v&0x1F) + 257
			d.hdist = int((v>>5)&0x1F) + 1
			d.hclen = int((v>>10)&0xF) + 4
			d.clFilled = 0
			for i := range d.clLengths {
				d.clLengths[i] = 0
			}
			d.dhStep = dhNeedClLengths

		case dhNeedClLengths:
			for d.clFilled < d.hclen {
				v, ok := d.br.Read(3)
				if !ok {
					return false, compress.OK, nil
				}
				d.clLengths[codeLengthOrder[d.clFilled]] = int(v)
				d.clFilled++
			}
			dec, buildErr := huffman.NewDecoder(d.clLengths[:], 7)
			if buildErr != nil {
				return false, compress.Corrupt, compress.NewError(compress.Corrupt, "code-length table: %v", buildErr)
			}
			d.clDecoder = dec
			d.llLengths = make([]int, d.hlit+d.hdist)
			d.llFilled = 0
			d.havePendingRepeat = false
			d.dhStep = dhNeedLitDistLengths

		case dhNeedLitDistLengths:
			for d.llFilled < len(d.llLengths) {
				var sym int
				if d.havePendingRepeat {
					sym = d.pendingSym
				} else {
					s, res := d.clDecoder.Decode(&d.br)
					switch res {
					case huffman.NeedMoreInput:
						return false, compress.OK, nil
					case huffman.InvalidCode:
						return false, compress.Corrupt, compress.NewError(compress.Corrupt, "invalid code-length symbol")
					}
					sym = s
				}

				switch {
				case sym <= 15:
					d.llLengths[d.llFilled] = sym
					d.llFilled++
					d.havePendingRepeat = false

				case sym == 16:
					n, ok := d.br.Read(2)
					if !ok {
						d.havePendingRepeat, d.pendingSym = true, sym
						return false, compress.OK, nil
					}
					if d.llFilled == 0 {
						return false, compress.Corrupt, compress.NewError(compress.Corrupt, "repeat-previous code-length with no previous symbol")
					}
					prev := d.llLengths[d.llFilled-1]
					repeat := int(n) + 3
					if d.llFilled+repeat > len(d.llLengths) {
						return false, compress.Corrupt, compress.NewError(compress.Corrupt, "code-length repeat overruns table")
					}
					for i := 0; i < repeat; i++ {
						d.llLengths[d.llFilled] = prev
						d.llFilled++
					}
					d.havePendingRepeat = false

				case sym == 17:
					n, ok := d.br.Read(3)
					if !ok {
						d.havePendingRepeat, d.pendingSym = true, sym
						return false, compress.OK, nil
					}
					repeat := int(n) + 3
					if d.llFilled+repeat > len(d.llLengths) {
						return false, compress.Corrupt, compress.NewError(compress.Corrupt, "code-length repeat overruns table")
					}
					for i := 0; i < repeat; i++ {
						d.llLengths[d.llFilled] = 0
						d.llFilled++
					}
					d.havePendingRepeat = false

				case sym == 18:
					n, ok := d.br.Read(7)
					if !ok {
						d.havePendingRepeat, d.pendingSym = true, sym
						return false, compress.OK, nil
					}
					repeat := int(n) + 11
					if d.llFilled+repeat > len(d.llLengths) {
						return false, compress.Corrupt, compress.NewError(compress.Corrupt, "code-length repeat overruns table")
					}
					for i := 0; i < repeat; i++ {
						d.llLengths[d.llFilled] = 0
						d.llFilled++
					}
					d.havePendingRepeat = false

				default:
					return false, compress.Corrupt, compress.NewError(compress.Corrupt, "invalid code-length symbol %d", sym)
				}
			}

			litLen := d.llLengths[:d.hlit]
			dist := d.llLengths[d.hlit:]
			litDec, buildErr := huffman.NewDecoder(litLen, 9)
			if buildErr != nil {
				return false, compress.Corrupt, compress.NewError(compress.Corrupt, "literal/length table: %v", buildErr)
			}
			distDec, buildErr := huffman.NewDecoder(dist, 7)
			if buildErr != nil {
				return false, compress.Corrupt, compress.NewError(compress.Corrupt, "distance table: %v", buildErr)
			}
			d.litDecoder = litDec
			d.distDecoder = distDec
			return true, compress.OK, nil
		}
	}
}

// decodeBodySymbol decodes and applies exactly one literal/length(+distance)
// symbol, or resumes an in-flight match copy that stalled because the
// window filled with undrained bytes. Returns progressed=false when no
// further forward progress is currently possible.
func (d *decoder) decodeBodySymbol(out *compress.Buffer) (progressed bool, status compress.Status, err error) {
	if d.inMatch {
		if !d.copyMatch() {
			return false, compress.OK, nil
		}
		return true, compress.OK, nil
	}

	if d.undrained() >= windowSize {
		// Can't buffer another byte without overwriting undrained
		// history; caller must drain before we can proceed. Nothing
		// was consumed from the bit reader, so this is safe to retry.
		return false, compress.OK, nil
	}

	sym, res := d.litDecoder.Decode(&d.br)
	switch res {
	case huffman.NeedMoreInput:
		return false, compress.OK, nil
	case huffman.InvalidCode:
		return false, compress.Corrupt, compress.NewError(compress.Corrupt, "invalid literal/length code")
	}

	switch {
	case sym < 256:
		d.windowWrite(byte(sym))
		return true, compress.OK, nil

	case sym == endOfBlock:
		if d.final {
			d.stage = stageAwaitFinalFlush
		} else {
			d.stage = stageAwaitBlockHeader
		}
		return true, compress.OK, nil

	case sym <= 285:
		idx := sym - 257
		extra, ok := d.br.Read(uint(lengthExtraBits[idx]))
		if !ok {
			return false, compress.OK, nil
		}
		length := lengthBase[idx] + int(extra)

		distSym, res := d.distDecoder.Decode(&d.br)
		switch res {
		case huffman.NeedMoreInput:
			return false, compress.OK, nil
		case huffman.InvalidCode:
			return false, compress.Corrupt, compress.NewError(compress.Corrupt, "invalid distance code")
		}
		if distSym > 29 {
			return false, compress.Corrupt, compress.NewError(compress.Corrupt, "invalid distance symbol %d", distSym)
		}
		distExtra, ok := d.br.Read(uint(distExtraBits[distSym]))
		if !ok {
			return false, compress.OK, nil
		}
		distance := distBase[distSym] + int(distExtra)
		if distance < 1 || uint64(distance) > d.totalOut || distance > windowSize {
			return false, compress.Corrupt, compress.NewError(compress.Corrupt, "distance %d out of range", distance)
		}
		if err := d.limits.CheckWindow(uint64(distance)); err != nil {
			return false, compress.Limit, err
		}

		d.matchLen = length
		d.matchDist = distance
		d.inMatch = true
		if !d.copyMatch() {
			return false, compress.OK, nil
		}
		return true, compress.OK, nil

	default:
		return false, compress.Corrupt, compress.NewError(compress.Corrupt, "invalid literal/length symbol %d", sym)
	}
}

// copyMatch copies as much of the in-flight (length, distance) match as
// the window has room for, one byte at a time (serial copy, so overlapping
// runs — distance < length — reproduce correctly). Returns false if the
// window filled with undrained bytes before the match finished.
func (d *decoder) copyMatch() bool {
	for d.matchLen > 0 {
		if d.undrained() >= windowSize {
			return false
		}
		srcPos := (d.wpos - d.matchDist + windowSize) % windowSize
		d.windowWrite(d.window[srcPos])
		d.matchLen--
	}
	d.inMatch = false
	return true
}

func decoderFinish(state compress.MethodState, out *compress.Buffer) (compress.Status, error) {
	d := state.(*decoder)
	if d.stage == stageFailed {
		return compress.Corrupt, compress.NewError(compress.Corrupt, "decoder previously failed")
	}

	d.br.Reseat(nil)
	status, err := d.run(out)
	d.drain(out)
	if d.stage == stageAwaitFinalFlush && d.undrained() == 0 {
		d.stage = stageDone
	}
	if err != nil {
		d.stage = stageFailed
		return status, err
	}

	if d.stage != stageDone {
		if d.undrained() > 0 {
			return compress.Limit, compress.NewError(compress.Limit, "output buffer too small to drain remaining bytes")
		}
		d.stage = stageFailed
		return compress.Corrupt, compress.NewError(compress.Corrupt, "stream truncated before final block completed")
	}
	return compress.OK, nil
}
