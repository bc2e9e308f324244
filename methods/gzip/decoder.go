// Copyright 2026 by Corey Pennycuff

package gzip

import (
	compress "github.com/coreyp1/compress-sub001"
	"github.com/coreyp1/compress-sub001/internal/crc32ieee"
	"github.com/coreyp1/compress-sub001/methods/deflate"
)

type decStage int

const (
	decHeader decStage = iota
	decBody
	decTrailer
	decDone
	decFailed
)

// hdrStep resumes the header parse exactly where an earlier call's input
// ran out, the same sub-state idiom the nested deflate decoder uses for
// its own multi-field dynamic-block header.
type hdrStep int

const (
	hdrFixed hdrStep = iota
	hdrExtraLen
	hdrExtraData
	hdrName
	hdrComment
	hdrHCRC
)

// decoder holds gzip member decoder state across Update/Finish calls,
// plus enough bookkeeping to support gzip.concat across member
// boundaries.
type decoder struct {
	stage   decStage
	hdrStep hdrStep
	acc     []byte // fixed-width field accumulator, reused per field

	nameLen, commentLen uint64
	memberStarted       bool
	membersCompleted    int

	flg       byte
	xlen      int
	headerCRC crc32ieee.Digest

	deflateState  compress.MethodState
	deflateUpdate compress.UpdateFunc
	deflateFinish compress.FinishFunc
	deflateReset  compress.ResetFunc

	bodyCRC crc32ieee.Digest
	isize   uint32

	concat                        bool
	maxName, maxComment, maxExtra uint64

	bag    *compress.OptionsBag
	limits compress.Limits
}

func newDecoder(bag *compress.OptionsBag) (compress.MethodState, compress.UpdateFunc, compress.FinishFunc, compress.ResetFunc, compress.DestroyFunc, error) {
	d := &decoder{
		maxName:    1 << 20,
		maxComment: 1 << 20,
		maxExtra:   64 << 10,
		bag:        bag,
		limits:     compress.ResolveLimits(bag),
	}
	if v, ok := bag.GetBool("gzip.concat"); ok {
		d.concat = v
	}
	if v, ok := bag.GetUint("gzip.max_name_bytes"); ok {
		d.maxName = v
	}
	if v, ok := bag.GetUint("gzip.max_comment_bytes"); ok {
		d.maxComment = v
	}
	if v, ok := bag.GetUint("gzip.max_extra_bytes"); ok {
		d.maxExtra = v
	}
	if err := d.startMember(); err != nil {
		return nil, nil, nil, nil, nil, err
	}
	return d, decoderUpdate, decoderFinish, decoderReset, decoderDestroy, nil
}

// startMember (re)initializes everything scoped to a single gzip member:
// a fresh nested DEFLATE decoder and fresh header/body accumulators.
// membersCompleted is deliberately untouched; it survives across members
// within one decode session.
func (d *decoder) startMember() error {
	state, update, finish, reset, _, err := deflate.NewDecoderState(d.bag)
	if err != nil {
		return err
	}
	d.deflateState, d.deflateUpdate, d.deflateFinish, d.deflateReset = state, update, finish, reset
	d.stage = decHeader
	d.hdrStep = hdrFixed
	d.acc = d.acc[:0]
	d.nameLen, d.commentLen = 0, 0
	d.memberStarted = false
	d.headerCRC = crc32ieee.NewDigest()
	d.bodyCRC = crc32ieee.NewDigest()
	d.isize = 0
	return nil
}

func decoderReset(state compress.MethodState) error {
	d := state.(*decoder)
	d.membersCompleted = 0
	return d.startMember()
}

func decoderDestroy(compress.MethodState) {}

func readByte(in *compress.Buffer) (byte, bool) {
	if in.Used >= len(in.Data) {
		return 0, false
	}
	b := in.Data[in.Used]
	in.Advance(1)
	return b, true
}

// fillHeader accumulates want bytes into d.acc, feeding each consumed byte
// into the running header CRC used for the optional HCRC field.
func (d *decoder) fillHeader(in *compress.Buffer, want int) bool {
	for len(d.acc) < want {
		b, ok := readByte(in)
		if !ok {
			return false
		}
		d.acc = append(d.acc, b)
		d.headerCRC.Update([]byte{b})
	}
	return true
}

// fillPlain is fillHeader without the CRC feed, for the trailer, which
// the header CRC must not cover.
func (d *decoder) fillPlain(in *compress.Buffer, want int) bool {
	for len(d.acc) < want {
		b, ok := readByte(in)
		if !ok {
			return false
		}
		d.acc = append(d.acc, b)
	}
	return true
}

func decoderUpdate(state compress.MethodState, in, out *compress.Buffer) (compress.Status, error) {
	d := state.(*decoder)
	if d.stage == decFailed {
		return compress.Corrupt, compress.NewError(compress.Corrupt, "decoder previously failed")
	}
	return d.run(in, out, false)
}

// memoryFootprint estimates the bytes this member decoder holds in its own
// framing state; the nested DEFLATE decoder enforces limits.max_memory_bytes
// against the same bag independently, so this only needs to cover gzip's
// own header-field accumulator.
func (d *decoder) memoryFootprint() uint64 {
	return uint64(cap(d.acc))
}

// run advances the member state machine as far as current input and
// output room allow. finishing selects whether the body stage drives the
// nested decoder's Update (more input may arrive later) or its Finish
// (no more input is coming).
func (d *decoder) run(in, out *compress.Buffer, finishing bool) (compress.Status, error) {
	for {
		if err := d.limits.CheckMemory(d.memoryFootprint()); err != nil {
			d.stage = decFailed
			return compress.Limit, err
		}
		switch d.stage {
		case decHeader:
			done, status, err := d.readHeader(in)
			if err != nil {
				d.stage = decFailed
				return status, err
			}
			if !done {
				return compress.OK, nil
			}
			d.stage = decBody

		case decBody:
			before := out.Used
			var status compress.Status
			var err error
			if finishing {
				status, err = d.deflateFinish(d.deflateState, out)
			} else {
				status, err = d.deflateUpdate(d.deflateState, in, out)
			}
			if out.Used > before {
				d.bodyCRC.Update(out.Data[before:out.Used])
				d.isize += uint32(out.Used - before)
			}
			if status == compress.Limit {
				return compress.Limit, err
			}
			if err != nil {
				d.stage = decFailed
				return status, err
			}
			if !deflate.IsDecoderDone(d.deflateState) {
				return compress.OK, nil
			}
			d.stage = decTrailer
			d.acc = d.acc[:0]

		case decTrailer:
			if !d.fillPlain(in, 8) {
				return compress.OK, nil
			}
			wantCRC := uint32(d.acc[0]) | uint32(d.acc[1])<<8 | uint32(d.acc[2])<<16 | uint32(d.acc[3])<<24
			wantISize := uint32(d.acc[4]) | uint32(d.acc[5])<<8 | uint32(d.acc[6])<<16 | uint32(d.acc[7])<<24
			if wantCRC != d.bodyCRC.Sum32() {
				d.stage = decFailed
				return compress.Corrupt, compress.NewError(compress.Corrupt, "gzip trailer CRC32 mismatch")
			}
			if wantISize != d.isize {
				d.stage = decFailed
				return compress.Corrupt, compress.NewError(compress.Corrupt, "gzip trailer ISIZE mismatch")
			}
			d.membersCompleted++
			if d.concat {
				if err := d.startMember(); err != nil {
					d.stage = decFailed
					return compress.Corrupt, err
				}
				continue
			}
			d.stage = decDone

		case decDone:
			if in.Used < len(in.Data) {
				d.stage = decFailed
				return compress.Corrupt, compress.NewError(compress.Corrupt, "unexpected bytes after gzip trailer")
			}
			return compress.OK, nil

		case decFailed:
			return compress.Corrupt, compress.NewError(compress.Corrupt, "decoder previously failed")
		}
	}
}

// readHeader resumes the header parse across Update calls, validating
// the magic, compression method, reserved FLG bits, and (if FHCRC is
// set) the header CRC, and enforcing the configured per-field size caps.
func (d *decoder) readHeader(in *compress.Buffer) (done bool, status compress.Status, err error) {
	for {
		switch d.hdrStep {
		case hdrFixed:
			filled := d.fillHeader(in, 10)
			if len(d.acc) > 0 {
				d.memberStarted = true
			}
			if !filled {
				return false, compress.OK, nil
			}
			if d.acc[0] != idByte1 || d.acc[1] != idByte2 {
				return false, compress.Corrupt, compress.NewError(compress.Corrupt, "bad gzip magic")
			}
			if d.acc[2] != cmDeflate {
				return false, compress.Corrupt, compress.NewError(compress.Corrupt, "unsupported gzip compression method %d", d.acc[2])
			}
			d.flg = d.acc[3]
			if d.flg&reservedFlgBits != 0 {
				return false, compress.Corrupt, compress.NewError(compress.Corrupt, "reserved gzip FLG bits set")
			}
			d.acc = d.acc[:0]
			d.hdrStep = d.nextHeaderStep(hdrExtraLen)

		case hdrExtraLen:
			if !d.fillHeader(in, 2) {
				return false, compress.OK, nil
			}
			d.xlen = int(d.acc[0]) | int(d.acc[1])<<8
			if uint64(d.xlen) > d.maxExtra {
				return false, compress.Corrupt, compress.NewError(compress.Corrupt, "gzip extra field exceeds %d bytes", d.maxExtra)
			}
			d.acc = d.acc[:0]
			d.hdrStep = hdrExtraData

		case hdrExtraData:
			if !d.fillHeader(in, d.xlen) {
				return false, compress.OK, nil
			}
			d.acc = d.acc[:0]
			d.hdrStep = d.nextHeaderStep(hdrName)

		case hdrName:
			for {
				b, ok := readByte(in)
				if !ok {
					return false, compress.OK, nil
				}
				d.headerCRC.Update([]byte{b})
				if b == 0 {
					break
				}
				d.nameLen++
				if d.nameLen > d.maxName {
					return false, compress.Corrupt, compress.NewError(compress.Corrupt, "gzip name field exceeds %d bytes", d.maxName)
				}
			}
			d.hdrStep = d.nextHeaderStep(hdrComment)

		case hdrComment:
			for {
				b, ok := readByte(in)
				if !ok {
					return false, compress.OK, nil
				}
				d.headerCRC.Update([]byte{b})
				if b == 0 {
					break
				}
				d.commentLen++
				if d.commentLen > d.maxComment {
					return false, compress.Corrupt, compress.NewError(compress.Corrupt, "gzip comment field exceeds %d bytes", d.maxComment)
				}
			}
			d.hdrStep = d.nextHeaderStep(hdrHCRC)

		case hdrHCRC:
			want := d.headerCRC.Sum32() & 0xFFFF
			if !d.fillPlain(in, 2) {
				return false, compress.OK, nil
			}
			got := uint32(d.acc[0]) | uint32(d.acc[1])<<8
			d.acc = d.acc[:0]
			if got != want {
				return false, compress.Corrupt, compress.NewError(compress.Corrupt, "gzip header CRC mismatch")
			}
			return true, compress.OK, nil
		}

		if d.hdrStep == hdrDoneMarker {
			return true, compress.OK, nil
		}
	}
}

// hdrDoneMarker is an out-of-band step value nextHeaderStep returns when
// no further optional fields remain, so readHeader's loop can detect
// completion without a dedicated terminal case.
const hdrDoneMarker hdrStep = -1

// nextHeaderStep returns the next step at or after from that this
// member's FLG byte actually requests, or hdrDoneMarker if none remain.
func (d *decoder) nextHeaderStep(from hdrStep) hdrStep {
	if from <= hdrExtraLen && d.flg&flgExtra != 0 {
		return hdrExtraLen
	}
	if from <= hdrName && d.flg&flgName != 0 {
		return hdrName
	}
	if from <= hdrComment && d.flg&flgComment != 0 {
		return hdrComment
	}
	if from <= hdrHCRC && d.flg&flgHCRC != 0 {
		return hdrHCRC
	}
	return hdrDoneMarker
}

func decoderFinish(state compress.MethodState, out *compress.Buffer) (compress.Status, error) {
	d := state.(*decoder)
	if d.stage == decFailed {
		return compress.Corrupt, compress.NewError(compress.Corrupt, "decoder previously failed")
	}
	empty := &compress.Buffer{}
	status, err := d.run(empty, out, true)
	if status == compress.Limit {
		return compress.Limit, err
	}
	if err != nil {
		return status, err
	}
	switch {
	case d.stage == decDone:
		return compress.OK, nil
	case d.stage == decHeader && d.hdrStep == hdrFixed && !d.memberStarted && d.membersCompleted > 0:
		// gzip.concat: a clean end right after at least one complete
		// member, with no trailing partial member, is success.
		return compress.OK, nil
	default:
		d.stage = decFailed
		return compress.Corrupt, compress.NewError(compress.Corrupt, "truncated gzip stream")
	}
}
