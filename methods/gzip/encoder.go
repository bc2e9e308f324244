// Copyright 2026 by Corey Pennycuff

package gzip

import (
	compress "github.com/coreyp1/compress-sub001"
	"github.com/coreyp1/compress-sub001/internal/crc32ieee"
	"github.com/coreyp1/compress-sub001/methods/deflate"
)

type encStage int

const (
	encHeaderPending encStage = iota
	encBody
	encDone
	encFailed
)

// gzipStagingSize is the scratch buffer size used to pull bytes out of the
// nested DEFLATE encoder one call at a time.
const gzipStagingSize = 8 << 10

// encoder holds gzip member encoder state across Update/Finish calls. Its
// own emitted bytes (header, then drained body, then trailer) live in
// outPending, the same unbounded drain-cursor idiom the deflate encoder
// uses for its bitstream.
type encoder struct {
	stage encStage

	mtime     uint32
	os        byte
	xfl       byte
	name      string
	comment   string
	extra     []byte
	headerCRC bool

	deflateState  compress.MethodState
	deflateUpdate compress.UpdateFunc
	deflateFinish compress.FinishFunc
	deflateReset  compress.ResetFunc

	crc   crc32ieee.Digest
	isize uint32

	outPending []byte
	outDrained int

	bag    *compress.OptionsBag
	limits compress.Limits
}

func newEncoder(bag *compress.OptionsBag) (compress.MethodState, compress.UpdateFunc, compress.FinishFunc, compress.ResetFunc, compress.DestroyFunc, error) {
	level := int64(6)
	if v, ok := bag.GetInt("deflate.level"); ok {
		level = v
	}
	xfl := byte(0)
	switch {
	case level >= 9:
		xfl = 2
	case level <= 1:
		xfl = 4
	}

	e := &encoder{
		os:     defaultOS,
		xfl:    xfl,
		crc:    crc32ieee.NewDigest(),
		bag:    bag,
		limits: compress.ResolveLimits(bag),
	}
	if v, ok := bag.GetUint("gzip.mtime"); ok {
		e.mtime = uint32(v)
	}
	if v, ok := bag.GetUint("gzip.os"); ok {
		e.os = byte(v)
	}
	if v, ok := bag.GetUint("gzip.xfl"); ok {
		e.xfl = byte(v)
	}
	if v, ok := bag.GetString("gzip.name"); ok {
		e.name = v
	}
	if v, ok := bag.GetString("gzip.comment"); ok {
		e.comment = v
	}
	if v, ok := bag.GetBytes("gzip.extra"); ok {
		e.extra = v
	}
	if v, ok := bag.GetBool("gzip.header_crc"); ok {
		e.headerCRC = v
	}

	state, update, finish, reset, _, err := deflate.NewEncoderState(bag)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}
	e.deflateState, e.deflateUpdate, e.deflateFinish, e.deflateReset = state, update, finish, reset

	return e, encoderUpdate, encoderFinish, encoderReset, encoderDestroy, nil
}

func encoderReset(state compress.MethodState) error {
	e := state.(*encoder)
	if err := e.deflateReset(e.deflateState); err != nil {
		return err
	}
	e.stage = encHeaderPending
	e.crc = crc32ieee.NewDigest()
	e.isize = 0
	e.outPending = e.outPending[:0]
	e.outDrained = 0
	return nil
}

func encoderDestroy(compress.MethodState) {}

func (e *encoder) drain(out *compress.Buffer) {
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

// memoryFootprint estimates the bytes this member encoder holds in its own
// framing state; the nested DEFLATE encoder enforces limits.max_memory_bytes
// against the same bag independently, so this only needs to cover gzip's
// own pending-output queue.
func (e *encoder) memoryFootprint() uint64 {
	return uint64(cap(e.outPending))
}

// buildHeader renders the fixed 10-byte header plus any configured
// optional fields, in RFC 1952 order, computing the trailing HCRC field
// (if requested) over everything emitted before it.
func (e *encoder) buildHeader() []byte {
	var flg byte
	if e.name != "" {
		flg |= flgName
	}
	if e.comment != "" {
		flg |= flgComment
	}
	if len(e.extra) > 0 {
		flg |= flgExtra
	}
	if e.headerCRC {
		flg |= flgHCRC
	}

	buf := make([]byte, 0, 10+len(e.extra)+len(e.name)+len(e.comment)+4)
	buf = append(buf, idByte1, idByte2, cmDeflate, flg,
		byte(e.mtime), byte(e.mtime>>8), byte(e.mtime>>16), byte(e.mtime>>24),
		e.xfl, e.os)

	if len(e.extra) > 0 {
		buf = append(buf, byte(len(e.extra)), byte(len(e.extra)>>8))
		buf = append(buf, e.extra...)
	}
	if e.name != "" {
		buf = append(buf, []byte(e.name)...)
		buf = append(buf, 0)
	}
	if e.comment != "" {
		buf = append(buf, []byte(e.comment)...)
		buf = append(buf, 0)
	}
	if e.headerCRC {
		d := crc32ieee.NewDigest()
		d.Update(buf)
		sum := d.Sum32()
		buf = append(buf, byte(sum), byte(sum>>8))
	}
	return buf
}

func encoderUpdate(state compress.MethodState, in, out *compress.Buffer) (compress.Status, error) {
	e := state.(*encoder)
	if e.stage == encFailed {
		return compress.Corrupt, compress.NewError(compress.Corrupt, "encoder previously failed")
	}
	if e.stage == encHeaderPending {
		e.outPending = append(e.outPending, e.buildHeader()...)
		e.stage = encBody
	}

	data := in.Remaining()
	var nestedStatus compress.Status
	var nestedErr error
	if len(data) > 0 {
		nestedIn := &compress.Buffer{Data: data}
		staging := make([]byte, gzipStagingSize)
		nestedOut := &compress.Buffer{Data: staging}
		nestedStatus, nestedErr = e.deflateUpdate(e.deflateState, nestedIn, nestedOut)
		if nestedIn.Used > 0 {
			e.crc.Update(data[:nestedIn.Used])
			e.isize += uint32(nestedIn.Used)
			in.Advance(nestedIn.Used)
		}
		e.outPending = append(e.outPending, staging[:nestedOut.Used]...)
		if nestedErr != nil && nestedStatus != compress.Limit {
			e.stage = encFailed
			e.drain(out)
			return nestedStatus, nestedErr
		}
	}

	e.drain(out)
	if nestedStatus == compress.Limit {
		return compress.Limit, nestedErr
	}
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
		e.drain(out)
		if e.pendingUnread() > 0 {
			return compress.Limit, compress.NewError(compress.Limit, "output buffer too small to drain remaining bytes")
		}
		return compress.OK, nil
	}
	if e.stage == encHeaderPending {
		e.outPending = append(e.outPending, e.buildHeader()...)
		e.stage = encBody
	}

	for {
		staging := make([]byte, gzipStagingSize)
		nestedOut := &compress.Buffer{Data: staging}
		status, err := e.deflateFinish(e.deflateState, nestedOut)
		e.outPending = append(e.outPending, staging[:nestedOut.Used]...)
		if status == compress.Limit {
			continue
		}
		if err != nil {
			e.stage = encFailed
			return status, err
		}
		break
	}

	sum := e.crc.Sum32()
	trailer := []byte{
		byte(sum), byte(sum >> 8), byte(sum >> 16), byte(sum >> 24),
		byte(e.isize), byte(e.isize >> 8), byte(e.isize >> 16), byte(e.isize >> 24),
	}
	e.outPending = append(e.outPending, trailer...)
	e.stage = encDone

	e.drain(out)
	if e.pendingUnread() > 0 {
		return compress.Limit, compress.NewError(compress.Limit, "output buffer too small to drain remaining bytes")
	}
	return compress.OK, nil
}
