// Copyright 2026 by Corey Pennycuff

package compress

// stagingSize is the staging-buffer size used by the callback drivers,
// per spec section 4.8's "~8 KiB each".
const stagingSize = 8 << 10

// EncodeBuffer runs encoder to completion over a single in-memory input,
// appending produced bytes to out and returning the grown slice. Returns
// Limit if maxOutputBytes is exceeded before completion (0 means
// unlimited); a nil input is accepted iff len(input) == 0.
func EncodeBuffer(encoder *Encoder, input []byte, out []byte, maxOutputBytes int) ([]byte, error) {
	in := &Buffer{Data: input}
	staging := make([]byte, stagingSize)

	for in.Used < len(in.Data) {
		ob := &Buffer{Data: staging}
		_, err := encoder.Update(in, ob)
		out = append(out, staging[:ob.Used]...)
		if maxOutputBytes > 0 && len(out) > maxOutputBytes {
			return out, newError(Limit, "encoded output exceeded %d bytes", maxOutputBytes)
		}
		if err != nil {
			return out, err
		}
	}

	for {
		ob := &Buffer{Data: staging}
		status, err := encoder.Finish(ob)
		out = append(out, staging[:ob.Used]...)
		if maxOutputBytes > 0 && len(out) > maxOutputBytes {
			return out, newError(Limit, "encoded output exceeded %d bytes", maxOutputBytes)
		}
		if status == Limit {
			continue // Finish is retriable; staging is freshly drained each loop
		}
		return out, err
	}
}

// DecodeBuffer is EncodeBuffer's decompression counterpart.
func DecodeBuffer(decoder *Decoder, input []byte, out []byte, maxOutputBytes int) ([]byte, error) {
	in := &Buffer{Data: input}
	staging := make([]byte, stagingSize)

	for in.Used < len(in.Data) {
		ob := &Buffer{Data: staging}
		_, err := decoder.Update(in, ob)
		out = append(out, staging[:ob.Used]...)
		if maxOutputBytes > 0 && len(out) > maxOutputBytes {
			return out, newError(Limit, "decoded output exceeded %d bytes", maxOutputBytes)
		}
		if err != nil {
			return out, err
		}
	}

	for {
		ob := &Buffer{Data: staging}
		status, err := decoder.Finish(ob)
		out = append(out, staging[:ob.Used]...)
		if maxOutputBytes > 0 && len(out) > maxOutputBytes {
			return out, newError(Limit, "decoded output exceeded %d bytes", maxOutputBytes)
		}
		if status == Limit {
			continue
		}
		return out, err
	}
}

// ReadFunc pulls up to len(p) bytes into p, returning the count read and
// ok=false once no more input exists (an EOF-style signal rather than an
// error value, matching the callback-driver contract's "On EOF... loop
// update with empty input until decoder drains").
type ReadFunc func(p []byte) (n int, ok bool, err error)

// WriteFunc writes p in full, honoring short writes internally; returning
// an error aborts the driver immediately.
type WriteFunc func(p []byte) error

// EncodeCallback drives encoder by pulling input via read and pushing
// produced bytes via write, using two ~8 KiB staging buffers.
func EncodeCallback(encoder *Encoder, read ReadFunc, write WriteFunc) error {
	inBuf := make([]byte, stagingSize)
	outBuf := make([]byte, stagingSize)
	in := &Buffer{Data: inBuf[:0]}
	eof := false

	for {
		if !eof && in.Used >= len(in.Data) {
			n, ok, err := read(inBuf)
			if err != nil {
				return err
			}
			in = &Buffer{Data: inBuf[:n]}
			if !ok {
				eof = true
			}
		}

		out := &Buffer{Data: outBuf}
		_, err := encoder.Update(in, out)
		if out.Used > 0 {
			if werr := write(outBuf[:out.Used]); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}

		if eof && in.Used >= len(in.Data) {
			break
		}
	}

	// Drain: keep calling Update with empty input until it stops producing,
	// per the callback-driver contract's post-EOF draining step.
	for {
		out := &Buffer{Data: outBuf}
		empty := &Buffer{Data: inBuf[:0]}
		_, err := encoder.Update(empty, out)
		if out.Used > 0 {
			if werr := write(outBuf[:out.Used]); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
		if out.Used == 0 {
			break
		}
	}

	for {
		out := &Buffer{Data: outBuf}
		status, err := encoder.Finish(out)
		if out.Used > 0 {
			if werr := write(outBuf[:out.Used]); werr != nil {
				return werr
			}
		}
		if status == Limit {
			continue
		}
		return err
	}
}

// DecodeCallback is EncodeCallback's decompression counterpart.
func DecodeCallback(decoder *Decoder, read ReadFunc, write WriteFunc) error {
	inBuf := make([]byte, stagingSize)
	outBuf := make([]byte, stagingSize)
	in := &Buffer{Data: inBuf[:0]}
	eof := false

	for {
		if !eof && in.Used >= len(in.Data) {
			n, ok, err := read(inBuf)
			if err != nil {
				return err
			}
			in = &Buffer{Data: inBuf[:n]}
			if !ok {
				eof = true
			}
		}

		out := &Buffer{Data: outBuf}
		_, err := decoder.Update(in, out)
		if out.Used > 0 {
			if werr := write(outBuf[:out.Used]); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}

		if eof && in.Used >= len(in.Data) {
			break
		}
	}

	// Drain: keep calling Update with empty input until it stops producing,
	// per the callback-driver contract's post-EOF draining step.
	for {
		out := &Buffer{Data: outBuf}
		empty := &Buffer{Data: inBuf[:0]}
		_, err := decoder.Update(empty, out)
		if out.Used > 0 {
			if werr := write(outBuf[:out.Used]); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
		if out.Used == 0 {
			break
		}
	}

	for {
		out := &Buffer{Data: outBuf}
		status, err := decoder.Finish(out)
		if out.Used > 0 {
			if werr := write(outBuf[:out.Used]); werr != nil {
				return werr
			}
		}
		if status == Limit {
			continue
		}
		return err
	}
}
