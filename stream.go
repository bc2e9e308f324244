// Copyright 2026 by Corey Pennycuff

package compress

// stage tracks whether a handle is still usable. Once a handle observes
// any non-Ok, non-Limit status it latches into failed and every subsequent
// call returns the same error, per spec section 7's error-propagation rule.
type stage int

const (
	stageActive stage = iota
	stageFailed
)

// Encoder is an incremental, push-style compression handle: a method
// reference, its owned opaque state, and the update/finish closures the
// method factory installed. Not safe for concurrent use; exclusively
// owned by one caller for its lifetime (spec section 5).
type Encoder struct {
	method *MethodDescriptor
	state  MethodState
	update UpdateFunc
	finish FinishFunc
	reset  ResetFunc
	teardn DestroyFunc

	stage   stage
	lastErr *Error
}

// CreateEncoder looks up methodName in registry, validates bag against the
// method's schema, and asks the method factory to build an encoder.
// Returns Unsupported if the method is unknown or lacks encode capability.
func CreateEncoder(registry *Registry, methodName string, bag *OptionsBag) (*Encoder, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	desc := registry.Lookup(methodName)
	if desc == nil {
		return nil, newError(Unsupported, "unknown method %q", methodName)
	}
	if desc.Capabilities&CapEncode == 0 {
		return nil, newError(Unsupported, "method %q does not support encoding", methodName)
	}
	if desc.SchemaDef != nil {
		if err := desc.SchemaDef.Validate(bag); err != nil {
			return nil, err
		}
	}
	state, update, finish, reset, teardown, err := desc.CreateEncoder(bag)
	if err != nil {
		return nil, err
	}
	return &Encoder{method: desc, state: state, update: update, finish: finish, reset: reset, teardn: teardown}, nil
}

// Update dispatches to the method's UpdateFunc. Never blocks: it returns
// as soon as forward progress stalls, per the partial-I/O contract.
func (e *Encoder) Update(in, out *Buffer) (Status, error) {
	if e.stage == stageFailed {
		return e.lastErr.Status, e.lastErr
	}
	status, err := e.update(e.state, in, out)
	e.latch(status, err)
	return status, err
}

// Finish drains any remaining output. May be called repeatedly while it
// returns Limit, once the caller has made more output space available.
func (e *Encoder) Finish(out *Buffer) (Status, error) {
	if e.stage == stageFailed {
		return e.lastErr.Status, e.lastErr
	}
	status, err := e.finish(e.state, out)
	if status != Limit {
		e.latch(status, err)
	}
	return status, err
}

// Reset reinitializes the encoder's method state in place, for reuse
// without reallocating the handle (see DESIGN.md for the reset-hook
// decision). Clears any latched failure.
func (e *Encoder) Reset() error {
	if e.reset == nil {
		return newError(Internal, "method %q has no reset hook", e.method.Name)
	}
	if err := e.reset(e.state); err != nil {
		return err
	}
	e.stage = stageActive
	e.lastErr = nil
	return nil
}

// Destroy releases method state. Safe to call from any stage, including
// after an error; infallible.
func (e *Encoder) Destroy() {
	if e.teardn != nil {
		e.teardn(e.state)
	}
}

// LastError returns the most recently captured failure, or nil if the
// handle has not failed.
func (e *Encoder) LastError() *Error { return e.lastErr }

func (e *Encoder) latch(status Status, err error) {
	if status == OK || status == Limit {
		return
	}
	e.stage = stageFailed
	if ce, ok := err.(*Error); ok {
		e.lastErr = ce
	} else {
		e.lastErr = newError(status, "%v", err)
	}
}

// Decoder is the incremental, push-style decompression handle, mirroring
// Encoder in every structural respect.
type Decoder struct {
	method *MethodDescriptor
	state  MethodState
	update UpdateFunc
	finish FinishFunc
	reset  ResetFunc
	teardn DestroyFunc

	stage   stage
	lastErr *Error
}

// CreateDecoder is Decoder's counterpart to CreateEncoder.
func CreateDecoder(registry *Registry, methodName string, bag *OptionsBag) (*Decoder, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	desc := registry.Lookup(methodName)
	if desc == nil {
		return nil, newError(Unsupported, "unknown method %q", methodName)
	}
	if desc.Capabilities&CapDecode == 0 {
		return nil, newError(Unsupported, "method %q does not support decoding", methodName)
	}
	if desc.SchemaDef != nil {
		if err := desc.SchemaDef.Validate(bag); err != nil {
			return nil, err
		}
	}
	state, update, finish, reset, teardown, err := desc.CreateDecoder(bag)
	if err != nil {
		return nil, err
	}
	return &Decoder{method: desc, state: state, update: update, finish: finish, reset: reset, teardn: teardown}, nil
}

func (d *Decoder) Update(in, out *Buffer) (Status, error) {
	if d.stage == stageFailed {
		return d.lastErr.Status, d.lastErr
	}
	status, err := d.update(d.state, in, out)
	d.latch(status, err)
	return status, err
}

func (d *Decoder) Finish(out *Buffer) (Status, error) {
	if d.stage == stageFailed {
		return d.lastErr.Status, d.lastErr
	}
	status, err := d.finish(d.state, out)
	if status != Limit {
		d.latch(status, err)
	}
	return status, err
}

func (d *Decoder) Reset() error {
	if d.reset == nil {
		return newError(Internal, "method %q has no reset hook", d.method.Name)
	}
	if err := d.reset(d.state); err != nil {
		return err
	}
	d.stage = stageActive
	d.lastErr = nil
	return nil
}

func (d *Decoder) Destroy() {
	if d.teardn != nil {
		d.teardn(d.state)
	}
}

func (d *Decoder) LastError() *Error { return d.lastErr }

func (d *Decoder) latch(status Status, err error) {
	if status == OK || status == Limit {
		return
	}
	d.stage = stageFailed
	if ce, ok := err.(*Error); ok {
		d.lastErr = ce
	} else {
		d.lastErr = newError(status, "%v", err)
	}
}
