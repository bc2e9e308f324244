// Copyright 2026 by Corey Pennycuff

package compress

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Capability is a bitmask of what a method can do.
type Capability int

const (
	CapEncode Capability = 1 << iota
	CapDecode
)

// MethodState is the opaque per-handle state a method factory installs.
// Encoder/Decoder hold one as an any and never interpret it directly;
// only the method's own Update/Finish/Destroy closures do.
type MethodState any

// UpdateFunc advances a method's state machine by consuming some prefix of
// in and producing some prefix into out, per the partial-I/O contract.
type UpdateFunc func(state MethodState, in, out *Buffer) (Status, error)

// FinishFunc drains any remaining output. May be called repeatedly if it
// returns Limit.
type FinishFunc func(state MethodState, out *Buffer) (Status, error)

// ResetFunc reinitializes state in place for reuse, without reallocating
// the owning handle. Supplemented per the original design's reset hook
// (open question resolved: implement it; see DESIGN.md).
type ResetFunc func(state MethodState) error

// DestroyFunc releases any resources method state holds. Must be callable
// from any stage, including after an error, and must not panic.
type DestroyFunc func(state MethodState)

// MethodDescriptor is an immutable record describing one pluggable
// compression method: its name, capabilities, and factories. The registry
// stores these by name; handles borrow a descriptor for their lifetime.
type MethodDescriptor struct {
	Name         string
	Capabilities Capability

	CreateEncoder func(bag *OptionsBag) (MethodState, UpdateFunc, FinishFunc, ResetFunc, DestroyFunc, error)
	CreateDecoder func(bag *OptionsBag) (MethodState, UpdateFunc, FinishFunc, ResetFunc, DestroyFunc, error)

	// SchemaDef is the method's option schema. Set by the method package
	// at registration time; exported so methods/* packages (which cannot
	// reach an unexported field across the package boundary) can populate
	// it directly in a MethodDescriptor literal.
	SchemaDef *OptionSchema
}

// Schema returns the method's option schema, letting a caller introspect
// which keys a method recognizes before constructing a bag for it.
func (m *MethodDescriptor) Schema() *OptionSchema { return m.SchemaDef }

// bucket is one open-chaining slot in the Registry's hash table.
type bucket struct {
	hash uint64
	name string
	desc *MethodDescriptor
	next *bucket
}

// Registry maps method name to MethodDescriptor via an open-chaining hash
// table keyed by xxhash.Sum64String, per the spec's explicit call for
// "open-chaining hash table is sufficient". Lookups may run concurrently
// with each other; Register serializes writers behind mu. The zero value
// is not ready for use — call NewRegistry.
type Registry struct {
	mu      sync.Mutex
	buckets []*bucket
}

const registryBucketCount = 64

// NewRegistry returns an empty, independently-usable registry. Most
// callers want DefaultRegistry instead.
func NewRegistry() *Registry {
	return &Registry{buckets: make([]*bucket, registryBucketCount)}
}

// Register adds desc under desc.Name. Registration is idempotent: a
// duplicate name is a no-op success, matching the spec's registry
// contract, rather than an error — this lets multiple init() calls
// (e.g. from separately-imported method packages) register the same
// built-in safely.
func (r *Registry) Register(desc *MethodDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := xxhash.Sum64String(desc.Name)
	idx := h % uint64(len(r.buckets))
	for b := r.buckets[idx]; b != nil; b = b.next {
		if b.hash == h && b.name == desc.Name {
			return // idempotent: already registered
		}
	}
	r.buckets[idx] = &bucket{hash: h, name: desc.Name, desc: desc, next: r.buckets[idx]}
}

// Lookup returns the descriptor registered under name, or nil if none.
// Safe to call concurrently with other Lookups and with Register.
func (r *Registry) Lookup(name string) *MethodDescriptor {
	h := xxhash.Sum64String(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := h % uint64(len(r.buckets))
	for b := r.buckets[idx]; b != nil; b = b.next {
		if b.hash == h && b.name == name {
			return b.desc
		}
	}
	return nil
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide singleton registry, created and
// populated with the built-in "deflate" and "gzip" methods on first call.
// Per spec section 5, the default registry is populated once, before any
// user-observable lookup; sync.Once gives that guarantee without requiring
// callers to sequence their own startup.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

// builtinRegistrars is populated by each methods/* package's init() via
// RegisterBuiltin, so the root package need not import methods/deflate or
// methods/gzip directly (which would create an import cycle, since those
// packages import the root package for Buffer/Status/Error/OptionsBag).
var builtinRegistrars []func(*Registry)

// RegisterBuiltin is called from a methods/* package's init() to queue its
// descriptor for installation into every registry created via
// DefaultRegistry. Not for use outside this module's own method packages.
func RegisterBuiltin(register func(*Registry)) {
	builtinRegistrars = append(builtinRegistrars, register)
}

func registerBuiltins(r *Registry) {
	for _, register := range builtinRegistrars {
		register(r)
	}
}
