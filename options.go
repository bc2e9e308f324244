// Copyright 2026 by Corey Pennycuff

package compress

// ValueKind identifies which typed slot of an Entry is populated.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindUint
	KindBool
	KindString
	KindBytes
)

// entry is one typed value stored in an OptionsBag.
type entry struct {
	kind  ValueKind
	i     int64
	u     uint64
	b     bool
	s     string
	bytes []byte
}

// OptionsBag is a typed key-value store keyed by string, the concrete
// stand-in for the abstract per-method configuration container: signed
// integer, unsigned integer, boolean, string, and raw-byte entries.
type OptionsBag struct {
	values map[string]entry
}

// NewOptionsBag returns an empty bag ready for Set* calls.
func NewOptionsBag() *OptionsBag {
	return &OptionsBag{values: make(map[string]entry)}
}

func (b *OptionsBag) ensure() {
	if b.values == nil {
		b.values = make(map[string]entry)
	}
}

func (b *OptionsBag) SetInt(key string, v int64) {
	b.ensure()
	b.values[key] = entry{kind: KindInt, i: v}
}

func (b *OptionsBag) SetUint(key string, v uint64) {
	b.ensure()
	b.values[key] = entry{kind: KindUint, u: v}
}

func (b *OptionsBag) SetBool(key string, v bool) {
	b.ensure()
	b.values[key] = entry{kind: KindBool, b: v}
}

func (b *OptionsBag) SetString(key string, v string) {
	b.ensure()
	b.values[key] = entry{kind: KindString, s: v}
}

func (b *OptionsBag) SetBytes(key string, v []byte) {
	b.ensure()
	b.values[key] = entry{kind: KindBytes, bytes: v}
}

func (b *OptionsBag) GetInt(key string) (int64, bool) {
	if b == nil {
		return 0, false
	}
	e, ok := b.values[key]
	if !ok || e.kind != KindInt {
		return 0, false
	}
	return e.i, true
}

func (b *OptionsBag) GetUint(key string) (uint64, bool) {
	if b == nil {
		return 0, false
	}
	e, ok := b.values[key]
	if !ok || e.kind != KindUint {
		return 0, false
	}
	return e.u, true
}

func (b *OptionsBag) GetBool(key string) (bool, bool) {
	if b == nil {
		return false, false
	}
	e, ok := b.values[key]
	if !ok || e.kind != KindBool {
		return false, false
	}
	return e.b, true
}

func (b *OptionsBag) GetString(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	e, ok := b.values[key]
	if !ok || e.kind != KindString {
		return "", false
	}
	return e.s, true
}

func (b *OptionsBag) GetBytes(key string) ([]byte, bool) {
	if b == nil {
		return nil, false
	}
	e, ok := b.values[key]
	if !ok || e.kind != KindBytes {
		return nil, false
	}
	return e.bytes, true
}

// Keys returns every key currently set in the bag, in no particular order.
// A nil bag (no options supplied) reports no keys.
func (b *OptionsBag) Keys() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	return keys
}

// UnknownKeyPolicy controls how a method's schema treats a bag key it does
// not recognize.
type UnknownKeyPolicy int

const (
	// UnknownKeyReject fails schema validation when the bag has a key the
	// schema does not list. Used by "deflate".
	UnknownKeyReject UnknownKeyPolicy = iota
	// UnknownKeyIgnore silently passes unrecognized keys through
	// unvalidated. Used by "gzip", so deflate.* and limits.* keys reach
	// the nested DEFLATE codec.
	UnknownKeyIgnore
)

// SchemaKey describes one recognized option: its type and
// (per the still-open question in design notes) an optional min/max pair
// that applies only to the pair matching Kind — an int key's bounds live
// in MinInt/MaxInt, a uint key's in MinUint/MaxUint, and the unused pair
// is left zero and ignored.
type SchemaKey struct {
	Name    string
	Kind    ValueKind
	HasInt  bool
	MinInt  int64
	MaxInt  int64
	HasUint bool
	MinUint uint64
	MaxUint uint64
}

// OptionSchema lists a method's recognized keys and its policy for keys it
// does not list.
type OptionSchema struct {
	Keys   []SchemaKey
	Policy UnknownKeyPolicy
}

func (s *OptionSchema) find(name string) (SchemaKey, bool) {
	for _, k := range s.Keys {
		if k.Name == name {
			return k, true
		}
	}
	return SchemaKey{}, false
}

// Validate checks bag against the schema: every bag key must be known (or
// the schema's policy must be Ignore), and every known int/uint key's
// value must fall within its declared bounds. Keys absent from bag are
// left for the caller to default.
func (s *OptionSchema) Validate(bag *OptionsBag) error {
	if bag == nil {
		return nil
	}
	for _, key := range bag.Keys() {
		sk, known := s.find(key)
		if !known {
			if s.Policy == UnknownKeyReject {
				return newError(InvalidArg, "unrecognized option key %q", key)
			}
			continue
		}
		switch sk.Kind {
		case KindInt:
			v, ok := bag.GetInt(key)
			if !ok {
				return newError(InvalidArg, "option %q: expected signed integer value", key)
			}
			if sk.HasInt && (v < sk.MinInt || v > sk.MaxInt) {
				return newError(InvalidArg, "option %q: value %d outside range [%d, %d]", key, v, sk.MinInt, sk.MaxInt)
			}
		case KindUint:
			v, ok := bag.GetUint(key)
			if !ok {
				return newError(InvalidArg, "option %q: expected unsigned integer value", key)
			}
			if sk.HasUint && (v < sk.MinUint || v > sk.MaxUint) {
				return newError(InvalidArg, "option %q: value %d outside range [%d, %d]", key, v, sk.MinUint, sk.MaxUint)
			}
		}
	}
	return nil
}

// Default limit values, per the four recognized limits.* keys.
const (
	DefaultMaxOutputBytes    uint64 = 512 << 20
	DefaultMaxMemoryBytes    uint64 = 256 << 20
	DefaultMaxWindowBytes    uint64 = 0 // 0 means unlimited; methods apply their own ceiling
	DefaultMaxExpansionRatio uint64 = 1000
)

// Limits is the resolved view of the four limits.* keys, with defaults
// substituted for anything the bag left unset.
type Limits struct {
	MaxOutputBytes    uint64
	MaxMemoryBytes    uint64
	MaxWindowBytes    uint64
	MaxExpansionRatio uint64
}

// ResolveLimits reads limits.max_output_bytes, limits.max_memory_bytes,
// limits.max_window_bytes, and limits.max_expansion_ratio from bag,
// substituting the documented defaults for anything unset. A nil bag
// yields all defaults.
func ResolveLimits(bag *OptionsBag) Limits {
	l := Limits{
		MaxOutputBytes:    DefaultMaxOutputBytes,
		MaxMemoryBytes:    DefaultMaxMemoryBytes,
		MaxWindowBytes:    DefaultMaxWindowBytes,
		MaxExpansionRatio: DefaultMaxExpansionRatio,
	}
	if bag == nil {
		return l
	}
	if v, ok := bag.GetUint("limits.max_output_bytes"); ok {
		l.MaxOutputBytes = v
	}
	if v, ok := bag.GetUint("limits.max_memory_bytes"); ok {
		l.MaxMemoryBytes = v
	}
	if v, ok := bag.GetUint("limits.max_window_bytes"); ok {
		l.MaxWindowBytes = v
	}
	if v, ok := bag.GetUint("limits.max_expansion_ratio"); ok {
		l.MaxExpansionRatio = v
	}
	return l
}

// CheckExpansion returns a Limit error once outputBytes exceeds
// inputBytes * ratio, per the expansion-ratio cap invariant. A ratio of 0
// means unlimited. The check only applies once inputBytes > 0, matching
// the "after at least one input byte is consumed" clause.
func (l Limits) CheckExpansion(inputBytes, outputBytes uint64) error {
	if l.MaxExpansionRatio == 0 || inputBytes == 0 {
		return nil
	}
	if outputBytes > inputBytes*l.MaxExpansionRatio {
		return newError(Limit, "output/input expansion ratio exceeded %d", l.MaxExpansionRatio)
	}
	return nil
}

// CheckOutput returns a Limit error once producedBytes would exceed the
// configured output cap. A cap of 0 means unlimited.
func (l Limits) CheckOutput(producedBytes uint64) error {
	if l.MaxOutputBytes == 0 {
		return nil
	}
	if producedBytes > l.MaxOutputBytes {
		return newError(Limit, "output exceeded limits.max_output_bytes=%d", l.MaxOutputBytes)
	}
	return nil
}

// CheckMemory returns a Limit error once trackedBytes — a method's own
// estimate of its growing buffers and tables, per spec section 5's
// "each update checks the output and memory limits" — exceeds the
// configured cap. A cap of 0 means unlimited.
func (l Limits) CheckMemory(trackedBytes uint64) error {
	if l.MaxMemoryBytes == 0 {
		return nil
	}
	if trackedBytes > l.MaxMemoryBytes {
		return newError(Limit, "tracked allocations exceeded limits.max_memory_bytes=%d", l.MaxMemoryBytes)
	}
	return nil
}

// CheckWindow returns a Limit error once a decoded back-reference distance
// exceeds the configured window cap. A cap of 0 means unlimited (the
// format's own 32 KiB ceiling still applies; see methods/deflate).
func (l Limits) CheckWindow(distance uint64) error {
	if l.MaxWindowBytes == 0 {
		return nil
	}
	if distance > l.MaxWindowBytes {
		return newError(Limit, "window distance %d exceeded limits.max_window_bytes=%d", distance, l.MaxWindowBytes)
	}
	return nil
}
