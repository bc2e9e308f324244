// Copyright 2026 by Corey Pennycuff

package deflate

import compress "github.com/coreyp1/compress-sub001"

// Name is the method string this package registers under.
const Name = "deflate"

func schema() *compress.OptionSchema {
	return &compress.OptionSchema{
		Policy: compress.UnknownKeyReject,
		Keys:   SchemaKeys(),
	}
}

// SchemaKeys exists only so schema() reads as a single literal list below;
// defined as a function to keep the slice construction local to this file.
func SchemaKeys() []compress.SchemaKey {
	return []compress.SchemaKey{
		{Name: "deflate.level", Kind: compress.KindInt, HasInt: true, MinInt: 0, MaxInt: 9},
		{Name: "deflate.window_bits", Kind: compress.KindUint, HasUint: true, MinUint: 8, MaxUint: 15},
		{Name: "limits.max_output_bytes", Kind: compress.KindUint},
		{Name: "limits.max_memory_bytes", Kind: compress.KindUint},
		{Name: "limits.max_window_bytes", Kind: compress.KindUint},
		{Name: "limits.max_expansion_ratio", Kind: compress.KindUint},
	}
}

func init() {
	compress.RegisterBuiltin(func(r *compress.Registry) {
		r.Register(&compress.MethodDescriptor{
			Name:          Name,
			Capabilities:  compress.CapEncode | compress.CapDecode,
			CreateEncoder: newEncoder,
			CreateDecoder: newDecoder,
			SchemaDef:     schema(),
		})
	})
}
