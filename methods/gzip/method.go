// Copyright 2026 by Corey Pennycuff

package gzip

import compress "github.com/coreyp1/compress-sub001"

// Name is the method string this package registers under.
const Name = "gzip"

// schema uses UnknownKeyIgnore so a caller's deflate.* and limits.* keys
// pass straight through to the nested DEFLATE codec instead of being
// rejected here.
func schema() *compress.OptionSchema {
	return &compress.OptionSchema{
		Policy: compress.UnknownKeyIgnore,
		Keys: []compress.SchemaKey{
			{Name: "gzip.mtime", Kind: compress.KindUint},
			{Name: "gzip.os", Kind: compress.KindUint, HasUint: true, MinUint: 0, MaxUint: 255},
			{Name: "gzip.name", Kind: compress.KindString},
			{Name: "gzip.comment", Kind: compress.KindString},
			{Name: "gzip.extra", Kind: compress.KindBytes},
			{Name: "gzip.header_crc", Kind: compress.KindBool},
			{Name: "gzip.xfl", Kind: compress.KindUint, HasUint: true, MinUint: 0, MaxUint: 255},
			{Name: "gzip.concat", Kind: compress.KindBool},
			{Name: "gzip.max_name_bytes", Kind: compress.KindUint},
			{Name: "gzip.max_comment_bytes", Kind: compress.KindUint},
			{Name: "gzip.max_extra_bytes", Kind: compress.KindUint},
		},
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
