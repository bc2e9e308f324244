// Copyright 2026 by Corey Pennycuff

// Package gzip wraps the deflate method in the RFC 1952 gzip member
// framing: a fixed header, optional name/comment/extra/header-CRC fields,
// a DEFLATE body, and a trailer carrying the uncompressed CRC32 and
// length. It registers itself under method name "gzip" and passes its
// option bag through to the nested deflate codec unvalidated, since its
// own schema uses UnknownKeyIgnore.
package gzip

const (
	idByte1   = 0x1F
	idByte2   = 0x8B
	cmDeflate = 8
)

// FLG bit positions, RFC 1952 section 2.3.1.
const (
	flgText = 1 << iota
	flgHCRC
	flgExtra
	flgName
	flgComment
)

// reservedFlgBits covers FLG bits 5-7, which RFC 1952 requires to be zero.
const reservedFlgBits = 0xE0

// defaultOS is written when gzip.os is unset: 255, "unknown", the
// conservative default most gzip implementations fall back to.
const defaultOS = 255
