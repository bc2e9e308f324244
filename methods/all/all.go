// Copyright 2026 by Corey Pennycuff

// Package all blank-imports every built-in method so that importing it
// alone populates compress.DefaultRegistry() with "deflate" and "gzip",
// mirroring the zero-configuration registration the original library
// provides via platform constructors (autoreg_platform.h) — Go has no
// load-time constructor hook, so a blank import is the idiomatic
// equivalent, the same pattern the standard library uses for image codecs
// (image/png, image/jpeg) registering themselves with image.RegisterFormat.
package all

import (
	_ "github.com/coreyp1/compress-sub001/methods/deflate"
	_ "github.com/coreyp1/compress-sub001/methods/gzip"
)
