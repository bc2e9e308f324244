// Copyright 2026 by Corey Pennycuff

package deflate

import (
	"bytes"
	"testing"

	compress "github.com/coreyp1/compress-sub001"
)

func newTestDecoder(t *testing.T) *compress.Decoder {
	t.Helper()
	dec, err := compress.CreateDecoder(nil, Name, nil)
	if err != nil {
		t.Fatalf("CreateDecoder: %v", err)
	}
	return dec
}

func newTestEncoder(t *testing.T, bag *compress.OptionsBag) *compress.Encoder {
	t.Helper()
	enc, err := compress.CreateEncoder(nil, Name, bag)
	if err != nil {
		t.Fatalf("CreateEncoder: %v", err)
	}
	return enc
}

func TestDecodeKnownVectors(t *testing.T) {
	cases := []struct {
		name    string
		input   []byte
		want    []byte
		wantErr bool
	}{
		{
			name:  "empty stored final block",
			input: []byte{0x01, 0x00, 0x00, 0xFF, 0xFF},
			want:  nil,
		},
		{
			name:  "fixed huffman single literal",
			input: []byte{0x73, 0x04, 0x00},
			want:  []byte("A"),
		},
		{
			name:  "stored block Hello",
			input: []byte{0x01, 0x05, 0x00, 0xFA, 0xFF, 0x48, 0x65, 0x6C, 0x6C, 0x6F},
			want:  []byte("Hello"),
		},
		{
			name: "fixed huffman Hello, world!",
			input: []byte{
				0xF3, 0x48, 0xCD, 0xC9, 0xC9, 0xD7, 0x51, 0x28,
				0xCF, 0x2F, 0xCA, 0x49, 0x51, 0x04, 0x00,
			},
			want: []byte("Hello, world!"),
		},
		{
			name:    "reserved block type",
			input:   []byte{0x07},
			wantErr: true,
		},
		{
			name:    "stored length check mismatch",
			input:   []byte{0x01, 0x05, 0x00, 0x00, 0x00},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dec := newTestDecoder(t)
			out, err := compress.DecodeBuffer(dec, tc.input, nil, 0)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("want error, got none (out=%x)", out)
				}
				if compress.StatusOf(err) != compress.Corrupt {
					t.Fatalf("want Corrupt, got %v", compress.StatusOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(out, tc.want) {
				t.Fatalf("got %q, want %q", out, tc.want)
			}
		})
	}
}

func TestRoundTripAllLevels(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("A"),
		[]byte("Hello, world!"),
		bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200),
		bytes.Repeat([]byte{0}, 5000),
	}

	for level := 0; level <= 9; level++ {
		for i, payload := range payloads {
			bag := compress.NewOptionsBag()
			bag.SetInt("deflate.level", int64(level))

			enc := newTestEncoder(t, bag)
			compressed, err := compress.EncodeBuffer(enc, payload, nil, 0)
			if err != nil {
				t.Fatalf("level %d payload %d: encode: %v", level, i, err)
			}

			dec := newTestDecoder(t)
			decompressed, err := compress.DecodeBuffer(dec, compressed, nil, 0)
			if err != nil {
				t.Fatalf("level %d payload %d: decode: %v", level, i, err)
			}
			if !bytes.Equal(decompressed, payload) {
				t.Fatalf("level %d payload %d: round trip mismatch: got %d bytes, want %d", level, i, len(decompressed), len(payload))
			}
		}
	}
}

// TestChunkInvariance checks that feeding the encoder and decoder in
// differently-sized chunks never changes the decompressed result, per the
// partial-I/O contract's chunk-invariance property.
func TestChunkInvariance(t *testing.T) {
	payload := make([]byte, 64<<10)
	for i := range payload {
		payload[i] = byte(i & 0xFF)
	}
	chunkSizes := []int{1, 13, 4096}

	for _, chunk := range chunkSizes {
		bag := compress.NewOptionsBag()
		bag.SetInt("deflate.level", 6)
		enc := newTestEncoder(t, bag)

		var compressed bytes.Buffer
		in := &compress.Buffer{Data: payload}
		staging := make([]byte, chunk)
		for in.Used < len(in.Data) {
			end := in.Used + chunk
			if end > len(in.Data) {
				end = len(in.Data)
			}
			step := &compress.Buffer{Data: in.Data[:end]}
			step.Used = in.Used
			out := &compress.Buffer{Data: staging}
			_, err := enc.Update(step, out)
			if err != nil {
				t.Fatalf("chunk %d: update: %v", chunk, err)
			}
			compressed.Write(staging[:out.Used])
			in.Used = step.Used
		}
		for {
			out := &compress.Buffer{Data: staging}
			status, err := enc.Finish(out)
			compressed.Write(staging[:out.Used])
			if status == compress.Limit {
				continue
			}
			if err != nil {
				t.Fatalf("chunk %d: finish: %v", chunk, err)
			}
			break
		}

		dec := newTestDecoder(t)
		decompressed, err := compress.DecodeBuffer(dec, compressed.Bytes(), nil, 0)
		if err != nil {
			t.Fatalf("chunk %d: decode: %v", chunk, err)
		}
		if !bytes.Equal(decompressed, payload) {
			t.Fatalf("chunk %d: round trip mismatch", chunk)
		}
	}
}

func TestSchemaRejectsUnknownKey(t *testing.T) {
	bag := compress.NewOptionsBag()
	bag.SetInt("deflate.bogus", 1)
	_, err := compress.CreateEncoder(nil, Name, bag)
	if err == nil {
		t.Fatal("want error for unknown option key")
	}
	if compress.StatusOf(err) != compress.InvalidArg {
		t.Fatalf("want InvalidArg, got %v", compress.StatusOf(err))
	}
}

func TestSchemaRejectsOutOfRangeLevel(t *testing.T) {
	bag := compress.NewOptionsBag()
	bag.SetInt("deflate.level", 42)
	_, err := compress.CreateEncoder(nil, Name, bag)
	if err == nil {
		t.Fatal("want error for out-of-range level")
	}
	if compress.StatusOf(err) != compress.InvalidArg {
		t.Fatalf("want InvalidArg, got %v", compress.StatusOf(err))
	}
}

// englishCorpus builds a deterministic, repetitive-but-prose English-text
// corpus of at least n bytes, varying sentence order slightly so the
// result isn't pure run-length-friendly repetition.
func englishCorpus(n int) []byte {
	sentences := []string{
		"The quick brown fox jumps over the lazy dog near the old stone bridge. ",
		"Compression algorithms trade time for space, and space for time. ",
		"A canonical Huffman code assigns shorter codes to frequent symbols. ",
		"Most English prose compresses well because letters are not uniformly likely. ",
		"The committee met on Tuesday to discuss the quarterly report in detail. ",
		"Sliding windows let an encoder refer back to recently seen bytes. ",
		"Every sufficiently long message contains some amount of redundancy. ",
		"The library shelves held dusty volumes nobody had opened in years. ",
	}
	var buf bytes.Buffer
	for buf.Len() < n {
		for i, s := range sentences {
			if (buf.Len()/97+i)%3 == 0 {
				buf.WriteString(s)
			}
			buf.WriteString(s)
		}
	}
	return buf.Bytes()[:n]
}

// TestMonotoneCompressionAcrossLevels checks that, on a realistic English
// corpus, raising the compression level never increases output size:
// size(encode(B, l+1)) <= size(encode(B, l)) for l in [1, 8].
func TestMonotoneCompressionAcrossLevels(t *testing.T) {
	corpus := englishCorpus(1 << 20)

	sizes := make([]int, 10) // index by level 0..9
	for level := 1; level <= 9; level++ {
		bag := compress.NewOptionsBag()
		bag.SetInt("deflate.level", int64(level))
		enc := newTestEncoder(t, bag)
		compressed, err := compress.EncodeBuffer(enc, corpus, nil, 0)
		if err != nil {
			t.Fatalf("level %d: encode: %v", level, err)
		}
		sizes[level] = len(compressed)
	}

	for level := 1; level <= 8; level++ {
		if sizes[level+1] > sizes[level] {
			t.Fatalf("level %d produced %d bytes, level %d produced %d bytes: not monotone",
				level, sizes[level], level+1, sizes[level+1])
		}
	}
}

// TestExpansionRatioCapRejectsBomb checks that decoding a stream whose
// output vastly exceeds its compressed size trips limits.max_expansion_ratio
// and yields Limit, per the expansion-ratio cap invariant.
func TestExpansionRatioCapRejectsBomb(t *testing.T) {
	bag := compress.NewOptionsBag()
	bag.SetInt("deflate.level", 9)
	enc := newTestEncoder(t, bag)
	payload := bytes.Repeat([]byte{'x'}, 1<<20)
	compressed, err := compress.EncodeBuffer(enc, payload, nil, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(compressed) >= len(payload)/100 {
		t.Fatalf("fixture did not compress enough to exercise the cap: %d bytes in, %d bytes out", len(payload), len(compressed))
	}

	decBag := compress.NewOptionsBag()
	decBag.SetUint("limits.max_expansion_ratio", 10)
	dec, err := compress.CreateDecoder(nil, Name, decBag)
	if err != nil {
		t.Fatalf("CreateDecoder: %v", err)
	}
	_, err = compress.DecodeBuffer(dec, compressed, nil, 0)
	if err == nil {
		t.Fatal("want Limit error, got none")
	}
	if compress.StatusOf(err) != compress.Limit {
		t.Fatalf("want Limit, got %v", compress.StatusOf(err))
	}
}

func TestTruncatedStreamIsCorrupt(t *testing.T) {
	dec := newTestDecoder(t)
	// Fixed-Huffman block for "Hello, world!" truncated mid-stream.
	input := []byte{0xF3, 0x48, 0xCD, 0xC9, 0xC9, 0xD7, 0x51, 0x28}
	_, err := compress.DecodeBuffer(dec, input, nil, 0)
	if err == nil {
		t.Fatal("want error for truncated stream")
	}
	if compress.StatusOf(err) != compress.Corrupt {
		t.Fatalf("want Corrupt, got %v", compress.StatusOf(err))
	}
}
