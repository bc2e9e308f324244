// Copyright 2026 by Corey Pennycuff

package gzip

import (
	"bytes"
	"os"
	"strings"
	"testing"

	compress "github.com/coreyp1/compress-sub001"
)

func newTestDecoder(t *testing.T, bag *compress.OptionsBag) *compress.Decoder {
	t.Helper()
	dec, err := compress.CreateDecoder(nil, Name, bag)
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

func sampleText() []byte {
	return bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 227) // ~10 KiB
}

func TestRoundTripAllLevels(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("A"),
		[]byte("Hello"),
		bytes.Repeat([]byte{0}, 256),
		sampleText(),
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

			dec := newTestDecoder(t, nil)
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

func TestHeaderMagicAndFixedFields(t *testing.T) {
	bag := compress.NewOptionsBag()
	bag.SetUint("gzip.mtime", 0x01020304)
	bag.SetUint("gzip.os", 3)
	enc := newTestEncoder(t, bag)
	compressed, err := compress.EncodeBuffer(enc, []byte("hello"), nil, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(compressed) < 10 {
		t.Fatalf("stream too short for a header: %d bytes", len(compressed))
	}
	if compressed[0] != idByte1 || compressed[1] != idByte2 {
		t.Fatalf("bad magic: %x %x", compressed[0], compressed[1])
	}
	if compressed[2] != cmDeflate {
		t.Fatalf("bad CM: %d", compressed[2])
	}
	if compressed[9] != 3 {
		t.Fatalf("OS field not honored: got %d, want 3", compressed[9])
	}
	mtime := uint32(compressed[4]) | uint32(compressed[5])<<8 | uint32(compressed[6])<<16 | uint32(compressed[7])<<24
	if mtime != 0x01020304 {
		t.Fatalf("MTIME not honored: got %x", mtime)
	}
}

func TestHeaderOptionalFieldsRoundTrip(t *testing.T) {
	bag := compress.NewOptionsBag()
	bag.SetString("gzip.name", "report.txt")
	bag.SetString("gzip.comment", "generated by a test")
	bag.SetBytes("gzip.extra", []byte{0xDE, 0xAD, 0xBE, 0xEF})
	bag.SetBool("gzip.header_crc", true)

	enc := newTestEncoder(t, bag)
	payload := []byte("payload carried alongside a fully populated header")
	compressed, err := compress.EncodeBuffer(enc, payload, nil, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	dec := newTestDecoder(t, nil)
	decompressed, err := compress.DecodeBuffer(dec, compressed, nil, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decompressed, payload) {
		t.Fatalf("round trip mismatch with optional header fields set")
	}

	flg := compressed[3]
	if flg&flgName == 0 || flg&flgComment == 0 || flg&flgExtra == 0 || flg&flgHCRC == 0 {
		t.Fatalf("FLG missing expected bits: %08b", flg)
	}
	if flg&reservedFlgBits != 0 {
		t.Fatalf("reserved FLG bits set: %08b", flg)
	}
}

// TestCorruptedCRCIsRejected flips a bit in the trailer's CRC32 field and
// checks the decoder reports Corrupt rather than silently accepting the
// mismatched payload.
func TestCorruptedCRCIsRejected(t *testing.T) {
	enc := newTestEncoder(t, nil)
	compressed, err := compress.EncodeBuffer(enc, []byte("a payload long enough to matter"), nil, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	corrupted := append([]byte(nil), compressed...)
	corrupted[len(corrupted)-8] ^= 0xFF // low byte of the CRC32 trailer field

	dec := newTestDecoder(t, nil)
	_, err = compress.DecodeBuffer(dec, corrupted, nil, 0)
	if err == nil {
		t.Fatal("want error for corrupted CRC32 trailer")
	}
	if compress.StatusOf(err) != compress.Corrupt {
		t.Fatalf("want Corrupt, got %v", compress.StatusOf(err))
	}
}

// TestCorruptedISizeIsRejected does the same for the ISIZE trailer field.
func TestCorruptedISizeIsRejected(t *testing.T) {
	enc := newTestEncoder(t, nil)
	compressed, err := compress.EncodeBuffer(enc, []byte("a payload long enough to matter"), nil, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	corrupted := append([]byte(nil), compressed...)
	corrupted[len(corrupted)-1] ^= 0xFF // high byte of the ISIZE trailer field

	dec := newTestDecoder(t, nil)
	_, err = compress.DecodeBuffer(dec, corrupted, nil, 0)
	if err == nil {
		t.Fatal("want error for corrupted ISIZE trailer")
	}
	if compress.StatusOf(err) != compress.Corrupt {
		t.Fatalf("want Corrupt, got %v", compress.StatusOf(err))
	}
}

// TestConcatenatedMembers checks that, with gzip.concat enabled, the
// decoder transparently concatenates each member's payload, and that
// without it a second member's bytes are rejected as trailing garbage.
func TestConcatenatedMembers(t *testing.T) {
	parts := [][]byte{[]byte("first member "), []byte("second member "), []byte("third member")}
	var stream bytes.Buffer
	for _, p := range parts {
		enc := newTestEncoder(t, nil)
		compressed, err := compress.EncodeBuffer(enc, p, nil, 0)
		if err != nil {
			t.Fatalf("encode part: %v", err)
		}
		stream.Write(compressed)
	}

	concatBag := compress.NewOptionsBag()
	concatBag.SetBool("gzip.concat", true)
	dec := newTestDecoder(t, concatBag)
	out, err := compress.DecodeBuffer(dec, stream.Bytes(), nil, 0)
	if err != nil {
		t.Fatalf("concat decode: %v", err)
	}
	want := strings.Join([]string{"first member ", "second member ", "third member"}, "")
	if string(out) != want {
		t.Fatalf("concat mismatch: got %q, want %q", out, want)
	}

	dec2 := newTestDecoder(t, nil)
	_, err = compress.DecodeBuffer(dec2, stream.Bytes(), nil, 0)
	if err == nil {
		t.Fatal("want error for trailing bytes after first member without gzip.concat")
	}
	if compress.StatusOf(err) != compress.Corrupt {
		t.Fatalf("want Corrupt, got %v", compress.StatusOf(err))
	}
}

func TestSchemaPassesThroughDeflateKeys(t *testing.T) {
	bag := compress.NewOptionsBag()
	bag.SetInt("deflate.level", 9)
	bag.SetUint("limits.max_output_bytes", 1<<20)
	enc, err := compress.CreateEncoder(nil, Name, bag)
	if err != nil {
		t.Fatalf("CreateEncoder: %v", err)
	}
	payload := sampleText()
	compressed, err := compress.EncodeBuffer(enc, payload, nil, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dec := newTestDecoder(t, nil)
	decompressed, err := compress.DecodeBuffer(dec, compressed, nil, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decompressed, payload) {
		t.Fatal("round trip mismatch with pass-through deflate.level")
	}
}

func TestSchemaRejectsOutOfRangeOS(t *testing.T) {
	bag := compress.NewOptionsBag()
	bag.SetUint("gzip.os", 9999)
	_, err := compress.CreateEncoder(nil, Name, bag)
	if err == nil {
		t.Fatal("want error for out-of-range gzip.os")
	}
	if compress.StatusOf(err) != compress.InvalidArg {
		t.Fatalf("want InvalidArg, got %v", compress.StatusOf(err))
	}
}

func TestTruncatedHeaderIsCorrupt(t *testing.T) {
	dec := newTestDecoder(t, nil)
	_, err := compress.DecodeBuffer(dec, []byte{idByte1, idByte2, cmDeflate}, nil, 0)
	if err == nil {
		t.Fatal("want error for truncated header")
	}
	if compress.StatusOf(err) != compress.Corrupt {
		t.Fatalf("want Corrupt, got %v", compress.StatusOf(err))
	}
}

func TestBadMagicIsCorrupt(t *testing.T) {
	dec := newTestDecoder(t, nil)
	bad := []byte{0x00, 0x00, cmDeflate, 0, 0, 0, 0, 0, 0, 0}
	_, err := compress.DecodeBuffer(dec, bad, nil, 0)
	if err == nil {
		t.Fatal("want error for bad magic")
	}
	if compress.StatusOf(err) != compress.Corrupt {
		t.Fatalf("want Corrupt, got %v", compress.StatusOf(err))
	}
}

// TestChunkInvariance checks that feeding the encoder and decoder in
// differently-sized chunks never changes the decompressed result.
func TestChunkInvariance(t *testing.T) {
	payload := sampleText()
	chunkSizes := []int{1, 17, 4096}

	for _, chunk := range chunkSizes {
		enc := newTestEncoder(t, nil)

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

		dec := newTestDecoder(t, nil)
		decompressed, err := compress.DecodeBuffer(dec, compressed.Bytes(), nil, 0)
		if err != nil {
			t.Fatalf("chunk %d: decode: %v", chunk, err)
		}
		if !bytes.Equal(decompressed, payload) {
			t.Fatalf("chunk %d: round trip mismatch", chunk)
		}
	}
}

// TestExternalInteropFixture decodes a gzip member produced by an
// independent reference encoder (gzip -9 on a 10 KiB English payload,
// checked into testdata/) and checks it matches the known plaintext,
// so round-tripping isn't solely validated against this package's own
// encoder.
func TestExternalInteropFixture(t *testing.T) {
	compressed, err := os.ReadFile("testdata/english-10kib.gz")
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	want, err := os.ReadFile("testdata/english-10kib.txt")
	if err != nil {
		t.Fatalf("reading expected payload: %v", err)
	}

	dec := newTestDecoder(t, nil)
	got, err := compress.DecodeBuffer(dec, compressed, nil, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("decoded %d bytes, want %d bytes matching testdata/english-10kib.txt", len(got), len(want))
	}
}

// englishCorpus builds a deterministic, repetitive-but-prose English-text
// corpus of at least n bytes.
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

// TestMonotoneCompressionAcrossLevels checks the gzip codec's member size
// shrinks (or at least does not grow) as deflate.level rises across a
// realistic English corpus, the same invariant methods/deflate checks
// directly, now observed through gzip's framing.
func TestMonotoneCompressionAcrossLevels(t *testing.T) {
	corpus := englishCorpus(1 << 20)

	sizes := make([]int, 10)
	for level := 1; level <= 8; level++ {
		bag := compress.NewOptionsBag()
		bag.SetInt("deflate.level", int64(level))
		enc := newTestEncoder(t, bag)
		compressed, err := compress.EncodeBuffer(enc, corpus, nil, 0)
		if err != nil {
			t.Fatalf("level %d: encode: %v", level, err)
		}
		sizes[level] = len(compressed)
	}

	for level := 1; level < 8; level++ {
		if sizes[level+1] > sizes[level] {
			t.Fatalf("level %d produced %d bytes, level %d produced %d bytes: not monotone",
				level, sizes[level], level+1, sizes[level+1])
		}
	}
}

// TestExpansionRatioCapRejectsBomb checks that decoding a gzip member whose
// output vastly exceeds its compressed size trips limits.max_expansion_ratio
// and yields Limit.
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
	dec := newTestDecoder(t, decBag)
	_, err = compress.DecodeBuffer(dec, compressed, nil, 0)
	if err == nil {
		t.Fatal("want Limit error, got none")
	}
	if compress.StatusOf(err) != compress.Limit {
		t.Fatalf("want Limit, got %v", compress.StatusOf(err))
	}
}
