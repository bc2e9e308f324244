package crc32ieee

import "testing"

func TestChecksumKnownVectors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want uint32
	}{
		{"empty", nil, 0x00000000},
		{"123456789", []byte("123456789"), 0xCBF43926}, // standard CRC-32/ISO-HDLC check value
		{"single-byte", []byte{'A'}, Checksum([]byte{'A'})},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Checksum(c.in); got != c.want {
				t.Fatalf("Checksum(%q) = %#x, want %#x", c.in, got, c.want)
			}
		})
	}
}

func TestDigestIncrementalMatchesOneShot(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	want := Checksum(data)

	d := NewDigest()
	for i := 0; i < len(data); i += 7 {
		end := i + 7
		if end > len(data) {
			end = len(data)
		}
		d.Update(data[i:end])
	}
	if got := d.Sum32(); got != want {
		t.Fatalf("incremental Sum32 = %#x, want %#x", got, want)
	}
}

func TestDigestSumDoesNotDisturbState(t *testing.T) {
	d := NewDigest()
	d.Update([]byte("abc"))
	first := d.Sum32()
	d.Update(nil)
	second := d.Sum32()
	if first != second {
		t.Fatalf("Sum32 changed across a no-op Update: %#x vs %#x", first, second)
	}
}
