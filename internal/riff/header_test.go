package riff

import (
	"encoding/binary"
	"errors"
	"testing"
)

func rawHeader(magic1 string, size uint32, magic2 string) []byte {
	b := make([]byte, 12)
	copy(b[0:4], magic1)
	binary.LittleEndian.PutUint32(b[4:8], size)
	copy(b[8:12], magic2)
	return b
}

func TestParseHeader_Accepted(t *testing.T) {
	cases := []struct {
		magic1, magic2 string
		size           uint32
	}{
		{"RIFF", "AVI ", 675628},
		{"RIFF", "AVI ", 1926660},
		{"RIFF", "AVIX", 0},
		{"RIFF", "AVI\x19", 12},
		{"RIFF", "AMV ", 0xffffffff},
		{"ON2 ", "ON2f", 4096},
	}
	for _, tc := range cases {
		h, off, err := ParseHeader(rawHeader(tc.magic1, tc.size, tc.magic2))
		if err != nil {
			t.Fatalf("%q/%q: unexpected error: %v", tc.magic1, tc.magic2, err)
		}
		want := Header{Magic1: NewFourCC(tc.magic1), FileSize: tc.size, Magic2: NewFourCC(tc.magic2)}
		if h != want || off != HeaderSize {
			t.Fatalf("got %+v off=%d, want %+v off=12", h, off, want)
		}
	}
}

func TestParseHeader_Rejected(t *testing.T) {
	cases := [][]byte{
		rawHeader("RIFF", 10, "WAVE"),
		rawHeader("RIFF", 10, "ON2f"),
		rawHeader("ON2 ", 10, "AVI "),
		rawHeader("RIFX", 10, "AVI "),
		rawHeader("LIST", 10, "movi"),
	}
	for _, b := range cases {
		_, _, err := ParseHeader(b)
		if !errors.Is(err, ErrUnrecognizedContainer) || !errors.Is(err, ErrMismatch) {
			t.Fatalf("%q: expected ErrUnrecognizedContainer, got %v", b, err)
		}
	}
}

func TestParseHeader_Short(t *testing.T) {
	full := rawHeader("RIFF", 100, "AVI ")
	for n := 0; n < HeaderSize; n++ {
		_, _, err := ParseHeader(full[:n])
		if !errors.Is(err, ErrIncomplete) {
			t.Fatalf("len=%d: expected ErrIncomplete, got %v", n, err)
		}
	}
}

func TestParseHeader_LongerPrefix(t *testing.T) {
	b := append(rawHeader("RIFF", 8, "AVI "), "JUNK"...)
	_, off, err := ParseHeader(b)
	if err != nil || off != 12 {
		t.Fatalf("off=%d err=%v", off, err)
	}
}

func TestIsSupportedHeader(t *testing.T) {
	if !IsSupportedHeader(TagRIFF, TagAMV) || !IsSupportedHeader(TagON2, TagON2f) {
		t.Fatal("expected supported")
	}
	if IsSupportedHeader(TagON2, TagAVI) || IsSupportedHeader(TagRIFF, NewFourCC("WAVE")) {
		t.Fatal("expected unsupported")
	}
}
