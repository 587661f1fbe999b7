package riff

import (
	"errors"
	"testing"
)

func TestParseChunkHeader(t *testing.T) {
	b := chunk("LIST", make([]byte, 192))
	h, off, err := ParseChunkHeader(b, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Tag != TagLIST || h.Size != 192 || off != 8 {
		t.Fatalf("got %+v off=%d", h, off)
	}
}

func TestParseChunkHeader_AnyTag(t *testing.T) {
	b := []byte{0xff, 0x00, 0x01, 0x7f, 0x03, 0x00, 0x00, 0x00}
	h, _, err := ParseChunkHeader(b, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Tag != (FourCC{0xff, 0x00, 0x01, 0x7f}) || h.Size != 3 {
		t.Fatalf("got %+v", h)
	}
}

func TestParseChunkHeader_Incomplete(t *testing.T) {
	b := chunk("JUNK", nil)
	for n := 0; n < ChunkHeaderSize; n++ {
		_, off, err := ParseChunkHeader(b[:n], 0)
		if !errors.Is(err, ErrIncomplete) {
			t.Fatalf("len=%d: expected ErrIncomplete, got %v", n, err)
		}
		if off != 0 {
			t.Fatalf("len=%d: offset moved to %d", n, off)
		}
	}
}

func TestParseChunkHeader_SizeNotValidated(t *testing.T) {
	b := []byte{'d', 'a', 't', 'a', 0xff, 0xff, 0xff, 0xff}
	h, _, err := ParseChunkHeader(b, 0)
	if err != nil || h.Size != 0xffffffff {
		t.Fatalf("got %+v err=%v", h, err)
	}
}

func TestChunkHeader_PaddedSize(t *testing.T) {
	cases := map[uint32]uint64{0: 0, 1: 2, 2: 2, 191: 192, 0xffffffff: 0x100000000}
	for size, want := range cases {
		if got := (ChunkHeader{Size: size}).PaddedSize(); got != want {
			t.Fatalf("size=%d: got %d want %d", size, got, want)
		}
	}
}
