package riff

import (
	"errors"
	"testing"
)

func TestCursor_Take(t *testing.T) {
	buf := []byte("abcdef")
	c := NewCursor(buf, 1)

	b, next, err := c.Take(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "bcd" || next.Offset() != 4 {
		t.Fatalf("got %q at %d", b, next.Offset())
	}
	if c.Offset() != 1 {
		t.Fatalf("original cursor moved to %d", c.Offset())
	}
	if &b[0] != &buf[1] {
		t.Fatalf("Take copied bytes")
	}

	if _, _, err := next.Take(3); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

func TestCursor_Literal(t *testing.T) {
	c := NewCursor([]byte("RIFX"), 0)
	if _, err := c.Literal(TagRIFF); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if _, err := NewCursor([]byte("RIF"), 0).Literal(TagRIFF); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	next, err := NewCursor([]byte("RIFF"), 0).Literal(TagRIFF)
	if err != nil || next.Offset() != 4 {
		t.Fatalf("got offset=%d err=%v", next.Offset(), err)
	}
}

func TestCursor_Uint32(t *testing.T) {
	v, next, err := NewCursor([]byte{0x2c, 0x4f, 0x0a, 0x00}, 0).Uint32()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 675628 || next.Offset() != 4 {
		t.Fatalf("got %d at %d", v, next.Offset())
	}
	if _, _, err := NewCursor([]byte{1, 2, 3}, 0).Uint32(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}
