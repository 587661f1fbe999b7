package codec

import (
	"testing"

	"riffscope/internal/avi"
	"riffscope/internal/riff"
	"riffscope/internal/riff/rifftest"
)

func sample(t *testing.T) *avi.Inspection {
	t.Helper()
	in, err := avi.InspectBytes("sample.avi", rifftest.SampleAVI(), riff.Options{})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	return in
}

func TestRecords_Range(t *testing.T) {
	in := sample(t)

	page := Records(in.Records, 3, 6)
	if len(page) != 3 {
		t.Fatalf("expected 3 records, got %d", len(page))
	}
	if page[0].Index != 3 || page[0].Kind != "movi" || page[0].ListType != "movi" {
		t.Fatalf("first = %+v", page[0])
	}
	if page[1].Tag != "00dc" || page[1].Parent != 3 || page[1].ListType != "" {
		t.Fatalf("second = %+v", page[1])
	}

	if got := Records(in.Records, 8, 100); len(got) != 1 {
		t.Fatalf("clamped page = %d records", len(got))
	}
	if got := Records(in.Records, 50, 60); got == nil || len(got) != 0 {
		t.Fatalf("empty page = %v", got)
	}
}

func TestDocument_CBOR(t *testing.T) {
	doc := NewDocument(sample(t))
	b, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out struct {
		Name      string        `cbor:"name"`
		Container avi.Container `cbor:"container"`
		Chunks    []Record      `cbor:"chunks"`
	}
	if err := Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Name != "sample.avi" || out.Container.Magic2 != "AVI " || len(out.Chunks) != 9 {
		t.Fatalf("decoded = %+v", out)
	}

	again, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(b) {
		t.Fatal("encoding is not deterministic")
	}
}
