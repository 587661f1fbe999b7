package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"riffscope/internal/riff/rifftest"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_Tree(t *testing.T) {
	path := writeFile(t, "sample.avi", rifftest.SampleAVI())

	var out bytes.Buffer
	if err := run([]string{"--summary", path}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, want := range []string{
		`sample.avi: RIFF "AVI "`,
		`LIST "movi" @264`,
		`"00dc" @276 size=9`,
		`stream 01 wb: 2 chunks, 7 bytes`,
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("输出缺少 %q:\n%s", want, out.String())
		}
	}
}

func TestRun_JSON(t *testing.T) {
	path := writeFile(t, "sample.avi", rifftest.SampleAVI())

	var out bytes.Buffer
	if err := run([]string{"-f", "json", path}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var doc struct {
		Name   string `json:"name"`
		Chunks []struct {
			Tag  string `json:"tag"`
			Kind string `json:"kind"`
		} `json:"chunks"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if doc.Name != "sample.avi" || len(doc.Chunks) != 9 || doc.Chunks[3].Kind != "movi" {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestRun_Partial(t *testing.T) {
	buf := rifftest.SampleAVI()
	path := writeFile(t, "cut.avi", buf[:len(buf)-10])

	var out bytes.Buffer
	err := run([]string{path}, &out)
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != 2 {
		t.Fatalf("expected exit code 2, got %v", err)
	}
	if !strings.Contains(out.String(), `"00dc" @276`) || !strings.Contains(out.String(), "! ") {
		t.Fatalf("截断文件应输出前缀和错误:\n%s", out.String())
	}
}

func TestRun_Errors(t *testing.T) {
	bad := writeFile(t, "bad.avi", []byte("RIFF\x00\x00\x00\x00WAVEfmt "))

	var ee *exitError
	if err := run([]string{bad}, &bytes.Buffer{}); !errors.As(err, &ee) || ee.code != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
	if err := run([]string{"-f", "xml", bad}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected unknown format error")
	}
	if err := run(nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected usage error")
	}
	if err := run([]string{"--help"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("--help: %v", err)
	}
}
