package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kataras/iris/v12"

	"riffscope/internal/codec"
	"riffscope/internal/riff/rifftest"
)

func newTestApp(t *testing.T) *iris.Application {
	t.Helper()
	lib := newTestLibrary(t)
	if err := lib.Load(); err != nil {
		t.Fatal(err)
	}

	app := iris.New()
	RegisterRoutes(app, NewHandlers(lib, 1<<20))
	if err := app.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return app
}

func do(app *iris.Application, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_Chunks(t *testing.T) {
	app := newTestApp(t)

	rec := do(app, http.MethodGet, "/api/v1/chunks?file=a.avi&from=3&limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var doc struct {
		Chunks []codec.Record `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Chunks) != 2 || doc.Chunks[0].Kind != "movi" || doc.Chunks[1].Tag != "00dc" {
		t.Fatalf("chunks = %+v", doc.Chunks)
	}

	rec = do(app, http.MethodGet, "/api/v1/chunks?file=a.avi&format=cbor", "")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, codec.ContentType) {
		t.Fatalf("content type = %q", ct)
	}

	if rec := do(app, http.MethodGet, "/api/v1/chunks?file=missing.avi", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing file status = %d", rec.Code)
	}
	if rec := do(app, http.MethodGet, "/api/v1/chunks", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("no file status = %d", rec.Code)
	}
}

func TestHandlers_ChunksRange(t *testing.T) {
	app := newTestApp(t)

	for _, q := range []string{"limit=-1", "from=-2"} {
		if rec := do(app, http.MethodGet, "/api/v1/chunks?file=a.avi&"+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}

	tests := []struct {
		query string
		want  int
	}{
		{"from=7&limit=9223372036854775807", 2},
		{"from=100&limit=5", 0},
		{"from=8", 1},
	}
	for _, tt := range tests {
		rec := do(app, http.MethodGet, "/api/v1/chunks?file=a.avi&"+tt.query, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d body=%s", tt.query, rec.Code, rec.Body)
		}
		var doc struct {
			Chunks []codec.Record `json:"chunks"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
			t.Fatal(err)
		}
		if len(doc.Chunks) != tt.want {
			t.Errorf("%s: %d chunks, want %d", tt.query, len(doc.Chunks), tt.want)
		}
	}
}

func TestHandlers_Payload(t *testing.T) {
	app := newTestApp(t)

	rec := do(app, http.MethodGet, "/api/v1/payload?file=a.avi&index=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Chunk-Tag") != "01wb" || rec.Body.String() != "pcm!" {
		t.Fatalf("payload %q = %q", rec.Header().Get("X-Chunk-Tag"), rec.Body)
	}
}

func TestHandlers_Inspect(t *testing.T) {
	app := newTestApp(t)

	rec := do(app, http.MethodPost, "/api/v1/inspect?name=up.avi", string(rifftest.SampleAVI()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	var doc struct {
		Name   string         `json:"name"`
		Chunks []codec.Record `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Name != "up.avi" || len(doc.Chunks) != 9 {
		t.Fatalf("doc = %+v", doc)
	}

	if rec := do(app, http.MethodPost, "/api/v1/inspect", "not a riff file"); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad upload status = %d", rec.Code)
	}
}

func TestHandlers_Config(t *testing.T) {
	app := newTestApp(t)

	rec := do(app, http.MethodGet, "/api/v1/config", "")
	var cfg struct {
		Loaded    bool `json:"loaded"`
		FileCount int  `json:"fileCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if !cfg.Loaded || cfg.FileCount != 4 {
		t.Fatalf("config = %+v", cfg)
	}

	rec = do(app, http.MethodPost, "/api/v1/config", `{"libraryPath":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty path status = %d", rec.Code)
	}
}
