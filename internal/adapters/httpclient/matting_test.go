package httpclient

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matting-studio/internal/core/services"
)

func buildArchive(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating archive entry %s: %v", name, err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("writing archive entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeMattingArchive_MapsStemsToFrames(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{
		"0.png":  []byte("frame-0"),
		"17.png": []byte("frame-17"),
	})

	mattings, err := DecodeMattingArchive(archive)
	if err != nil {
		t.Fatalf("DecodeMattingArchive failed: %v", err)
	}
	if len(mattings) != 2 {
		t.Fatalf("expected 2 mattes, got %d", len(mattings))
	}
	if string(mattings[0]) != "frame-0" || string(mattings[17]) != "frame-17" {
		t.Errorf("mattes attributed to wrong frames: %v", mattings)
	}
}

func TestDecodeMattingArchive_RejectsNonNumericStem(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{"preview.png": []byte("x")})

	if _, err := DecodeMattingArchive(archive); err == nil {
		t.Error("expected an error for an entry without a frame index")
	}
}

func TestMattingClient_SubmitSendsFormAndDecodesArchive(t *testing.T) {
	archive := buildArchive(t, map[string][]byte{"5.png": []byte("matte-5")})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/matting" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if got := r.FormValue("hash"); got != "abc123" {
			t.Errorf("hash field = %q", got)
		}
		if got := r.FormValue("points"); got != "[[10,20],[30,40]]" {
			t.Errorf("points field = %q", got)
		}
		if r.FormValue("start") != "5" || r.FormValue("finish") != "8" {
			t.Errorf("range fields = %q..%q", r.FormValue("start"), r.FormValue("finish"))
		}
		w.Write(archive)
	}))
	defer server.Close()

	client := NewHTTPMattingClient(server.URL, nil)
	mattings, err := client.Submit(context.Background(), services.MattingRequest{
		VideoHash: "abc123",
		Points:    [][2]int{{10, 20}, {30, 40}},
		Start:     5,
		Finish:    8,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if string(mattings[5]) != "matte-5" {
		t.Errorf("decoded mattes = %v", mattings)
	}
}

func TestMattingClient_ServerErrorWrapsErrRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPMattingClient(server.URL, nil)
	_, err := client.Submit(context.Background(), services.MattingRequest{VideoHash: "abc"})
	if !errors.Is(err, services.ErrRemote) {
		t.Errorf("expected ErrRemote, got %v", err)
	}
}
