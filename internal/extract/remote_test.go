package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gdkds12/translatePDF/internal/types"
)

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestClient(serverURL string) *RemoteClient {
	c := NewRemoteClient(serverURL, "test-key", 5)
	c.pollInterval = time.Millisecond
	return c
}

func TestRemoteExtract(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/documentintelligence/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("submit method = %s", r.Method)
		}
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "test-key" {
			t.Error("missing subscription key header")
		}
		if got := r.URL.Query().Get("pages"); got != "1-2" {
			t.Errorf("pages query = %q, want 1-2", got)
		}
		w.Header().Set("Operation-Location", server.URL+"/operations/op-1")
		w.WriteHeader(http.StatusAccepted)
	})
	polls := 0
	mux.HandleFunc("/operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls == 1 {
			json.NewEncoder(w).Encode(analyzeResponse{Status: "running"})
			return
		}
		json.NewEncoder(w).Encode(analyzeResponse{
			Status: "succeeded",
			AnalyzeResult: &analyzeResult{
				Pages: []analyzePage{
					{
						PageNumber: 1,
						Unit:       "inch",
						Lines: []analyzeLine{
							{Content: "First line", Polygon: []float64{1, 1, 4, 1, 4, 1.2, 1, 1.2}},
							{Content: "Second line", Polygon: []float64{1, 1.25, 4, 1.25, 4, 1.45, 1, 1.45}},
						},
					},
					{
						PageNumber: 2,
						Unit:       "inch",
						Lines: []analyzeLine{
							{Content: "Page two", Polygon: []float64{1, 1, 3, 1, 3, 1.2, 1, 1.2}},
						},
					},
				},
			},
		})
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)
	chunk := types.Chunk{ID: 0, StartPage: 1, EndPage: 2}
	blocks, err := client.Extract(context.Background(), writeTempPDF(t), chunk)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	first := blocks[0]
	if first.ID != "p1_l1" {
		t.Errorf("block ID = %q, want p1_l1", first.ID)
	}
	if first.PageNumber != 1 || first.Text != "First line" {
		t.Errorf("block = %+v", first)
	}
	want := types.BoundingBox{X: 1, Y: 1, Width: 3, Height: 0.2}
	got := first.BBox
	const eps = 1e-9
	if got.X != want.X || got.Y != want.Y ||
		got.Width < want.Width-eps || got.Width > want.Width+eps ||
		got.Height < want.Height-eps || got.Height > want.Height+eps {
		t.Errorf("bbox = %+v, want %+v", got, want)
	}
	if blocks[2].ID != "p2_l1" || blocks[2].PageNumber != 2 {
		t.Errorf("third block = %+v", blocks[2])
	}
}

func TestRemoteExtractStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			chunk := types.Chunk{ID: 0, StartPage: 1, EndPage: 2}
			_, err := client.Extract(context.Background(), writeTempPDF(t), chunk)
			if err == nil {
				t.Fatal("Extract() should fail")
			}
			if types.IsRetryable(err) != tt.retryable {
				t.Errorf("retryable = %v, want %v (err: %v)",
					types.IsRetryable(err), tt.retryable, err)
			}
		})
	}
}

func TestRemoteExtractAnalysisFailed(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/documentintelligence/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", server.URL+"/operations/op-1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(analyzeResponse{
			Status: "failed",
			Error:  &analyzeError{Code: "InvalidContent", Message: "cannot parse"},
		})
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)
	chunk := types.Chunk{ID: 0, StartPage: 1, EndPage: 1}
	_, err := client.Extract(context.Background(), writeTempPDF(t), chunk)
	if err == nil {
		t.Fatal("Extract() should fail")
	}
	if types.IsRetryable(err) {
		t.Error("failed analysis must not be retryable")
	}
}

func TestRemoteExtractConnectionErrorRetryable(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	chunk := types.Chunk{ID: 0, StartPage: 1, EndPage: 1}
	_, err := client.Extract(context.Background(), writeTempPDF(t), chunk)
	if err == nil {
		t.Fatal("Extract() should fail")
	}
	if !types.IsRetryable(err) {
		t.Errorf("connection error should be retryable: %v", err)
	}
}

func TestPolygonBounds(t *testing.T) {
	tests := []struct {
		name     string
		polygon  []float64
		expected types.BoundingBox
	}{
		{
			name:     "rectangle",
			polygon:  []float64{1, 2, 5, 2, 5, 4, 1, 4},
			expected: types.BoundingBox{X: 1, Y: 2, Width: 4, Height: 2},
		},
		{
			name:     "rotated quad",
			polygon:  []float64{2, 1, 3, 2, 2, 3, 1, 2},
			expected: types.BoundingBox{X: 1, Y: 1, Width: 2, Height: 2},
		},
		{
			name:     "too short",
			polygon:  []float64{1, 2},
			expected: types.BoundingBox{},
		},
	}
	for _, tt := range tests {
		if got := polygonBounds(tt.polygon); got != tt.expected {
			t.Errorf("%s: polygonBounds() = %+v, want %+v", tt.name, got, tt.expected)
		}
	}
}

func TestInspectRejectsMissingFile(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "nope.pdf"))
	if err == nil {
		t.Fatal("Inspect() should fail for a missing file")
	}
	var pe *types.PipeError
	if !errors.As(err, &pe) || pe.Code != types.ErrMalformedDocument {
		t.Errorf("error = %v, want MALFORMED_DOCUMENT", err)
	}
}

func TestInspectRejectsGarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Inspect(path)
	if err == nil {
		t.Fatal("Inspect() should fail for a non PDF file")
	}
	var pe *types.PipeError
	if !errors.As(err, &pe) || pe.Code != types.ErrMalformedDocument {
		t.Errorf("error = %v, want MALFORMED_DOCUMENT", err)
	}
}

func TestIsPostScriptCode(t *testing.T) {
	tests := []struct {
		text string
		ps   bool
	}{
		{"/F1 12 Tf null def", true},
		{"gsave 0 0 moveto", true},
		{"/burl@ hyperlink", true},
		{"/alpha /beta /gamma ops", true},
		{"Normal sentence about definitions.", false},
		{"Visit https://example.com/path/to/page", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isPostScriptCode(tt.text); got != tt.ps {
			t.Errorf("isPostScriptCode(%q) = %v, want %v", tt.text, got, tt.ps)
		}
	}
}

func TestHasExcessiveNonPrintable(t *testing.T) {
	if hasExcessiveNonPrintable("clean text with spaces") {
		t.Error("clean text flagged as non printable")
	}
	if !hasExcessiveNonPrintable("\x01\x02\x03ab") {
		t.Error("control-heavy text not flagged")
	}
}
