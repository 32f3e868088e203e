package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/morkdaniel/budget-tracker/internal/backend"
	"github.com/morkdaniel/budget-tracker/internal/docstore"
	"github.com/morkdaniel/budget-tracker/internal/tracker"
	"github.com/morkdaniel/budget-tracker/internal/view"
)

// connectedServer wires a memory store, an authenticated facade and a tracker
// that has already passed the readiness gate.
func connectedServer(t *testing.T) (*Server, *tracker.Tracker) {
	t.Helper()

	store := docstore.NewMemory()
	client := backend.New(store, store)
	t.Cleanup(client.Close)
	client.Authenticate(context.Background())

	tr := tracker.New(client, tracker.WithGate(time.Millisecond, 10))
	t.Cleanup(tr.Close)
	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("tracker run: %v", err)
	}

	return NewServer(":0", tr, view.Formatter{Symbol: "₱"}), tr
}

func postForm(srv *Server, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := connectedServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Budget Tracker") {
		t.Fatalf("index body missing heading")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestReadyzBeforeGate(t *testing.T) {
	store := docstore.NewMemory()
	client := backend.New(store, store)
	defer client.Close()
	tr := tracker.New(client)
	defer tr.Close()

	srv := NewServer(":0", tr, view.Formatter{Symbol: "₱"})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before readiness, got %d", rr.Code)
	}
}

func TestSubmitEntryValidationAndSuccess(t *testing.T) {
	srv, _ := connectedServer(t)

	// Wrong method
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/entries", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Invalid amount
	rr = postForm(srv, "/entries", "name=x&amount=abc&category=Food&date=2026-08-30")
	if rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Please fill in all required fields.") {
		t.Fatalf("expected validation message, got %s", rr.Body.String())
	}

	// Missing name
	rr = postForm(srv, "/entries", "name=&amount=-120.50&category=Food&date=2026-08-30")
	if rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Success
	rr = postForm(srv, "/entries", "name=Lunch&amount=-120.50&category=Food&date=2026-08-30")
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "success") {
		t.Fatalf("expected success in body: %s", rr.Body.String())
	}

	// The subscription echo lands in the snapshot, and the partial shows it.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ui/entry-list", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "Lunch") {
		t.Fatalf("entry list missing new entry: %d %s", rr.Code, rr.Body.String())
	}
}

func TestSubmitEntryBeforeReadyFails(t *testing.T) {
	store := docstore.NewMemory()
	client := backend.New(store, store) // never authenticated
	defer client.Close()
	tr := tracker.New(client)
	defer tr.Close()

	srv := NewServer(":0", tr, view.Formatter{Symbol: "₱"})
	rr := postForm(srv, "/entries", "name=Lunch&amount=-1&category=Food&date=2026-08-30")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Backend not ready") {
		t.Fatalf("expected not-ready message, got %s", rr.Body.String())
	}
}

func TestDeleteEntryConfirmation(t *testing.T) {
	srv, tr := connectedServer(t)

	rr := postForm(srv, "/entries", "name=Lunch&amount=-120.50&category=Food&date=2026-08-30")
	if rr.Code != 200 {
		t.Fatalf("seed entry: %d", rr.Code)
	}
	entries, _ := tr.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	id := entries[0].ID

	// Without the confirmation token nothing is deleted.
	rr = postForm(srv, "/entries/delete", "id="+id)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	entries, _ = tr.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("unconfirmed delete removed the entry")
	}

	rr = postForm(srv, "/entries/delete", "id="+id+"&confirm=yes")
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	entries, _ = tr.Snapshot()
	if len(entries) != 0 {
		t.Fatalf("entry not deleted")
	}
}

func TestReflectionRoundTrip(t *testing.T) {
	srv, tr := connectedServer(t)

	rr := postForm(srv, "/reflection", "content=")
	if rr.Code != 422 {
		t.Fatalf("expected 422 for empty content, got %d", rr.Code)
	}

	rr = postForm(srv, "/reflection", "content=spent+too+much+on+coffee")
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	r, ok := tr.CurrentReflection(time.Now())
	if !ok || r.Content != "spent too much on coffee" {
		t.Fatalf("reflection not stored: %+v ok=%v", r, ok)
	}
}

func TestExportDownload(t *testing.T) {
	srv, _ := connectedServer(t)

	rr := postForm(srv, "/entries", "name=Lunch&amount=-120.50&category=Food&date=2026-08-30")
	if rr.Code != 200 {
		t.Fatalf("seed entry: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("export status=%d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "budget-tracker-backup-") {
		t.Fatalf("unexpected disposition: %q", cd)
	}

	var doc struct {
		Expenses    []map[string]any `json:"expenses"`
		Reflections []map[string]any `json:"reflections"`
		ExportDate  string           `json:"exportDate"`
		Source      string           `json:"source"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(doc.Expenses) != 1 || doc.Source != "budget-tracker" {
		t.Fatalf("unexpected export: %+v", doc)
	}
}

func TestChartData(t *testing.T) {
	srv, _ := connectedServer(t)

	today := time.Now().Format("2006-01-02")
	rr := postForm(srv, "/entries", "name=Lunch&amount=-150&category=Food&date="+today)
	if rr.Code != 200 {
		t.Fatalf("seed entry: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ui/chart-data", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("chart data status=%d", rr.Code)
	}

	var payload struct {
		Categories []struct {
			Category string  `json:"category"`
			Amount   float64 `json:"amount"`
		} `json:"categories"`
		Trend []struct {
			Label string  `json:"label"`
			Total float64 `json:"total"`
		} `json:"trend"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Categories) != 1 || payload.Categories[0].Category != "Food" || payload.Categories[0].Amount != 150 {
		t.Fatalf("unexpected categories: %+v", payload.Categories)
	}
	if len(payload.Trend) != 7 {
		t.Fatalf("expected 7 trend points, got %d", len(payload.Trend))
	}
	if payload.Trend[6].Total != -150 {
		t.Fatalf("today's trend total expected -150, got %v", payload.Trend[6].Total)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := connectedServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(rr, req)

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Fatalf("missing security header %s", h)
		}
	}
}
