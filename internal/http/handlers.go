package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/morkdaniel/budget-tracker/internal/backend"
	"github.com/morkdaniel/budget-tracker/internal/core"
	applog "github.com/morkdaniel/budget-tracker/internal/log"
	"github.com/morkdaniel/budget-tracker/internal/tracker"
	"github.com/morkdaniel/budget-tracker/internal/view"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path, applog.FieldOperation, applog.OpRender)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	reflection, _ := s.tracker.CurrentReflection(now)
	data := struct {
		Today          string
		CurrentWeek    int
		Reflection     string
		CurrencySymbol string
		Connected      bool
	}{
		Today:          core.DateOf(now).String(),
		CurrentWeek:    core.WeekOf(now),
		Reflection:     reflection.Content,
		CurrencySymbol: s.formatter.Symbol,
		Connected:      s.tracker.Ready(),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleSubmitEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "method", r.Method, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	form := tracker.EntryForm{
		Name:      r.Form.Get("name"),
		Amount:    strings.TrimSpace(r.Form.Get("amount")),
		Category:  r.Form.Get("category"),
		Date:      strings.TrimSpace(r.Form.Get("date")),
		EditingID: strings.TrimSpace(r.Form.Get("editing")),
	}

	res, err := s.tracker.SubmitEntry(r.Context(), form)
	if err != nil {
		s.writeEntryError(w, r, err, form)
		return
	}

	verb := "added"
	op := applog.OpCreate
	if res.Updated {
		verb = "updated"
		op = applog.OpUpdate
	}
	slog.InfoContext(r.Context(), "Entry saved",
		applog.FieldDocID, res.ID, applog.FieldOperation, op, applog.FieldEntryName, form.Name)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Expense ` + verb + ` successfully!</div>`))
}

func (s *Server) writeEntryError(w http.ResponseWriter, r *http.Request, err error, form tracker.EntryForm) {
	switch {
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrMissingDate):
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Please fill in all required fields.</div>`))
	case errors.Is(err, tracker.ErrUnknownEntry):
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<div class="error">The expense being edited no longer exists.</div>`))
	case errors.Is(err, backend.ErrNotReady):
		slog.WarnContext(r.Context(), "Entry submit before backend ready", "entry_name", form.Name)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`<div class="error">Backend not ready. Please wait...</div>`))
	default:
		slog.ErrorContext(r.Context(), "Entry submit error", "error", err, "entry_name", form.Name)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Error saving expense. Please try again.</div>`))
	}
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Missing expense id</div>`))
		return
	}
	confirmed := r.Form.Get("confirm") == "yes"

	err := s.tracker.DeleteEntry(r.Context(), id, confirmed)
	switch {
	case err == nil:
		slog.InfoContext(r.Context(), "Entry deleted",
			applog.FieldDocID, id, applog.FieldOperation, applog.OpDelete)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<div class="success">Expense deleted.</div>`))
	case errors.Is(err, tracker.ErrConfirmationRequired):
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`<div class="error">Deletion requires confirmation.</div>`))
	case errors.Is(err, backend.ErrNotReady):
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`<div class="error">Backend not ready. Please wait...</div>`))
	default:
		slog.ErrorContext(r.Context(), "Entry delete error", "error", err, "entry_id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Error deleting expense. Please try again.</div>`))
	}
}

func (s *Server) handleSaveReflection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	err := s.tracker.SaveReflection(r.Context(), r.Form.Get("content"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<div class="success">Reflection saved!</div>`))
	case errors.Is(err, core.ErrEmptyContent):
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Please write something before saving.</div>`))
	case errors.Is(err, backend.ErrNotReady):
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`<div class="error">Backend not ready. Please wait...</div>`))
	default:
		slog.ErrorContext(r.Context(), "Reflection save error", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Error saving reflection. Please try again.</div>`))
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	doc := s.tracker.Export(now)

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		slog.ErrorContext(r.Context(), "Export marshal error", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tracker.ExportFilename(now)))
	_, _ = w.Write(payload)
	slog.InfoContext(r.Context(), "Data exported", "entries", len(doc.Expenses), "reflections", len(doc.Reflections))
}

// handleEntryList renders the expense list partial.
func (s *Server) handleEntryList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	entries, _ := s.tracker.Snapshot()
	balance := view.Balance(entries)
	data := struct {
		Rows            []view.Row
		Balance         string
		BalanceNegative bool
	}{
		Rows:            view.Rows(entries, s.formatter),
		Balance:         s.formatter.Signed(balance),
		BalanceNegative: balance.Negative(),
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">Balance: ` + template.HTMLEscapeString(data.Balance) + `</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "entry_list.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "entry_list.html")
		_, _ = w.Write([]byte(`<div class="placeholder">Error rendering expense list</div>`))
	}
}

// handleQuickStats renders the monthly quick stats partial.
func (s *Server) handleQuickStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	entries, _ := s.tracker.Snapshot()
	stats := view.StatsForMonth(entries, time.Now())
	data := struct {
		Income         string
		Spending       string
		Balance        string
		CategoriesUsed int
		AvgDaily       string
		Transactions   int
	}{
		Income:         s.formatter.Format(stats.Income),
		Spending:       s.formatter.Format(stats.Spending),
		Balance:        s.formatter.Signed(stats.Balance),
		CategoriesUsed: stats.CategoriesUsed,
		AvgDaily:       s.formatter.Format(stats.AvgDailySpending),
		Transactions:   stats.Transactions,
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">Balance: ` + template.HTMLEscapeString(data.Balance) + `</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "quick_stats.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "quick_stats.html")
		_, _ = w.Write([]byte(`<div class="placeholder">Error rendering stats</div>`))
	}
}

// handleChartData serves the JSON consumed by the dashboard charts.
func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	entries, _ := s.tracker.Snapshot()
	now := time.Now()

	type slice struct {
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
	}
	type point struct {
		Label string  `json:"label"`
		Total float64 `json:"total"`
	}
	payload := struct {
		Categories []slice `json:"categories"`
		Trend      []point `json:"trend"`
	}{
		Categories: []slice{},
		Trend:      []point{},
	}
	for _, c := range view.CategoryBreakdown(entries) {
		payload.Categories = append(payload.Categories, slice{Category: c.Category, Amount: float64(c.Amount.Cents) / 100})
	}
	for _, p := range view.SevenDayTrend(entries, now) {
		payload.Trend = append(payload.Trend, point{Label: p.Label, Total: float64(p.Total.Cents) / 100})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.ErrorContext(r.Context(), "Chart data encode error", "error", err)
	}
}

// handleEvents streams tracker events over Server-Sent Events. Clients use
// the change stream to refresh partials without polling.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, cancel := s.tracker.Watch()
	defer cancel()

	// Let the client know where it stands right away.
	state := "connecting"
	if s.tracker.Ready() {
		state = "ready"
	}
	fmt.Fprintf(w, "event: state\ndata: %s\n\n", state)
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.ErrorContext(r.Context(), "Event encode error", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		}
	}
}
