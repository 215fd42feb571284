package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kinshukkush/smartsplit/internal/engine"
	"github.com/kinshukkush/smartsplit/internal/export"
	"github.com/kinshukkush/smartsplit/internal/http/respond"
	"github.com/kinshukkush/smartsplit/internal/ledger"
)

type Handler struct {
	svc *engine.Service
	now func() time.Time
}

func NewHandler(svc *engine.Service) *Handler {
	return &Handler{svc: svc, now: func() time.Time { return time.Now().UTC() }}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/json", h.json)
	r.Get("/csv", h.csv)
	r.Get("/summary", h.summary)
	r.Get("/archive", h.archive)
}

// parseRange reads start_date and end_date (YYYY-MM-DD). The end date covers
// its whole day.
func parseRange(r *http.Request) (export.Range, error) {
	var rng export.Range

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return rng, ledger.Invalid("start_date", "expected YYYY-MM-DD")
		}

		rng.Start = t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return rng, ledger.Invalid("end_date", "expected YYYY-MM-DD")
		}

		rng.End = t.Add(24*time.Hour - time.Nanosecond)
	}

	if !rng.Start.IsZero() && !rng.End.IsZero() && rng.End.Before(rng.Start) {
		return rng, ledger.Invalid("end_date", "end date is before start date")
	}

	return rng, nil
}

func (h *Handler) json(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, export.JSON(h.svc.Snapshot(), rng, h.now()))
}

func (h *Handler) csv(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.CSV(&buf, h.svc.Snapshot(), rng); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"expenses_%s.csv\"", h.now().Format("20060102")))
	_, _ = w.Write(buf.Bytes())
}

// summary lists the stored settlements created in range.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	doc := export.JSON(h.svc.Snapshot(), rng, h.now())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(export.SettlementSummary(doc.Snapshot, doc.Settlements)))
}

// archive bundles the JSON, CSV and summary exports in one zip file.
func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	now := h.now()
	snap := h.svc.Snapshot()
	doc := export.JSON(snap, rng, now)

	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var csvBuf bytes.Buffer
	if err := export.CSV(&csvBuf, snap, rng); err != nil {
		respond.Error(w, r, err)
		return
	}

	files := []struct {
		name string
		data []byte
	}{
		{name: "ledger.json", data: docJSON},
		{name: "expenses.csv", data: csvBuf.Bytes()},
		{name: "settlements.txt", data: []byte(export.SettlementSummary(doc.Snapshot, doc.Settlements))},
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"export_%s.zip\"", now.Format("20060102")))

	zipWriter := zip.NewWriter(w)
	defer zipWriter.Close()

	for _, f := range files {
		zf, err := zipWriter.Create(f.name)
		if err != nil {
			slog.Error("failed to create zip entry", "file", f.name, "error", err)
			return
		}

		if _, err := zf.Write(f.data); err != nil {
			slog.Error("failed to write zip entry", "file", f.name, "error", err)
			return
		}
	}
}
