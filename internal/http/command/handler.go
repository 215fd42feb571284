// Package command serves the generic command protocol and whole-ledger
// operations: snapshot reads, status, and import of a saved document or an
// expense sheet.
package command

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kinshukkush/smartsplit/internal/engine"
	"github.com/kinshukkush/smartsplit/internal/http/respond"
	"github.com/kinshukkush/smartsplit/internal/importer"
	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/snapshot"
	"github.com/kinshukkush/smartsplit/internal/state"
)

// DefaultMaxUpload bounds command bodies and imported documents.
const DefaultMaxUpload = 10 << 20

type Handler struct {
	svc       *engine.Service
	maxUpload int64
}

// NewHandler returns a handler accepting bodies up to maxUpload bytes; zero
// means DefaultMaxUpload.
func NewHandler(svc *engine.Service, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}

	return &Handler{svc: svc, maxUpload: maxUpload}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/snapshot", h.snapshot)
	r.Get("/status", h.status)
	r.Get("/commands", h.kinds)
	r.Post("/commands", h.dispatch)
	r.Post("/import", h.importSnapshot)
	r.Post("/import/csv", h.importCSV)
}

type commandResponse struct {
	Kind     state.Kind      `json:"kind"`
	Version  uint64          `json:"version"`
	Snapshot ledger.Snapshot `json:"snapshot"`
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		http.Error(w, "failed to read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cmd, err := state.DecodeCommand(body)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	snap, err := h.svc.Dispatch(r.Context(), cmd)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, commandResponse{
		Kind:     cmd.Kind(),
		Version:  h.svc.Status().Version,
		Snapshot: snap,
	})
}

func (h *Handler) kinds(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, state.Kinds())
}

func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, h.svc.Snapshot())
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, h.svc.Status())
}

type importResponse struct {
	Users       int `json:"users"`
	Expenses    int `json:"expenses"`
	Groups      int `json:"groups"`
	Payments    int `json:"payments"`
	Settlements int `json:"settlements"`
}

// importSnapshot replaces the ledger with an uploaded document. The document
// may be in any text encoding.
func (h *Handler) importSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read %s: %v", header.Filename, err), http.StatusBadRequest)
		return
	}

	if int64(len(data)) > h.maxUpload {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}

	doc, err := snapshot.Decode(data)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	snap, err := h.svc.Dispatch(r.Context(), state.Restore{Snapshot: doc})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	slog.Info("ledger imported", "file", header.Filename, "users", len(snap.Users), "expenses", len(snap.Expenses))

	respond.JSON(w, http.StatusOK, importResponse{
		Users:       len(snap.Users),
		Expenses:    len(snap.Expenses),
		Groups:      len(snap.Groups),
		Payments:    len(snap.Payments),
		Settlements: len(snap.Settlements),
	})
}

type importCSVResponse struct {
	Imported int              `json:"imported"`
	Expenses []ledger.Expense `json:"expenses"`
}

// importCSV adds every expense of an uploaded sheet, or none of them.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rows, err := importer.Parse(io.LimitReader(file, h.maxUpload))
	if err != nil {
		respond.Error(w, r, ledger.Invalid("file", err.Error()))
		return
	}

	cmds, err := importer.Commands(h.svc.Snapshot(), rows)
	if err != nil {
		respond.Error(w, r, ledger.Invalid("file", err.Error()))
		return
	}

	snap, err := h.svc.DispatchAll(r.Context(), cmds)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	added := snap.Expenses[len(snap.Expenses)-len(cmds):]

	slog.Info("expenses imported", "file", header.Filename, "count", len(added))

	respond.JSON(w, http.StatusOK, importCSVResponse{Imported: len(added), Expenses: added})
}
