package settlement

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kinshukkush/smartsplit/internal/engine"
	"github.com/kinshukkush/smartsplit/internal/export"
	"github.com/kinshukkush/smartsplit/internal/http/respond"
	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/state"
)

type Handler struct {
	svc *engine.Service
}

func NewHandler(svc *engine.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/suggestions", h.suggestions)
	r.Post("/optimize", h.optimize)
	r.Patch("/{id}/status", h.updateStatus)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	status := ledger.SettlementStatus(r.URL.Query().Get("status"))

	settlements := make([]ledger.Settlement, 0)

	for _, s := range h.svc.Snapshot().Settlements {
		if status == "" || s.Status == status {
			settlements = append(settlements, s)
		}
	}

	respond.JSON(w, http.StatusOK, settlements)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req ledger.Settlement
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	snap, err := h.svc.Dispatch(r.Context(), state.AddSettlement{Settlement: req})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, snap.Settlements[len(snap.Settlements)-1])
}

type updateStatusRequest struct {
	Status ledger.SettlementStatus `json:"status"`
	Note   string                  `json:"note,omitempty"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")

	snap, err := h.svc.Dispatch(r.Context(), state.TransitionSettlement{ID: id, Status: req.Status, Note: req.Note})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	s, _ := snap.Settlement(id)
	respond.JSON(w, http.StatusOK, s)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Dispatch(r.Context(), state.DeleteSettlement{ID: chi.URLParam(r, "id")}); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// suggestions returns the pairwise suggestions, as JSON or, with
// ?format=text, as a shareable summary.
func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	suggestions := h.svc.Suggestions()

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(export.SettlementSummary(h.svc.Snapshot(), suggestions)))

		return
	}

	respond.JSON(w, http.StatusOK, suggestions)
}

type optimizeRequest struct {
	UserIDs []string `json:"user_ids"`
}

func (h *Handler) optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest

	// An empty body optimizes across every user.
	if r.ContentLength != 0 {
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
	}

	respond.JSON(w, http.StatusOK, h.svc.Optimize(req.UserIDs))
}
