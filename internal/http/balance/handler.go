package balance

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kinshukkush/smartsplit/internal/engine"
	"github.com/kinshukkush/smartsplit/internal/http/respond"
)

type Handler struct {
	svc *engine.Service
}

func NewHandler(svc *engine.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{userID}", h.get)
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, h.svc.Balances())
}

// get answers with the zero summary for users without expenses.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.svc.Balance(chi.URLParam(r, "userID")))
}
