package expense

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kinshukkush/smartsplit/internal/auth"
	"github.com/kinshukkush/smartsplit/internal/engine"
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
	r.Post("/preview", h.preview)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/settle", h.settle)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	groupID := q.Get("group_id")
	userID := q.Get("user_id")
	settled := q.Get("settled")

	expenses := make([]ledger.Expense, 0)

	for _, e := range h.svc.Snapshot().Expenses {
		if groupID != "" && e.GroupID != groupID {
			continue
		}

		if userID != "" {
			if _, ok := e.Participant(userID); !ok {
				continue
			}
		}

		if settled != "" && (settled == "true") != e.Settled {
			continue
		}

		expenses = append(expenses, e)
	}

	respond.JSON(w, http.StatusOK, expenses)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	e, ok := h.svc.Snapshot().Expense(id)
	if !ok {
		respond.Error(w, r, ledger.NotFound("expense", id))
		return
	}

	respond.JSON(w, http.StatusOK, e)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	// The authenticated user, if any, is the creator unless the body names one.
	if req.CreatedBy == "" {
		req.CreatedBy = auth.UserID(r.Context())
	}

	snap, err := h.svc.Dispatch(r.Context(), state.AddExpense{Expense: req})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, snap.Expenses[len(snap.Expenses)-1])
}

// preview runs the split calculation for an expense without recording it.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	// A preview never collides with a stored expense.
	req.ID = ""

	snap, err := h.svc.Preview(state.AddExpense{Expense: req})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, snap.Expenses[len(snap.Expenses)-1])
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	req.ID = chi.URLParam(r, "id")

	snap, err := h.svc.Dispatch(r.Context(), state.UpdateExpense{Expense: req})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	e, _ := snap.Expense(req.ID)
	respond.JSON(w, http.StatusOK, e)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Dispatch(r.Context(), state.DeleteExpense{ID: chi.URLParam(r, "id")}); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := h.svc.Dispatch(r.Context(), state.SettleExpense{ID: id})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	e, _ := snap.Expense(id)
	respond.JSON(w, http.StatusOK, e)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (ledger.Expense, bool) {
	var req ledger.Expense
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return ledger.Expense{}, false
	}

	return req, true
}
