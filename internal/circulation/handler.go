// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"net/http"
	"strconv"

	"libracatalog/internal/catalog"
	"libracatalog/internal/http/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OverdueView is the display row of an overdue loan.
type OverdueView struct {
	catalog.ItemView
	DaysElapsed int `json:"days_elapsed"`
}

type Handler struct {
	service Service
	log     *zap.Logger
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes mounts the loan endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/checkout", h.HandleCheckout)
	r.Post("/return", h.HandleReturn)
	r.Get("/overdue", h.HandleOverdue)
	r.Get("/activity", h.HandleActivity)
	r.Get("/items/{id}/activity", h.HandleItemHistory)
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", h.log)
		return
	}

	loan, err := h.service.Checkout(r.Context(), req)
	if err != nil {
		response.Error(w, err, h.log)
		return
	}
	response.Created(w, loan, h.log)
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	var req ReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", h.log)
		return
	}

	ret, err := h.service.ReturnItem(r.Context(), req.ItemID)
	if err != nil {
		response.Error(w, err, h.log)
		return
	}
	response.Success(w, ret, h.log)
}

func (h *Handler) HandleOverdue(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "invalid days", h.log)
			return
		}
		days = n
	}

	overdue, err := h.service.OverdueReport(r.Context(), days)
	if err != nil {
		response.Error(w, err, h.log)
		return
	}

	views := make([]OverdueView, len(overdue))
	for n, o := range overdue {
		views[n] = OverdueView{ItemView: catalog.NewItemView(o.Item), DaysElapsed: o.DaysElapsed}
	}
	response.Success(w, views, h.log)
}

func (h *Handler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var after int64
	if raw := query.Get("after"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			response.BadRequest(w, "invalid after", h.log)
			return
		}
		after = n
	}

	limit := 100
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(w, "invalid limit", h.log)
			return
		}
		limit = n
	}

	events, err := h.service.Activity(r.Context(), after, limit)
	if err != nil {
		response.Error(w, err, h.log)
		return
	}
	response.Success(w, events, h.log)
}

func (h *Handler) HandleItemHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid item id", h.log)
		return
	}

	events, err := h.service.ItemHistory(r.Context(), id)
	if err != nil {
		response.Error(w, err, h.log)
		return
	}
	response.Success(w, events, h.log)
}
