// internal/catalog/handler.go
package catalog

import (
	"net/http"
	"strconv"

	"libracatalog/internal/http/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ItemView is the display row for an item.
type ItemView struct {
	ID            int    `json:"id"`
	Type          string `json:"type"`
	Title         string `json:"title"`
	Creator       string `json:"creator"`
	Genre         string `json:"genre"`
	Series        string `json:"series"`
	ISBN          string `json:"isbn,omitempty"`
	Availability  string `json:"availability"`
	BorrowerName  string `json:"borrower_name,omitempty"`
	BorrowerEmail string `json:"borrower_email,omitempty"`
	LoanDate      string `json:"loan_date,omitempty"`
}

// NewItemView builds the display row for item.
func NewItemView(item Item) ItemView {
	v := ItemView{
		ID:            item.ID,
		Type:          item.Type.Slug(),
		Title:         item.Title,
		Creator:       item.Creator,
		Genre:         item.Genre,
		Series:        item.Series,
		ISBN:          item.DisplayISBN(),
		Availability:  item.Availability.String(),
		BorrowerName:  item.BorrowerName,
		BorrowerEmail: item.BorrowerEmail,
		LoanDate:      item.RawLoanDate,
	}
	if !item.LoanDate.IsZero() {
		v.LoanDate = item.LoanDate.Format(LoanDateLayout)
	}
	return v
}

type Handler struct {
	service Service
	log     *zap.Logger
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes mounts the catalog endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/items", h.HandleListItems)
	r.Get("/items/{id}", h.HandleGetItem)
	r.Get("/facets/{field}", h.HandleFacets)
	r.Get("/stats", h.HandleStats)
}

func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	itemType, err := ParseQueryType(values.Get("type"))
	if err != nil {
		response.BadRequest(w, err.Error(), h.log)
		return
	}
	q := Query{Type: itemType, Filters: Criteria{}}
	for _, field := range Fields {
		if v := values.Get(field.String()); v != "" {
			q.Filters[field] = v
		}
	}

	items, err := h.service.ListItems(r.Context(), q)
	if err != nil {
		response.Error(w, err, h.log)
		return
	}

	views := make([]ItemView, len(items))
	for n, item := range items {
		views[n] = NewItemView(item)
	}
	response.Success(w, views, h.log)
}

func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid item ID", h.log)
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		response.Error(w, err, h.log)
		return
	}
	response.Success(w, NewItemView(*item), h.log)
}

func (h *Handler) HandleFacets(w http.ResponseWriter, r *http.Request) {
	field, err := ParseField(chi.URLParam(r, "field"))
	if err != nil {
		response.BadRequest(w, err.Error(), h.log)
		return
	}

	itemType, err := ParseQueryType(r.URL.Query().Get("type"))
	if err != nil {
		response.BadRequest(w, err.Error(), h.log)
		return
	}

	choices, err := h.service.FacetChoices(r.Context(), itemType, field)
	if err != nil {
		response.Error(w, err, h.log)
		return
	}
	response.Success(w, choices, h.log)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		response.Error(w, err, h.log)
		return
	}
	response.Success(w, stats, h.log)
}
