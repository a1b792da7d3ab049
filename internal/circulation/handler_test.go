package circulation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"libracatalog/internal/http/response"
	"libracatalog/internal/journal"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(newFixture(t, nil).svc, zap.NewNop()).Routes(r)
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler_CheckoutAndReturn(t *testing.T) {
	h := newTestRouter(t)

	rec := do(h, http.MethodPost, "/checkout", `{"item_id":5,"borrower_name":"Ana López","borrower_email":"ana@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var loan Loan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loan))
	assert.Equal(t, 5, loan.ItemID)
	assert.Equal(t, "Ana López", loan.BorrowerName)

	rec = do(h, http.MethodPost, "/checkout", `{"item_id":5,"borrower_name":"Luis","borrower_email":"luis@example.com"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INVALID_TRANSITION", string(body.Code))
	assert.Equal(t, "loaned", body.From)

	rec = do(h, http.MethodPost, "/return", `{"item_id":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var ret Return
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ret))
	assert.True(t, ret.Changed)

	rec = do(h, http.MethodPost, "/return", `{"item_id":5}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_CheckoutErrors(t *testing.T) {
	h := newTestRouter(t)

	rec := do(h, http.MethodPost, "/checkout", `{"item_id":1,"borrower_name":"Ana"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "borrower_email", decodeError(t, rec).Field)

	rec = do(h, http.MethodPost, "/checkout", `{"item_id":404,"borrower_name":"Ana","borrower_email":"a@b.c"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodPost, "/checkout", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Overdue(t *testing.T) {
	h := newTestRouter(t)

	rec := do(h, http.MethodGet, "/overdue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []OverdueView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, 2, views[0].ID)
	assert.Equal(t, 31, views[0].DaysElapsed)
	assert.Equal(t, "Luis Pérez", views[0].BorrowerName)

	rec = do(h, http.MethodGet, "/overdue?days=29", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.Len(t, views, 2)

	rec = do(h, http.MethodGet, "/overdue?days=soon", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Activity(t *testing.T) {
	h := newTestRouter(t)

	rec := do(h, http.MethodGet, "/activity", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	do(h, http.MethodPost, "/checkout", `{"item_id":1,"borrower_name":"Ana","borrower_email":"a@b.c"}`)
	do(h, http.MethodPost, "/return", `{"item_id":1}`)

	rec = do(h, http.MethodGet, "/activity?after=1&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []journal.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, EventItemReturned, events[0].EventType)

	rec = do(h, http.MethodGet, "/activity?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ItemHistory(t *testing.T) {
	h := newTestRouter(t)

	do(h, http.MethodPost, "/checkout", `{"item_id":1,"borrower_name":"Ana","borrower_email":"a@b.c"}`)
	do(h, http.MethodPost, "/checkout", `{"item_id":5,"borrower_name":"Luis","borrower_email":"l@b.c"}`)

	rec := do(h, http.MethodGet, "/items/1/activity", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []journal.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].ItemID)
	assert.Equal(t, EventItemCheckedOut, events[0].EventType)

	rec = do(h, http.MethodGet, "/items/99/activity", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/items/uno/activity", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
