package items

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/shelfline/shelfline/internal/platform/httpx"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	handler := NewHandler(testLogger(), newTestService(repo), true)
	r := chi.NewRouter()
	r.Post("/intake", handler.HandleIntake)
	r.Route("/items", handler.MountRoutes)
	return r
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, httpx.Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHandleIntake(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	rec, env := doJSON(t, router, http.MethodPost, "/intake",
		`{"barcode":"9780140283334","cost":500,"grade":"B","title":"the odyssey"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)

	data := env.Data.(map[string]any)
	require.Equal(t, "INTAKE", data["status"])
	require.Equal(t, "9780140283334", data["barcode"])
}

func TestHandleIntakeValidation(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rec, env := doJSON(t, router, http.MethodPost, "/intake", `{"barcode":"abc","cost":500}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)
	require.Equal(t, "validation failed", env.Error)
	require.NotEmpty(t, env.Details)
	require.Equal(t, "Barcode", env.Details[0].Field)
}

func TestHandlePutaway(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)
	id := seedItem(repo, StatusIntake, 0)

	rec, env := doJSON(t, router, http.MethodPut, "/items/1/putaway", `{"location":"A-03-2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	require.Equal(t, "STORED", env.Data.(map[string]any)["status"])
	require.Equal(t, StatusStored, repo.items[id].Status)

	// repeating the putaway trips the INTAKE guard
	rec, env = doJSON(t, router, http.MethodPut, "/items/1/putaway", `{"location":"A-03-3"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)
}

func TestHandleGetUnknownItem(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	req := httptest.NewRequest(http.MethodGet, "/items/999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleChangeStatusConflictCode(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)
	seedItem(repo, StatusStored, 0)
	repo.listings[1] = []Listing{{ID: 1, ItemID: 1, Status: ListingActive}}

	rec, env := doJSON(t, router, http.MethodPost, "/items/1/list", `{"channel":"ebay","price":1999}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.False(t, env.Success)
}

func TestHandleBulkDatesRejectsBadDate(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rec, env := doJSON(t, router, http.MethodPost, "/items/update-dates",
		`{"itemIds":[1],"dateType":"sold","date":"14-02-2026"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)
	require.NotEmpty(t, env.Details)
}

func TestHandleListFilterValidation(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	req := httptest.NewRequest(http.MethodGet, "/items?status=BOGUS", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
