package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scantrack/pkg/db/dbtest"
	"scantrack/pkg/logger"
)

func setup(t *testing.T) Service {
	t.Helper()
	db := dbtest.Open(t)
	require.NoError(t, Migrate(context.Background(), db))
	return NewService(db)
}

const importFile = `
KÄKX001 Käkbensplatta
ORTX005 Skruvmejsel
ORTX006
ORTX005 Skruvmejsel liten

neurx1 Sug
`

func TestImportParsesLines(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	res, err := svc.Import(ctx, strings.NewReader(importFile))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 3, Skipped: 1}, res)

	item, err := svc.Get(ctx, "ortx005")
	require.NoError(t, err)
	assert.Equal(t, "Skruvmejsel liten", item.Name)

	item, err = svc.Get(ctx, "NEURX1")
	require.NoError(t, err)
	assert.Equal(t, "NEURX1", item.Barcode)
}

func TestImportIsRepeatable(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, strings.NewReader(importFile))
	require.NoError(t, err)
	_, err = svc.Import(ctx, strings.NewReader("ORTX005 Hammare\n"))
	require.NoError(t, err)

	item, err := svc.Get(ctx, "ORTX005")
	require.NoError(t, err)
	assert.Equal(t, "Hammare", item.Name)
}

func TestSetGetRemove(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Set(ctx, " ", "x")
	assert.ErrorIs(t, err, ErrInvalidItem)

	item, err := svc.Set(ctx, "ortx1", " Tång ")
	require.NoError(t, err)
	assert.Equal(t, "ORTX1", item.Barcode)
	assert.Equal(t, "Tång", item.Name)

	require.NoError(t, svc.Remove(ctx, "ORTX1"))
	assert.ErrorIs(t, svc.Remove(ctx, "ORTX1"), ErrItemNotFound)
	_, err = svc.Get(ctx, "ORTX1")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestDisplayName(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	_, err := svc.Set(ctx, "ORTX1", "Tång")
	require.NoError(t, err)

	assert.Equal(t, "TÅNG (ORTX1)", svc.DisplayName(ctx, "ortx1"))
	assert.Equal(t, "ORTX2", svc.DisplayName(ctx, "ortx2"))
}

func TestSearchAndNames(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	_, err := svc.Import(ctx, strings.NewReader(importFile))
	require.NoError(t, err)

	items, err := svc.Search(ctx, "ortx", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, err = svc.Search(ctx, "sug", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "NEURX1", items[0].Barcode)

	all, err := svc.Search(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	names, err := svc.Names(ctx, []string{"ortx005", "ZZ9"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ortx005": "Skruvmejsel liten"}, names)
}

func TestHandlers(t *testing.T) {
	h := NewHandler(setup(t), logger.Nop())
	r := chi.NewRouter()
	r.Get("/catalog", h.HandleSearch)
	r.Post("/catalog/import", h.HandleImport)
	r.Get("/catalog/{barcode}", h.HandleGet)
	r.Put("/catalog/{barcode}", h.HandlePut)
	r.Delete("/catalog/{barcode}", h.HandleDelete)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
		return w
	}

	w := do(http.MethodPost, "/catalog/import", importFile)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"imported":3`)

	w = do(http.MethodGet, "/catalog/ortx005", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"display_name":"SKRUVMEJSEL LITEN (ORTX005)"`)

	w = do(http.MethodPut, "/catalog/ORTX9", `{"name":"Sax"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(http.MethodPut, "/catalog/ORTX9", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(http.MethodGet, "/catalog?q=sax", "")
	assert.Contains(t, w.Body.String(), "ORTX9")

	w = do(http.MethodGet, "/catalog?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(http.MethodDelete, "/catalog/ORTX9", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(http.MethodGet, "/catalog/ORTX9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
