package retention

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scantrack/pkg/db/dbtest"
	"scantrack/pkg/eventstore"
	"scantrack/pkg/logger"
)

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type countingRebuilder struct {
	calls int
	err   error
}

func (c *countingRebuilder) Rebuild(context.Context) error {
	c.calls++
	return c.err
}

func setup(t *testing.T) (*Service, *eventstore.EventStore, *countingRebuilder) {
	t.Helper()
	store := eventstore.NewEventStore(dbtest.Open(t))
	require.NoError(t, store.Migrate(context.Background()))
	rb := &countingRebuilder{}
	svc := NewService(store, rb, logger.Nop())
	svc.now = func() time.Time { return now }
	return svc, store, rb
}

func seed(t *testing.T, store *eventstore.EventStore, daysAgo int, barcode string, action eventstore.Action) {
	t.Helper()
	_, err := store.Append(context.Background(), eventstore.Event{
		Timestamp: now.Add(-time.Duration(daysAgo) * 24 * time.Hour),
		Barcode:   barcode,
		Action:    action,
	})
	require.NoError(t, err)
}

func seedHistory(t *testing.T, store *eventstore.EventStore) {
	seed(t, store, 60, "ORTX1", eventstore.ActionCheckOut)
	seed(t, store, 59, "ORTX1", eventstore.ActionCheckIn)
	seed(t, store, 45, "ORTX2", eventstore.ActionCheckOut)
	seed(t, store, 50, "ORTX3", eventstore.ActionCheckIn)
	seed(t, store, 2, "ORTX4", eventstore.ActionCheckOut)
}

func TestArchiveKeepsLatestEventPerBarcode(t *testing.T) {
	svc, store, _ := setup(t)
	seedHistory(t, store)
	ctx := context.Background()

	n, err := svc.Archive(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	out, err := store.CheckedOut(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestCleanupRemovesSettledHistory(t *testing.T) {
	svc, store, _ := setup(t)
	seedHistory(t, store)
	ctx := context.Background()

	n, err := svc.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalEvents)

	out, err := store.CheckedOut(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestTrimRejectsNonPositiveDays(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.Archive(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidDays)
	_, err = svc.Cleanup(context.Background(), -1)
	assert.ErrorIs(t, err, ErrInvalidDays)
}

func TestClearRebuildsLedger(t *testing.T) {
	svc, store, rb := setup(t)
	seedHistory(t, store)

	n, err := svc.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, 1, rb.calls)

	rb.err = errors.New("boom")
	_, err = svc.Clear(context.Background())
	assert.Error(t, err)
}

func TestJobArchivesWithConfiguredWindow(t *testing.T) {
	svc, store, _ := setup(t)
	seedHistory(t, store)

	job := NewJob(svc, 0)
	assert.Equal(t, "log-retention", job.Name())
	assert.Equal(t, DefaultDaysToKeep, job.days)
	require.NoError(t, job.Run(context.Background()))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalEvents)
}

func TestHandlers(t *testing.T) {
	svc, store, _ := setup(t)
	seedHistory(t, store)
	h := NewHandler(svc, 30, logger.Nop())

	w := httptest.NewRecorder()
	h.HandleStats(w, httptest.NewRequest(http.MethodGet, "/maintenance/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 5, stats["total_events"])

	w = httptest.NewRecorder()
	h.HandleCleanup(w, httptest.NewRequest(http.MethodPost, "/maintenance/cleanup", strings.NewReader(`{"days_to_keep":0}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"days_to_keep":30`)

	w = httptest.NewRecorder()
	h.HandleArchive(w, httptest.NewRequest(http.MethodPost, "/maintenance/archive", strings.NewReader(`{"days_to_keep":-2}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandleArchive(w, httptest.NewRequest(http.MethodPost, "/maintenance/archive", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.HandleClear(w, httptest.NewRequest(http.MethodDelete, "/logs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":2`)
}
