package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scantrack/internal/admin"
	"scantrack/internal/keyboard"
	"scantrack/internal/serial"
	"scantrack/pkg/config"
	"scantrack/pkg/db/dbtest"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestApp(t *testing.T) (*App, *testClock) {
	t.Helper()
	return newTestAppWithKeyboard(t, nil)
}

func newTestAppWithKeyboard(t *testing.T, src keyboard.Source) (*App, *testClock) {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Redis.URL = ""
	cfg.Scanner.SerialPort = ""
	cfg.Scanner.KeyboardSource = "none"
	cfg.Retention.RunOnStartup = false
	cfg.App.HTTPAddr = "127.0.0.1:0"

	clock := &testClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	a, err := New(context.Background(), Params{
		Config:   cfg,
		DB:       dbtest.Open(t),
		Clock:    clock.Now,
		Keyboard: src,
		SerialOpener: func(string, int) (serial.Port, error) {
			return nil, assert.AnError
		},
		SerialLister: func() ([]string, error) { return []string{"/dev/ttyUSB0"}, nil },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, clock
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestScanToggleAndOverdueFlow(t *testing.T) {
	a, clock := newTestApp(t)
	h := a.Handler()

	rec := do(t, h, http.MethodPost, "/scans", `{"barcode":"ortx1001"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var scan struct {
		Disposition string `json:"disposition"`
		Result      struct {
			Action     string `json:"action"`
			Department string `json:"department"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scan))
	assert.Equal(t, "recorded", scan.Disposition)
	assert.Equal(t, "check-out", scan.Result.Action)
	assert.Equal(t, "Ortopedi", scan.Result.Department)

	rec = do(t, h, http.MethodGet, "/items/checked-out", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ortx1001")

	clock.Advance(25 * time.Hour)
	rec = do(t, h, http.MethodGet, "/overdue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var overdue struct {
		Count          int `json:"count"`
		ThresholdHours int `json:"threshold_hours"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overdue))
	assert.Equal(t, 1, overdue.Count)
	assert.Equal(t, 24, overdue.ThresholdHours)

	rec = do(t, h, http.MethodPost, "/scans", `{"barcode":"ortx1001"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"check-in"`)

	rec = do(t, h, http.MethodGet, "/overdue", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overdue))
	assert.Zero(t, overdue.Count)

	rec = do(t, h, http.MethodGet, "/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), "ortx1001"))
}

func TestUnknownDepartmentRejected(t *testing.T) {
	a, _ := newTestApp(t)

	rec := do(t, a.Handler(), http.MethodPost, "/scans", `{"barcode":"ZZZ1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, a.Handler(), http.MethodGet, "/logs", "")
	assert.NotContains(t, rec.Body.String(), "ZZZ1")
}

func TestTriggerArmsSession(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()

	rec := do(t, h, http.MethodPost, "/scans", `{"barcode":"SCAN_START"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"armed"`)

	rec = do(t, h, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"armed"`)

	rec = do(t, h, http.MethodPost, "/session/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, a.session.Armed())
}

func TestTriggerSettingChangeApplies(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()

	rec := do(t, h, http.MethodPut, "/settings/trigger_barcode", `{"value":"GO"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "GO", a.session.Trigger())
}

func TestAdminPINGuardsConfiguration(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()

	rec := do(t, h, http.MethodPut, "/departments/CARDX", `{"department":"Kardiologi"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/admin/pin", `{"pin":"2468"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/departments/CARDX", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodDelete, "/departments/CARDX", "", admin.HeaderPIN, "2468")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// reads stay open
	rec = do(t, h, http.MethodGet, "/departments", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSerialOpenFailureReported(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()

	rec := do(t, h, http.MethodGet, "/serial/ports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/dev/ttyUSB0")

	rec = do(t, h, http.MethodPost, "/serial/open", `{"port":"/dev/ttyUSB0","baud":9600}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, a.serial.Status().Open)
}

func TestHealthAndMetrics(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	do(t, h, http.MethodPost, "/scans", `{"barcode":"NEURX5"}`)
	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scantrack_")
}

func TestExportCheckedOutCSV(t *testing.T) {
	a, _ := newTestApp(t)
	h := a.Handler()

	do(t, h, http.MethodPost, "/scans", `{"barcode":"ORTX9"}`)
	rec := do(t, h, http.MethodGet, "/export/checked-out.csv", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "checked-out")
	assert.Contains(t, rec.Body.String(), "ORTX9")
}

func TestEventsStreamDeliversScans(t *testing.T) {
	a, _ := newTestApp(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	post, err := http.Post(srv.URL+"/scans", "application/json", bytes.NewBufferString(`{"barcode":"ORTX77"}`))
	require.NoError(t, err)
	post.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var found bool
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data:") && strings.Contains(line, "ORTX77") {
			found = true
			break
		}
	}
	assert.True(t, found)
}

func TestServeStopsOnCancel(t *testing.T) {
	a, _ := newTestApp(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
}

// interruptSource types a barcode and then Ctrl-C.
type interruptSource struct{}

func (interruptSource) Listen(_ context.Context, handle func(keyboard.Event)) error {
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	for _, ev := range keyboard.Typed("ORTX42", at, time.Millisecond) {
		handle(ev)
	}
	return keyboard.ErrInterrupted
}

func TestTerminalInterruptStopsServe(t *testing.T) {
	a, _ := newTestAppWithKeyboard(t, interruptSource{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Serve(context.Background(), ln) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve ignored the terminal interrupt")
	}
}
