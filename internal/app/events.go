// internal/app/events.go
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"scantrack/pkg/httpx"
)

const (
	eventBuffer       = 64
	keepAliveInterval = 25 * time.Second
)

// handleEvents streams bus notifications as server-sent events until the client leaves.
func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(r.Context(), a.logg, w, fmt.Errorf("streaming unsupported"))
		return
	}

	ch, cancel := a.bus.Subscribe(eventBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case n, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				a.logg.Error(r.Context(), "encode event", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Topic, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleHealth pings the database and, when configured, Redis.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	err := a.dbClient.Ping(ctx)
	if err != nil {
		checks["database"] = err.Error()
	}
	if a.redis != nil {
		checks["redis"] = "ok"
		if redisErr := a.redis.Ping(ctx); redisErr != nil {
			checks["redis"] = redisErr.Error()
			err = multierr.Append(err, redisErr)
		}
	}

	status := http.StatusOK
	body := map[string]any{"status": "ok", "checks": checks, "session": a.session.Snapshot().State}
	if err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	httpx.WriteJSON(w, status, body)
}
