// internal/app/routes.go
package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scantrack/internal/admin"
	"scantrack/internal/catalog"
	"scantrack/internal/departments"
	"scantrack/internal/export"
	"scantrack/internal/intake"
	"scantrack/internal/ledger"
	"scantrack/internal/overdue"
	"scantrack/internal/retention"
	"scantrack/internal/serial"
	"scantrack/internal/session"
	"scantrack/internal/settings"
	"scantrack/pkg/httpx"
)

// Handler builds the control API. Mutating configuration and log maintenance routes sit
// behind the admin PIN.
func (a *App) Handler() http.Handler {
	logg := a.logg
	adminH := admin.NewHandler(a.admin, logg)
	sessionH := session.NewHandler(a.session)
	intakeH := intake.NewHandler(a.dispatcher, logg)
	ledgerH := ledger.NewHandler(a.ledger, logg)
	overdueH := overdue.NewHandler(a.monitor, logg)
	deptH := departments.NewHandler(a.departments, logg)
	settingsH := settings.NewHandler(a.settings, logg)
	serialH := serial.NewHandler(a.serial, logg)
	retentionH := retention.NewHandler(a.retention, a.cfg.Retention.DaysToKeep, logg)
	exportH := export.NewHandler(a.exporter, logg)
	catalogH := catalog.NewHandler(a.catalog, logg)

	r := chi.NewRouter()
	r.Use(
		httpx.Recoverer(logg),
		httpx.RequestID(logg),
		httpx.Logging(logg),
	)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	r.Get("/events", a.handleEvents)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", sessionH.HandleGet)
		r.Post("/start", sessionH.HandleStart)
		r.Post("/stop", sessionH.HandleStop)
	})

	r.Post("/scans", intakeH.HandleScan)

	r.Route("/items", func(r chi.Router) {
		r.Get("/checked-out", ledgerH.HandleCheckedOut)
		r.Post("/{barcode}/check-in", ledgerH.HandleForceCheckIn)
		r.Post("/{barcode}/check-out", ledgerH.HandleForceCheckOut)
	})
	r.Get("/logs", ledgerH.HandleLogs)
	r.With(adminH.Require).Delete("/logs", retentionH.HandleClear)
	r.Get("/ledger/audit", ledgerH.HandleAudit)

	r.Route("/overdue", func(r chi.Router) {
		r.Get("/", overdueH.HandleList)
		r.Get("/departments", overdueH.HandleDepartments)
	})

	r.Route("/departments", func(r chi.Router) {
		r.Get("/", deptH.HandleList)
		r.Get("/stats", deptH.HandleStats)
		r.Get("/resolve/{barcode}", deptH.HandleResolve)
		r.With(adminH.Require).Put("/{prefix}", deptH.HandlePut)
		r.With(adminH.Require).Delete("/{prefix}", deptH.HandleDelete)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", settingsH.HandleList)
		r.Get("/{key}", settingsH.HandleGet)
		r.With(adminH.Require).Put("/{key}", settingsH.HandlePut)
	})

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/", catalogH.HandleSearch)
		r.Get("/{barcode}", catalogH.HandleGet)
		r.Group(func(r chi.Router) {
			r.Use(adminH.Require)
			r.Post("/import", catalogH.HandleImport)
			r.Put("/{barcode}", catalogH.HandlePut)
			r.Delete("/{barcode}", catalogH.HandleDelete)
		})
	})

	r.Route("/serial", func(r chi.Router) {
		r.Get("/", serialH.HandleStatus)
		r.Get("/ports", serialH.HandlePorts)
		r.Post("/open", serialH.HandleOpen)
		r.Post("/close", serialH.HandleClose)
	})

	r.Route("/maintenance", func(r chi.Router) {
		r.Get("/stats", retentionH.HandleStats)
		r.With(adminH.Require).Post("/archive", retentionH.HandleArchive)
		r.With(adminH.Require).Post("/cleanup", retentionH.HandleCleanup)
	})

	r.Get("/export/{file}", exportH.HandleExport)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/status", adminH.HandleStatus)
		r.With(adminH.Require).Put("/pin", adminH.HandleSetPIN)
	})

	return r
}
