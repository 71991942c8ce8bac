// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"scantrack/internal/admin"
	"scantrack/internal/catalog"
	"scantrack/internal/cron"
	"scantrack/internal/departments"
	"scantrack/internal/export"
	"scantrack/internal/intake"
	"scantrack/internal/keyboard"
	"scantrack/internal/ledger"
	"scantrack/internal/notify"
	"scantrack/internal/overdue"
	"scantrack/internal/retention"
	"scantrack/internal/serial"
	"scantrack/internal/session"
	"scantrack/internal/settings"
	"scantrack/pkg/config"
	"scantrack/pkg/db"
	"scantrack/pkg/eventstore"
	"scantrack/pkg/logger"
	"scantrack/pkg/metrics"
	"scantrack/pkg/redis"
)

// Params configure an App. Only Config and Logger are required; the rest exist so tests and
// the maintenance command can supply their own collaborators.
type Params struct {
	Config *config.Config
	Logger *logger.Logger

	// DB replaces the connection normally opened from Config.DB.
	DB *gorm.DB
	// Redis is used when non-nil; otherwise one is dialed when Config.Redis is enabled.
	Redis *redis.Client
	// Registry receives every collector. A fresh registry is created when nil.
	Registry *prometheus.Registry
	// Keyboard overrides the key source selected by Config.Scanner.KeyboardSource.
	Keyboard keyboard.Source
	// SerialOpener replaces the real device opener.
	SerialOpener serial.Opener
	SerialLister serial.Lister
	Clock        func() time.Time
}

// App owns every long-lived component of the scanner daemon.
type App struct {
	cfg  *config.Config
	logg *logger.Logger

	dbClient *db.Client
	ownsDB   bool
	redis    *redis.Client
	ownsRed  bool
	registry *prometheus.Registry
	metrics  *metrics.ScannerMetrics

	bus         *notify.Bus
	relay       *notify.RedisSink
	store       *eventstore.EventStore
	settings    settings.Service
	departments departments.Service
	catalog     catalog.Service
	admin       admin.Service
	session     *session.Controller
	ledger      *ledger.Ledger
	dispatcher  *intake.Dispatcher
	segmenter   *keyboard.Segmenter
	keySource   keyboard.Source
	serial      *serial.Reader
	monitor     *overdue.Monitor
	retention   *retention.Service
	exporter    *export.Exporter
	jobs        []*cron.Service
}

// New connects storage, runs migrations and wires every component. Nothing runs until Run.
func New(ctx context.Context, p Params) (a *App, err error) {
	if p.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	cfg := p.Config
	a = &App{cfg: cfg, logg: p.Logger, registry: p.Registry}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
		}
	}()

	if p.DB != nil {
		a.dbClient = db.NewFromGorm(p.DB)
	} else {
		if a.dbClient, err = db.New(ctx, cfg.DB, a.logg); err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		a.ownsDB = true
	}
	a.redis = p.Redis
	if a.redis == nil && cfg.Redis.Enabled() {
		if a.redis, err = redis.New(ctx, cfg.Redis, a.logg); err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		a.ownsRed = true
	}

	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	a.metrics = metrics.NewScannerMetrics(a.registry)
	cronMetrics := metrics.NewCronJobMetrics(a.registry)

	if err = a.migrate(ctx); err != nil {
		return nil, err
	}
	if err = a.wire(ctx, p); err != nil {
		return nil, err
	}
	if err = a.schedule(cronMetrics); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) migrate(ctx context.Context) error {
	conn := a.dbClient.DB()
	a.store = eventstore.NewEventStore(conn)
	defaults := settings.Defaults{
		TriggerBarcode: a.cfg.Scanner.TriggerBarcode,
		ThresholdHours: a.cfg.Alerts.ThresholdHours,
	}
	return multierr.Combine(
		a.store.Migrate(ctx),
		settings.Migrate(ctx, conn, defaults),
		departments.Migrate(ctx, conn),
		catalog.Migrate(ctx, conn),
		admin.Migrate(ctx, conn, a.cfg.Admin.InitialPIN),
	)
}

func (a *App) wire(ctx context.Context, p Params) error {
	conn := a.dbClient.DB()

	a.bus = notify.NewBus(a.logg)
	if a.redis != nil {
		a.relay = notify.NewRedisSink(a.redis, a.cfg.Redis.Channel, a.logg)
		a.bus.AddSink(a.relay)
	}

	a.settings = settings.NewService(conn, settings.Defaults{
		TriggerBarcode: a.cfg.Scanner.TriggerBarcode,
		ThresholdHours: a.cfg.Alerts.ThresholdHours,
	})
	a.departments = departments.NewService(conn, a.store)
	a.catalog = catalog.NewService(conn)
	a.admin = admin.NewService(conn)

	sessionOpts := []session.Option{session.WithObserver(a.metrics)}
	if p.Clock != nil {
		sessionOpts = append(sessionOpts, session.WithClock(p.Clock))
	}
	a.session = session.NewController(a.settings.TriggerBarcode(ctx), a.bus, sessionOpts...)
	a.settings.OnChange(func(key, value string) {
		if key == settings.KeyTriggerBarcode {
			a.session.SetTrigger(value)
		}
	})

	var err error
	a.ledger, err = ledger.New(ctx, ledger.Params{
		Log:      a.store,
		Resolver: a.departments,
		Observer: a.metrics,
		Clock:    p.Clock,
	})
	if err != nil {
		return fmt.Errorf("bootstrap ledger: %w", err)
	}

	a.dispatcher = intake.NewDispatcher(intake.Params{
		Session:  a.session,
		Ledger:   a.ledger,
		Notifier: a.bus,
		Observer: a.metrics,
		Logger:   a.logg,
		Clock:    p.Clock,
	})
	a.segmenter = keyboard.NewSegmenter(a.session, a.dispatcher, a.logg)
	a.keySource = p.Keyboard
	if a.keySource == nil && a.cfg.Scanner.KeyboardSource == "terminal" {
		a.keySource = keyboard.NewTerminalSource(nil)
	}

	a.serial = serial.NewReader(serial.Params{
		Sink:         a.dispatcher,
		Notifier:     a.bus,
		Counter:      a.metrics,
		Logger:       a.logg,
		Opener:       p.SerialOpener,
		Lister:       p.SerialLister,
		PollInterval: a.cfg.Scanner.SerialPollInterval,
		Clock:        p.Clock,
	})

	a.monitor = overdue.NewMonitor(overdue.MonitorParams{
		Ledger:     a.ledger,
		Thresholds: a.settings,
		Notifier:   a.bus,
		Gauge:      a.metrics,
		Logger:     a.logg,
		Clock:      p.Clock,
	})
	a.retention = retention.NewService(a.store, a.ledger, a.logg)
	a.exporter = export.NewExporter(a.ledger, a.catalog, time.Local)
	return nil
}

func (a *App) schedule(m *metrics.CronJobMetrics) error {
	services := []struct {
		name       string
		interval   time.Duration
		runOnStart bool
		jobs       []cron.Job
	}{
		{"overdue", a.cfg.Alerts.CheckInterval, false, []cron.Job{a.monitor}},
		{"ledger-audit", a.cfg.Alerts.AuditInterval, false, []cron.Job{ledger.NewAuditJob(a.ledger, a.logg, a.metrics)}},
		{"maintenance", a.cfg.Retention.Interval, a.cfg.Retention.RunOnStartup, []cron.Job{
			retention.NewJob(a.retention, a.cfg.Retention.DaysToKeep),
			export.NewAutoExportJob(a.exporter, a.settings, a.logg),
		}},
	}

	for _, def := range services {
		lock, err := a.lockFor(def.name, def.interval)
		if err != nil {
			return err
		}
		svc, err := cron.NewService(cron.ServiceParams{
			Name:       def.name,
			Logger:     a.logg,
			Registry:   cron.NewRegistry(def.jobs...),
			Lock:       lock,
			Metrics:    m,
			Interval:   def.interval,
			RunOnStart: def.runOnStart,
		})
		if err != nil {
			return fmt.Errorf("create %s service: %w", def.name, err)
		}
		a.jobs = append(a.jobs, svc)
	}
	return nil
}

// lockFor shares job locks through Redis when it is configured so several workstations on
// one database do not run the same job twice.
func (a *App) lockFor(name string, ttl time.Duration) (cron.Lock, error) {
	if a.redis == nil {
		return &cron.LocalLock{}, nil
	}
	lock, err := cron.NewRedisLock(a.redis, a.redis.LockKey(name), ttl)
	if err != nil {
		return nil, fmt.Errorf("create %s lock: %w", name, err)
	}
	return lock, nil
}

// Ledger exposes the transaction ledger to the maintenance command.
func (a *App) Ledger() *ledger.Ledger { return a.ledger }

// Retention exposes log maintenance to the maintenance command.
func (a *App) Retention() *retention.Service { return a.retention }

// Admin exposes PIN management to the maintenance command.
func (a *App) Admin() admin.Service { return a.admin }

// Catalog exposes the item name catalog to the maintenance command.
func (a *App) Catalog() catalog.Service { return a.catalog }

// Close releases the serial port and the connections the App opened itself.
func (a *App) Close() error {
	var err error
	if a.serial != nil {
		err = multierr.Append(err, a.serial.Close())
	}
	if a.relay != nil {
		a.relay.Close()
	}
	if a.ownsRed && a.redis != nil {
		err = multierr.Append(err, a.redis.Close())
	}
	if a.ownsDB && a.dbClient != nil {
		err = multierr.Append(err, a.dbClient.Close())
	}
	return err
}
