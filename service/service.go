// Package service wires the knowledge core together: the row store, the
// sandbox resolver, the change log with its optional NATS changefeed, the
// closure engine and the metrics endpoint. A Service is the single object
// a caller (CLI, API server, test) needs to hold.
package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/zukunftch/zukunft.com/changelog"
	"github.com/zukunftch/zukunft.com/closure"
	"github.com/zukunftch/zukunft.com/config"
	"github.com/zukunftch/zukunft.com/errors"
	"github.com/zukunftch/zukunft.com/metric"
	"github.com/zukunftch/zukunft.com/pkg/cache"
	"github.com/zukunftch/zukunft.com/pkg/retry"
	"github.com/zukunftch/zukunft.com/registry"
	"github.com/zukunftch/zukunft.com/sandbox"
	"github.com/zukunftch/zukunft.com/storage"
)

// Status represents the lifecycle state of the service.
type Status int

const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Service owns the assembled knowledge core.
type Service struct {
	cfg    *config.Config
	logger *slog.Logger

	store      storage.RowStore
	storeClose func() error
	registry   *registry.TypeRegistry
	resolver   *sandbox.Resolver
	recorder   *changelog.StoreRecorder
	reader     *changelog.Reader
	engine     *closure.Engine

	natsConn *nats.Conn

	metricsReg *metric.Registry
	metricsSrv *metric.Server

	nameCache cache.Cache[int64]

	status    atomic.Value // Status
	startTime atomic.Value // time.Time
}

// Option configures a Service beyond what the config file carries.
type Option func(*Service)

// WithLogger overrides the logger built from the config.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithStore injects a pre-built row store. The service will not close an
// injected store on Stop.
func WithStore(store storage.RowStore) Option {
	return func(s *Service) {
		s.store = store
		s.storeClose = nil
	}
}

// New assembles a Service from a validated config. The store is opened and
// the registry seeded here; network listeners wait for Start.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{cfg: cfg}
	s.status.Store(StatusStopped)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = cfg.Logger()
	}

	if s.store == nil {
		switch cfg.Store.Driver {
		case config.StoreDriverSQLite:
			db, err := storage.OpenSQLite(cfg.Store.DSN)
			if err != nil {
				return nil, err
			}
			s.store = db
			s.storeClose = db.Close
		default:
			s.store = storage.NewMemStore()
		}
	}

	reg := metric.NewRegistry()
	s.metricsReg = reg
	if cfg.Metrics.Enabled {
		s.metricsSrv = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, reg)
	}

	s.registry = registry.NewTypeRegistry()
	s.recorder = changelog.NewStoreRecorder(s.store, nil, s.logger)
	s.reader = changelog.NewReader(s.store)
	s.resolver = sandbox.NewResolver(s.store, s.recorder, s.registry, s.logger)
	s.engine = closure.NewEngine(closure.NewStoreEdges(s.store), s.registry,
		closure.WithLogger(s.logger),
		closure.WithMetrics(reg.Metrics),
		closure.WithMaxLevels(cfg.Closure.MaxLevels))
	s.nameCache = cache.New(cache.DefaultMaxSize,
		cache.WithMetrics[int64](reg.Metrics))
	return s, nil
}

// Start refreshes the verb table, connects the changefeed if configured and
// brings up the metrics endpoint.
func (s *Service) Start(ctx context.Context) error {
	if s.Status() == StatusRunning {
		return errors.Invalidf("service", "Start", "service already running")
	}
	s.status.Store(StatusStarting)

	if err := s.registry.LoadVerbs(ctx, s.store); err != nil {
		s.status.Store(StatusStopped)
		return err
	}

	if s.cfg.NATS.Enabled {
		if err := s.connectFeed(ctx); err != nil {
			s.status.Store(StatusStopped)
			return err
		}
	}

	if s.metricsSrv != nil {
		if err := s.metricsSrv.Start(); err != nil {
			s.closeFeed()
			s.status.Store(StatusStopped)
			return err
		}
		s.logger.Info("metrics endpoint up", "address", s.metricsSrv.Address())
	}

	s.startTime.Store(time.Now())
	s.status.Store(StatusRunning)
	s.logger.Info("service started",
		"instance", s.cfg.Instance.ID,
		"store", s.cfg.Store.Driver,
		"changefeed", s.cfg.NATS.Enabled)
	return nil
}

// connectFeed dials NATS with backoff and rebuilds the recorder so change
// entries flow to the feed from now on.
func (s *Service) connectFeed(ctx context.Context) error {
	natsOpts := []nats.Option{
		nats.MaxReconnects(s.cfg.NATS.MaxReconnects),
		nats.ReconnectWait(s.cfg.NATS.ReconnectWait),
		nats.Name(s.cfg.Instance.ID),
	}
	if s.cfg.NATS.Token != "" {
		natsOpts = append(natsOpts, nats.Token(s.cfg.NATS.Token))
	} else if s.cfg.NATS.Username != "" {
		natsOpts = append(natsOpts, nats.UserInfo(s.cfg.NATS.Username, s.cfg.NATS.Password))
	}

	url := s.cfg.NATS.URLs[0]
	if len(s.cfg.NATS.URLs) > 1 {
		url = ""
		for i, u := range s.cfg.NATS.URLs {
			if i > 0 {
				url += ","
			}
			url += u
		}
	}

	err := retry.Do(ctx, retry.ConnectConfig(), func(context.Context) error {
		conn, dialErr := nats.Connect(url, natsOpts...)
		if dialErr != nil {
			s.logger.Warn("changefeed connect failed, retrying", "error", dialErr)
			return errors.WrapUnavailable(dialErr, "service", "connectFeed", "dial NATS")
		}
		s.natsConn = conn
		return nil
	})
	if err != nil {
		return err
	}

	publisher, err := changelog.NewPublisher(s.natsConn, s.cfg.NATS.SubjectPrefix)
	if err != nil {
		return err
	}
	s.recorder = changelog.NewStoreRecorder(s.store, publisher, s.logger)
	s.resolver = sandbox.NewResolver(s.store, s.recorder, s.registry, s.logger)
	s.logger.Info("changefeed connected", "subject_prefix", s.cfg.NATS.SubjectPrefix)
	return nil
}

func (s *Service) closeFeed() {
	if s.natsConn != nil {
		s.natsConn.Close()
		s.natsConn = nil
	}
}

// Stop shuts the listeners and the store down. Safe to call more than once.
func (s *Service) Stop(ctx context.Context) error {
	if s.Status() == StatusStopped {
		return nil
	}
	s.status.Store(StatusStopping)

	var firstErr error
	if s.metricsSrv != nil {
		if err := s.metricsSrv.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closeFeed()
	if s.storeClose != nil {
		if err := s.storeClose(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "service", "Stop", "close store")
		}
	}

	s.status.Store(StatusStopped)
	s.logger.Info("service stopped", "instance", s.cfg.Instance.ID)
	return firstErr
}

// Status returns the lifecycle state.
func (s *Service) Status() Status {
	if v, ok := s.status.Load().(Status); ok {
		return v
	}
	return StatusStopped
}

// Uptime reports how long the service has been running; zero when stopped.
func (s *Service) Uptime() time.Duration {
	if s.Status() != StatusRunning {
		return 0
	}
	if start, ok := s.startTime.Load().(time.Time); ok {
		return time.Since(start)
	}
	return 0
}

// Registry exposes the verb and code tables.
func (s *Service) Registry() *registry.TypeRegistry { return s.registry }

// Store exposes the row store, mainly for tests and migrations.
func (s *Service) Store() storage.RowStore { return s.store }

// Metrics exposes the shared metric set.
func (s *Service) Metrics() *metric.Metrics { return s.metricsReg.Metrics }
