// Package manager owns the registry of named connections to the backing
// store and drives each connection's lifecycle: opening the transport,
// forwarding its signals as events, binding the requested atomic scripts and
// tearing everything down again.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/timzifer/redlink/config"
	"github.com/timzifer/redlink/drivers/goredis"
	"github.com/timzifer/redlink/events"
	"github.com/timzifer/redlink/scripts"
	"github.com/timzifer/redlink/telemetry"
	"github.com/timzifer/redlink/transport"
)

// Manager creates, tracks and shuts down named connections. Construct with
// New; the zero value is not usable. All methods are safe for concurrent
// use.
type Manager struct {
	logger         zerolog.Logger
	bus            *events.Bus
	registry       *scripts.Registry
	collector      telemetry.Collector
	factory        transport.Factory
	clusterFactory transport.ClusterFactory

	mu      sync.Mutex
	records map[string]*record
}

// record tracks one reserved or active connection. A record exists from the
// moment a create call reserves the name until the connection reaches
// CLOSED (or the creation fails, which releases the reservation).
type record struct {
	conn    *Connection
	active  bool
	closing bool
	cancel  func()
}

// New constructs a Manager. Without options it logs nowhere, collects no
// telemetry, owns a fresh event bus, consults a script registry preloaded
// with the built-in catalogue and opens real connections via the go-redis
// transport.
func New(opts ...Option) (*Manager, error) {
	cfg := &settings{
		logger:         zerolog.Nop(),
		bus:            events.NewBus(),
		registry:       scripts.NewBuiltinRegistry(),
		collector:      telemetry.Noop(),
		factory:        goredis.NewFactory(),
		clusterFactory: goredis.NewClusterFactory(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return &Manager{
		logger:         cfg.logger,
		bus:            cfg.bus,
		registry:       cfg.registry,
		collector:      cfg.collector,
		factory:        cfg.factory,
		clusterFactory: cfg.clusterFactory,
		records:        make(map[string]*record),
	}, nil
}

// Bus returns the event bus carrying lifecycle and signal events.
func (m *Manager) Bus() *events.Bus {
	return m.bus
}

// Scripts returns the script registry consulted at bind time.
func (m *Manager) Scripts() *scripts.Registry {
	return m.registry
}

// CreateConnection opens a named connection to a single-node deployment,
// binds the requested scripts once the transport reports readiness and
// registers the connection for lookup.
func (m *Manager) CreateConnection(ctx context.Context, name string, cfg config.ConnectionConfig, scriptNames []string) (*Connection, error) {
	cfg = cfg.WithDefaults()
	logger := m.logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return m.create(ctx, name, logger, scriptNames, func() (transport.Handle, error) {
		return m.factory(cfg)
	})
}

// CreateClusterConnection opens a named connection to a sharded-cluster
// deployment. The topology is validated before any name reservation or I/O.
func (m *Manager) CreateClusterConnection(ctx context.Context, name string, cfg config.ClusterConfig, scriptNames []string) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopology, err)
	}
	cfg = cfg.WithDefaults()
	logger := m.logger
	if cfg.Node.Logger != nil {
		logger = *cfg.Node.Logger
	}
	return m.create(ctx, name, logger, scriptNames, func() (transport.Handle, error) {
		return m.clusterFactory(cfg)
	})
}

func (m *Manager) create(ctx context.Context, name string, logger zerolog.Logger, scriptNames []string, open func() (transport.Handle, error)) (*Connection, error) {
	if name == "" {
		return nil, ErrNameRequired
	}

	// Reserve the name before any I/O so two concurrent creates with the
	// same name cannot both proceed; the loser observes the reservation.
	rec := &record{}
	m.mu.Lock()
	if _, exists := m.records[name]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	m.records[name] = rec
	m.mu.Unlock()

	conn, err := m.establish(ctx, name, logger, rec, scriptNames, open)
	if err != nil {
		m.mu.Lock()
		delete(m.records, name)
		m.mu.Unlock()
		return nil, err
	}
	return conn, nil
}

// GetConnection returns the active connection registered under name. A
// connection is visible once it has reached CONNECTED and until it reaches
// CLOSED.
func (m *Manager) GetConnection(name string) (*Connection, error) {
	m.mu.Lock()
	rec, ok := m.records[name]
	m.mu.Unlock()
	if !ok || !rec.active || rec.conn == nil || rec.conn.State() == StateClosed {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return rec.conn, nil
}

// CloseConnection gracefully shuts down one connection and removes it from
// the registry.
func (m *Manager) CloseConnection(ctx context.Context, name string) error {
	return m.closeConnection(ctx, name)
}

func (m *Manager) closeConnection(ctx context.Context, name string) error {
	m.mu.Lock()
	rec, ok := m.records[name]
	if !ok || !rec.active || rec.conn == nil || rec.closing {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rec.closing = true
	m.mu.Unlock()

	conn := rec.conn
	conn.setState(StateClosing)
	err := conn.handle.Shutdown(ctx)
	conn.setState(StateClosed)
	if rec.cancel != nil {
		rec.cancel()
	}

	m.mu.Lock()
	delete(m.records, name)
	m.collector.SetActiveConnections(m.activeLocked())
	m.mu.Unlock()

	m.publish(name, EventConnectionClosed)
	m.logger.Debug().Str("connection", name).Msg("connection closed")
	if err != nil {
		return fmt.Errorf("manager: close connection %s: %w", name, err)
	}
	return nil
}

// CloseAll shuts down every connection in a snapshot of the current
// registry, concurrently. Every shutdown is attempted regardless of sibling
// failures; the composite result joins one error per failed connection.
// Connections created after the snapshot are untouched.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.publish("", EventClosingAllConnections)

	m.mu.Lock()
	names := make([]string, 0, len(m.records))
	for name, rec := range m.records {
		if rec.active && !rec.closing {
			names = append(names, name)
		}
	}
	m.mu.Unlock()
	sort.Strings(names)

	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		i, name := i, name
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.closeConnection(ctx, name); err != nil && !errors.Is(err, ErrNotFound) {
				errs[i] = err
			}
		}()
	}
	wg.Wait()

	m.publish("", EventAllConnectionsClosed)
	return errors.Join(errs...)
}

// activeLocked counts usable connections; callers must hold m.mu.
func (m *Manager) activeLocked() int {
	count := 0
	for _, rec := range m.records {
		if rec.active && !rec.closing {
			count++
		}
	}
	return count
}

// publish broadcasts a lifecycle event and mirrors it into telemetry.
func (m *Manager) publish(name, event string, args ...any) {
	if name != "" {
		m.collector.IncConnectionEvent(name, event)
	}
	m.bus.Publish(events.Event{Name: event, Connection: name, Args: args})
}
