package manager

import (
	"github.com/rs/zerolog"

	"github.com/timzifer/redlink/events"
	"github.com/timzifer/redlink/logging"
	"github.com/timzifer/redlink/scripts"
	"github.com/timzifer/redlink/telemetry"
	"github.com/timzifer/redlink/transport"
)

// Option configures a Manager during construction.
type Option func(cfg *settings) error

type settings struct {
	logger         zerolog.Logger
	bus            *events.Bus
	registry       *scripts.Registry
	collector      telemetry.Collector
	factory        transport.Factory
	clusterFactory transport.ClusterFactory
}

// WithLogger provides a custom logger instance for the manager.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.logger = logger
		return nil
	}
}

// WithLoggerFuncs installs a caller-supplied logger capability set. All four
// capabilities must be present; construction fails with a
// MissingLoggerMethodError naming every absent one.
func WithLoggerFuncs(funcs logging.Funcs) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		logger, err := logging.NewFuncsLogger(funcs)
		if err != nil {
			return err
		}
		cfg.logger = logger
		return nil
	}
}

// WithBus shares an existing event bus instead of a fresh one.
func WithBus(bus *events.Bus) Option {
	return func(cfg *settings) error {
		if cfg == nil || bus == nil {
			return nil
		}
		cfg.bus = bus
		return nil
	}
}

// WithScripts supplies the script registry consulted at bind time. The
// default registry is preloaded with the built-in catalogue.
func WithScripts(registry *scripts.Registry) Option {
	return func(cfg *settings) error {
		if cfg == nil || registry == nil {
			return nil
		}
		cfg.registry = registry
		return nil
	}
}

// WithTelemetry injects a collector instance overriding the default noop
// behaviour.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if collector == nil {
			collector = telemetry.Noop()
		}
		cfg.collector = collector
		return nil
	}
}

// WithFactory overrides the single-node transport factory.
func WithFactory(factory transport.Factory) Option {
	return func(cfg *settings) error {
		if cfg == nil || factory == nil {
			return nil
		}
		cfg.factory = factory
		return nil
	}
}

// WithClusterFactory overrides the cluster transport factory.
func WithClusterFactory(factory transport.ClusterFactory) Option {
	return func(cfg *settings) error {
		if cfg == nil || factory == nil {
			return nil
		}
		cfg.clusterFactory = factory
		return nil
	}
}
