package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the connection manager.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks are
// executed inline with lifecycle transitions and script invocations.
type Collector interface {
	IncConnectionEvent(connection, event string)
	SetActiveConnections(count int)
	IncScriptBound(script string)
	IncScriptCall(script string)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncConnectionEvent(string, string) {}
func (noopCollector) SetActiveConnections(int)          {}
func (noopCollector) IncScriptBound(string)             {}
func (noopCollector) IncScriptCall(string)              {}

// PrometheusCollector exposes telemetry counters via Prometheus.
type PrometheusCollector struct {
	connectionEvents  *prometheus.CounterVec
	activeConnections prometheus.Gauge
	scriptsBound      *prometheus.CounterVec
	scriptCalls       *prometheus.CounterVec
}

var (
	registerLock         sync.Mutex
	connectionEventsVec  *prometheus.CounterVec
	activeConnectionsVar prometheus.Gauge
	scriptsBoundVec      *prometheus.CounterVec
	scriptCallsVec       *prometheus.CounterVec
)

// NewPrometheusCollector registers the required metrics with the provided
// registerer, reusing collectors that a previous call already registered.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	registerLock.Lock()
	defer registerLock.Unlock()

	if connectionEventsVec == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redlink_connection_events_total",
			Help: "Number of connection lifecycle events per connection and event name.",
		}, []string{"connection", "event"})
		registered, err := registerCounterVec(reg, counter)
		if err != nil {
			return nil, err
		}
		connectionEventsVec = registered
	}

	if activeConnectionsVar == nil {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redlink_active_connections",
			Help: "Number of connections currently registered and usable.",
		})
		if err := reg.Register(gauge); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
					gauge = existing
				} else {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		activeConnectionsVar = gauge
	}

	if scriptsBoundVec == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redlink_scripts_bound_total",
			Help: "Number of atomic scripts bound onto connections, per script.",
		}, []string{"script"})
		registered, err := registerCounterVec(reg, counter)
		if err != nil {
			return nil, err
		}
		scriptsBoundVec = registered
	}

	if scriptCallsVec == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redlink_script_calls_total",
			Help: "Number of atomic script invocations, per script.",
		}, []string{"script"})
		registered, err := registerCounterVec(reg, counter)
		if err != nil {
			return nil, err
		}
		scriptCallsVec = registered
	}

	return &PrometheusCollector{
		connectionEvents:  connectionEventsVec,
		activeConnections: activeConnectionsVar,
		scriptsBound:      scriptsBoundVec,
		scriptCalls:       scriptCallsVec,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, counter *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

// IncConnectionEvent counts one lifecycle event.
func (c *PrometheusCollector) IncConnectionEvent(connection, event string) {
	c.connectionEvents.WithLabelValues(connection, event).Inc()
}

// SetActiveConnections records the current registry size.
func (c *PrometheusCollector) SetActiveConnections(count int) {
	c.activeConnections.Set(float64(count))
}

// IncScriptBound counts one script bound onto a connection.
func (c *PrometheusCollector) IncScriptBound(script string) {
	c.scriptsBound.WithLabelValues(script).Inc()
}

// IncScriptCall counts one script invocation.
func (c *PrometheusCollector) IncScriptCall(script string) {
	c.scriptCalls.WithLabelValues(script).Inc()
}
