// Package transport defines the contract between the connection manager and
// the backing-store driver. The driver owns wire protocol, authentication and
// cluster slot routing; the manager only configures it and observes its
// signals.
package transport

import (
	"context"

	"github.com/timzifer/redlink/config"
)

// Signal names the fixed set of lifecycle notifications a handle emits.
type Signal string

const (
	SignalConnect      Signal = "connect"
	SignalReady        Signal = "ready"
	SignalError        Signal = "error"
	SignalClose        Signal = "close"
	SignalReconnecting Signal = "reconnecting"
	SignalEnd          Signal = "end"
	SignalWait         Signal = "wait"
	SignalSelect       Signal = "select"
)

// Signals lists every signal a handle may emit, in emission-precedence order.
var Signals = []Signal{
	SignalConnect,
	SignalReady,
	SignalError,
	SignalClose,
	SignalReconnecting,
	SignalEnd,
	SignalWait,
	SignalSelect,
}

// SignalHandler observes raw transport signals together with their original
// arguments.
type SignalHandler func(sig Signal, args ...any)

// Handle represents one live connection to the backing store.
//
// Implementations wrap network clients and must be safe for concurrent use.
// Subscribe may be called before the connection becomes ready so that no
// signal is lost; Define installs a named server-side script which Invoke
// executes with an explicit key list followed by value arguments.
type Handle interface {
	Subscribe(handler SignalHandler) (cancel func())
	Define(ctx context.Context, name string, keyArity int, body string) error
	Invoke(ctx context.Context, name string, keys []string, args ...any) (any, error)
	Shutdown(ctx context.Context) error
}

// Factory opens a handle to a single-node deployment. The returned handle
// has started connecting but may not be ready yet; readiness is reported via
// SignalReady.
type Factory func(cfg config.ConnectionConfig) (Handle, error)

// ClusterFactory opens a handle to a sharded-cluster deployment.
type ClusterFactory func(cfg config.ClusterConfig) (Handle, error)
