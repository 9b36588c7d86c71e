package manager

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/timzifer/redlink/scripts"
	"github.com/timzifer/redlink/telemetry"
	"github.com/timzifer/redlink/transport"
)

// Connection is a named, usable connection to the backing store together
// with the atomic scripts bound onto it.
//
// The dispatch table of bound scripts is fixed at bind time; registering a
// new definition under the same name later never rebinds an existing
// connection.
type Connection struct {
	name      string
	handle    transport.Handle
	bound     map[string]scripts.Definition
	state     atomic.Int32
	collector telemetry.Collector
	closer    func(ctx context.Context) error
}

// Name returns the connection's registry name.
func (c *Connection) Name() string {
	return c.name
}

// State reports the current lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

func (c *Connection) setState(s State) {
	c.state.Store(int32(s))
}

// Handle exposes the underlying transport handle for the lifetime of the
// connection record.
func (c *Connection) Handle() transport.Handle {
	return c.handle
}

// BoundScripts lists the names of the scripts bound onto this connection,
// in lexical order.
func (c *Connection) BoundScripts() []string {
	names := make([]string, 0, len(c.bound))
	for name := range c.bound {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes a bound script with an explicit key list followed by value
// arguments. Scripts are looked up by name in the connection's dispatch
// table, never attached dynamically.
func (c *Connection) Call(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	def, ok := c.bound[script]
	if !ok {
		return nil, fmt.Errorf("%w: %s on connection %s", ErrScriptNotBound, script, c.name)
	}
	if len(keys) != def.KeyArity {
		return nil, fmt.Errorf("manager: script %s expects %d keys, got %d", script, def.KeyArity, len(keys))
	}
	c.collector.IncScriptCall(script)
	return c.handle.Invoke(ctx, script, keys, args...)
}

// BoundingBox runs the bounding-box membership script against key with a
// fresh per-call accumulator token, so concurrent queries on the same key
// cannot interfere with each other.
func (c *Connection) BoundingBox(ctx context.Context, key string, lat, lon float64) (any, error) {
	return c.Call(ctx, scripts.BoundingBoxMembership, []string{key}, lat, lon, uuid.NewString())
}

// Close gracefully shuts the connection down and removes it from the
// registry that created it.
func (c *Connection) Close(ctx context.Context) error {
	return c.closer(ctx)
}
