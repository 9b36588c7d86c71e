// Package goredis implements the transport contract on top of the go-redis
// driver for both single-node and cluster topologies.
package goredis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/timzifer/redlink/config"
	"github.com/timzifer/redlink/transport"
)

// connectTimeout bounds the initial readiness probe.
const connectTimeout = 30 * time.Second

type definedScript struct {
	script   *redis.Script
	keyArity int
}

// handle adapts a go-redis universal client onto transport.Handle.
//
// Signals emitted before the first subscriber attaches are buffered and
// replayed to it, so the manager can never miss the initial connect/ready
// sequence.
type handle struct {
	client    redis.UniversalClient
	keyPrefix string

	mu        sync.RWMutex
	handlers  map[uint64]transport.SignalHandler
	nextID    uint64
	pending   []pendingSignal
	replaying bool
	scripts   map[string]definedScript

	readyOnce sync.Once
}

type pendingSignal struct {
	sig  transport.Signal
	args []any
}

func newHandle(client redis.UniversalClient, keyPrefix string) *handle {
	return &handle{
		client:    client,
		keyPrefix: keyPrefix,
		handlers:  make(map[uint64]transport.SignalHandler),
		scripts:   make(map[string]definedScript),
	}
}

// start probes the backing store and emits the initial signal sequence.
func (h *handle) start(selectedDB int) {
	h.emit(transport.SignalWait)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := h.client.Ping(ctx).Err(); err != nil {
		h.emit(transport.SignalError, err)
		h.emit(transport.SignalEnd)
		return
	}

	h.readyOnce.Do(func() {
		h.emit(transport.SignalConnect)
		if selectedDB != 0 {
			h.emit(transport.SignalSelect, selectedDB)
		}
		h.emit(transport.SignalReady)
	})
}

func (h *handle) emit(sig transport.Signal, args ...any) {
	h.mu.Lock()
	if len(h.handlers) == 0 || h.replaying {
		h.pending = append(h.pending, pendingSignal{sig: sig, args: args})
		h.mu.Unlock()
		return
	}
	handlers := make([]transport.SignalHandler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		handlers = append(handlers, handler)
	}
	h.mu.Unlock()
	for _, handler := range handlers {
		handler(sig, args...)
	}
}

// Subscribe attaches a signal handler. The first subscriber receives every
// signal emitted before it attached, in order.
func (h *handle) Subscribe(handler transport.SignalHandler) func() {
	if handler == nil {
		return func() {}
	}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.handlers[id] = handler
	// Signals emitted while the buffer drains are parked behind the
	// replaying flag and drained in turn, preserving their order.
	for len(h.pending) > 0 {
		h.replaying = true
		batch := h.pending
		h.pending = nil
		h.mu.Unlock()
		for _, sig := range batch {
			handler(sig.sig, sig.args...)
		}
		h.mu.Lock()
	}
	h.replaying = false
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.handlers, id)
		h.mu.Unlock()
	}
}

// Define loads the script onto the server and exposes it under name.
func (h *handle) Define(ctx context.Context, name string, keyArity int, body string) error {
	if name == "" {
		return fmt.Errorf("goredis: script name is required")
	}
	script := redis.NewScript(body)
	if err := script.Load(ctx, h.client).Err(); err != nil {
		return fmt.Errorf("goredis: load script %s: %w", name, err)
	}
	h.mu.Lock()
	h.scripts[name] = definedScript{script: script, keyArity: keyArity}
	h.mu.Unlock()
	return nil
}

// Invoke executes a previously defined script with explicit keys and
// trailing value arguments. The configured key prefix is applied to every
// key.
func (h *handle) Invoke(ctx context.Context, name string, keys []string, args ...any) (any, error) {
	h.mu.RLock()
	def, ok := h.scripts[name]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("goredis: script %s is not defined", name)
	}
	if len(keys) != def.keyArity {
		return nil, fmt.Errorf("goredis: script %s expects %d keys, got %d", name, def.keyArity, len(keys))
	}
	prefixed := keys
	if h.keyPrefix != "" {
		prefixed = make([]string, len(keys))
		for i, key := range keys {
			prefixed[i] = h.keyPrefix + key
		}
	}
	result, err := def.script.Run(ctx, h.client, prefixed, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("goredis: run script %s: %w", name, err)
	}
	return result, nil
}

// Shutdown closes the underlying client and emits the terminal signals.
func (h *handle) Shutdown(_ context.Context) error {
	h.emit(transport.SignalClose)
	err := h.client.Close()
	h.emit(transport.SignalEnd)
	if err != nil {
		return fmt.Errorf("goredis: close client: %w", err)
	}
	return nil
}

// NewFactory returns a transport factory for single-node deployments.
//
// go-redis has no offline command queue, auto-pipelining mode or error
// stack decoration, so ConnectionConfig's boolean options have no mapping
// here; they only reach transports that implement those behaviors.
func NewFactory() transport.Factory {
	return func(cfg config.ConnectionConfig) (transport.Handle, error) {
		cfg = cfg.WithDefaults()
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Addr(),
			DB:           cfg.DB,
			Password:     cfg.Password,
			TLSConfig:    cfg.TLS,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
		h := newHandle(client, cfg.KeyPrefix)
		go h.start(cfg.DB)
		return h, nil
	}
}

// NewClusterFactory returns a transport factory for sharded-cluster
// deployments.
func NewClusterFactory() transport.ClusterFactory {
	return func(cfg config.ClusterConfig) (transport.Handle, error) {
		cfg = cfg.WithDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		addrs := make([]string, len(cfg.Nodes))
		for i, node := range cfg.Nodes {
			addrs[i] = node.Addr()
		}
		minBackoff, maxBackoff := backoffBounds(cfg.RetryStrategy)
		opts := &redis.ClusterOptions{
			Addrs:           addrs,
			MaxRedirects:    cfg.MaxRedirections,
			Password:        cfg.Node.Password,
			TLSConfig:       cfg.Node.TLS,
			DialTimeout:     cfg.Node.DialTimeout,
			ReadTimeout:     cfg.Node.ReadTimeout,
			WriteTimeout:    cfg.Node.WriteTimeout,
			MinRetryBackoff: minBackoff,
			MaxRetryBackoff: maxBackoff,
		}
		switch cfg.ScaleReads {
		case "slave":
			opts.ReadOnly = true
		case "all":
			opts.ReadOnly = true
			opts.RouteRandomly = true
		}
		client := redis.NewClusterClient(opts)
		h := newHandle(client, cfg.Node.KeyPrefix)
		go h.start(0)
		return h, nil
	}
}

// backoffBounds samples the pluggable retry strategy onto the fixed
// min/max bounds the driver understands. A strategy that stops on the
// first attempt yields -1 bounds; go-redis reads 0 as "use the built-in
// default backoff" and -1 as "no backoff at all".
func backoffBounds(strategy config.RetryStrategy) (time.Duration, time.Duration) {
	if strategy == nil {
		strategy = config.DefaultRetryStrategy
	}
	minBackoff, ok := strategy(1)
	if !ok {
		return -1, -1
	}
	maxBackoff := minBackoff
	for attempt := 2; attempt <= 32; attempt++ {
		delay, ok := strategy(attempt)
		if !ok {
			break
		}
		if delay > maxBackoff {
			maxBackoff = delay
		}
	}
	return minBackoff, maxBackoff
}
