package config

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Documented connection defaults applied by ConnectionConfig.WithDefaults.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 6379
	DefaultDB   = 0

	// DefaultMaxRedirections bounds cluster MOVED/ASK redirection chains.
	DefaultMaxRedirections = 16

	// DefaultScaleReads routes cluster reads to replicas.
	DefaultScaleReads = "slave"
)

// ConnectionConfig describes how to reach a single backing-store node.
//
// Zero values are replaced by documented defaults when the configuration is
// handed to a transport factory. The boolean options are named so that the
// zero value IS the documented default: offline queue and friendly error
// stacks enabled, auto-pipelining disabled. Timeouts are passed through
// verbatim; the transport owns their enforcement.
type ConnectionConfig struct {
	Host      string
	Port      int
	DB        int
	KeyPrefix string
	Password  string
	TLS       *tls.Config

	EnableAutoPipelining      bool
	DisableFriendlyErrorStack bool
	DisableOfflineQueue       bool

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Logger overrides the manager's logger for this connection only.
	Logger *zerolog.Logger
}

// WithDefaults returns a copy with documented defaults merged over unset
// fields: host 127.0.0.1, port 6379, db 0. The boolean options need no
// merging; their zero values already carry the documented defaults.
func (c ConnectionConfig) WithDefaults() ConnectionConfig {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.DB < 0 {
		c.DB = DefaultDB
	}
	return c
}

// NewConnectionConfig returns a configuration carrying the documented
// defaults.
func NewConnectionConfig() ConnectionConfig {
	return ConnectionConfig{}.WithDefaults()
}

// OfflineQueueEnabled reports whether commands issued while the transport
// is (re)connecting may be queued instead of rejected.
func (c ConnectionConfig) OfflineQueueEnabled() bool {
	return !c.DisableOfflineQueue
}

// FriendlyErrorStackEnabled reports whether script errors carry decorated
// call-site stacks on transports that support them.
func (c ConnectionConfig) FriendlyErrorStackEnabled() bool {
	return !c.DisableFriendlyErrorStack
}

// Addr renders the host:port pair for the transport.
func (c ConnectionConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NodeAddress identifies one cluster seed node.
type NodeAddress struct {
	Host string
	Port int
}

// Addr renders the host:port pair for the transport.
func (n NodeAddress) Addr() string {
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

// RetryStrategy maps a reconnect attempt counter to a delay. Returning
// ok=false stops further retries.
type RetryStrategy func(attempt int) (delay time.Duration, ok bool)

// DefaultRetryStrategy backs off linearly at 100ms per attempt, capped at 2s.
func DefaultRetryStrategy(attempt int) (time.Duration, bool) {
	delay := time.Duration(attempt) * 100 * time.Millisecond
	if delay > 2*time.Second {
		delay = 2 * time.Second
	}
	return delay, true
}

// ClusterConfig describes a sharded-cluster topology.
//
// Node carries per-node connection defaults applied to every member of the
// cluster; Nodes is the seed list and must not be empty.
type ClusterConfig struct {
	Nodes           []NodeAddress
	ScaleReads      string
	MaxRedirections int
	RetryStrategy   RetryStrategy
	Node            ConnectionConfig
}

// WithDefaults merges cluster-wide defaults: scaleReads "slave", 16 max
// redirections, linear capped retry backoff, plus per-node connection
// defaults.
func (c ClusterConfig) WithDefaults() ClusterConfig {
	if c.ScaleReads == "" {
		c.ScaleReads = DefaultScaleReads
	}
	if c.MaxRedirections == 0 {
		c.MaxRedirections = DefaultMaxRedirections
	}
	if c.RetryStrategy == nil {
		c.RetryStrategy = DefaultRetryStrategy
	}
	c.Node = c.Node.WithDefaults()
	return c
}

// Validate rejects topologies without at least one usable seed node.
func (c ClusterConfig) Validate() error {
	if len(c.Nodes) == 0 {
		return fmt.Errorf("config: cluster requires at least one node")
	}
	for i, node := range c.Nodes {
		if node.Host == "" {
			return fmt.Errorf("config: cluster node %d: host is required", i)
		}
	}
	return nil
}
