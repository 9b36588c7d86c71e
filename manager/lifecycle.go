package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/timzifer/redlink/events"
	"github.com/timzifer/redlink/scripts"
	"github.com/timzifer/redlink/transport"
)

// AggregatedSignal is the payload carried by every EventAggregated event:
// one raw transport signal, qualified with its connection name.
type AggregatedSignal struct {
	Connection string
	Signal     string
	Args       []any
}

// establish runs one connection through its state machine: subscribe to the
// transport's signals, announce the attempt, wait for readiness, bind the
// requested scripts and commit the record. On any failure the caller
// releases the name reservation.
func (m *Manager) establish(ctx context.Context, name string, logger zerolog.Logger, rec *record, scriptNames []string, open func() (transport.Handle, error)) (*Connection, error) {
	logger = logger.With().Str("connection", name).Logger()

	handle, err := open()
	if err != nil {
		m.publish(name, EventConnectionError, err)
		logger.Error().Err(err).Msg("open transport failed")
		return nil, &TransportError{Name: name, Err: err}
	}

	conn := &Connection{name: name, handle: handle, collector: m.collector}
	conn.closer = func(ctx context.Context) error {
		return m.closeConnection(ctx, name)
	}
	rec.conn = conn

	ready := make(chan struct{}, 1)
	failed := make(chan error, 1)
	rec.cancel = handle.Subscribe(m.forwardSignals(name, conn, ready, failed))

	conn.setState(StateConnecting)
	m.publish(name, EventConnectionAttempt)
	logger.Debug().Msg("connecting")

	fail := func(cause error) (*Connection, error) {
		conn.setState(StateFailed)
		rec.cancel()
		_ = handle.Shutdown(context.Background())
		m.publish(name, EventConnectionError, cause)
		logger.Error().Err(cause).Msg("connect failed")
		return nil, &TransportError{Name: name, Err: cause}
	}

	select {
	case <-ready:
	case err := <-failed:
		return fail(err)
	case <-ctx.Done():
		return fail(ctx.Err())
	}

	// Bind the requested scripts. Definitions are snapshotted here; later
	// registry changes never rebind an existing connection. Unknown names
	// are skipped, matching the registry's best-effort bulk lookup.
	defs := m.registry.GetMany(scriptNames)
	bound := make(map[string]scripts.Definition, len(defs))
	for _, scriptName := range scriptNames {
		def, ok := defs[scriptName]
		if !ok {
			logger.Warn().Str("script", scriptName).Msg("script not registered, skipping bind")
			continue
		}
		if _, dup := bound[def.Name]; dup {
			continue
		}
		if err := handle.Define(ctx, def.Name, def.KeyArity, def.Body); err != nil {
			return fail(fmt.Errorf("define script %s: %w", def.Name, err))
		}
		bound[def.Name] = def
		m.collector.IncScriptBound(def.Name)
		m.publish(name, EventLuaCommandDefined, def.Name)
	}
	conn.bound = bound

	conn.setState(StateConnected)
	m.mu.Lock()
	rec.active = true
	m.collector.SetActiveConnections(m.activeLocked())
	m.mu.Unlock()
	m.publish(name, EventConnectionEstablished)
	logger.Info().Strs("scripts", conn.BoundScripts()).Msg("connection established")
	return conn, nil
}

// forwardSignals re-emits every raw transport signal on both channels: the
// connection-qualified "<name>:<signal>" event and the aggregated channel.
// It also drives the state machine edges owned by the transport.
func (m *Manager) forwardSignals(name string, conn *Connection, ready chan struct{}, failed chan error) transport.SignalHandler {
	return func(sig transport.Signal, args ...any) {
		m.bus.Publish(events.Event{Name: name + ":" + string(sig), Connection: name, Args: args})
		m.bus.Publish(events.Event{
			Name:       EventAggregated,
			Connection: name,
			Args:       []any{AggregatedSignal{Connection: name, Signal: string(sig), Args: args}},
		})

		switch sig {
		case transport.SignalReady:
			if conn.State() == StateReconnecting {
				conn.setState(StateConnected)
			}
			select {
			case ready <- struct{}{}:
			default:
			}
		case transport.SignalError:
			err := signalError(args)
			if conn.State() == StateConnecting {
				// Surfaced once by the in-flight create call, which also
				// broadcasts connectionError.
				select {
				case failed <- err:
				default:
				}
				return
			}
			m.publish(name, EventError, err)
		case transport.SignalReconnecting:
			if conn.State() == StateConnected {
				conn.setState(StateReconnecting)
			}
			m.publish(name, EventConnectionReconnecting, args...)
		case transport.SignalEnd:
			m.publish(name, EventConnectionEnded, args...)
		}
	}
}

func signalError(args []any) error {
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			return err
		}
	}
	return errors.New("transport error")
}
