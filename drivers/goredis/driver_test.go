package goredis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/redlink/config"
	"github.com/timzifer/redlink/transport"
)

func TestPendingSignalsReplayedToFirstSubscriber(t *testing.T) {
	h := newHandle(nil, "")

	h.emit(transport.SignalWait)
	h.emit(transport.SignalConnect)
	h.emit(transport.SignalReady)

	var got []transport.Signal
	cancel := h.Subscribe(func(sig transport.Signal, _ ...any) {
		got = append(got, sig)
	})
	defer cancel()

	require.Equal(t, []transport.Signal{transport.SignalWait, transport.SignalConnect, transport.SignalReady}, got)

	// Later signals are delivered live, not buffered.
	h.emit(transport.SignalReconnecting)
	require.Equal(t, transport.SignalReconnecting, got[len(got)-1])
}

func TestEmitDuringReplayKeepsOrder(t *testing.T) {
	h := newHandle(nil, "")

	h.emit(transport.SignalConnect)
	h.emit(transport.SignalSelect, 2)

	var got []transport.Signal
	cancel := h.Subscribe(func(sig transport.Signal, _ ...any) {
		got = append(got, sig)
		if sig == transport.SignalConnect {
			// Fires while the buffer is still draining; it must queue up
			// behind the remaining buffered signals.
			h.emit(transport.SignalReady)
		}
	})
	defer cancel()

	require.Equal(t, []transport.Signal{transport.SignalConnect, transport.SignalSelect, transport.SignalReady}, got)
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	h := newHandle(nil, "")

	count := 0
	cancel := h.Subscribe(func(transport.Signal, ...any) { count++ })
	h.emit(transport.SignalConnect)
	cancel()
	h.emit(transport.SignalReady)

	require.Equal(t, 1, count)
}

func TestInvokeUndefinedScript(t *testing.T) {
	h := newHandle(nil, "")

	_, err := h.Invoke(context.Background(), "missing", []string{"k"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not defined")
}

func TestClusterFactoryRejectsEmptyTopology(t *testing.T) {
	factory := NewClusterFactory()
	_, err := factory(config.ClusterConfig{})
	require.Error(t, err)
}

func TestBackoffBoundsSamplesStrategy(t *testing.T) {
	minBackoff, maxBackoff := backoffBounds(config.DefaultRetryStrategy)
	require.Equal(t, 100*time.Millisecond, minBackoff)
	require.Equal(t, 2*time.Second, maxBackoff)

	// Stopping on the first attempt disables backoff outright; zero would
	// tell the driver to fall back to its built-in backoff instead.
	stop := func(int) (time.Duration, bool) { return 0, false }
	minBackoff, maxBackoff = backoffBounds(stop)
	require.Equal(t, time.Duration(-1), minBackoff)
	require.Equal(t, time.Duration(-1), maxBackoff)

	fixed := func(int) (time.Duration, bool) { return 250 * time.Millisecond, true }
	minBackoff, maxBackoff = backoffBounds(fixed)
	require.Equal(t, 250*time.Millisecond, minBackoff)
	require.Equal(t, 250*time.Millisecond, maxBackoff)
}
