package manager

// State tracks one connection through its lifecycle.
//
// The machine is INIT → CONNECTING → CONNECTED → CLOSING → CLOSED, with a
// CONNECTED ↔ RECONNECTING loop on transient transport loss and a terminal
// CONNECTING → FAILED edge on unrecoverable connect errors.
type State int32

const (
	StateInit State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}
