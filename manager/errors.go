package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrNameRequired rejects a create call with an empty connection name.
	ErrNameRequired = errors.New("manager: connection name is required")

	// ErrDuplicateName rejects a create call whose name is already reserved
	// or active.
	ErrDuplicateName = errors.New("manager: connection name already in use")

	// ErrNotFound reports a lookup for a name with no active connection.
	ErrNotFound = errors.New("manager: connection not found")

	// ErrInvalidTopology rejects cluster configurations without a usable
	// node list.
	ErrInvalidTopology = errors.New("manager: invalid cluster topology")

	// ErrScriptNotBound reports an invocation of a script that was not
	// bound onto the connection at creation time.
	ErrScriptNotBound = errors.New("manager: script not bound")
)

// TransportError wraps an asynchronous connect, auth or timeout failure
// reported by the backing-store transport. It is surfaced exactly once as
// the rejection of the in-flight creation call; passive observers receive
// the matching connectionError event.
type TransportError struct {
	Name string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("manager: connection %s: transport: %v", e.Name, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
