package manager

// Lifecycle event names published on the shared bus.
const (
	EventConnectionAttempt      = "connectionAttempt"
	EventConnectionEstablished  = "connectionEstablished"
	EventConnectionError        = "connectionError"
	EventConnectionClosed       = "connectionClosed"
	EventConnectionReconnecting = "connectionReconnecting"
	EventConnectionEnded        = "connectionEnded"
	EventLuaCommandDefined      = "luaCommandDefined"
	EventClosingAllConnections  = "closingAllConnections"
	EventAllConnectionsClosed   = "allConnectionsClosed"
	EventError                  = "error"

	// EventAggregated is the single channel carrying every raw transport
	// signal of every connection, with the connection name in the payload.
	EventAggregated = "redis"
)
