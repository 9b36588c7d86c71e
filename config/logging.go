package config

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool
	URL     string
	Labels  map[string]string
}

// LoggingConfig controls the service logger.
//
// Format accepts "json" (default) or "text" for console output. Level accepts
// any zerolog level string; empty means info.
type LoggingConfig struct {
	Level  string
	Format string
	Loki   LokiConfig
}
