package config

// Configuration key constants
// These constants centralize all environment variable and configuration key names
// to eliminate magic strings and improve maintainability.

const (
	// Endpoint configuration keys
	KeyPrimaryURL = "PRIMARY_URL"
	KeyReplicaURL = "REPLICA_URL"

	// Probe configuration keys
	KeyProbeTimeoutMs = "PROBE_TIMEOUT_MS"

	// Reconnect configuration keys
	KeyReconnectAttempts  = "RECONNECT_ATTEMPTS"
	KeyReconnectBackoffMs = "RECONNECT_BACKOFF_MS"

	// Runner configuration keys
	KeyStatusIntervalSeconds = "STATUS_INTERVAL_SECONDS"
	KeyMetricsAddr           = "METRICS_ADDR"
	KeyConfigFile            = "TRACKER_CONFIG_FILE"
)

// Default values for configuration
const (
	DefaultPrimaryURL = "ws://localhost:3000/ws"
	DefaultReplicaURL = "ws://localhost:3001/ws"

	DefaultProbeTimeoutMs = 3000

	DefaultReconnectAttempts  = 3
	DefaultReconnectBackoffMs = 1000

	DefaultStatusIntervalSeconds = 10
)

// CLI flag name constants
const (
	// CLI flag names (kebab-case for command line)
	FlagPrimaryURL            = "primary-url"
	FlagReplicaURL            = "replica-url"
	FlagProbeTimeoutMs        = "probe-timeout-ms"
	FlagReconnectAttempts     = "reconnect-attempts"
	FlagReconnectBackoffMs    = "reconnect-backoff-ms"
	FlagStatusIntervalSeconds = "status-interval-seconds"
	FlagMetricsAddr           = "metrics-addr"
	FlagConfigFile            = "config"
	FlagVersion               = "version"
	FlagHelp                  = "help"
)

// Help message constants
const (
	AppName        = "Location Tracker"
	AppDescription = "Probe a primary and a replica endpoint, stay connected to one and measure round-trip latency"
	UsageFormat    = "tracker [OPTIONS]"

	// Help descriptions
	HelpPrimaryURL            = "Primary endpoint URL"
	HelpReplicaURL            = "Replica endpoint URL"
	HelpProbeTimeoutMs        = "Probe timeout in milliseconds"
	HelpReconnectAttempts     = "Connect attempts per endpoint before failing over"
	HelpReconnectBackoffMs    = "Backoff step between connect attempts in milliseconds"
	HelpStatusIntervalSeconds = "Status print interval in seconds"
	HelpMetricsAddr           = "Listen address for /metrics (disabled when empty)"
	HelpConfigFile            = "Path to a YAML config file"
	HelpShowVersion           = "Show version information"
	HelpShowHelp              = "Show this help message"

	// Environment variable descriptions (reuse help descriptions)
	EnvDescPrimaryURL            = "Primary endpoint URL"
	EnvDescReplicaURL            = "Replica endpoint URL"
	EnvDescProbeTimeoutMs        = "Probe timeout in milliseconds"
	EnvDescReconnectAttempts     = "Connect attempts per endpoint"
	EnvDescReconnectBackoffMs    = "Backoff step in milliseconds"
	EnvDescStatusIntervalSeconds = "Status print interval in seconds"
	EnvDescMetricsAddr           = "Metrics listen address"
	EnvDescConfigFile            = "YAML config file"

	// Help section headers
	HelpOptions         = "Options:"
	HelpEnvironmentVars = "Environment Variables:"
	HelpUsage           = "Usage:"
	HelpNote            = "Note: CLI options override environment variables, which override the config file"
)
