package config

import (
	"os"
	"time"
)

type Config struct {
	PrimaryURL string
	ReplicaURL string
	ConfigFile string
	Probe      ProbeConfig
	Reconnect  ReconnectConfig
	Runner     RunnerConfig
}

type ProbeConfig struct {
	TimeoutMs int
}

type ReconnectConfig struct {
	Attempts  int
	BackoffMs int
}

type RunnerConfig struct {
	StatusIntervalSeconds int
	MetricsAddr           string
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		PrimaryURL: DefaultPrimaryURL,
		ReplicaURL: DefaultReplicaURL,
		Probe:      ProbeConfig{TimeoutMs: DefaultProbeTimeoutMs},
		Reconnect: ReconnectConfig{
			Attempts:  DefaultReconnectAttempts,
			BackoffMs: DefaultReconnectBackoffMs,
		},
		Runner: RunnerConfig{StatusIntervalSeconds: DefaultStatusIntervalSeconds},
	}
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutMs) * time.Millisecond
}

func (c *Config) ReconnectBackoff() time.Duration {
	return time.Duration(c.Reconnect.BackoffMs) * time.Millisecond
}

func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Runner.StatusIntervalSeconds) * time.Second
}

// Options signals what the command line asked for besides configuration.
type Options struct {
	ShowHelp    bool
	ShowVersion bool
}

// Load loads configuration from CLI flags, environment variables and an
// optional config file. CLI flags take precedence over environment
// variables, which take precedence over the file.
func Load() (*Config, Options, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs is Load with explicit command-line arguments.
func LoadArgs(args []string) (*Config, Options, error) {
	flagSource, opts, err := parseCLIFlags(args)
	if err != nil {
		return nil, opts, err
	}
	if opts.ShowHelp || opts.ShowVersion {
		return nil, opts, nil
	}

	env := &EnvSource{}
	configFile := NewConfigResolver(flagSource, env).ResolveString(KeyConfigFile, "")
	fileSource, err := NewFileSource(configFile)
	if err != nil {
		return nil, opts, err
	}

	// Create resolver with precedence: CLI flags > Environment variables > File
	resolver := NewConfigResolver(flagSource, env, fileSource)

	cfg := &Config{
		PrimaryURL: resolver.ResolveString(KeyPrimaryURL, DefaultPrimaryURL),
		ReplicaURL: resolver.ResolveString(KeyReplicaURL, DefaultReplicaURL),
		ConfigFile: configFile,
		Probe: ProbeConfig{
			TimeoutMs: resolver.ResolveInt(KeyProbeTimeoutMs, DefaultProbeTimeoutMs),
		},
		Reconnect: ReconnectConfig{
			Attempts:  resolver.ResolveInt(KeyReconnectAttempts, DefaultReconnectAttempts),
			BackoffMs: resolver.ResolveInt(KeyReconnectBackoffMs, DefaultReconnectBackoffMs),
		},
		Runner: RunnerConfig{
			StatusIntervalSeconds: resolver.ResolveInt(KeyStatusIntervalSeconds, DefaultStatusIntervalSeconds),
			MetricsAddr:           resolver.ResolveString(KeyMetricsAddr, ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, opts, err
	}
	return cfg, opts, nil
}
