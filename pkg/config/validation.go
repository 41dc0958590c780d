package config

import (
	"fmt"
	"net/url"
)

func (c *Config) validate() error {
	if c.PrimaryURL == "" {
		return fmt.Errorf("%s is required", KeyPrimaryURL)
	}
	if c.ReplicaURL == "" {
		return fmt.Errorf("%s is required", KeyReplicaURL)
	}
	if err := validateEndpointURL(KeyPrimaryURL, c.PrimaryURL); err != nil {
		return err
	}
	if err := validateEndpointURL(KeyReplicaURL, c.ReplicaURL); err != nil {
		return err
	}
	if c.PrimaryURL == c.ReplicaURL {
		return fmt.Errorf("%s and %s must differ", KeyPrimaryURL, KeyReplicaURL)
	}
	if c.Probe.TimeoutMs <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyProbeTimeoutMs, c.Probe.TimeoutMs)
	}
	if c.Reconnect.Attempts <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyReconnectAttempts, c.Reconnect.Attempts)
	}
	if c.Reconnect.BackoffMs < 0 {
		return fmt.Errorf("%s must not be negative, got %d", KeyReconnectBackoffMs, c.Reconnect.BackoffMs)
	}
	if c.Runner.StatusIntervalSeconds <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyStatusIntervalSeconds, c.Runner.StatusIntervalSeconds)
	}
	return nil
}

func validateEndpointURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("%s must use ws, wss, http or https, got %q", key, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", key)
	}
	return nil
}
