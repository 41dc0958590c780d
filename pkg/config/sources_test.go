package config

import (
	"testing"
)

func TestEnvSource(t *testing.T) {
	envSource := &EnvSource{}

	t.Run("GetString", func(t *testing.T) {
		t.Setenv(KeyPrimaryURL, "ws://primary")

		if value, found := envSource.GetString(KeyPrimaryURL); !found || value != "ws://primary" {
			t.Errorf("expected 'ws://primary', got '%s' (found: %v)", value, found)
		}
		if _, found := envSource.GetString("MISSING_STRING"); found {
			t.Error("expected not to find MISSING_STRING")
		}
	})

	t.Run("GetInt", func(t *testing.T) {
		t.Setenv(KeyProbeTimeoutMs, "1500")
		t.Setenv(KeyReconnectAttempts, "three")

		if value, found := envSource.GetInt(KeyProbeTimeoutMs); !found || value != 1500 {
			t.Errorf("expected 1500, got %d (found: %v)", value, found)
		}
		if _, found := envSource.GetInt(KeyReconnectAttempts); found {
			t.Error("expected an unparseable int to be ignored")
		}
		if _, found := envSource.GetInt("MISSING_INT"); found {
			t.Error("expected not to find MISSING_INT")
		}
	})

	t.Run("empty env var", func(t *testing.T) {
		t.Setenv("EMPTY_VAR", "")
		if _, found := envSource.GetString("EMPTY_VAR"); found {
			t.Error("expected not to find empty env var")
		}
	})
}

func TestFlagSource(t *testing.T) {
	flagSource := NewFlagSource()
	flagSource.Set(KeyPrimaryURL, "ws://primary")
	flagSource.Set(KeyReplicaURL, "")
	flagSource.Set(KeyReconnectBackoffMs, 0)
	flagSource.Set("WRONG_INT", "12")

	if value, found := flagSource.GetString(KeyPrimaryURL); !found || value != "ws://primary" {
		t.Errorf("expected 'ws://primary', got '%s' (found: %v)", value, found)
	}
	if _, found := flagSource.GetString(KeyReplicaURL); found {
		t.Error("expected empty string not to be found")
	}
	if value, found := flagSource.GetInt(KeyReconnectBackoffMs); !found || value != 0 {
		t.Errorf("expected explicit zero int to be found, got %d (found: %v)", value, found)
	}
	if _, found := flagSource.GetInt("WRONG_INT"); found {
		t.Error("expected not to find int for string value")
	}
	if _, found := flagSource.GetString(KeyReconnectBackoffMs); found {
		t.Error("expected not to find string for int value")
	}
}

func TestFileSource(t *testing.T) {
	t.Run("reads yaml keys case-insensitively", func(t *testing.T) {
		path := writeConfigFile(t, "primary_url: ws://file-primary\nprobe_timeout_ms: 1200\nreconnect_backoff_ms: 0\n")
		file, err := NewFileSource(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if file.Used() != path {
			t.Errorf("expected file %s to be used, got %s", path, file.Used())
		}
		if value, found := file.GetString(KeyPrimaryURL); !found || value != "ws://file-primary" {
			t.Errorf("expected 'ws://file-primary', got '%s' (found: %v)", value, found)
		}
		if value, found := file.GetInt(KeyProbeTimeoutMs); !found || value != 1200 {
			t.Errorf("expected 1200, got %d (found: %v)", value, found)
		}
		if value, found := file.GetInt(KeyReconnectBackoffMs); !found || value != 0 {
			t.Errorf("expected explicit zero, got %d (found: %v)", value, found)
		}
		if _, found := file.GetString(KeyReplicaURL); found {
			t.Error("expected missing key not to be found")
		}
	})

	t.Run("empty path", func(t *testing.T) {
		file, err := NewFileSource("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, found := file.GetString(KeyPrimaryURL); found {
			t.Error("expected an empty source")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := NewFileSource("/nonexistent/tracker.yaml"); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		if _, err := NewFileSource(writeConfigFile(t, "primary_url: [unterminated\n")); err == nil {
			t.Fatal("expected error for malformed yaml")
		}
	})
}
