package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// ConfigSource represents a source of configuration values
type ConfigSource interface {
	GetString(key string) (string, bool)
	GetInt(key string) (int, bool)
}

// EnvSource implements ConfigSource for environment variables
type EnvSource struct{}

func (e *EnvSource) GetString(key string) (string, bool) {
	value := os.Getenv(key)
	return value, value != ""
}

func (e *EnvSource) GetInt(key string) (int, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i, true
	}
	return 0, false
}

// FlagSource implements ConfigSource for command-line flags
type FlagSource struct {
	values map[string]interface{}
}

func NewFlagSource() *FlagSource {
	return &FlagSource{values: make(map[string]interface{})}
}

func (f *FlagSource) Set(key string, value interface{}) {
	f.values[key] = value
}

func (f *FlagSource) GetString(key string) (string, bool) {
	if value, exists := f.values[key]; exists {
		if str, ok := value.(string); ok && str != "" {
			return str, true
		}
	}
	return "", false
}

func (f *FlagSource) GetInt(key string) (int, bool) {
	if value, exists := f.values[key]; exists {
		if i, ok := value.(int); ok {
			return i, true
		}
	}
	return 0, false
}

// FileSource implements ConfigSource for a YAML config file. Keys are the
// lower-cased environment names, e.g. primary_url.
type FileSource struct {
	v *viper.Viper
}

// NewFileSource reads path. An empty path yields a source with no values.
func NewFileSource(path string) (*FileSource, error) {
	v := viper.New()
	if path == "" {
		return &FileSource{v: v}, nil
	}
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return &FileSource{v: v}, nil
}

// Used returns the file the values came from, or "".
func (f *FileSource) Used() string { return f.v.ConfigFileUsed() }

func fileKey(key string) string { return strings.ToLower(key) }

func (f *FileSource) GetString(key string) (string, bool) {
	k := fileKey(key)
	if !f.v.IsSet(k) {
		return "", false
	}
	value := f.v.GetString(k)
	return value, value != ""
}

func (f *FileSource) GetInt(key string) (int, bool) {
	k := fileKey(key)
	if !f.v.IsSet(k) {
		return 0, false
	}
	i, err := strconv.Atoi(f.v.GetString(k))
	if err != nil {
		return 0, false
	}
	return i, true
}
