// Package config provides centralized configuration management for histnorm.
//
// Values are layered, lowest to highest precedence: built-in defaults, an
// optional YAML file, HISTNORM_* environment variables (plus the aliases
// DATABASE_URL and OK_API_KEY), and command-line flags. The result is
// validated on load so misconfiguration fails fast.
package config

import (
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Paths    PathsConfig    `koanf:"paths"`
	Remote   RemoteConfig   `koanf:"remote"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// PathsConfig locates catalogues, inputs and outputs. Empty paths are
// derived from DataDir.
type PathsConfig struct {
	// DataDir is the root of the data tree (default: data)
	DataDir string `koanf:"data_dir"`

	// SourcesFile is the source catalogue (default: <data>/historical/sources.yaml)
	SourcesFile string `koanf:"sources_file"`

	// RegionsFile is the region definitions (default: <data>/model/regions.yaml)
	RegionsFile string `koanf:"regions_file"`

	// InputDir holds <ID>_input.csv files (default: <data>/historical/input)
	InputDir string `koanf:"input_dir"`

	// OutputDir receives the cleaned views (default: <data>/historical/output)
	OutputDir string `koanf:"output_dir"`

	// CacheDir receives fetched sources (default: same as InputDir)
	CacheDir string `koanf:"cache_dir"`
}

// RemoteConfig configures the statistical API clients.
type RemoteConfig struct {
	// SDMXProviders overrides or adds SDMX base URLs by agency name
	SDMXProviders map[string]string `koanf:"sdmx_providers"`

	// OpenKAPSARCURL is the OpenKAPSARC API root
	OpenKAPSARCURL string `koanf:"openkapsarc_url"`

	// APIKey is the OpenKAPSARC API key; also read from OK_API_KEY
	APIKey string `koanf:"api_key"`

	// Timeout bounds a single download (default: 60s)
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds settings for the optional PostgreSQL sink.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string; empty disables publishing.
	// Also read from DATABASE_URL.
	URL string `koanf:"url"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `koanf:"max_conns"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `koanf:"min_conns"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `koanf:"host"`

	// Port is the port to listen on (default: 8080)
	Port int `koanf:"port"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response (default: 10m)
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// ProcessWait is how long a request waits for the run slot (default: 30s)
	ProcessWait time.Duration `koanf:"process_wait"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `koanf:"level"`

	// Format is the log format: text or json (default: text)
	Format string `koanf:"format"`
}

// defaults are loaded before every other layer.
var defaults = map[string]any{
	"paths.data_dir":              "data",
	"remote.openkapsarc_url":      "https://datasource.kapsarc.org",
	"remote.timeout":              "60s",
	"database.max_conns":          4,
	"database.min_conns":          0,
	"database.max_conn_lifetime":  "1h",
	"database.max_conn_idle_time": "30m",
	"server.host":                 "127.0.0.1",
	"server.port":                 8080,
	"server.read_timeout":         "15s",
	"server.write_timeout":        "10m",
	"server.idle_timeout":         "60s",
	"server.shutdown_timeout":     "30s",
	"server.request_timeout":      "5m",
	"server.process_wait":         "30s",
	"logging.level":               "info",
	"logging.format":              "text",
}

// resolve fills empty paths from DataDir.
func (p *PathsConfig) resolve() {
	if p.SourcesFile == "" {
		p.SourcesFile = filepath.Join(p.DataDir, "historical", "sources.yaml")
	}
	if p.RegionsFile == "" {
		p.RegionsFile = filepath.Join(p.DataDir, "model", "regions.yaml")
	}
	if p.InputDir == "" {
		p.InputDir = filepath.Join(p.DataDir, "historical", "input")
	}
	if p.OutputDir == "" {
		p.OutputDir = filepath.Join(p.DataDir, "historical", "output")
	}
	if p.CacheDir == "" {
		p.CacheDir = p.InputDir
	}
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
