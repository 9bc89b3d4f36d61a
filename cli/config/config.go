package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"time"
)

// Config represents a tfc.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// ServerConfig holds defaults for tfc serve.
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	Root         string   `yaml:"root"`
	MaxChunkSize int      `yaml:"max_chunk_size"`
	IOTimeout    Duration `yaml:"io_timeout"`
}

// ClientConfig holds defaults for upload, download and delete.
type ClientConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	ChunkSize   int      `yaml:"chunk_size"`
	Compress    bool     `yaml:"compress"`
	Overwrite   bool     `yaml:"overwrite"`
	DialTimeout Duration `yaml:"dial_timeout"`
	IOTimeout   Duration `yaml:"io_timeout"`
}

// LogConfig selects the log level (debug, info, warn, error).
type LogConfig struct {
	Level string `yaml:"level"`
}

// JournalConfig configures the server's transfer journal.
// An empty backend disables it.
type JournalConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// NotifyConfig configures completion notifications. An empty type
// disables them.
type NotifyConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Addr joins host and port; an empty host stays empty (all interfaces).
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Validate checks enumerated and ranged values.
func (c *Config) Validate() error {
	var errs []error

	for name, port := range map[string]int{"server.port": c.Server.Port, "client.port": c.Client.Port} {
		if port < 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s out of range: %d", name, port))
		}
	}
	for name, size := range map[string]int{"server.max_chunk_size": c.Server.MaxChunkSize, "client.chunk_size": c.Client.ChunkSize} {
		if size < 0 || int64(size) > math.MaxUint32 {
			errs = append(errs, fmt.Errorf("%s must be in [0, %d], got %d", name, uint32(math.MaxUint32), size))
		}
	}

	switch c.Journal.Backend {
	case "":
	case "fs", "s3":
		if c.Journal.Path == "" {
			errs = append(errs, fmt.Errorf("journal.path is required for backend %q", c.Journal.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("journal.backend must be fs or s3, got %q", c.Journal.Backend))
	}

	switch c.Notify.Type {
	case "":
	case "webhook", "redis":
		if c.Notify.URL == "" {
			errs = append(errs, fmt.Errorf("notify.url is required for type %q", c.Notify.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("notify.type must be webhook or redis, got %q", c.Notify.Type))
	}
	if c.Notify.Retries != nil && *c.Notify.Retries < 0 {
		errs = append(errs, fmt.Errorf("notify.retries must be >= 0, got %d", *c.Notify.Retries))
	}

	return errors.Join(errs...)
}
