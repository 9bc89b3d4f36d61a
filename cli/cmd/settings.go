package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/tfc/cli/config"
	"github.com/pithecene-io/tfc/client"
	"github.com/pithecene-io/tfc/journal"
	"github.com/pithecene-io/tfc/log"
)

const defaultPort = 7070

// loadConfig reads --config, returning an empty config when unset.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// newLogger builds a logger; --log-level wins over log.level.
func newLogger(c *cli.Context, cfg *config.Config, role log.Role, addr string) (*log.Logger, error) {
	name := cfg.Log.Level
	if c.IsSet("log-level") {
		name = c.String("log-level")
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return log.NewLogger(role, addr, level), nil
}

// pickString returns the flag value when set, then the config value, then
// the flag default.
func pickString(c *cli.Context, flag, fromConfig string) string {
	if c.IsSet(flag) || fromConfig == "" {
		return c.String(flag)
	}
	return fromConfig
}

func pickInt(c *cli.Context, flag string, fromConfig int) int {
	if c.IsSet(flag) || fromConfig == 0 {
		return c.Int(flag)
	}
	return fromConfig
}

func pickBool(c *cli.Context, flag string, fromConfig bool) bool {
	if c.IsSet(flag) {
		return c.Bool(flag)
	}
	return fromConfig || c.Bool(flag)
}

func pickDuration(c *cli.Context, flag string, fromConfig config.Duration) time.Duration {
	if c.IsSet(flag) || fromConfig.Duration == 0 {
		return c.Duration(flag)
	}
	return fromConfig.Duration
}

// clientConfig merges flags over the client config section.
func clientConfig(c *cli.Context, cfg *config.Config) client.Config {
	host := pickString(c, "host", cfg.Client.Host)
	port := pickInt(c, "port", cfg.Client.Port)
	return client.Config{
		Addr:        config.Addr(host, port),
		ChunkSize:   pickInt(c, "chunk-size", cfg.Client.ChunkSize),
		Compress:    pickBool(c, "compress", cfg.Client.Compress),
		Resume:      !pickBool(c, "overwrite", cfg.Client.Overwrite),
		DialTimeout: pickDuration(c, "dial-timeout", cfg.Client.DialTimeout),
		IOTimeout:   pickDuration(c, "io-timeout", cfg.Client.IOTimeout),
	}
}

// journalChoice is the merged journal configuration.
type journalChoice struct {
	backend     string
	path        string
	region      string
	endpoint    string
	s3PathStyle bool
}

func journalSettings(c *cli.Context, cfg *config.Config) journalChoice {
	return journalChoice{
		backend:     pickString(c, "journal-backend", cfg.Journal.Backend),
		path:        pickString(c, "journal-path", cfg.Journal.Path),
		region:      pickString(c, "journal-s3-region", cfg.Journal.Region),
		endpoint:    pickString(c, "journal-s3-endpoint", cfg.Journal.Endpoint),
		s3PathStyle: pickBool(c, "journal-s3-path-style", cfg.Journal.S3PathStyle),
	}
}

// openJournal opens the selected journal, or returns nil when disabled.
func openJournal(ctx context.Context, choice journalChoice) (*journal.Journal, error) {
	switch choice.backend {
	case "":
		return nil, nil
	case "fs":
		if choice.path == "" {
			return nil, fmt.Errorf("--journal-path is required for the fs journal")
		}
		if err := os.MkdirAll(choice.path, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
		return journal.NewFS(choice.path)
	case "s3":
		bucket, prefix := journal.ParseS3Path(choice.path)
		return journal.NewS3(ctx, journal.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       choice.region,
			Endpoint:     choice.endpoint,
			UsePathStyle: choice.s3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown journal backend %q (must be fs or s3)", choice.backend)
	}
}

// isStderrTTY returns true if stderr is a terminal.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
