// Package cmd provides CLI commands for the tfc binary.
package cmd

import "github.com/urfave/cli/v2"

// Global flags.
var (
	// ConfigFlag points at a tfc.yaml whose values act as flag defaults.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to tfc.yaml config file",
		EnvVars: []string{"TFC_CONFIG"},
	}

	// LogLevelFlag overrides log.level.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}
)

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode",
	}
)

// GlobalFlags returns the flags accepted before any command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		LogLevelFlag,
	}
}

// OutputFlags returns the shared output flags.
// Includes --tui so that commands without a TUI can reject it explicitly
// instead of failing with "flag not defined".
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		TUIFlag,
	}
}

// ClientFlags returns the connection and transfer flags shared by upload,
// download and delete. Unset flags fall back to the client config section.
func ClientFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "Server host",
			Value: "127.0.0.1",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Server port",
			Value:   defaultPort,
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Maximum chunk payload in bytes",
		},
		&cli.BoolFlag{
			Name:  "compress",
			Usage: "Compress chunk payloads with zlib",
		},
		&cli.BoolFlag{
			Name:  "overwrite",
			Usage: "Discard any partial destination instead of resuming",
		},
		&cli.DurationFlag{
			Name:  "dial-timeout",
			Usage: "Connection timeout",
		},
		&cli.DurationFlag{
			Name:  "io-timeout",
			Usage: "Per-request read/write timeout",
		},
	}, OutputFlags()...)
}

// JournalFlags select a journal backend; serve writes to it and journal
// reads from it.
func JournalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "journal-backend",
			Usage: "Journal backend: fs or s3 (empty disables)",
		},
		&cli.StringFlag{
			Name:  "journal-path",
			Usage: "Journal location (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "journal-s3-region",
			Usage: "AWS region for the S3 journal (optional, uses default chain)",
		},
		&cli.StringFlag{
			Name:  "journal-s3-endpoint",
			Usage: "Custom S3 endpoint (MinIO, R2)",
		},
		&cli.BoolFlag{
			Name:  "journal-s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
	}
}
