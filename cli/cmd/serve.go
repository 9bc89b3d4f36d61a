package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/tfc/adapter"
	"github.com/pithecene-io/tfc/adapter/redis"
	"github.com/pithecene-io/tfc/adapter/webhook"
	"github.com/pithecene-io/tfc/cli/config"
	"github.com/pithecene-io/tfc/log"
	"github.com/pithecene-io/tfc/metrics"
	"github.com/pithecene-io/tfc/server"
)

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve a directory over the transfer protocol",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (empty listens on all interfaces)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port",
				Value:   defaultPort,
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Directory to serve (default: current directory)",
			},
			&cli.IntFlag{
				Name:  "max-chunk-size",
				Usage: "Largest chunk a client may request or send",
			},
			&cli.DurationFlag{
				Name:  "io-timeout",
				Usage: "Per-connection read/write timeout",
			},
			&cli.StringFlag{
				Name:  "notify",
				Usage: "Completion notifier: webhook or redis (empty disables)",
			},
			&cli.StringFlag{
				Name:  "notify-url",
				Usage: "Webhook URL or redis:// URL",
			},
			&cli.StringFlag{
				Name:  "notify-channel",
				Usage: "Redis channel (default " + redis.DefaultChannel + ")",
			},
		}, JournalFlags()...),
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitApplication)
	}

	addr := config.Addr(pickString(c, "host", cfg.Server.Host), pickInt(c, "port", cfg.Server.Port))
	logger, err := newLogger(c, cfg, log.RoleServer, addr)
	if err != nil {
		return cli.Exit(err.Error(), exitApplication)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	jrnl, err := openJournal(ctx, journalSettings(c, cfg))
	if err != nil {
		return cli.Exit(fmt.Sprintf("journal: %v", err), exitApplication)
	}
	notifier, err := buildNotifier(c, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("notify: %v", err), exitApplication)
	}

	scfg := server.Config{
		Root:         pickString(c, "root", cfg.Server.Root),
		MaxChunkSize: pickInt(c, "max-chunk-size", cfg.Server.MaxChunkSize),
		IOTimeout:    pickDuration(c, "io-timeout", cfg.Server.IOTimeout),
		Logger:       logger,
		Metrics:      metrics.NewCollector(string(log.RoleServer)),
	}
	if jrnl != nil {
		defer func() { _ = jrnl.Close() }()
		scfg.Journal = jrnl
	}
	if notifier != nil {
		defer func() { _ = notifier.Close() }()
		scfg.Notifier = notifier
	}

	srv, err := server.New(scfg)
	if err != nil {
		return cli.Exit(err.Error(), exitApplication)
	}

	fields := map[string]any{"root": srv.Root()}
	if jrnl != nil {
		fields["journal"] = jrnl.Backend()
	}
	logger.Info("listening", fields)

	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return cli.Exit(err.Error(), exitTransport)
	}
	return nil
}

// buildNotifier creates the configured completion notifier, or nil.
func buildNotifier(c *cli.Context, cfg *config.Config) (adapter.Adapter, error) {
	kind := pickString(c, "notify", cfg.Notify.Type)
	url := pickString(c, "notify-url", cfg.Notify.URL)

	retries := 0
	if cfg.Notify.Retries != nil {
		retries = *cfg.Notify.Retries
	}

	switch kind {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     url,
			Headers: cfg.Notify.Headers,
			Timeout: cfg.Notify.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     url,
			Channel: pickString(c, "notify-channel", cfg.Notify.Channel),
			Timeout: cfg.Notify.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown notifier %q (must be webhook or redis)", kind)
	}
}
