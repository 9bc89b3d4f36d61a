package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/tfc/cli/config"
	"github.com/pithecene-io/tfc/cli/render"
	"github.com/pithecene-io/tfc/cli/tui"
	"github.com/pithecene-io/tfc/client"
	"github.com/pithecene-io/tfc/log"
	"github.com/pithecene-io/tfc/metrics"
)

// TransferReport is the rendered outcome of one client command.
type TransferReport struct {
	Result  *client.Result   `json:"result" yaml:"result"`
	Metrics metrics.Snapshot `json:"metrics" yaml:"metrics"`
}

// UploadCommand returns the upload command.
func UploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a local file into a remote directory",
		ArgsUsage: "<local-file> [remote-dir]",
		Flags:     ClientFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 || c.NArg() > 2 {
				return cli.Exit("usage: tfc upload <local-file> [remote-dir]", exitApplication)
			}
			local, remoteDir := c.Args().Get(0), c.Args().Get(1)
			title := "Uploading " + filepath.Base(local)
			return runClient(c, title, true, func(ctx context.Context, cl *client.Client) (*client.Result, error) {
				return cl.Upload(ctx, local, remoteDir)
			})
		},
	}
}

// DownloadCommand returns the download command.
func DownloadCommand() *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "Download a remote file into a local directory",
		ArgsUsage: "<remote-file> [local-dir]",
		Flags:     ClientFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 || c.NArg() > 2 {
				return cli.Exit("usage: tfc download <remote-file> [local-dir]", exitApplication)
			}
			remote, localDir := c.Args().Get(0), c.Args().Get(1)
			if localDir == "" {
				localDir = "."
			}
			title := "Downloading " + remote
			return runClient(c, title, true, func(ctx context.Context, cl *client.Client) (*client.Result, error) {
				return cl.Download(ctx, remote, localDir)
			})
		},
	}
}

// DeleteCommand returns the delete command.
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a remote file",
		ArgsUsage: "<remote-file>",
		Flags:     ClientFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: tfc delete <remote-file>", exitApplication)
			}
			remote := c.Args().First()
			return runClient(c, "", false, func(ctx context.Context, cl *client.Client) (*client.Result, error) {
				return cl.Delete(ctx, remote)
			})
		},
	}
}

type clientOp func(ctx context.Context, cl *client.Client) (*client.Result, error)

// runClient builds a client from flags and config, runs op and renders the
// outcome. With --tui the operation runs under a progress view.
func runClient(c *cli.Context, title string, tuiAllowed bool, op clientOp) error {
	useTUI := c.Bool("tui")
	if useTUI && !tuiAllowed {
		return cli.Exit(fmt.Sprintf("--tui is not supported for %s command", c.Command.Name), exitApplication)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitApplication)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitApplication)
	}

	ccfg := clientConfig(c, cfg)
	ccfg.Metrics = metrics.NewCollector(string(log.RoleClient))
	ccfg.Logger, err = clientLogger(c, cfg, ccfg.Addr, useTUI)
	if err != nil {
		return cli.Exit(err.Error(), exitApplication)
	}
	defer func() { _ = ccfg.Logger.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res *client.Result
	if useTUI {
		res, err = tui.RunTransfer(ctx, title, func(ctx context.Context, progress client.ProgressFunc) (*client.Result, error) {
			withProgress := ccfg
			withProgress.Progress = progress
			return runOp(ctx, withProgress, op)
		})
	} else {
		res, err = runOp(ctx, ccfg, op)
	}
	if err != nil {
		return exitError(err)
	}

	return renderReport(r, TransferReport{Result: res, Metrics: ccfg.Metrics.Snapshot()})
}

func runOp(ctx context.Context, ccfg client.Config, op clientOp) (*client.Result, error) {
	cl, err := client.New(ccfg)
	if err != nil {
		return nil, err
	}
	return op(ctx, cl)
}

// clientLogger quiets logging under the TUI unless a level is asked for.
func clientLogger(c *cli.Context, cfg *config.Config, addr string, useTUI bool) (*log.Logger, error) {
	if useTUI && !c.IsSet("log-level") && cfg.Log.Level == "" {
		return log.Nop(), nil
	}
	return newLogger(c, cfg, log.RoleClient, addr)
}

// renderReport prints the report; tables get the result and the metrics as
// two key/value blocks.
func renderReport(r *render.Renderer, rep TransferReport) error {
	if r.Format() != render.FormatTable {
		return r.Render(rep)
	}
	if err := r.Render(rep.Result); err != nil {
		return err
	}
	return r.Render(&rep.Metrics)
}
