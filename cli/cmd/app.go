package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/tfc/types"
)

// NewApp assembles the tfc command tree. The caller installs an
// ExitErrHandler.
func NewApp(commit string) *cli.App {
	return &cli.App{
		Name:    "tfc",
		Usage:   "Resumable, integrity-checked file transfer over TCP",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:   GlobalFlags(),
		Commands: []*cli.Command{
			ServeCommand(),
			UploadCommand(),
			DownloadCommand(),
			DeleteCommand(),
			JournalCommand(),
			VersionCommand(commit),
		},
	}
}
