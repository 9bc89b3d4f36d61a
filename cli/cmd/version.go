package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/tfc/cli/render"
	"github.com/pithecene-io/tfc/types"
	"github.com/pithecene-io/tfc/wire"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Signature string `json:"signature" yaml:"signature"`
}

// VersionCommand returns the version command. It never contacts a server.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  OutputFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}

		if c.Bool("tui") {
			return cli.Exit("--tui is not supported for version command", exitApplication)
		}

		return r.Render(VersionResponse{
			Version:   types.Version,
			Commit:    commit,
			Signature: string(wire.Signature[:]),
		})
	}
}
