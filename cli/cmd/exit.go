package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/tfc/client"
)

// Exit codes.
const (
	exitSuccess     = 0
	exitApplication = 1
	exitTransport   = 2
	exitIntegrity   = 3
)

// exitCode maps an operation error to the process exit code.
func exitCode(err error) int {
	switch client.Class(err) {
	case "":
		return exitSuccess
	case "transport", "protocol":
		return exitTransport
	case "integrity":
		return exitIntegrity
	default:
		return exitApplication
	}
}

// exitError wraps err so the entrypoint exits with its class's code.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(err.Error(), exitCode(err))
}
