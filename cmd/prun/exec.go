package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/prun-project/prun/container"
)

var execCommand = cli.Command{
	Name:      "exec",
	Usage:     "replace prun with command, resolved through PATH",
	ArgsUsage: "<command> [args...]",
	// every argument belongs to the command
	SkipFlagParsing: true,
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 1); err != nil {
			return err
		}
		// returns only on failure
		return container.Exec(c.Args(), os.Environ())
	},
}
