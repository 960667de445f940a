package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/prun-project/prun/pkg/idmap"
)

// fatal logs err and exits 1
func fatal(err error) {
	logrus.Error(err)
	os.Exit(1)
}

// checkArgs reports a usage error unless at least min positional arguments
// were given
func checkArgs(c *cli.Context, min int) error {
	if c.NArg() < min {
		return fmt.Errorf("%s: expects at least %d argument(s), got %d, usage: %s %s",
			c.Command.Name, min, c.NArg(), c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

// idMapFlag returns the mapping of flag name if it is set, def otherwise
func idMapFlag(c *cli.Context, name string, def []idmap.Mapping) ([]idmap.Mapping, error) {
	if !c.IsSet(name) {
		return def, nil
	}
	m, err := idmap.ParseAll(c.StringSlice(name))
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return m, nil
}
