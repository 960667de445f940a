// Command prun runs a command in new user, UTS, PID and mount namespaces
// rooted at a directory or an image below FS_ROOT.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/prun-project/prun/config"
	"github.com/prun-project/prun/container"
)

const usage = `minimal process isolation launcher

prun run <root-or-image> <command> [args...] starts command as the only
process of a new container. The root is a directory on the host or the name
of an image below $FS_ROOT (default /var/lib/prun/rootfs).

prun exec <command> [args...] replaces prun with command, searching PATH.`

// cfg is loaded by the Before hook
var cfg *config.Config

// container init
func init() {
	container.Init()
}

func main() {
	app := cli.NewApp()
	app.Name = "prun"
	app.Usage = usage
	app.HideVersion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "YAML configuration file",
			EnvVar: config.EnvConfig,
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (panic, fatal, error, warn, info, debug, trace)",
		},
		cli.StringFlag{
			Name:  "log-format",
			Usage: "log format (text or json)",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "shorthand for --log-level=debug",
		},
	}
	app.Commands = []cli.Command{
		runCommand,
		execCommand,
	}
	app.Before = func(c *cli.Context) error {
		var err error
		if cfg, err = config.Load(c.GlobalString("config")); err != nil {
			return err
		}
		if c.GlobalIsSet("log-level") {
			cfg.Log.Level = c.GlobalString("log-level")
		}
		if c.GlobalBool("debug") {
			cfg.Log.Level = logrus.DebugLevel.String()
		}
		if c.GlobalIsSet("log-format") {
			cfg.Log.Format = c.GlobalString("log-format")
		}
		return container.ConfigureLogger(logrus.StandardLogger(), cfg.Log.Level, cfg.Log.Format)
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
