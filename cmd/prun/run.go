package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/prun-project/prun/container"
	"github.com/prun-project/prun/pkg/rootfs"
)

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "run command as the only process of a new container",
	ArgsUsage: "<root-or-image> <command> [args...]",
	// flags after the root belong to the command
	SkipArgReorder: true,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "fs-root",
			Usage: "image base directory, overrides $" + rootfs.EnvBase,
		},
		cli.StringFlag{
			Name:  "hostname",
			Usage: "host name inside the container",
		},
		cli.StringSliceFlag{
			Name:  "uid-map",
			Usage: "uid mapping container:host[:size], repeatable (default 0:<euid>:1)",
		},
		cli.StringSliceFlag{
			Name:  "gid-map",
			Usage: "gid mapping container:host[:size], repeatable (default 0:<egid>:1)",
		},
		cli.BoolFlag{
			Name:  "seccomp",
			Usage: "deny dangerous syscalls in the container",
		},
		cli.DurationFlag{
			Name:  "poll-interval",
			Usage: "interval of the reaping loop",
		},
	},
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 2); err != nil {
			return err
		}
		l, err := newLauncher(c)
		if err != nil {
			return err
		}
		res, err := l.Run(context.Background())
		if err != nil {
			return err
		}
		entry := logrus.WithFields(logrus.Fields{
			"pid":    res.InitPid,
			"reaped": len(res.Reaps),
		})
		if res.InitReaped {
			entry = entry.WithField("status", res.InitStatus.ExitStatus())
			if res.InitStatus.Signaled() {
				entry = entry.WithField("signal", res.InitStatus.Signal().String())
			}
		}
		entry.Info("container exited")
		return nil
	},
}

// newLauncher combines config and flags of the run command
func newLauncher(c *cli.Context) (*container.Launcher, error) {
	base := rootfs.Base()
	if cfg.FSRoot != "" {
		base = cfg.FSRoot
	}
	if c.IsSet("fs-root") {
		base = c.String("fs-root")
	}
	root, err := rootfs.Resolve(base, c.Args().First())
	if err != nil {
		return nil, err
	}

	uidMap, err := idMapFlag(c, "uid-map", cfg.UIDMap)
	if err != nil {
		return nil, err
	}
	gidMap, err := idMapFlag(c, "gid-map", cfg.GIDMap)
	if err != nil {
		return nil, err
	}

	l := &container.Launcher{
		Root:           root,
		HostName:       cfg.HostName,
		Args:           c.Args().Tail(),
		UIDMap:         uidMap,
		GIDMap:         gidMap,
		AllowSetgroups: cfg.AllowSetgroups,
		Seccomp:        cfg.Seccomp.Enabled || c.Bool("seccomp"),
		SeccompDeny:    cfg.Seccomp.Deny,
		SeccompAction:  cfg.Seccomp.Action,
		RLimits:        cfg.RLimits.PrepareRLimit(),
		PollInterval:   cfg.PollInterval,
		KillGrace:      cfg.KillGrace,
		LogLevel:       cfg.Log.Level,
		LogFormat:      cfg.Log.Format,
		Logger:         logrus.StandardLogger(),
	}
	if c.IsSet("hostname") {
		l.HostName = c.String("hostname")
	}
	if c.IsSet("poll-interval") {
		l.PollInterval = c.Duration("poll-interval")
	}
	return l, nil
}
