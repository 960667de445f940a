package container

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/prun-project/prun/pkg/mount"
	"github.com/prun-project/prun/pkg/seccomp"
)

// InitConfig is everything the container init needs, passed to it as argv
type InitConfig struct {
	Root        string
	HostName    string
	Seccomp     bool
	SeccompDeny []string
	// SeccompAction answers denied syscalls, see seccomp.ParseAction
	SeccompAction string
	LogLevel      string
	LogFormat     string

	// Args is the target command and its arguments
	Args []string
}

var (
	errNoRoot       = errors.New("container_init: no root given")
	errExecReturned = errors.New("container_init: exec returned without error")
)

// Argv renders the container init argv, without argv[0]
func (c *InitConfig) Argv() []string {
	argv := []string{
		initArg,
		"--root=" + c.Root,
		"--hostname=" + c.HostName,
		"--seccomp=" + strconv.FormatBool(c.Seccomp),
	}
	for _, s := range c.SeccompDeny {
		argv = append(argv, "--seccomp-deny="+s)
	}
	if c.SeccompAction != "" {
		argv = append(argv, "--seccomp-action="+c.SeccompAction)
	}
	if c.LogLevel != "" {
		argv = append(argv, "--log-level="+c.LogLevel)
	}
	if c.LogFormat != "" {
		argv = append(argv, "--log-format="+c.LogFormat)
	}
	argv = append(argv, "--")
	return append(argv, c.Args...)
}

// ParseInitArgs parses argv produced by Argv (args[0] must be the init
// argument). Everything after "--" is the target command.
func ParseInitArgs(args []string) (*InitConfig, error) {
	if len(args) == 0 || args[0] != initArg {
		return nil, fmt.Errorf("container_init: unexpected argv %q", args)
	}
	c := &InitConfig{}
	fs := pflag.NewFlagSet(initArg, pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.StringVar(&c.Root, "root", "", "container root directory")
	fs.StringVar(&c.HostName, "hostname", DefaultHostName, "host name in the UTS namespace")
	fs.BoolVar(&c.Seccomp, "seccomp", false, "load the seccomp filter before exec")
	fs.StringArrayVar(&c.SeccompDeny, "seccomp-deny", nil, "syscall denied by the seccomp filter")
	fs.StringVar(&c.SeccompAction, "seccomp-action", "", "answer to a denied syscall")
	fs.StringVar(&c.LogLevel, "log-level", "", "log level")
	fs.StringVar(&c.LogFormat, "log-format", "", "log format")
	if err := fs.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("container_init: %w", err)
	}
	if c.Root == "" {
		return nil, errNoRoot
	}
	if c.Args = fs.Args(); len(c.Args) == 0 {
		return nil, fmt.Errorf("container_init: %w", errNoCommand)
	}
	return c, nil
}

// Init is called for container init process
// it will check if pid == 1, otherwise it is noop
// On success it never returns since the target replaces the process, use it
// in init function
func Init() (err error) {
	// noop if self is not container init process
	// Notice: docker init is also 1, additional check for args[1] == init
	if os.Getpid() != 1 || len(os.Args) < 2 || os.Args[1] != initArg {
		return nil
	}

	logger := logrus.New()

	// exit process (with whole container) upon exit this function
	// possible reason:
	// 1. any setup step failed
	// 2. exec failed
	// 3. panic
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "container_exit: panic: %v\n", err)
			os.Exit(1)
		}
		logger.WithError(err).Error("container_exit")
		os.Exit(1)
	}()

	// limit container init resource usage
	runtime.GOMAXPROCS(containerMaxProc)

	c, err := ParseInitArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if err := ConfigureLogger(logger, c.LogLevel, c.LogFormat); err != nil {
		return fmt.Errorf("container_init: %w", err)
	}
	return runInit(linuxSystem{logger: logger}, c, os.Environ(), logger)
}

// initSystem performs the container init steps
type initSystem interface {
	MakeRPrivate(path string) error
	Chroot(path string) error
	Chdir(path string) error
	Sethostname(name string) error
	MountProc() error
	LoadSeccomp(deny []string, action string) error
	Exec(args, env []string) error
}

// runInit sets up the container and execs the target. It stops at the first
// failing step and always returns an error.
func runInit(sys initSystem, c *InitConfig, env []string, logger logrus.FieldLogger) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"make_private", func() error { return sys.MakeRPrivate("/") }},
		{"chroot", func() error { return sys.Chroot(c.Root) }},
		{"chdir", func() error { return sys.Chdir("/") }},
		{"sethostname", func() error { return sys.Sethostname(c.HostName) }},
		{"mount_proc", sys.MountProc},
	}
	if c.Seccomp {
		steps = append(steps, struct {
			name string
			fn   func() error
		}{"seccomp", func() error { return sys.LoadSeccomp(c.SeccompDeny, c.SeccompAction) }})
	}
	for _, s := range steps {
		logger.WithField("step", s.name).Debug("container_init")
		if err := s.fn(); err != nil {
			return fmt.Errorf("container_init: %s: %w", s.name, err)
		}
	}

	logger.WithFields(logrus.Fields{
		"pid":      os.Getpid(),
		"uid":      os.Getuid(),
		"hostname": c.HostName,
		"args":     c.Args,
	}).Info("container_init: exec")

	if err := sys.Exec(c.Args, env); err != nil {
		return fmt.Errorf("container_init: exec: %w", err)
	}
	return errExecReturned
}

// linuxSystem performs the steps with real syscalls
type linuxSystem struct {
	logger logrus.FieldLogger
}

func (linuxSystem) MakeRPrivate(path string) error {
	return mount.MakeRPrivate(path)
}

func (linuxSystem) Chroot(path string) error {
	return unix.Chroot(path)
}

func (linuxSystem) Chdir(path string) error {
	return unix.Chdir(path)
}

func (linuxSystem) Sethostname(name string) error {
	return unix.Sethostname([]byte(name))
}

func (s linuxSystem) MountProc() error {
	m := mount.Proc()
	created, err := m.Mount()
	if created {
		// lives on in the root directory on the host
		s.logger.WithField("path", m.Target).Debug("created mount target")
	}
	return err
}

func (linuxSystem) LoadSeccomp(deny []string, action string) error {
	if len(deny) == 0 {
		deny = seccomp.DefaultDeny
	}
	b := seccomp.Builder{Deny: deny}
	filter, err := b.Build()
	if err != nil {
		return err
	}
	return seccomp.Load(filter)
}

func (linuxSystem) Exec(args, env []string) error {
	return Exec(args, env)
}
