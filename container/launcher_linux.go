package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/prun-project/prun/pkg/forkexec"
	"github.com/prun-project/prun/pkg/idmap"
	"github.com/prun-project/prun/pkg/rlimit"
	"github.com/prun-project/prun/pkg/supervisor"
)

// Launcher starts a command in a new container and supervises it
type Launcher struct {
	// Root is the container root directory on the host
	Root string

	// HostName in the new UTS namespace, DefaultHostName if empty
	HostName string

	// Args is the target command and its arguments
	Args []string

	// Env of the container init and the target, os.Environ() if nil
	Env []string

	// Namespaces to create, DefaultNamespaces if zero
	Namespaces Namespaces

	// UIDMap / GIDMap of the user namespace, map root to the effective
	// uid / gid of the launcher if empty
	UIDMap, GIDMap []idmap.Mapping

	// AllowSetgroups keeps setgroups(2) usable in the container. Writing the
	// gid map then needs CAP_SETGID over the parent namespace.
	AllowSetgroups bool

	// Seccomp loads a filter denying SeccompDeny (seccomp.DefaultDeny if
	// empty) in the container init before exec. SeccompAction is the answer
	// to a denied syscall in seccomp.ParseAction form, errno EPERM if empty.
	Seccomp       bool
	SeccompDeny   []string
	SeccompAction string

	// RLimits are applied to the child before it becomes the container init
	RLimits []rlimit.RLimit

	// PollInterval of the supervisor, supervisor.DefaultInterval if zero
	PollInterval time.Duration

	// KillGrace is how long the container init may outlive a forwarded
	// signal before it is killed, DefaultKillGrace if zero
	KillGrace time.Duration

	// Stdin / Stdout / Stderr of the container, the launcher's own if nil
	Stdin, Stdout, Stderr *os.File

	// ExecFile is re-executed as container init, DefaultExecFile if empty
	ExecFile string

	// ProcRoot is where the identity maps are written, /proc if empty
	ProcRoot string

	// LogLevel and LogFormat are passed on to the container init
	LogLevel, LogFormat string

	Logger logrus.FieldLogger
}

// Result of a supervised container run
type Result struct {
	// InitPid is the pid of the container init seen from the launcher
	InitPid int

	// InitStatus is valid if InitReaped
	InitStatus unix.WaitStatus
	InitReaped bool

	// Reaps lists every reaped child in order
	Reaps []supervisor.Reap
}

// forwardSignals are relayed to the container init while supervising
var forwardSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGHUP, unix.SIGQUIT}

func (l *Launcher) logger() logrus.FieldLogger {
	if l.Logger != nil {
		return l.Logger
	}
	return logrus.StandardLogger()
}

func (l *Launcher) namespaces() Namespaces {
	if l.Namespaces == 0 {
		return DefaultNamespaces
	}
	return l.Namespaces
}

func (l *Launcher) idMaps() ([]idmap.Mapping, []idmap.Mapping) {
	uidMap, gidMap := l.UIDMap, l.GIDMap
	if len(uidMap) == 0 {
		uidMap = []idmap.Mapping{idmap.Single(os.Geteuid())}
	}
	if len(gidMap) == 0 {
		gidMap = []idmap.Mapping{idmap.Single(os.Getegid())}
	}
	return uidMap, gidMap
}

// initConfig returns the container init configuration
func (l *Launcher) initConfig() *InitConfig {
	hostName := l.HostName
	if hostName == "" {
		hostName = DefaultHostName
	}
	return &InitConfig{
		Root:        l.Root,
		HostName:    hostName,
		Seccomp:       l.Seccomp,
		SeccompDeny:   l.SeccompDeny,
		SeccompAction: l.SeccompAction,
		LogLevel:      l.LogLevel,
		LogFormat:     l.LogFormat,
		Args:          l.Args,
	}
}

// runner builds the cloner. The child blocks until SyncFunc wrote the
// identity maps.
func (l *Launcher) runner() (*forkexec.Runner, error) {
	ns := l.namespaces()
	if err := ns.Validate(); err != nil {
		return nil, err
	}
	if l.Root == "" {
		return nil, errNoRoot
	}
	if len(l.Args) == 0 {
		return nil, errNoCommand
	}

	execFile := l.ExecFile
	if execFile == "" {
		execFile = DefaultExecFile
	}
	env := l.Env
	if env == nil {
		env = os.Environ()
	}
	files := []uintptr{fdOr(l.Stdin, os.Stdin), fdOr(l.Stdout, os.Stdout), fdOr(l.Stderr, os.Stderr)}

	uidMap, gidMap := l.idMaps()
	logger := l.logger()
	w := &idmap.Writer{ProcRoot: l.ProcRoot, AllowSetgroups: l.AllowSetgroups}

	return &forkexec.Runner{
		Args:       append([]string{execFile}, l.initConfig().Argv()...),
		Env:        env,
		RLimits:    l.RLimits,
		Files:      files,
		CloneFlags: uintptr(ns),
		SyncFunc: func(pid int) error {
			logger.WithFields(logrus.Fields{
				"pid":     pid,
				"uid_map": string(idmap.Format(uidMap)),
				"gid_map": string(idmap.Format(gidMap)),
			}).Debug("writing identity mapping")
			if err := w.Write(pid, uidMap, gidMap); err != nil {
				return fmt.Errorf("container: write identity mapping for pid %d: %w", pid, err)
			}
			logger.WithField("pid", pid).Debug("releasing child")
			return nil
		},
	}, nil
}

// Start creates the container and returns the pid of its init once it runs
// with its identity mapped. A mapping failure aborts the child before it
// proceeds.
func (l *Launcher) Start() (int, error) {
	r, err := l.runner()
	if err != nil {
		return 0, err
	}
	l.logger().WithFields(logrus.Fields{
		"root":       l.Root,
		"namespaces": l.namespaces().String(),
		"args":       l.Args,
		"rlimits":    fmt.Sprint(l.RLimits),
	}).Debug("starting container")

	pid, err := r.Start()
	if err != nil {
		return 0, fmt.Errorf("container: start: %w", err)
	}
	l.logger().WithField("pid", pid).Info("container init started")
	return pid, nil
}

// Run starts the container, forwards signals to its init and reaps children
// until none is left.
func (l *Launcher) Run(ctx context.Context) (*Result, error) {
	// capture before the child exists so that no signal is lost
	sigCh := make(chan os.Signal, len(forwardSignals))
	signal.Notify(sigCh, forwardSignals...)
	defer signal.Stop(sigCh)

	pid, err := l.Start()
	if err != nil {
		return nil, err
	}

	var (
		done     = make(chan struct{})
		doneOnce sync.Once
		stop     = func() { doneOnce.Do(func() { close(done) }) }
	)
	defer stop()

	grace := l.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}
	fw := &forwarder{pid: pid, grace: grace, logger: l.logger()}
	go fw.run(sigCh, done)

	res := &Result{InitPid: pid}
	sup := supervisor.New(l.PollInterval, l.logger())
	sup.OnReap = func(r supervisor.Reap) {
		res.Reaps = append(res.Reaps, r)
		if r.Pid == pid {
			res.InitStatus = r.Status
			res.InitReaped = true
			// nothing left to signal, the pid may be reused
			stop()
		}
	}
	if _, err := sup.Run(ctx); err != nil {
		return res, fmt.Errorf("container: supervise: %w", err)
	}
	return res, nil
}

// forwarder relays signals to the container init. As PID 1 of its namespace
// the init only receives signals it installed a handler for, so a second
// signal or an init outliving the grace period is answered with SIGKILL.
type forwarder struct {
	pid    int
	grace  time.Duration
	logger logrus.FieldLogger
}

// run forwards until done is closed
func (f *forwarder) run(sigCh <-chan os.Signal, done <-chan struct{}) {
	var (
		timer     *time.Timer
		expired   <-chan time.Time
		forwarded bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-done:
			return

		case <-expired:
			expired = nil
			f.kill(unix.SIGKILL, "grace period expired")

		case sig := <-sigCh:
			s, ok := sig.(unix.Signal)
			if !ok {
				continue
			}
			if forwarded {
				f.kill(unix.SIGKILL, "signal received again")
				continue
			}
			forwarded = true
			f.kill(s, "forwarded signal")
			if timer == nil {
				timer = time.NewTimer(f.grace)
				expired = timer.C
			}
		}
	}
}

func (f *forwarder) kill(s unix.Signal, reason string) {
	entry := f.logger.WithFields(logrus.Fields{
		"pid":    f.pid,
		"signal": s.String(),
	})
	err := unix.Kill(f.pid, s)
	switch {
	case err == nil:
		entry.Info(reason)
	case errors.Is(err, unix.ESRCH):
		entry.Debug("container init already gone")
	default:
		entry.WithError(err).Warn(reason)
	}
}

func fdOr(f, def *os.File) uintptr {
	if f != nil {
		return f.Fd()
	}
	return def.Fd()
}
