// Package supervisor reaps the children of the launcher until none is left.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// DefaultInterval is the sleep between two polls that found nothing to reap
const DefaultInterval = time.Second

// Reap records one reaped child
type Reap struct {
	Pid    int
	Status unix.WaitStatus
}

func (r Reap) String() string {
	switch {
	case r.Status.Exited():
		return fmt.Sprintf("pid %d exited with status %d", r.Pid, r.Status.ExitStatus())
	case r.Status.Signaled():
		return fmt.Sprintf("pid %d killed by signal %v", r.Pid, r.Status.Signal())
	default:
		return fmt.Sprintf("pid %d changed state (%#x)", r.Pid, uint32(r.Status))
	}
}

// Supervisor polls wait4 without blocking. It returns once the kernel reports
// no children left; it never returns early because of a reaped child.
type Supervisor struct {
	// Interval between polls, DefaultInterval when zero
	Interval time.Duration

	// OnReap is called for each reaped child, in reap order
	OnReap func(Reap)

	Logger logrus.FieldLogger

	// wait4 and sleep are replaced in tests
	wait4 func(pid int, wstatus *unix.WaitStatus, options int, rusage *unix.Rusage) (int, error)
	sleep func(context.Context, time.Duration) error
}

// New creates a supervisor with the given poll interval
func New(interval time.Duration, logger logrus.FieldLogger) *Supervisor {
	return &Supervisor{
		Interval: interval,
		Logger:   logger,
	}
}

// Run reaps children until ECHILD and returns every reap in order. Any wait4
// error other than EINTR and ECHILD is returned together with the reaps so
// far. Cancelling ctx interrupts the sleep between polls only.
func (s *Supervisor) Run(ctx context.Context) ([]Reap, error) {
	wait4, sleep, interval := s.wait4, s.sleep, s.Interval
	if wait4 == nil {
		wait4 = unix.Wait4
	}
	if sleep == nil {
		sleep = sleepContext
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var reaps []Reap
	for {
		var wstatus unix.WaitStatus
		pid, err := wait4(-1, &wstatus, unix.WNOHANG|unix.WALL, nil)
		switch {
		case err == unix.EINTR:
			continue

		case err == unix.ECHILD:
			logger.WithField("reaped", len(reaps)).Debug("no children left")
			return reaps, nil

		case err != nil:
			return reaps, fmt.Errorf("wait4: %w", err)

		case pid > 0:
			r := Reap{Pid: pid, Status: wstatus}
			logger.WithFields(logrus.Fields{
				"pid":    pid,
				"status": r.String(),
			}).Info("reaped child")
			reaps = append(reaps, r)
			if s.OnReap != nil {
				s.OnReap(r)
			}
			// drain before sleeping
			continue
		}

		// children exist but none changed state
		if err := sleep(ctx, interval); err != nil {
			return reaps, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
