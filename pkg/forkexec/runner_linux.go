package forkexec

import (
	"github.com/prun-project/prun/pkg/rlimit"
)

// Runner is the configuration including the exec path, argv, namespaces
// and resource limits of the cloned child.
type Runner struct {
	// argv and env for execve syscall for the child process
	Args []string
	Env  []string

	// POSIX Resource limit set by prlimit
	RLimits []rlimit.RLimit

	// file descriptors map for new process, from 0 to len - 1
	Files []uintptr

	// clone flags to create linux namespaces, only UnshareFlags bits are used
	CloneFlags uintptr

	// SyncFunc is invoked with the child pid while the child is blocked
	// before execve. The child proceeds only if it returns nil, otherwise the
	// child is aborted, killed and reaped, and the error is returned by Start.
	// If SyncFunc is nil the child execs without waiting for the parent.
	SyncFunc func(int) error
}
