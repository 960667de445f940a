package forkexec

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/prun-project/prun/pkg/syncpipe"
)

// Start clones the child into the configured namespaces and returns its pid
// once it has successfully called execve.
//
// If SyncFunc is set, the child blocks before execve until SyncFunc(pid) has
// returned. On success the child is released, otherwise it is aborted,
// killed and reaped, and the SyncFunc error is returned.
func (r *Runner) Start() (int, error) {
	argv0, argv, env, err := prepareExec(r.Args, r.Env)
	if err != nil {
		return 0, err
	}

	// socketpair p is used by the child to report a failure before execve
	// p[0] is used by parent and p[1] is used by child
	// both ends are close-on-exec so a successful execve is seen as EOF
	p, err := syscall.Socketpair(syscall.AF_LOCAL, syscall.SOCK_STREAM|syscall.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, err
	}

	// sync pipe holds the child before execve
	var (
		sp     *syncpipe.Pipe
		syncFd = [2]int{-1, -1}
	)
	if r.SyncFunc != nil {
		if sp, err = syncpipe.New(); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return 0, err
		}
		syncFd = [2]int{sp.ReadFd(), sp.WriteFd()}
	}

	// fork in child
	pid, err1 := forkAndExecInChild(r, argv0, argv, env, p, syncFd)

	// restore all signals
	afterFork()
	syscall.ForkLock.Unlock()

	return syncWithChild(r, p, sp, int(pid), err1)
}

func syncWithChild(r *Runner, p [2]int, sp *syncpipe.Pipe, pid int, err1 syscall.Errno) (int, error) {
	unix.Close(p[1])

	// clone syscall failed
	if err1 != 0 {
		unix.Close(p[0])
		if sp != nil {
			sp.Close()
		}
		return 0, ChildError{Err: err1, Location: LocClone}
	}

	if sp != nil {
		// the child holds its own copy
		sp.CloseReadEnd()

		// child is blocked on the read end, abort it if sync failed
		if err := r.SyncFunc(pid); err != nil {
			sp.Abort()
			unix.Close(p[0])
			handleChildFailed(pid)
			return 0, err
		}
		if err := sp.Release(); err != nil {
			// child died before release, its own report is more specific
			if childErr, n, _ := readChildError(p[0]); n == int(unsafe.Sizeof(childErr)) {
				err = childErr
			}
			unix.Close(p[0])
			handleChildFailed(pid)
			return 0, err
		}
	}

	// EOF means execve succeeded and closed the child end
	childErr, n, err := readChildError(p[0])
	unix.Close(p[0])
	switch {
	case err != nil:
		handleChildFailed(pid)
		return 0, err
	case n == 0:
		return pid, nil
	case n == int(unsafe.Sizeof(childErr)):
		handleChildFailed(pid)
		return 0, childErr
	default:
		handleChildFailed(pid)
		return 0, syscall.EPIPE
	}
}

// readChildError reads a ChildError written by childExitError
func readChildError(fd int) (ChildError, int, error) {
	var childErr ChildError
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&childErr)), unsafe.Sizeof(childErr))
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		return childErr, n, err
	}
}

func handleChildFailed(pid int) {
	var wstatus syscall.WaitStatus
	// make sure not blocked
	syscall.Kill(pid, syscall.SIGKILL)
	// child failed; wait for it to exit, to make sure the zombies don't accumulate
	_, err := syscall.Wait4(pid, &wstatus, 0, nil)
	for err == syscall.EINTR {
		_, err = syscall.Wait4(pid, &wstatus, 0, nil)
	}
}
