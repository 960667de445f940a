package forkexec

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/prun-project/prun/pkg/syncpipe"
)

// Reference to src/syscall/exec_linux.go
//
// The child is a fork-style clone without CLONE_VM: it runs on a private
// copy of the parent stack, so no separate stack region is allocated.
//
//go:norace
func forkAndExecInChild(r *Runner, argv0 *byte, argv, env []*byte, p, syncFd [2]int) (r1 uintptr, err1 syscall.Errno) {
	// similar to exec_linux, avoid side effect by shuffling around
	fd, nextfd := prepareFds(r.Files)

	var sentinel [1]byte

	// Acquire the fork lock so that no other threads
	// create new fds that are not yet close-on-exec
	// before we fork.
	syscall.ForkLock.Lock()

	// About to call fork.
	// No more allocation or calls of non-assembly functions.
	beforeFork()

	// new namespaces are activated by clone syscall
	r1, _, err1 = syscall.RawSyscall6(syscall.SYS_CLONE, uintptr(syscall.SIGCHLD)|(r.CloneFlags&UnshareFlags), 0, 0, 0, 0, 0)
	if err1 != 0 || r1 != 0 {
		// in parent process, immediate return
		return
	}

	// In child process
	afterForkInChild()
	// Notice: cannot call any GO functions beyond this point

	pipe := p[1]

	// Close parent end of the error socket
	if _, _, err1 = syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(p[0]), 0, 0); err1 != 0 {
		childExitError(pipe, LocCloseWrite, err1)
	}

	// Wait for the parent before anything else. Inside of a new user
	// namespace nothing that needs an identity works until the parent wrote
	// the uid map, and an execve before that would drop all capabilities.
	if syncFd[0] >= 0 {
		// our copy of the write end must go, otherwise abort is never EOF
		if _, _, err1 = syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(syncFd[1]), 0, 0); err1 != 0 {
			childExitError(pipe, LocCloseWrite, err1)
		}
		for {
			r1, _, err1 = syscall.RawSyscall(syscall.SYS_READ, uintptr(syncFd[0]), uintptr(unsafe.Pointer(&sentinel[0])), 1)
			if err1 != syscall.EINTR {
				break
			}
		}
		if err1 != 0 {
			childExitError(pipe, LocSyncRead, err1)
		}
		// parent closed without release
		if r1 == 0 {
			childExitError(pipe, LocSyncRead, syscall.ECANCELED)
		}
		if sentinel[0] != syncpipe.Sentinel {
			childExitError(pipe, LocSyncRead, syscall.EINVAL)
		}
		if _, _, err1 = syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(syncFd[0]), 0, 0); err1 != 0 {
			childExitError(pipe, LocCloseSync, err1)
		}
	}

	// Pass 1 & pass 2 assigns fds for child process
	// Pass 1: fd[i] < i => nextfd
	if pipe < nextfd {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(pipe), uintptr(nextfd), syscall.O_CLOEXEC)
		if err1 != 0 {
			childExitError(pipe, LocDup3, err1)
		}
		pipe = nextfd
		nextfd++
	}
	for i := 0; i < len(fd); i++ {
		if fd[i] >= 0 && fd[i] < int(i) {
			// Avoid fd rewrite
			for nextfd == pipe {
				nextfd++
			}
			_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(fd[i]), uintptr(nextfd), syscall.O_CLOEXEC)
			if err1 != 0 {
				childExitErrorWithIndex(pipe, LocDup3, i, err1)
			}
			// Set up close on exec
			fd[i] = nextfd
			nextfd++
		}
	}
	// Pass 2: fd[i] => i
	for i := 0; i < len(fd); i++ {
		if fd[i] == -1 {
			syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(i), 0, 0)
			continue
		}
		if fd[i] == int(i) {
			// dup2(i, i) will not clear close on exec flag, need to reset the flag
			_, _, err1 = syscall.RawSyscall(syscall.SYS_FCNTL, uintptr(fd[i]), syscall.F_SETFD, 0)
			if err1 != 0 {
				childExitErrorWithIndex(pipe, LocFcntl, i, err1)
			}
			continue
		}
		_, _, err1 = syscall.RawSyscall(syscall.SYS_DUP3, uintptr(fd[i]), uintptr(i), 0)
		if err1 != 0 {
			childExitErrorWithIndex(pipe, LocDup3, i, err1)
		}
	}

	// Set limit
	for i, rlim := range r.RLimits {
		// prlimit instead of setrlimit to avoid 32-bit limitation (linux > 3.2)
		_, _, err1 = syscall.RawSyscall6(syscall.SYS_PRLIMIT64, 0, uintptr(rlim.Res), uintptr(unsafe.Pointer(&rlim.Rlim)), 0, 0, 0)
		if err1 != 0 {
			childExitErrorWithIndex(pipe, LocSetRlimit, i, err1)
		}
	}

	// time to exec
	_, _, err1 = syscall.RawSyscall(unix.SYS_EXECVE, uintptr(unsafe.Pointer(argv0)),
		uintptr(unsafe.Pointer(&argv[0])), uintptr(unsafe.Pointer(&env[0])))
	childExitError(pipe, LocExecve, err1)
	return
}

//go:nosplit
func childExitError(pipe int, loc ErrorLocation, err syscall.Errno) {
	childExitErrorWithIndex(pipe, loc, 0, err)
}

//go:nosplit
func childExitErrorWithIndex(pipe int, loc ErrorLocation, idx int, err syscall.Errno) {
	childError := ChildError{
		Err:      err,
		Location: loc,
		Index:    idx,
	}

	// send error code on pipe
	syscall.RawSyscall(unix.SYS_WRITE, uintptr(pipe), uintptr(unsafe.Pointer(&childError)), unsafe.Sizeof(childError))
	for {
		syscall.RawSyscall(syscall.SYS_EXIT, uintptr(err), 0, 0)
	}
}
