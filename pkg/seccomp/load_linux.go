package seccomp

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// defines missing consts from syscall package
const (
	SECCOMP_SET_MODE_FILTER   = 1
	SECCOMP_FILTER_FLAG_TSYNC = 1
)

var errEmptyFilter = errors.New("seccomp: empty filter")

// Load sets no_new_privs and installs the filter on every thread of the
// calling process. The filter is inherited across execve.
func Load(f Filter) error {
	prog := f.SockFprog()
	if prog == nil {
		return errEmptyFilter
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return err
	}
	_, _, errno := unix.RawSyscall(unix.SYS_SECCOMP, SECCOMP_SET_MODE_FILTER, SECCOMP_FILTER_FLAG_TSYNC, uintptr(unsafe.Pointer(prog)))
	if errno != 0 {
		return errno
	}
	return nil
}
