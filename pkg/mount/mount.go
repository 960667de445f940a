// Package mount describes the mounts performed by the container init after
// it entered the new root.
package mount

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const procFlags = unix.MS_NOSUID | unix.MS_NODEV | unix.MS_NOEXEC

// Mount defines syscall for mount points
type Mount struct {
	Source, Target, FsType, Data string
	Flags                        uintptr
}

// Proc returns the proc file system at /proc. It reflects the pid namespace
// of the process that mounts it.
func Proc() Mount {
	return Mount{
		Source: "proc",
		Target: "/proc",
		FsType: "proc",
		Flags:  procFlags,
	}
}

func (m Mount) String() string {
	s := fmt.Sprintf("%s on %s type %s (%#x)", m.Source, m.Target, m.FsType, m.Flags)
	if m.Data != "" {
		s += " " + m.Data
	}
	return s
}
