package mount

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	mobymount "github.com/moby/sys/mount"
	"golang.org/x/sys/unix"
)

// Mount calls mount syscall. A missing target directory is created first and
// stays behind in the file system it was created in; created reports it.
func (m *Mount) Mount() (created bool, err error) {
	fi, err := os.Stat(m.Target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(m.Target, 0755); err != nil {
			return false, err
		}
		created = true
	case err != nil:
		return false, err
	case !fi.IsDir():
		return false, &os.PathError{Op: "mount " + m.String(), Path: m.Target, Err: unix.ENOTDIR}
	}
	if err := unix.Mount(m.Source, m.Target, m.FsType, m.Flags, m.Data); err != nil {
		return created, &os.PathError{Op: "mount " + m.String(), Path: m.Target, Err: err}
	}
	return created, nil
}

// MakeRPrivate marks path and every mount below it private so that later
// mounts do not propagate back to the original mount namespace
func MakeRPrivate(path string) error {
	if err := mobymount.MakeRPrivate(path); err != nil {
		return fmt.Errorf("make %s rprivate: %w", path, err)
	}
	return nil
}
