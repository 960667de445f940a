package idmap

import (
	"fmt"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

var (
	setGroupsDeny  = []byte("deny")
	setGroupsAllow = []byte("allow")
)

// Writer writes mapping files under ProcRoot/<pid>/
type Writer struct {
	// ProcRoot is the procfs mount to write into (default: /proc)
	ProcRoot string

	// AllowSetgroups keeps setgroups(2) usable inside the namespace. Only a
	// privileged writer may leave it enabled before writing gid_map.
	AllowSetgroups bool
}

// Write writes uid_map, then setgroups and gid_map when gidMappings is not
// empty. It must be called before the target process performs anything that
// needs its identity resolved. Each file is written with a single write(2).
func (w *Writer) Write(pid int, uidMappings, gidMappings []Mapping) error {
	if err := w.WriteUID(pid, uidMappings); err != nil {
		return err
	}
	if len(gidMappings) == 0 {
		return nil
	}
	return w.WriteGID(pid, gidMappings)
}

// WriteUID writes /proc/<pid>/uid_map
func (w *Writer) WriteUID(pid int, mappings []Mapping) error {
	if err := validateAll(mappings); err != nil {
		return err
	}
	return writeFile(w.path(pid, "uid_map"), Format(mappings))
}

// WriteGID writes /proc/<pid>/setgroups followed by /proc/<pid>/gid_map
func (w *Writer) WriteGID(pid int, mappings []Mapping) error {
	if err := validateAll(mappings); err != nil {
		return err
	}
	setGroups := setGroupsDeny
	if w.AllowSetgroups {
		setGroups = setGroupsAllow
	}
	if err := writeFile(w.path(pid, "setgroups"), setGroups); err != nil {
		return err
	}
	return writeFile(w.path(pid, "gid_map"), Format(mappings))
}

func (w *Writer) path(pid int, name string) string {
	root := w.ProcRoot
	if root == "" {
		root = "/proc"
	}
	return filepath.Join(root, strconv.Itoa(pid), name)
}

// writeFile writes content with exactly one write call, the kernel rejects a
// map split across several writes
func writeFile(path string, content []byte) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("idmap: open %s: %w", path, err)
	}
	n, err := unix.Write(fd, content)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("idmap: write %s: %w", path, err)
	}
	if n != len(content) {
		unix.Close(fd)
		return fmt.Errorf("idmap: short write to %s (%d of %d bytes)", path, n, len(content))
	}
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("idmap: close %s: %w", path, err)
	}
	return nil
}
