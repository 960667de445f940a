package container

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/prun-project/prun/pkg/forkexec"
)

// Namespaces is the set of clone flags creating new namespaces
type Namespaces uintptr

// Namespace flags
const (
	NamespaceUser   Namespaces = unix.CLONE_NEWUSER
	NamespaceUTS    Namespaces = unix.CLONE_NEWUTS
	NamespacePID    Namespaces = unix.CLONE_NEWPID
	NamespaceMount  Namespaces = unix.CLONE_NEWNS
	NamespaceIPC    Namespaces = unix.CLONE_NEWIPC
	NamespaceNet    Namespaces = unix.CLONE_NEWNET
	NamespaceCgroup Namespaces = unix.CLONE_NEWCGROUP
)

// DefaultNamespaces are required for every container
const DefaultNamespaces = NamespaceUser | NamespaceUTS | NamespacePID | NamespaceMount

var namespaceNames = []struct {
	ns   Namespaces
	name string
}{
	{NamespaceUser, "user"},
	{NamespaceUTS, "uts"},
	{NamespacePID, "pid"},
	{NamespaceMount, "mnt"},
	{NamespaceIPC, "ipc"},
	{NamespaceNet, "net"},
	{NamespaceCgroup, "cgroup"},
}

// Validate checks every default namespace is present and nothing else than
// namespace flags is set
func (n Namespaces) Validate() error {
	if missing := DefaultNamespaces &^ n; missing != 0 {
		return fmt.Errorf("container: missing namespaces %v", missing)
	}
	if extra := n &^ Namespaces(forkexec.UnshareFlags); extra != 0 {
		return fmt.Errorf("container: unknown namespace flags %#x", uintptr(extra))
	}
	return nil
}

func (n Namespaces) String() string {
	var names []string
	for _, nn := range namespaceNames {
		if n&nn.ns != 0 {
			names = append(names, nn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}
