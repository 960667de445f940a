package forkexec

import (
	"golang.org/x/sys/unix"
)

// UnshareFlags are the clone flags the runner passes through
const UnshareFlags = unix.CLONE_NEWIPC | unix.CLONE_NEWNET | unix.CLONE_NEWNS |
	unix.CLONE_NEWPID | unix.CLONE_NEWUSER | unix.CLONE_NEWUTS | unix.CLONE_NEWCGROUP
