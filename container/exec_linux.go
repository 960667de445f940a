package container

import (
	"errors"
	"os/exec"

	"golang.org/x/sys/unix"
)

var errNoCommand = errors.New("container: no command given")

// Exec replaces the current process image with args[0], searched in the PATH
// of env. argv is passed unchanged. It only returns on failure.
func Exec(args, env []string) error {
	if len(args) == 0 {
		return errNoCommand
	}
	path, err := lookPath(args[0], env)
	if err != nil {
		return &exec.Error{Name: args[0], Err: err}
	}
	if err := unix.Exec(path, args, env); err != nil {
		return &exec.Error{Name: args[0], Err: err}
	}
	return nil
}
