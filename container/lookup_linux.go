package container

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var errNotFound = errors.New("executable file not found in $PATH")

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); m.IsRegular() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

func lookPath(name string, env []string) (string, error) {
	// don't look if a path is provided
	if strings.Contains(name, "/") {
		return name, nil
	}
	for _, dir := range findPath(env) {
		if dir == "" {
			dir = "."
		}
		p := filepath.Join(dir, name)
		if err := findExecutable(p); err == nil {
			return p, nil
		}
	}
	return "", errNotFound
}

// findPath returns the last PATH= entry, PathEnv if there is none
func findPath(env []string) []string {
	const pathPrefix = "PATH="
	for i := len(env) - 1; i >= 0; i-- {
		s := env[i]
		if strings.HasPrefix(s, pathPrefix) {
			return filepath.SplitList(s[len(pathPrefix):])
		}
	}
	return filepath.SplitList(PathEnv[len(pathPrefix):])
}
