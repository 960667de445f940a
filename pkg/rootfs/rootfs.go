// Package rootfs resolves the root directory of a container from either an
// absolute path or an image name below the image base directory.
package rootfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// EnvBase names the environment variable holding the image base directory
const EnvBase = "FS_ROOT"

// DefaultBase is used when EnvBase is unset or empty
const DefaultBase = "/var/lib/prun/rootfs"

// ErrNotDirectory is returned when the resolved root is not a directory
var ErrNotDirectory = errors.New("rootfs: not a directory")

// Base returns the image base directory from the environment or the default
func Base() string {
	if b := os.Getenv(EnvBase); b != "" {
		return b
	}
	return DefaultBase
}

// Resolve maps arg to the container root. An absolute arg is used as given;
// anything else is an image name joined to base without escaping it. The
// result must be an existing directory.
func Resolve(base, arg string) (string, error) {
	if arg == "" {
		return "", errors.New("rootfs: empty root or image name")
	}

	var root string
	if filepath.IsAbs(arg) {
		root = filepath.Clean(arg)
	} else {
		if base == "" {
			base = DefaultBase
		}
		p, err := securejoin.SecureJoin(base, arg)
		if err != nil {
			return "", fmt.Errorf("rootfs: resolve image %q in %s: %w", arg, base, err)
		}
		root = p
	}

	fi, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("rootfs: %w", err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}
	return root, nil
}
