package container

import "time"

const (
	initArg = "init"

	// DefaultHostName is set in the new UTS namespace
	DefaultHostName = "container"

	// DefaultExecFile is re-executed as the container init
	DefaultExecFile = "/proc/self/exe"

	// PathEnv is used to look up commands when no PATH is provided
	PathEnv = "PATH=/usr/local/bin:/usr/bin:/bin"

	// DefaultKillGrace is how long the container init may ignore a
	// forwarded signal
	DefaultKillGrace = 10 * time.Second

	containerMaxProc = 1
)
