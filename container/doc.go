// Package container runs a command inside of new user, UTS, PID and mount
// namespaces.
//
// # Overview
//
// The launcher clones a child into the new namespaces. The child is held
// before its first execve until the launcher has written the uid and gid
// maps of the new user namespace, then it is released and re-executes the
// current binary as the container init (PID 1 of the new PID namespace).
//
// # Container init
//
// The container init reads its configuration from argv and performs:
//
// - mark / recursively private
//
// - chroot(root) and chdir("/")
//
// - sethostname(hostname)
//
// - mount proc at /proc
//
// - optionally load the seccomp filter
//
// - execve the target command
//
// Any failure terminates the container init with exit status 1.
//
// # Supervision
//
// After the init started, the launcher forwards termination signals to it
// and reaps children until none is left.
//
// # Usage
//
// Call Init from an init function of the main package (and of tests that
// launch containers) so that the re-executed binary becomes the container
// init instead of running main.
package container
