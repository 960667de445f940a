// Package forkexec clones a child into new linux namespaces and execs it.
//
// The child can be held before execve until the parent has finished work
// that must happen from outside of the namespaces (such as writing the uid
// map of a new user namespace). The parent releases or aborts it through a
// one-shot pipe, see package syncpipe.
//
// unshare pid / user namespaces requires kernel >= 3.8
// pipe2, dup3 requires kernel >= 2.6.27
package forkexec
