// Package syncpipe provides the one-shot release signal used between the
// launcher and a freshly cloned child.
//
// The child blocks on the read end until the launcher has finished the work
// that must happen before it proceeds (writing the identity mapping). The
// launcher then either releases it by writing a single sentinel byte, or
// aborts it by closing the write end without writing, which the child
// observes as EOF.
package syncpipe

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// Sentinel is the only byte ever written to the pipe
const Sentinel byte = 'g'

// state of the pipe seen from the launcher
type state int32

const (
	awaitingMapping state = iota
	released
	aborted
)

// Errors returned by Pipe
var (
	ErrReleased = errors.New("syncpipe: already released")
	ErrAborted  = errors.New("syncpipe: aborted before release")
)

// Pipe is a unidirectional single-permit rendezvous. The read end belongs to
// the child, the write end to the launcher.
type Pipe struct {
	mu    sync.Mutex
	state state
	r, w  int
}

// New creates the pipe with both ends marked close-on-exec
func New() (*Pipe, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return nil, err
	}
	return &Pipe{r: p[0], w: p[1]}, nil
}

// ReadFd returns the end the child blocks on
func (p *Pipe) ReadFd() int {
	return p.r
}

// WriteFd returns the launcher end. The child must close its copy of it,
// otherwise an abort would never be observed as EOF.
func (p *Pipe) WriteFd() int {
	return p.w
}

// CloseReadEnd closes the launcher's copy of the read end. Called once the
// child has been created and holds its own copy.
func (p *Pipe) CloseReadEnd() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeRead()
}

// Release sends the sentinel and closes the write end. It succeeds exactly
// once; any later call returns ErrReleased (or ErrAborted after Abort) and
// writes nothing.
func (p *Pipe) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case released:
		return ErrReleased
	case aborted:
		return ErrAborted
	}

	b := [1]byte{Sentinel}
	for {
		n, err := unix.Write(p.w, b[:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n != 1 {
			return unix.EIO
		}
		break
	}
	p.state = released
	return p.closeWrite()
}

// Abort closes the write end without sending the sentinel. A child blocked on
// the read end observes EOF.
func (p *Pipe) Abort() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == released {
		return ErrReleased
	}
	p.state = aborted
	return p.closeWrite()
}

// Close releases any file descriptor still held. It does not change the state,
// so closing an unreleased pipe behaves as an abort for the reader.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.closeRead()
	if err2 := p.closeWrite(); err == nil {
		err = err2
	}
	return err
}

func (p *Pipe) closeRead() error {
	if p.r < 0 {
		return nil
	}
	err := unix.Close(p.r)
	p.r = -1
	return err
}

func (p *Pipe) closeWrite() error {
	if p.w < 0 {
		return nil
	}
	err := unix.Close(p.w)
	p.w = -1
	return err
}
