package syncpipe

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// readOnce does the child side: one read of at most one byte
func readOnce(fd int) (byte, int, error) {
	var b [1]byte
	for {
		n, err := unix.Read(fd, b[:])
		if err == unix.EINTR {
			continue
		}
		return b[0], n, err
	}
}

func TestPipe_ReleaseUnblocksReader(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	type result struct {
		b   byte
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		b, n, err := readOnce(p.ReadFd())
		done <- result{b, n, err}
	}()

	select {
	case r := <-done:
		t.Fatalf("reader returned before release: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	if p.state != awaitingMapping {
		t.Fatalf("state = %d, want awaiting mapping", p.state)
	}
	if err := p.Release(); err != nil {
		t.Fatal(err)
	}
	if r := <-done; r.err != nil || r.n != 1 || r.b != Sentinel {
		t.Fatalf("read = %+v, want the sentinel", r)
	}
	if p.state != released {
		t.Fatalf("state = %d, want released", p.state)
	}
}

func TestPipe_AbortIsObservedAsEOF(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Abort(); err != nil {
		t.Fatal(err)
	}
	if _, n, err := readOnce(p.ReadFd()); err != nil || n != 0 {
		t.Fatalf("read = %d, %v, want EOF", n, err)
	}
	if err := p.Release(); !errors.Is(err, ErrAborted) {
		t.Fatalf("Release after Abort = %v, want %v", err, ErrAborted)
	}
}

func TestPipe_ReleaseOnce(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Release(); err != nil {
		t.Fatal(err)
	}
	if err := p.Release(); !errors.Is(err, ErrReleased) {
		t.Fatalf("second Release = %v, want %v", err, ErrReleased)
	}
	if err := p.Abort(); !errors.Is(err, ErrReleased) {
		t.Fatalf("Abort after Release = %v, want %v", err, ErrReleased)
	}

	// exactly one byte then EOF
	if b, n, err := readOnce(p.ReadFd()); err != nil || n != 1 || b != Sentinel {
		t.Fatalf("first read = %q, %d, %v", b, n, err)
	}
	if _, n, err := readOnce(p.ReadFd()); err != nil || n != 0 {
		t.Fatalf("second read = %d, %v, want EOF", n, err)
	}
}

func TestPipe_CloseReadEnd(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.CloseReadEnd(); err != nil {
		t.Fatal(err)
	}
	if p.ReadFd() != -1 {
		t.Fatalf("read fd = %d after close", p.ReadFd())
	}
	// no reader left: the write fails with EPIPE (SIGPIPE is ignored for
	// non-stdio fds by the go runtime)
	if err := p.Release(); err == nil {
		t.Fatal("Release without reader succeeded")
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
