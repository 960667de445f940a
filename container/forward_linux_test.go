package container

import (
	"bufio"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/sys/unix"
)

// startReady starts script and waits until it printed its first line
func startReady(t *testing.T, script string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("/bin/sh", "-c", script)
	out, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	if _, err := bufio.NewReader(out).ReadString('\n'); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		t.Fatal(err)
	}
	return cmd
}

func waitStatus(t *testing.T, cmd *exec.Cmd) syscall.WaitStatus {
	t.Helper()
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		cmd.Process.Kill()
		<-done
		t.Fatal("process did not exit")
	}
	return cmd.ProcessState.Sys().(syscall.WaitStatus)
}

func TestForwarder(t *testing.T) {
	const ignoreTerm = `trap '' TERM INT; echo ready; exec sleep 30`
	tests := []struct {
		name       string
		script     string
		grace      time.Duration
		signals    []os.Signal
		wantSignal syscall.Signal
		wantExit   int
		wantLog    string
	}{
		{
			name:    "handled signal is forwarded",
			script:  `trap 'exit 3' TERM; echo ready; while :; do sleep 0.05; done`,
			grace:   time.Hour,
			signals: []os.Signal{unix.SIGTERM},
			// exit instead of a signal status
			wantExit: 3,
			wantLog:  "forwarded signal",
		},
		{
			name:       "grace period expires",
			script:     ignoreTerm,
			grace:      50 * time.Millisecond,
			signals:    []os.Signal{unix.SIGTERM},
			wantSignal: unix.SIGKILL,
			wantLog:    "grace period expired",
		},
		{
			name:       "second signal",
			script:     ignoreTerm,
			grace:      time.Hour,
			signals:    []os.Signal{unix.SIGTERM, unix.SIGINT},
			wantSignal: unix.SIGKILL,
			wantLog:    "signal received again",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := startReady(t, tt.script)
			logger, hook := test.NewNullLogger()

			sigCh := make(chan os.Signal, len(tt.signals))
			done := make(chan struct{})
			defer close(done)
			fw := &forwarder{pid: cmd.Process.Pid, grace: tt.grace, logger: logger}
			go fw.run(sigCh, done)
			for _, s := range tt.signals {
				sigCh <- s
			}

			ws := waitStatus(t, cmd)
			if tt.wantSignal != 0 {
				if !ws.Signaled() || ws.Signal() != tt.wantSignal {
					t.Fatalf("status = %#x, want killed by %v", uint32(ws), tt.wantSignal)
				}
			} else if !ws.Exited() || ws.ExitStatus() != tt.wantExit {
				t.Fatalf("status = %#x, want exit %d", uint32(ws), tt.wantExit)
			}

			if !hasEntry(hook, tt.wantLog) {
				t.Errorf("no %q entry logged", tt.wantLog)
			}
			for _, e := range hook.AllEntries() {
				if v, ok := e.Data["error"]; ok && v == nil {
					t.Errorf("%q logged with a nil error", e.Message)
				}
			}
		})
	}
}
