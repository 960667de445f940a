package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prun-project/prun/pkg/idmap"
	"github.com/prun-project/prun/pkg/rlimit"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "prun.yaml")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_NoPath(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c, Default()) {
		t.Errorf("Load(\"\") = %+v, want defaults", c)
	}
}

func TestLoad_Empty(t *testing.T) {
	c, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c, Default()) {
		t.Errorf("Load(empty) = %+v, want defaults", c)
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `
fs_root: /srv/images
hostname: box
poll_interval: 250ms
kill_grace: 3s
allow_setgroups: true
uid_map:
  - {container_id: 0, host_id: 1000, size: 1}
  - {container_id: 1, host_id: 100000, size: 65536}
gid_map:
  - {container_id: 0, host_id: 1000, size: 1}
seccomp:
  enabled: true
  deny: [reboot, kexec_load]
  action: errno:38
rlimits:
  cpu: 10
  open_file: 256
  disable_core: true
log:
  level: debug
`)
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		FSRoot:       "/srv/images",
		HostName:     "box",
		PollInterval: 250 * time.Millisecond,
		KillGrace:    3 * time.Second,
		UIDMap: []idmap.Mapping{
			{ContainerID: 0, HostID: 1000, Size: 1},
			{ContainerID: 1, HostID: 100000, Size: 65536},
		},
		GIDMap:         []idmap.Mapping{idmap.Single(1000)},
		AllowSetgroups: true,
		Seccomp:        SeccompConfig{Enabled: true, Deny: []string{"reboot", "kexec_load"}, Action: "errno:38"},
		RLimits:        rlimit.RLimits{CPU: 10, OpenFile: 256, DisableCore: true},
		// format keeps its default
		Log:            LogConfig{Level: "debug", Format: "text"},
	}
	if !reflect.DeepEqual(c, want) {
		t.Errorf("Load = %+v\nwant %+v", c, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "fsroot: /x\n", "fsroot"},
		{"bad yaml", "hostname: [\n", "prun.yaml"},
		{"bad duration", "poll_interval: soon\n", "time.Duration"},
		{"zero interval", "poll_interval: 0s\n", "poll_interval"},
		{"empty hostname", "hostname: \"\"\n", "hostname"},
		{"negative host id", "uid_map: [{container_id: 0, host_id: -1, size: 1}]\n", "uid_map"},
		{"zero size", "gid_map: [{container_id: 0, host_id: 1, size: 0}]\n", "gid_map"},
		{"unknown syscall", "seccomp: {deny: [no_such_syscall]}\n", "seccomp.deny"},
		{"unknown action", "seccomp: {action: trap}\n", "seccomp.action"},
		{"negative grace", "kill_grace: -1s\n", "kill_grace"},
		{"bad level", "log: {level: loud}\n", "log.level"},
		{"bad format", "log: {format: xml}\n", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load(missing) = %v", err)
	}
}
