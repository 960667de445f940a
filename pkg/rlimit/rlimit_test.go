package rlimit

import (
	"reflect"
	"syscall"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRLimits_FromYAML(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []RLimit
	}{
		{
			name: "empty",
			doc:  "{}",
		},
		{
			name: "open files only",
			doc:  "open_file: 64",
			want: []RLimit{{Res: syscall.RLIMIT_NOFILE, Rlim: syscall.Rlimit{Cur: 64, Max: 64}}},
		},
		{
			name: "cpu hard below soft is raised",
			doc:  "{cpu: 5, cpu_hard: 2}",
			want: []RLimit{{Res: syscall.RLIMIT_CPU, Rlim: syscall.Rlimit{Cur: 5, Max: 5}}},
		},
		{
			name: "humanised sizes",
			doc: `
cpu: 1
cpu_hard: 3
data: 64MiB
file_size: 1 kB
stack: 8388608
address_space: 1GiB
open_file: 256
disable_core: true`,
			want: []RLimit{
				{Res: syscall.RLIMIT_CPU, Rlim: syscall.Rlimit{Cur: 1, Max: 3}},
				{Res: syscall.RLIMIT_DATA, Rlim: syscall.Rlimit{Cur: 64 << 20, Max: 64 << 20}},
				{Res: syscall.RLIMIT_FSIZE, Rlim: syscall.Rlimit{Cur: 1000, Max: 1000}},
				{Res: syscall.RLIMIT_STACK, Rlim: syscall.Rlimit{Cur: 8 << 20, Max: 8 << 20}},
				{Res: syscall.RLIMIT_AS, Rlim: syscall.Rlimit{Cur: 1 << 30, Max: 1 << 30}},
				{Res: syscall.RLIMIT_NOFILE, Rlim: syscall.Rlimit{Cur: 256, Max: 256}},
				{Res: syscall.RLIMIT_CORE, Rlim: syscall.Rlimit{}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r RLimits
			if err := yaml.Unmarshal([]byte(tt.doc), &r); err != nil {
				t.Fatal(err)
			}
			if got := r.PrepareRLimit(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PrepareRLimit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSize_InvalidYAML(t *testing.T) {
	for _, doc := range []string{"data: lots", "stack: [1]", "address_space: -1"} {
		var r RLimits
		if err := yaml.Unmarshal([]byte(doc), &r); err == nil {
			t.Errorf("Unmarshal(%q) = %+v, want error", doc, r)
		}
	}
}

func TestRLimits_String(t *testing.T) {
	r := RLimits{CPU: 1, CPUHard: 2, Data: 1 << 20, OpenFile: 64, DisableCore: true}
	want := "[cpu=1s/2s data=1.0 MiB/1.0 MiB open_file=64/64 core=0 B/0 B]"
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := (RLimits{}).String(); got != "[]" {
		t.Errorf("empty String() = %q", got)
	}
}
