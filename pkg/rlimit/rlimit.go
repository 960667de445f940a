// Package rlimit turns the configured resource limits into the prlimit64
// calls made by the cloned child before it becomes the container init.
package rlimit

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Size is a byte count. In YAML it is either a plain number or a string such
// as "64MiB" or "1 GB".
type Size uint64

// UnmarshalYAML implements yaml.Unmarshaler
func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	var n uint64
	if err := value.Decode(&n); err == nil {
		*s = Size(n)
		return nil
	}
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}
	n, err := humanize.ParseBytes(str)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = Size(n)
	return nil
}

// RLimits are applied to the container init and inherited by everything it
// runs. Zero leaves a limit as the launcher has it.
type RLimits struct {
	CPU          uint64 `yaml:"cpu"`      // soft limit in s, SIGXCPU
	CPUHard      uint64 `yaml:"cpu_hard"` // hard limit in s, at least CPU
	Data         Size   `yaml:"data"`
	FileSize     Size   `yaml:"file_size"`
	Stack        Size   `yaml:"stack"`
	AddressSpace Size   `yaml:"address_space"`
	OpenFile     uint64 `yaml:"open_file"`
	DisableCore  bool   `yaml:"disable_core"`
}

// RLimit is one resource limit as passed to prlimit64
type RLimit struct {
	// Res is the resource type (e.g. syscall.RLIMIT_CPU)
	Res int
	// Rlim is the limit applied to that resource
	Rlim syscall.Rlimit
}

// PrepareRLimit lists the limits to apply, in a fixed resource order
func (r *RLimits) PrepareRLimit() []RLimit {
	limits := []struct {
		res      int
		cur, max uint64
		set      bool
	}{
		{syscall.RLIMIT_CPU, r.CPU, max(r.CPU, r.CPUHard), r.CPU > 0},
		{syscall.RLIMIT_DATA, uint64(r.Data), uint64(r.Data), r.Data > 0},
		{syscall.RLIMIT_FSIZE, uint64(r.FileSize), uint64(r.FileSize), r.FileSize > 0},
		{syscall.RLIMIT_STACK, uint64(r.Stack), uint64(r.Stack), r.Stack > 0},
		{syscall.RLIMIT_AS, uint64(r.AddressSpace), uint64(r.AddressSpace), r.AddressSpace > 0},
		{syscall.RLIMIT_NOFILE, r.OpenFile, r.OpenFile, r.OpenFile > 0},
		{syscall.RLIMIT_CORE, 0, 0, r.DisableCore},
	}
	var ret []RLimit
	for _, l := range limits {
		if l.set {
			ret = append(ret, RLimit{Res: l.res, Rlim: syscall.Rlimit{Cur: l.cur, Max: l.max}})
		}
	}
	return ret
}

var resourceNames = map[int]string{
	syscall.RLIMIT_CPU:    "cpu",
	syscall.RLIMIT_DATA:   "data",
	syscall.RLIMIT_FSIZE:  "file_size",
	syscall.RLIMIT_STACK:  "stack",
	syscall.RLIMIT_AS:     "address_space",
	syscall.RLIMIT_NOFILE: "open_file",
	syscall.RLIMIT_CORE:   "core",
}

// String renders the limit as name=soft/hard, sizes humanised
func (r RLimit) String() string {
	name, ok := resourceNames[r.Res]
	if !ok {
		name = fmt.Sprintf("resource(%d)", r.Res)
	}
	switch r.Res {
	case syscall.RLIMIT_CPU:
		return fmt.Sprintf("%s=%ds/%ds", name, r.Rlim.Cur, r.Rlim.Max)
	case syscall.RLIMIT_NOFILE:
		return fmt.Sprintf("%s=%d/%d", name, r.Rlim.Cur, r.Rlim.Max)
	}
	return fmt.Sprintf("%s=%s/%s", name, humanize.IBytes(r.Rlim.Cur), humanize.IBytes(r.Rlim.Max))
}

func (r RLimits) String() string {
	limits := r.PrepareRLimit()
	parts := make([]string, len(limits))
	for i, l := range limits {
		parts[i] = l.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
