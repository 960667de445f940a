// Package idmap writes user namespace identity mappings for a process from
// outside of its namespace.
package idmap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Mapping is one line of /proc/<pid>/uid_map or gid_map.
//
// Example: {ContainerID: 0, HostID: 1000, Size: 1} makes uid 0 inside the
// namespace appear as uid 1000 outside of it.
type Mapping struct {
	// ContainerID is the first id inside of the user namespace
	ContainerID int `yaml:"container_id"`

	// HostID is the first id outside of the user namespace
	HostID int `yaml:"host_id"`

	// Size is how many consecutive ids the mapping covers
	Size int `yaml:"size"`
}

// Single maps container root to hostID, one id wide
func Single(hostID int) Mapping {
	return Mapping{ContainerID: 0, HostID: hostID, Size: 1}
}

// Validate checks the mapping is something the kernel could accept
func (m Mapping) Validate() error {
	switch {
	case m.ContainerID < 0:
		return fmt.Errorf("idmap: negative container id %d", m.ContainerID)
	case m.HostID < 0:
		return fmt.Errorf("idmap: negative host id %d", m.HostID)
	case m.Size < 1:
		return fmt.Errorf("idmap: size must be at least 1, got %d", m.Size)
	}
	return nil
}

// String renders the mapping in the kernel file format
func (m Mapping) String() string {
	return strconv.Itoa(m.ContainerID) + " " + strconv.Itoa(m.HostID) + " " + strconv.Itoa(m.Size)
}

// Format renders mappings as the full content of a map file
func Format(mappings []Mapping) []byte {
	var data []byte
	for _, m := range mappings {
		data = append(data, m.String()...)
		data = append(data, '\n')
	}
	return data
}

// Parse reads the command line form "container:host:size". The size may be
// omitted and defaults to 1.
func Parse(s string) (Mapping, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Mapping{}, fmt.Errorf("idmap: invalid mapping %q, want container:host[:size]", s)
	}
	var (
		vals = []int{0, 0, 1}
		err  error
	)
	for i, p := range parts {
		if vals[i], err = strconv.Atoi(p); err != nil {
			return Mapping{}, fmt.Errorf("idmap: invalid mapping %q: %w", s, err)
		}
	}
	m := Mapping{ContainerID: vals[0], HostID: vals[1], Size: vals[2]}
	if err := m.Validate(); err != nil {
		return Mapping{}, err
	}
	return m, nil
}

// ParseAll parses every entry; an empty input yields nil
func ParseAll(ss []string) ([]Mapping, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	ret := make([]Mapping, 0, len(ss))
	for _, s := range ss {
		m, err := Parse(s)
		if err != nil {
			return nil, err
		}
		ret = append(ret, m)
	}
	return ret, nil
}

var errEmpty = errors.New("idmap: no mapping given")

func validateAll(mappings []Mapping) error {
	if len(mappings) == 0 {
		return errEmpty
	}
	for _, m := range mappings {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}
