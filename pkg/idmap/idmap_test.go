package idmap

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Mapping
		wantErr bool
	}{
		{in: "0:1000:1", want: Mapping{0, 1000, 1}},
		{in: "0:1000", want: Mapping{0, 1000, 1}},
		{in: "1:100000:65536", want: Mapping{1, 100000, 65536}},
		{in: "0", wantErr: true},
		{in: "0:1:2:3", wantErr: true},
		{in: "a:1000:1", wantErr: true},
		{in: "0:-1:1", wantErr: true},
		{in: "0:1000:0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAll(t *testing.T) {
	got, err := ParseAll(nil)
	if err != nil || got != nil {
		t.Fatalf("ParseAll(nil) = %v, %v", got, err)
	}
	got, err = ParseAll([]string{"0:1000:1", "1:100000:10"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].HostID != 100000 {
		t.Fatalf("ParseAll = %+v", got)
	}
	if _, err := ParseAll([]string{"0:1000:1", "bad"}); err == nil {
		t.Fatal("ParseAll accepted a bad entry")
	}
}

func TestFormat(t *testing.T) {
	got := string(Format([]Mapping{Single(1000), {ContainerID: 1, HostID: 100000, Size: 65536}}))
	want := "0 1000 1\n1 100000 65536\n"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

// fakeProc lays out <root>/<pid>/{uid_map,gid_map,setgroups} as empty files
func fakeProc(t *testing.T, pid int) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, strconv.Itoa(pid))
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"uid_map", "gid_map", "setgroups"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func readProc(t *testing.T, root string, pid int, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, strconv.Itoa(pid), name))
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestWriter_Write(t *testing.T) {
	const pid = 4242
	root := fakeProc(t, pid)
	w := Writer{ProcRoot: root}

	if err := w.Write(pid, []Mapping{Single(1000)}, []Mapping{Single(1001)}); err != nil {
		t.Fatal(err)
	}
	if got := readProc(t, root, pid, "uid_map"); got != "0 1000 1\n" {
		t.Errorf("uid_map = %q", got)
	}
	if got := readProc(t, root, pid, "setgroups"); got != "deny" {
		t.Errorf("setgroups = %q", got)
	}
	if got := readProc(t, root, pid, "gid_map"); got != "0 1001 1\n" {
		t.Errorf("gid_map = %q", got)
	}
}

func TestWriter_UIDOnly(t *testing.T) {
	const pid = 7
	root := fakeProc(t, pid)
	w := Writer{ProcRoot: root}

	if err := w.Write(pid, []Mapping{Single(1000)}, nil); err != nil {
		t.Fatal(err)
	}
	if got := readProc(t, root, pid, "setgroups"); got != "" {
		t.Errorf("setgroups written without gid mapping: %q", got)
	}
	if got := readProc(t, root, pid, "gid_map"); got != "" {
		t.Errorf("gid_map written without gid mapping: %q", got)
	}
}

func TestWriter_AllowSetgroups(t *testing.T) {
	const pid = 8
	root := fakeProc(t, pid)
	w := Writer{ProcRoot: root, AllowSetgroups: true}

	if err := w.WriteGID(pid, []Mapping{Single(0)}); err != nil {
		t.Fatal(err)
	}
	if got := readProc(t, root, pid, "setgroups"); got != "allow" {
		t.Errorf("setgroups = %q", got)
	}
}

func TestWriter_Errors(t *testing.T) {
	w := Writer{ProcRoot: t.TempDir()}

	// missing process directory
	if err := w.WriteUID(1, []Mapping{Single(1000)}); err == nil {
		t.Error("WriteUID succeeded without a map file")
	}
	// nothing to write
	if err := w.WriteUID(1, nil); err != errEmpty {
		t.Errorf("WriteUID(nil) = %v, want %v", err, errEmpty)
	}
	// invalid entry is rejected before touching the file
	if err := w.WriteUID(1, []Mapping{{Size: 0}}); err == nil {
		t.Error("WriteUID accepted a zero sized mapping")
	}
}
