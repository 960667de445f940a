package seccomp

import (
	"fmt"
	"syscall"

	libseccomp "github.com/elastic/go-seccomp-bpf"
	"github.com/elastic/go-seccomp-bpf/arch"
	"golang.org/x/net/bpf"
)

// DefaultDeny are syscalls that make no sense inside of a container and
// could affect the host even from an unprivileged user namespace
var DefaultDeny = []string{
	"kexec_load", "reboot", "init_module", "finit_module", "delete_module",
	"swapon", "swapoff", "acct", "open_by_handle_at",
	"keyctl", "add_key", "request_key",
}

// Builder is used to build a deny-list filter, every syscall not listed is
// allowed
type Builder struct {
	// Deny lists syscalls answered with DenyAction (default: errno EPERM)
	Deny       []string
	DenyAction Action
}

// Build builds the filter for the native architecture
func (b *Builder) Build() (Filter, error) {
	if err := CheckNames(b.Deny); err != nil {
		return nil, err
	}
	denyAction := b.DenyAction
	if denyAction == 0 {
		denyAction = ActionErrno
	}

	policy := libseccomp.Policy{
		DefaultAction: ActionAllow.toPolicyAction(),
	}
	if len(b.Deny) > 0 {
		policy.Syscalls = []libseccomp.SyscallGroup{{
			Action: denyAction.toPolicyAction(),
			Names:  b.Deny,
		}}
	}
	insts, err := policy.Assemble()
	if err != nil {
		return nil, fmt.Errorf("seccomp: assemble policy: %w", err)
	}
	raw, err := bpf.Assemble(insts)
	if err != nil {
		return nil, fmt.Errorf("seccomp: assemble bpf: %w", err)
	}
	return toFilter(raw), nil
}

func toFilter(raw []bpf.RawInstruction) Filter {
	f := make(Filter, 0, len(raw))
	for _, in := range raw {
		f = append(f, syscall.SockFilter{
			Code: in.Op,
			Jt:   in.Jt,
			Jf:   in.Jf,
			K:    in.K,
		})
	}
	return f
}

var info, errInfo = arch.GetInfo("")

// CheckNames verifies every name is a syscall of the native architecture
func CheckNames(names []string) error {
	if errInfo != nil {
		return errInfo
	}
	for _, n := range names {
		if _, ok := info.SyscallNames[n]; !ok {
			return fmt.Errorf("seccomp: unknown syscall %q on %s", n, info.Name)
		}
	}
	return nil
}
