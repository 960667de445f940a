package seccomp

import (
	"fmt"
	"strconv"
	"strings"

	libseccomp "github.com/elastic/go-seccomp-bpf"
)

// Action is seccomp trap action
type Action uint32

// Action defines seccomp action to the syscall
// default value 0 is invalid
const (
	ActionAllow Action = iota + 1
	ActionErrno
	ActionLog
	ActionKill
)

// WithReturnCode set the return code when action is errno
func (a Action) WithReturnCode(code int16) Action {
	return a.Action() | Action(code)<<16
}

// ReturnCode get the return code
func (a Action) ReturnCode() int16 {
	return int16(a >> 16)
}

// Action get the basic action
func (a Action) Action() Action {
	return Action(a & 0xffff)
}

func (a Action) String() string {
	switch a.Action() {
	case ActionAllow:
		return "allow"
	case ActionErrno:
		if code := a.ReturnCode(); code != 0 {
			return "errno:" + strconv.Itoa(int(code))
		}
		return "errno"
	case ActionLog:
		return "log"
	case ActionKill:
		return "kill"
	}
	return "invalid"
}

// ParseAction reads the form written by String: "errno", "errno:<n>", "log"
// or "kill". An empty string is ActionErrno.
func ParseAction(s string) (Action, error) {
	name, code, hasCode := strings.Cut(s, ":")
	var a Action
	switch name {
	case "", "errno":
		a = ActionErrno
	case "log":
		a = ActionLog
	case "kill":
		a = ActionKill
	default:
		return 0, fmt.Errorf("seccomp: unknown action %q", s)
	}
	if !hasCode {
		return a, nil
	}
	if a != ActionErrno {
		return 0, fmt.Errorf("seccomp: action %q takes no return code", name)
	}
	n, err := strconv.ParseInt(code, 10, 16)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("seccomp: invalid errno in %q", s)
	}
	return a.WithReturnCode(int16(n)), nil
}

// toPolicyAction converts action to go-seccomp-bpf action
func (a Action) toPolicyAction() libseccomp.Action {
	switch a.Action() {
	case ActionAllow:
		return libseccomp.ActionAllow
	case ActionErrno:
		// the least 16 bit of ret value is SECCOMP_RET_DATA (errno)
		if code := a.ReturnCode(); code != 0 {
			return libseccomp.ActionErrno | libseccomp.Action(uint16(code))
		}
		return libseccomp.ActionErrno
	case ActionLog:
		return libseccomp.ActionLog
	default:
		return libseccomp.ActionKillProcess
	}
}
