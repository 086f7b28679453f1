package comment

import "strings"

// Phase 表示资金账户生命周期中的阶段。
type Phase int

const (
	PhaseChallenge Phase = iota + 1
	PhaseFunded
	PhaseDoubleDip
	PhaseFarming
	PhaseUnknown
	PhaseLegacy
)

var phaseCodes = map[Phase]string{
	PhaseChallenge: "CH",
	PhaseFunded:    "FD",
	PhaseDoubleDip: "DD",
	PhaseFarming:   "FA",
	PhaseUnknown:   "UNK",
	PhaseLegacy:    "LEGACY",
}

var phaseNames = map[Phase]string{
	PhaseChallenge: "CHALLENGE",
	PhaseFunded:    "FUNDED",
	PhaseDoubleDip: "DOUBLE_DIP",
	PhaseFarming:   "FARMING",
	PhaseUnknown:   "UNKNOWN",
	PhaseLegacy:    "LEGACY",
}

// Code 返回解析与序列化共用的规范代码（CH/FD/DD/FA/UNK/LEGACY）。
func (p Phase) Code() string {
	return phaseCodes[p]
}

// Name 返回阶段的大写名称，用于看板输出。
func (p Phase) Name() string {
	return phaseNames[p]
}

func (p Phase) String() string {
	if name := p.Name(); name != "" {
		return name
	}
	return "INVALID"
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	_, ok := phaseCodes[p]
	return ok
}

// PhaseFromCode 按代码查找阶段，大小写不敏感。
func PhaseFromCode(code string) (Phase, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for p, c := range phaseCodes {
		if c == code {
			return p, true
		}
	}
	return 0, false
}

// Phases lists all phases in declaration order.
func Phases() []Phase {
	return []Phase{PhaseChallenge, PhaseFunded, PhaseDoubleDip, PhaseFarming, PhaseUnknown, PhaseLegacy}
}
