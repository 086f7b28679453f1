package ledger

import (
	"strings"

	"hedgesync/internal/comment"
)

// AccountRole 区分台账行中的 Challenge 账户列与 Funded 账户列。
type AccountRole int

const (
	RoleChallenge AccountRole = iota + 1
	RoleFunded
)

func (r AccountRole) String() string {
	switch r {
	case RoleChallenge:
		return "challenge"
	case RoleFunded:
		return "funded"
	default:
		return "none"
	}
}

// RoleForPhase 返回某阶段可匹配的账户列。Unknown 与 Legacy 没有对应列。
func RoleForPhase(p comment.Phase) (AccountRole, bool) {
	switch p {
	case comment.PhaseChallenge:
		return RoleChallenge, true
	case comment.PhaseFunded, comment.PhaseDoubleDip, comment.PhaseFarming:
		return RoleFunded, true
	default:
		return 0, false
	}
}

// MatchTier names the fallback tier a candidate was found at.
type MatchTier string

const (
	TierExact     MatchTier = "exact"
	TierSuffix12  MatchTier = "suffix12"
	TierSuffix10  MatchTier = "suffix10"
	TierSuffix8   MatchTier = "suffix8"
	TierContains  MatchTier = "contains"
	TierSignature MatchTier = "signature"
)

// Candidate 是一次解析得到的台账行候选。
type Candidate struct {
	Row  int
	Role AccountRole
	Tier MatchTier
}

// Signature 返回账户的模糊匹配签名：前 4 + 后 4 个字符的小写形式；
// 长度不超过 8 时返回整个小写字符串。
func Signature(account string) string {
	account = strings.TrimSpace(account)
	if account == "" {
		return ""
	}
	runes := []rune(account)
	if len(runes) <= 8 {
		return strings.ToLower(account)
	}
	return strings.ToLower(string(runes[:4]) + string(runes[len(runes)-4:]))
}

type matchOptions struct {
	signatureFallback bool
}

// MatchOption tunes Resolve.
type MatchOption func(*matchOptions)

// WithSignatureFallback enables a last tier comparing account signatures.
func WithSignatureFallback(enabled bool) MatchOption {
	return func(o *matchOptions) { o.signatureFallback = enabled }
}

type tier struct {
	name  MatchTier
	match func(account, ledgerValue string) bool
}

var suffixLengths = []struct {
	n    int
	name MatchTier
}{
	{12, TierSuffix12},
	{10, TierSuffix10},
	{8, TierSuffix8},
}

func tiers(opts matchOptions) []tier {
	out := []tier{{name: TierExact, match: func(a, v string) bool { return a == v }}}
	for _, s := range suffixLengths {
		n := s.n
		out = append(out, tier{name: s.name, match: func(a, v string) bool {
			return strings.HasSuffix(strings.ToLower(v), strings.ToLower(tail(a, n)))
		}})
	}
	out = append(out, tier{name: TierContains, match: func(a, v string) bool {
		la, lv := strings.ToLower(a), strings.ToLower(v)
		return strings.Contains(la, lv) || strings.Contains(lv, la)
	}})
	if opts.signatureFallback {
		out = append(out, tier{name: TierSignature, match: func(a, v string) bool {
			return Signature(a) == Signature(v)
		}})
	}
	return out
}

// Resolve 在台账中查找与账户匹配的行。
//
// 仅比较与阶段角色兼容的账户列；按 exact → 后 12/10/8 位 → 包含关系的顺序，
// 在第一个产生候选的层级停止。候选按行顺序返回，调用方取第一个：
// 多行同时命中时沿用"先到先得"，需要消歧的调用方应在上游提供更多上下文。
func Resolve(account string, phase comment.Phase, rows []*EvaluationRecord, opts ...MatchOption) []Candidate {
	account = strings.TrimSpace(account)
	role, ok := RoleForPhase(phase)
	if account == "" || !ok {
		return nil
	}
	var o matchOptions
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	for _, t := range tiers(o) {
		var found []Candidate
		for i, row := range rows {
			if row == nil {
				continue
			}
			v := row.AccountFor(role)
			if v == "" {
				continue
			}
			if t.match(account, v) {
				found = append(found, Candidate{Row: i, Role: role, Tier: t.name})
			}
		}
		if len(found) > 0 {
			return found
		}
	}
	return nil
}

func tail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
