// Package comment decodes broker trade comments into trade identities.
//
// Comment format: {account}_{phase suffix}, for example MFFUEVSTP326057008_CH1.
package comment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const legacyPrefix = "Combine"

// DateLayout is the ISO-8601 calendar date used when serialising farming dates.
const DateLayout = "2006-01-02"

// ParsedIdentity 是单条注释的解析结果，创建后不再修改。
//
// Valid 为 true 时 Account 与 Phase 必定非空；只有账户而无阶段后缀的注释
// 会得到 Account != nil 且 Valid == false，与空注释（全部为 nil）区分。
type ParsedIdentity struct {
	Account     *string
	Phase       *Phase
	PhaseCode   *string
	TradeNumber *uint32
	FarmingDate *time.Time
	RawComment  string
	Valid       bool
}

// AccountOr returns the account or fallback when absent.
func (p ParsedIdentity) AccountOr(fallback string) string {
	if p.Account == nil {
		return fallback
	}
	return *p.Account
}

func (p ParsedIdentity) String() string {
	if !p.Valid || p.Phase == nil {
		return "Invalid: " + p.RawComment
	}
	var b strings.Builder
	b.WriteString(p.AccountOr(""))
	b.WriteString(" | ")
	b.WriteString(p.Phase.Name())
	if p.TradeNumber != nil {
		fmt.Fprintf(&b, " Trade #%d", *p.TradeNumber)
	}
	if p.FarmingDate != nil {
		fmt.Fprintf(&b, " (%s)", p.FarmingDate.Format("02/01/06"))
	}
	return b.String()
}

// Map 输出与看板接口一致的字典结构。
func (p ParsedIdentity) Map() map[string]any {
	out := map[string]any{
		"account_number": nil,
		"phase":          nil,
		"phase_name":     nil,
		"phase_code":     nil,
		"trade_number":   nil,
		"farming_date":   nil,
		"raw_comment":    p.RawComment,
		"is_valid":       p.Valid,
	}
	if p.Account != nil {
		out["account_number"] = *p.Account
	}
	if p.Phase != nil {
		out["phase"] = p.Phase.Code()
		out["phase_name"] = p.Phase.Name()
	}
	if p.PhaseCode != nil {
		out["phase_code"] = *p.PhaseCode
	}
	if p.TradeNumber != nil {
		out["trade_number"] = *p.TradeNumber
	}
	if p.FarmingDate != nil {
		out["farming_date"] = p.FarmingDate.Format(DateLayout)
	}
	return out
}

// Rule 是有序规则表中的一项：pattern 命中后由 build 生成结果。
// build 返回 false 表示该规则放弃匹配，继续尝试下一条。
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	build   func(m []string, raw string) (ParsedIdentity, bool)
}

// 规则顺序即优先级，越具体越靠前。关键字大小写不敏感，账户部分保持原样。
var rules = []Rule{
	{
		Name:    "numbered",
		Pattern: regexp.MustCompile(`^(.+?)_((?i:CH|FD|DD))(\d+)$`),
		build:   buildNumbered,
	},
	{
		Name:    "farming_dated",
		Pattern: regexp.MustCompile(`^(.+?)_(?i:FA)_(\d{6})$`),
		build:   buildFarmingDated,
	},
	{
		Name:    "farming",
		Pattern: regexp.MustCompile(`^(.+?)_(?i:FA)$`),
		build: func(m []string, raw string) (ParsedIdentity, bool) {
			return identity(m[1], PhaseFarming, nil, nil, raw), true
		},
	},
	{
		Name:    "unknown",
		Pattern: regexp.MustCompile(`^(.+?)_(?i:UNK)$`),
		build: func(m []string, raw string) (ParsedIdentity, bool) {
			return identity(m[1], PhaseUnknown, nil, nil, raw), true
		},
	},
	{
		Name:    "legacy",
		Pattern: regexp.MustCompile(`^(?i:Combine)(\d+)_(.*)$`),
		build:   buildLegacy,
	},
}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

// Parse 解析一条注释，永不失败；无法识别时 Valid 为 false。
func Parse(raw string) ParsedIdentity {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ParsedIdentity{RawComment: raw}
	}
	for _, r := range rules {
		m := r.Pattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		if out, ok := r.build(m, trimmed); ok {
			return out
		}
	}
	out := ParsedIdentity{RawComment: trimmed}
	if !strings.HasPrefix(trimmed, legacyPrefix) {
		account := trimmed
		out.Account = &account
	}
	return out
}

func buildNumbered(m []string, raw string) (ParsedIdentity, bool) {
	n, ok := parseOrdinal(m[3])
	if !ok {
		return ParsedIdentity{}, false
	}
	phase, ok := PhaseFromCode(m[2])
	if !ok {
		phase = PhaseUnknown
	}
	return identity(m[1], phase, &n, nil, raw), true
}

func buildFarmingDated(m []string, raw string) (ParsedIdentity, bool) {
	// 日期尽力解析，失败时保留为空但仍视为有效的 Farming 身份
	return identity(m[1], PhaseFarming, nil, parseDDMMYY(m[2]), raw), true
}

func buildLegacy(m []string, raw string) (ParsedIdentity, bool) {
	n, ok := parseOrdinal(m[1])
	if !ok {
		return ParsedIdentity{}, false
	}
	return identity(legacyPrefix+m[1], PhaseLegacy, &n, nil, raw), true
}

func identity(account string, phase Phase, trade *uint32, date *time.Time, raw string) ParsedIdentity {
	p := phase
	code := phase.Code()
	return ParsedIdentity{
		Account:     &account,
		Phase:       &p,
		PhaseCode:   &code,
		TradeNumber: trade,
		FarmingDate: date,
		RawComment:  raw,
		Valid:       true,
	}
}

func parseOrdinal(digits string) (uint32, bool) {
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// parseDDMMYY 将 DDMMYY 解析为 20YY 年的 UTC 日期，非法日期返回 nil。
func parseDDMMYY(s string) *time.Time {
	if len(s) != 6 {
		return nil
	}
	day, err1 := strconv.Atoi(s[0:2])
	month, err2 := strconv.Atoi(s[2:4])
	yy, err3 := strconv.Atoi(s[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	if month < 1 || month > 12 || day < 1 {
		return nil
	}
	t := time.Date(2000+yy, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return nil
	}
	return &t
}
