package aggregate

import (
	"fmt"
	"strings"

	"hedgesync/internal/comment"
	"hedgesync/internal/deal"
)

// 解析日志前缀。
const (
	logAggregated = "✅ Aggregated"
	logUnmatched  = "⚠️ Unmatched"
	logSkipped    = "⏭️ Skipped"
)

// Result 是一次聚合的输出：按首次出现顺序排列的汇总、未匹配成交与解析日志。
type Result struct {
	Trades    []*AggregatedTrade
	Unmatched []deal.RawDeal
	Log       []string
}

// Trade looks a rollup up by key.
func (r Result) Trade(key string) (*AggregatedTrade, bool) {
	for _, t := range r.Trades {
		if t.Key() == key {
			return t, true
		}
	}
	return nil, false
}

// accumulator 仅存活于一次聚合调用内。
type accumulator struct {
	byKey map[string]*AggregatedTrade
	res   Result
}

func newAccumulator() *accumulator {
	return &accumulator{byKey: make(map[string]*AggregatedTrade)}
}

func (a *accumulator) fold(d deal.RawDeal) {
	if d.IsBalanceOperation() {
		a.res.Log = append(a.res.Log, fmt.Sprintf("%s: %s %s", logSkipped, strings.ToUpper(strings.TrimSpace(d.Type)), displayComment(d.Comment)))
		return
	}
	id := comment.Parse(d.Comment)
	if !id.Valid || id.Account == nil {
		a.res.Unmatched = append(a.res.Unmatched, d)
		a.res.Log = append(a.res.Log, fmt.Sprintf("%s: %s", logUnmatched, displayComment(d.Comment)))
		return
	}
	key := identityKey(id.AccountOr(""), phaseCode(id), id.TradeNumber, id.FarmingDate)
	t, ok := a.byKey[key]
	if !ok {
		t = newTrade(id)
		a.byKey[key] = t
		a.res.Trades = append(a.res.Trades, t)
	}
	t.add(d)
	a.res.Log = append(a.res.Log, fmt.Sprintf("%s: %s -> %s", logAggregated, strings.TrimSpace(d.Comment), key))
}

// absorb 合并另一个分片的部分结果；分片按输入顺序依次合并，保证顺序与串行聚合一致。
func (a *accumulator) absorb(part Result) {
	for _, t := range part.Trades {
		key := t.Key()
		if cur, ok := a.byKey[key]; ok {
			cur.merge(t)
			continue
		}
		a.byKey[key] = t
		a.res.Trades = append(a.res.Trades, t)
	}
	a.res.Unmatched = append(a.res.Unmatched, part.Unmatched...)
	a.res.Log = append(a.res.Log, part.Log...)
}

// Aggregate 对成交做一次无状态的折叠：跳过余额类操作，无法识别的注释进入
// Unmatched，其余按身份 key 累加四项金额与成交数。
// 累加是交换的：成交顺序只影响 Deals 审计列表的顺序，不影响合计。
func Aggregate(deals []deal.RawDeal) Result {
	acc := newAccumulator()
	for _, d := range deals {
		acc.fold(d)
	}
	return acc.res
}

func phaseCode(id comment.ParsedIdentity) string {
	if id.PhaseCode != nil {
		return *id.PhaseCode
	}
	if id.Phase != nil {
		return id.Phase.Code()
	}
	return ""
}

func displayComment(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return "(empty)"
	}
	return c
}
