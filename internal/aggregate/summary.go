package aggregate

import "strings"

type PhaseTotal struct {
	Count          int     `json:"count"`
	TotalNetProfit float64 `json:"total_net_profit"`
}

type AccountTotal struct {
	Phases         map[string]float64 `json:"phases"`
	TotalNetProfit float64            `json:"total_net_profit"`
}

// Summary 汇总一次聚合的结果，按阶段与账户分组。
type Summary struct {
	TotalAggregations int                     `json:"total_aggregations"`
	TotalUnmatched    int                     `json:"total_unmatched"`
	ByPhase           map[string]PhaseTotal   `json:"by_phase"`
	ByAccount         map[string]AccountTotal `json:"by_account"`
	ParseLog          []string                `json:"parse_log"`
}

// Summarize groups rollups by phase name and by account. Per-account phase
// entries are keyed by the rollup key without the account prefix (CH1, FA_210126).
func Summarize(r Result) Summary {
	s := Summary{
		TotalAggregations: len(r.Trades),
		TotalUnmatched:    len(r.Unmatched),
		ByPhase:           make(map[string]PhaseTotal),
		ByAccount:         make(map[string]AccountTotal),
		ParseLog:          append([]string(nil), r.Log...),
	}
	for _, t := range r.Trades {
		net := t.NetProfit()

		p := s.ByPhase[t.Phase.Name()]
		p.Count++
		p.TotalNetProfit += net
		s.ByPhase[t.Phase.Name()] = p

		a, ok := s.ByAccount[t.Account]
		if !ok {
			a.Phases = make(map[string]float64)
		}
		a.Phases[strings.TrimPrefix(t.Key(), t.Account+"_")] = Round2(net)
		a.TotalNetProfit += net
		s.ByAccount[t.Account] = a
	}
	for k, p := range s.ByPhase {
		p.TotalNetProfit = Round2(p.TotalNetProfit)
		s.ByPhase[k] = p
	}
	for k, a := range s.ByAccount {
		a.TotalNetProfit = Round2(a.TotalNetProfit)
		s.ByAccount[k] = a
	}
	return s
}
