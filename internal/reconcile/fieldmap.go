// Package reconcile maps aggregated trades onto ledger fields and produces
// the mutations of one reconciliation pass.
package reconcile

import (
	"hedgesync/internal/aggregate"
	"hedgesync/internal/comment"
	"hedgesync/internal/ledger"
)

// FieldFor 返回 trade 应写入的台账字段；阶段与序号无法映射时返回 false。
//
//	Challenge 1..5   -> HedgeResult{n}
//	Funded    0      -> HedgeResult1.1
//	Funded    1..4   -> HedgeResult{n+1}.1
//	Funded    5, 6   -> HedgeResult6, HedgeResult7
//	DoubleDip 1..2   -> HedgeResult{n+3}.1
//	DoubleDip 3..4   -> HedgeResult{n+3}
//	Farming          -> HedgeDay{n}（无日期且序号 1..34）或第一个空 HedgeDay
func FieldFor(t *aggregate.AggregatedTrade, row *ledger.EvaluationRecord) (string, bool) {
	return fieldFor(t, row, nil)
}

func fieldFor(t *aggregate.AggregatedTrade, row *ledger.EvaluationRecord, taken func(string) bool) (string, bool) {
	if t == nil {
		return "", false
	}
	if t.Phase == comment.PhaseFarming {
		if t.FarmingDate == nil && t.TradeNumber != nil && *t.TradeNumber >= 1 && *t.TradeNumber <= ledger.HedgeDaySlots {
			return ledger.HedgeDay(int(*t.TradeNumber)), true
		}
		if row == nil {
			return "", false
		}
		return ledger.HedgeDay(farmingSlot(row, taken)), true
	}
	if t.TradeNumber == nil {
		return "", false
	}
	n := int(*t.TradeNumber)
	switch t.Phase {
	case comment.PhaseChallenge:
		if n >= 1 && n <= 5 {
			return ledger.HedgeResult(n), true
		}
	case comment.PhaseFunded:
		switch {
		case n >= 0 && n <= 4:
			return ledger.FundedHedgeResult(n + 1), true
		case n == 5:
			return ledger.HedgeResult(6), true
		case n == 6:
			return ledger.HedgeResult(7), true
		}
	case comment.PhaseDoubleDip:
		switch {
		case n >= 1 && n <= 2:
			return ledger.FundedHedgeResult(n + 3), true
		case n >= 3 && n <= 4:
			return ledger.HedgeResult(n + 3), true
		}
	}
	return "", false
}
