package reconcile

import "hedgesync/internal/ledger"

// FarmingSlot 返回行中第一个为空（nil、空白或 0）的 HedgeDay 序号；
// 34 个全部占用时返回 34，覆盖最后一格。
//
// 槽位只取决于解析时台账的现有状态，与 Farming 日期无关。
// TODO: 按日期排序分配槽位需要先确认台账是否允许重排已写入的 HedgeDay 列。
func FarmingSlot(row *ledger.EvaluationRecord) int {
	return farmingSlot(row, nil)
}

// taken 额外标记本轮已分配但值可能为 0 的格子。
func farmingSlot(row *ledger.EvaluationRecord, taken func(string) bool) int {
	for i := 1; i <= ledger.HedgeDaySlots; i++ {
		name := ledger.HedgeDay(i)
		if taken != nil && taken(name) {
			continue
		}
		v, _ := row.Get(name)
		if ledger.IsBlank(v) {
			return i
		}
	}
	return ledger.HedgeDaySlots
}
