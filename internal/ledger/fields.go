package ledger

import "fmt"

// HedgeDaySlots 是每行 Farming 日结果列的数量。
const HedgeDaySlots = 34

// HedgeResult names the challenge columns HedgeResult1..5 and the funded
// columns HedgeResult6/7.
func HedgeResult(n int) string {
	return fmt.Sprintf("HedgeResult%d", n)
}

// FundedHedgeResult names the funded columns HedgeResult1.1..5.1.
func FundedHedgeResult(n int) string {
	return fmt.Sprintf("HedgeResult%d.1", n)
}

func HedgeDay(n int) string {
	return fmt.Sprintf("HedgeDay%d", n)
}

// WritableFields 按台账列顺序返回所有可写入的目标字段。
func WritableFields() []string {
	out := make([]string, 0, 5+7+HedgeDaySlots)
	for i := 1; i <= 5; i++ {
		out = append(out, HedgeResult(i))
	}
	for i := 1; i <= 5; i++ {
		out = append(out, FundedHedgeResult(i))
	}
	out = append(out, HedgeResult(6), HedgeResult(7))
	for i := 1; i <= HedgeDaySlots; i++ {
		out = append(out, HedgeDay(i))
	}
	return out
}

// IsWritable reports whether name is one of the reconciliation target fields.
func IsWritable(name string) bool {
	_, ok := writable[name]
	return ok
}

var writable = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, f := range WritableFields() {
		m[f] = struct{}{}
	}
	return m
}()
