package reconcile

import (
	"testing"
	"time"

	"hedgesync/internal/aggregate"
	"hedgesync/internal/comment"
	"hedgesync/internal/deal"
	"hedgesync/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trade(account string, phase comment.Phase, n *uint32, date *time.Time, net float64) *aggregate.AggregatedTrade {
	return &aggregate.AggregatedTrade{
		Account:     account,
		Phase:       phase,
		PhaseCode:   phase.Code(),
		TradeNumber: n,
		FarmingDate: date,
		TotalProfit: net,
		DealCount:   1,
	}
}

func u32(n uint32) *uint32 { return &n }

func row(id int64, challenge, funded string, extra ...ledger.Field) *ledger.EvaluationRecord {
	fields := append([]ledger.Field{
		{Name: ledger.ChallengeAccountField, Value: challenge},
		{Name: ledger.FundedAccountField, Value: funded},
	}, extra...)
	return ledger.NewRecord(id, fields...)
}

func TestFieldFor_Table(t *testing.T) {
	r := row(1, "C", "F")
	cases := []struct {
		phase comment.Phase
		n     *uint32
		want  string
		ok    bool
	}{
		{comment.PhaseChallenge, u32(1), "HedgeResult1", true},
		{comment.PhaseChallenge, u32(5), "HedgeResult5", true},
		{comment.PhaseChallenge, u32(0), "", false},
		{comment.PhaseChallenge, u32(6), "", false},
		{comment.PhaseChallenge, nil, "", false},
		{comment.PhaseFunded, u32(0), "HedgeResult1.1", true},
		{comment.PhaseFunded, u32(1), "HedgeResult2.1", true},
		{comment.PhaseFunded, u32(4), "HedgeResult5.1", true},
		{comment.PhaseFunded, u32(5), "HedgeResult6", true},
		{comment.PhaseFunded, u32(6), "HedgeResult7", true},
		{comment.PhaseFunded, u32(7), "", false},
		{comment.PhaseDoubleDip, u32(1), "HedgeResult4.1", true},
		{comment.PhaseDoubleDip, u32(2), "HedgeResult5.1", true},
		{comment.PhaseDoubleDip, u32(3), "HedgeResult6", true},
		{comment.PhaseDoubleDip, u32(4), "HedgeResult7", true},
		{comment.PhaseDoubleDip, u32(0), "", false},
		{comment.PhaseDoubleDip, u32(5), "", false},
		{comment.PhaseFarming, u32(7), "HedgeDay7", true},
		{comment.PhaseFarming, u32(35), "HedgeDay1", true},
		{comment.PhaseFarming, nil, "HedgeDay1", true},
		{comment.PhaseUnknown, nil, "", false},
		{comment.PhaseLegacy, u32(3), "", false},
	}
	for _, tc := range cases {
		got, ok := FieldFor(trade("F", tc.phase, tc.n, nil, 1), r)
		assert.Equal(t, tc.ok, ok, "%s %v", tc.phase, tc.n)
		assert.Equal(t, tc.want, got, "%s %v", tc.phase, tc.n)
	}

	d := time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC)
	got, ok := FieldFor(trade("F", comment.PhaseFarming, u32(7), &d, 1), r)
	assert.True(t, ok)
	assert.Equal(t, "HedgeDay1", got, "dated farming uses slot allocation")
}

func TestFarmingSlot(t *testing.T) {
	r := row(1, "", "F",
		ledger.Field{Name: "HedgeDay1", Value: 10.0},
		ledger.Field{Name: "HedgeDay2", Value: "$5.00"},
		ledger.Field{Name: "HedgeDay3", Value: -2.5},
		ledger.Field{Name: "HedgeDay4", Value: "0"},
	)
	assert.Equal(t, 4, FarmingSlot(r))

	full := row(2, "", "F")
	for i := 1; i <= ledger.HedgeDaySlots; i++ {
		full.Set(ledger.HedgeDay(i), 1.0)
	}
	assert.Equal(t, ledger.HedgeDaySlots, FarmingSlot(full))
}

func TestRun_FarmingSlotsSequential(t *testing.T) {
	rows := []*ledger.EvaluationRecord{row(7, "", "FUNDED123",
		ledger.Field{Name: "HedgeDay1", Value: 1.0},
		ledger.Field{Name: "HedgeDay2", Value: 2.0},
		ledger.Field{Name: "HedgeDay3", Value: 3.0},
	)}
	d1 := time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC)
	rep := New().Run([]*aggregate.AggregatedTrade{
		trade("FUNDED123", comment.PhaseFarming, nil, &d1, 40),
		trade("FUNDED123", comment.PhaseFarming, nil, &d2, 0),
		trade("FUNDED123", comment.PhaseFarming, nil, nil, 15),
	}, rows)

	require.Len(t, rep.Mutations, 3)
	assert.Equal(t, "HedgeDay4", rep.Mutations[0].Field)
	assert.Equal(t, "HedgeDay5", rep.Mutations[1].Field)
	// HedgeDay5 写入了 0，但本轮已被占用
	assert.Equal(t, "HedgeDay6", rep.Mutations[2].Field)
	assert.Equal(t, int64(7), rep.Mutations[0].RowID)

	_, ok := rows[0].Get("HedgeDay4")
	assert.False(t, ok, "input rows are not mutated")
	v, _ := rep.Rows[0].Get("HedgeDay4")
	assert.Equal(t, 40.0, v)
}

func TestRun_Outcomes(t *testing.T) {
	rows := []*ledger.EvaluationRecord{
		row(1, "MFFUEVSTP326057008", "MFFUFUNDED99887766"),
		row(2, "MFFUEVSTP326057008", ""),
	}
	rep := New().Run([]*aggregate.AggregatedTrade{
		trade("MFFUEVSTP326057008", comment.PhaseChallenge, u32(1), nil, 221),
		trade("NOPE", comment.PhaseChallenge, u32(1), nil, 5),
		trade("MFFUEVSTP326057008", comment.PhaseChallenge, u32(9), nil, 5),
		trade("MFFUEVSTP326057008", comment.PhaseUnknown, nil, nil, 5),
		trade("MFFUFUNDED99887766", comment.PhaseFunded, u32(3), nil, 500),
	}, rows)

	require.Len(t, rep.Outcomes, 5)
	assert.Equal(t, Outcome{Key: "MFFUEVSTP326057008_CH1", Status: StatusMatched, Row: 0, Field: "HedgeResult1", Tier: ledger.TierExact}, rep.Outcomes[0])
	assert.Equal(t, StatusNoLedgerMatch, rep.Outcomes[1].Status)
	assert.Equal(t, -1, rep.Outcomes[1].Row)
	assert.Equal(t, StatusNoFieldMapping, rep.Outcomes[2].Status)
	assert.Equal(t, StatusNoFieldMapping, rep.Outcomes[3].Status)
	assert.Equal(t, "HedgeResult4.1", rep.Outcomes[4].Field)

	require.Len(t, rep.Mutations, 2)
	assert.Equal(t, Mutation{Row: 0, RowID: 1, Field: "HedgeResult1", Value: 221, Key: "MFFUEVSTP326057008_CH1"}, rep.Mutations[0])
	assert.Equal(t, 2, rep.Count(StatusNoFieldMapping))
	require.Len(t, rep.Log, 5)
	assert.Contains(t, rep.Log[0], "MFFUEVSTP326057008_CH1 -> row 0 HedgeResult1 = $221.00")
	assert.Contains(t, rep.Log[1], "no_ledger_match")
}

func TestRun_ConflictSkipsSecondKey(t *testing.T) {
	rows := []*ledger.EvaluationRecord{row(1, "", "ACC")}
	rep := New().Run([]*aggregate.AggregatedTrade{
		trade("ACC", comment.PhaseFunded, u32(3), nil, 100),
		trade("ACC", comment.PhaseDoubleDip, u32(1), nil, 200),
	}, rows)
	require.Len(t, rep.Mutations, 1)
	assert.Equal(t, "ACC_FD3", rep.Mutations[0].Key)
	assert.Equal(t, StatusConflict, rep.Outcomes[1].Status)
	assert.Equal(t, "HedgeResult4.1", rep.Outcomes[1].Field)
	assert.Contains(t, rep.Outcomes[1].Reason, "ACC_FD3")
}

func TestRun_IdempotentWithPriorAssignments(t *testing.T) {
	rows := []*ledger.EvaluationRecord{row(3, "", "ACC",
		ledger.Field{Name: "HedgeDay1", Value: 9.0},
	)}
	d := time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC)
	trades := []*aggregate.AggregatedTrade{
		trade("ACC", comment.PhaseFarming, nil, &d, 40),
		trade("ACC", comment.PhaseFunded, u32(1), nil, 12.345),
	}
	first := New().Run(trades, rows)
	require.Len(t, first.Mutations, 2)
	assert.Equal(t, "HedgeDay2", first.Mutations[0].Field)

	// 第二次以第一次写入后的台账为输入
	second := New(WithPriorAssignments(first.Assignments)).Run(trades, first.Rows)
	assert.Equal(t, first.Mutations, second.Mutations)

	// 不带历史分配时 Farming 会落到下一格
	naive := New().Run(trades, first.Rows)
	assert.Equal(t, "HedgeDay3", naive.Mutations[0].Field)
}

func TestRun_PriorAssignmentBlocksOtherKey(t *testing.T) {
	rows := []*ledger.EvaluationRecord{row(3, "", "ACC")}
	prior := []Assignment{{RowID: 3, Key: "ACC_FA_200126", Field: "HedgeDay1"}}
	rep := New(WithPriorAssignments(prior)).Run([]*aggregate.AggregatedTrade{
		trade("ACC", comment.PhaseFarming, nil, nil, 5),
	}, rows)
	require.Len(t, rep.Mutations, 1)
	assert.Equal(t, "HedgeDay2", rep.Mutations[0].Field)
}

func TestRun_SignatureFallbackOption(t *testing.T) {
	rows := []*ledger.EvaluationRecord{row(1, "MFFU-x-7008", "")}
	tr := trade("MFFUEVSTP326057008", comment.PhaseChallenge, u32(2), nil, 1)

	rep := New().Run([]*aggregate.AggregatedTrade{tr}, rows)
	assert.Equal(t, StatusNoLedgerMatch, rep.Outcomes[0].Status)

	rep = New(WithMatchOptions(ledger.WithSignatureFallback(true))).Run([]*aggregate.AggregatedTrade{tr}, rows)
	assert.Equal(t, StatusMatched, rep.Outcomes[0].Status)
	assert.Equal(t, ledger.TierSignature, rep.Outcomes[0].Tier)
}

func TestRun_EndToEndFromDeals(t *testing.T) {
	res := aggregate.Aggregate([]deal.RawDeal{
		{Type: "SELL", Comment: "MFFUEVSTP326057008_CH1", Profit: 150.00, Commission: -2.50},
		{Type: "BUY", Comment: "MFFUEVSTP326057008_CH1", Profit: 75.25, Commission: -1.25, Swap: -0.50},
	})
	rep := New().Run(res.Trades, []*ledger.EvaluationRecord{row(11, "MFFUEVSTP326057008", "")})
	require.Len(t, rep.Mutations, 1)
	assert.Equal(t, "HedgeResult1", rep.Mutations[0].Field)
	assert.InDelta(t, 221.00, rep.Mutations[0].Value, 1e-9)
}
