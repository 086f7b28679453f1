// Package aggregate folds raw deals that share a trade identity into
// per-identity rollups.
package aggregate

import (
	"fmt"
	"strings"
	"time"

	"hedgesync/internal/comment"
	"hedgesync/internal/deal"
	"hedgesync/internal/ledger"

	"github.com/shopspring/decimal"
)

// AggregatedTrade 是同一交易身份下所有成交的累加结果。
// 累加保持浮点全精度，只在输出时保留两位小数。
type AggregatedTrade struct {
	Account         string
	Phase           comment.Phase
	PhaseCode       string
	TradeNumber     *uint32
	FarmingDate     *time.Time
	TotalProfit     float64
	TotalCommission float64
	TotalSwap       float64
	TotalFee        float64
	DealCount       uint32
	Deals           []deal.RawDeal
}

func newTrade(id comment.ParsedIdentity) *AggregatedTrade {
	t := &AggregatedTrade{
		Account:     id.AccountOr(""),
		TradeNumber: id.TradeNumber,
		FarmingDate: id.FarmingDate,
	}
	if id.Phase != nil {
		t.Phase = *id.Phase
		t.PhaseCode = id.Phase.Code()
	}
	if id.PhaseCode != nil {
		t.PhaseCode = *id.PhaseCode
	}
	return t
}

func (t *AggregatedTrade) add(d deal.RawDeal) {
	t.TotalProfit += d.Profit
	t.TotalCommission += d.Commission
	t.TotalSwap += d.Swap
	t.TotalFee += d.Fee
	t.DealCount++
	t.Deals = append(t.Deals, d)
}

// merge 按元素相加合并另一个同 key 的部分结果。
func (t *AggregatedTrade) merge(o *AggregatedTrade) {
	t.TotalProfit += o.TotalProfit
	t.TotalCommission += o.TotalCommission
	t.TotalSwap += o.TotalSwap
	t.TotalFee += o.TotalFee
	t.DealCount += o.DealCount
	t.Deals = append(t.Deals, o.Deals...)
}

// NetProfit = profit + commission + swap + fee.
func (t *AggregatedTrade) NetProfit() float64 {
	return t.TotalProfit + t.TotalCommission + t.TotalSwap + t.TotalFee
}

// Key 返回 {account}_{phase_code}{trade_number}{_ddmmyy}，在一次运行内唯一。
func (t *AggregatedTrade) Key() string {
	return identityKey(t.Account, t.PhaseCode, t.TradeNumber, t.FarmingDate)
}

func identityKey(account, code string, trade *uint32, date *time.Time) string {
	var b strings.Builder
	b.WriteString(account)
	b.WriteByte('_')
	b.WriteString(code)
	if trade != nil {
		fmt.Fprintf(&b, "%d", *trade)
	}
	if date != nil {
		b.WriteByte('_')
		b.WriteString(date.Format("020106"))
	}
	return b.String()
}

// Signature is the fuzzy matching signature of the account.
func (t *AggregatedTrade) Signature() string {
	return ledger.Signature(t.Account)
}

// Label 是日志里使用的简短描述，例如 "CH1"、"FA 21/01/26"。
func (t *AggregatedTrade) Label() string {
	s := t.PhaseCode
	if t.TradeNumber != nil {
		s += fmt.Sprintf("%d", *t.TradeNumber)
	}
	if t.FarmingDate != nil {
		s += " " + t.FarmingDate.Format("02/01/06")
	}
	return s
}

// DashboardRow 是看板接口的序列化结构。
type DashboardRow struct {
	AccountNumber   string  `json:"account_number"`
	Phase           string  `json:"phase"`
	PhaseName       string  `json:"phase_name"`
	PhaseCode       string  `json:"phase_code"`
	TradeNumber     *uint32 `json:"trade_number"`
	FarmingDate     *string `json:"farming_date"`
	TotalProfit     float64 `json:"total_profit"`
	TotalCommission float64 `json:"total_commission"`
	TotalSwap       float64 `json:"total_swap"`
	TotalFee        float64 `json:"total_fee"`
	NetProfit       float64 `json:"net_profit"`
	DealCount       uint32  `json:"deal_count"`
	Key             string  `json:"key"`
	Signature       string  `json:"account_signature"`
}

func (t *AggregatedTrade) DashboardRow() DashboardRow {
	row := DashboardRow{
		AccountNumber:   t.Account,
		Phase:           t.Phase.Code(),
		PhaseName:       t.Phase.Name(),
		PhaseCode:       t.PhaseCode,
		TradeNumber:     t.TradeNumber,
		TotalProfit:     Round2(t.TotalProfit),
		TotalCommission: Round2(t.TotalCommission),
		TotalSwap:       Round2(t.TotalSwap),
		TotalFee:        Round2(t.TotalFee),
		NetProfit:       Round2(t.NetProfit()),
		DealCount:       t.DealCount,
		Key:             t.Key(),
		Signature:       t.Signature(),
	}
	if t.FarmingDate != nil {
		s := t.FarmingDate.Format(comment.DateLayout)
		row.FarmingDate = &s
	}
	return row
}

// Round2 rounds a monetary value half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
