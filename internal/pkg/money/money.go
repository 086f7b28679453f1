// Package money formats ledger amounts for human-readable logs.
package money

import (
	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency 是台账金额的币种。
const DefaultCurrency = gomoney.USD

// Format 将金额四舍五入到该币种的最小单位后格式化，例如 221 -> "$221.00"。
func Format(v float64, currency string) string {
	m := gomoney.New(0, currency)
	cur := m.Currency()
	minor := decimal.NewFromFloat(v).Round(int32(cur.Fraction)).Shift(int32(cur.Fraction)).IntPart()
	return cur.Formatter().Format(minor)
}

func FormatUSD(v float64) string {
	return Format(v, DefaultCurrency)
}
