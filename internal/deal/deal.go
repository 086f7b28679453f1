// Package deal describes raw broker deal records handed over by the deal
// collection side, and decodes them with strict structural checks.
package deal

import (
	"errors"
	"strings"
	"time"
)

// ErrMalformedDeals marks a payload that violates the deal input contract.
var ErrMalformedDeals = errors.New("malformed deals")

// RawDeal 是一条原始成交记录，只读使用。
// Type 与 Entry 保留采集端给出的字符串或数字形式。
type RawDeal struct {
	Ticket     int64     `json:"ticket"`
	Time       time.Time `json:"time"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"`
	Entry      string    `json:"entry"`
	Comment    string    `json:"comment"`
	Volume     float64   `json:"volume"`
	Profit     float64   `json:"profit"`
	Commission float64   `json:"commission"`
	Swap       float64   `json:"swap"`
	Fee        float64   `json:"fee"`
}

// 非交易类成交，不参与聚合。数字 2/3 是旧版 BALANCE/CREDIT 编码。
var balanceTypes = map[string]struct{}{
	"BALANCE":    {},
	"CREDIT":     {},
	"CHARGE":     {},
	"CORRECTION": {},
	"BONUS":      {},
	"2":          {},
	"3":          {},
}

// IsBalanceOperation reports whether the deal is a balance/credit/charge/
// correction/bonus operation rather than a trade.
func (d RawDeal) IsBalanceOperation() bool {
	t := strings.ToUpper(strings.TrimSpace(d.Type))
	t = strings.TrimPrefix(t, "DEAL_TYPE_")
	_, ok := balanceTypes[t]
	return ok
}
