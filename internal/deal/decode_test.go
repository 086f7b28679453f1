package deal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Valid(t *testing.T) {
	raw := []byte(`[
	  {"ticket": 1001, "time": 1768953600, "symbol": "NQ", "comment": "ACC_CH1", "type": "SELL", "entry": "OUT",
	   "profit": 150.0, "commission": -2.5, "swap": 0, "fee": null, "volume": "1.5"},
	  {"comment": null, "type": 2, "entry": 0, "profit": "$10,000.00", "commission": "", "swap": "0", "fee": 0,
	   "time": "2026-01-21T10:00:00Z"}
	]`)
	deals, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, deals, 2)

	d := deals[0]
	assert.Equal(t, int64(1001), d.Ticket)
	assert.Equal(t, "NQ", d.Symbol)
	assert.Equal(t, "ACC_CH1", d.Comment)
	assert.Equal(t, "SELL", d.Type)
	assert.Equal(t, "OUT", d.Entry)
	assert.Equal(t, 150.0, d.Profit)
	assert.Equal(t, -2.5, d.Commission)
	assert.Equal(t, 0.0, d.Fee)
	assert.Equal(t, 1.5, d.Volume)
	assert.Equal(t, time.Unix(1768953600, 0).UTC(), d.Time)

	d = deals[1]
	assert.Equal(t, "", d.Comment)
	assert.Equal(t, "2", d.Type)
	assert.Equal(t, "0", d.Entry)
	assert.Equal(t, 10000.0, d.Profit)
	assert.True(t, d.IsBalanceOperation())
	assert.Equal(t, 2026, d.Time.Year())
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":            ``,
		"not json":         `[{"comment":`,
		"not array":        `{"comment": "x"}`,
		"item not object":  `[1]`,
		"missing profit":   `[{"comment": "A_CH1", "type": "BUY", "entry": "OUT", "commission": 0, "swap": 0, "fee": 0}]`,
		"non numeric swap": `[{"comment": "A_CH1", "type": "BUY", "entry": "OUT", "profit": 1, "commission": 0, "swap": "abc", "fee": 0}]`,
		"bad type kind":    `[{"comment": "A_CH1", "type": true, "entry": "OUT", "profit": 1, "commission": 0, "swap": 0, "fee": 0}]`,
		"bad time":         `[{"comment": "A_CH1", "type": "BUY", "entry": "OUT", "profit": 1, "commission": 0, "swap": 0, "fee": 0, "time": "yesterday"}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedDeals))
		})
	}
}

func TestDecode_ErrorNamesDealIndex(t *testing.T) {
	raw := `[
	  {"comment": "A_CH1", "type": "BUY", "entry": "OUT", "profit": 1, "commission": 0, "swap": 0, "fee": 0},
	  {"comment": "A_CH1", "type": "BUY", "entry": "OUT", "commission": 0, "swap": 0, "fee": 0}
	]`
	_, err := Decode([]byte(raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deal #1")
}

func TestIsBalanceOperation(t *testing.T) {
	for _, typ := range []string{"BALANCE", "balance", "CREDIT", "CHARGE", "CORRECTION", "BONUS", "2", "3", "DEAL_TYPE_BALANCE"} {
		assert.True(t, RawDeal{Type: typ}.IsBalanceOperation(), typ)
	}
	for _, typ := range []string{"BUY", "SELL", "0", "1", ""} {
		assert.False(t, RawDeal{Type: typ}.IsBalanceOperation(), typ)
	}
}
