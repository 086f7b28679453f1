package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_OrderAndSet(t *testing.T) {
	r := NewRecord(1,
		Field{Name: "Name", Value: "row"},
		Field{Name: HedgeResult(1), Value: nil},
	)
	r.Set(HedgeResult(1), 12.5)
	r.Set(HedgeDay(1), 3.0)
	assert.Equal(t, []string{"Name", "HedgeResult1", "HedgeDay1"}, r.Names())

	v, ok := r.Get(HedgeResult(1))
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	c := r.Clone()
	c.Set("Name", "changed")
	assert.Equal(t, "row", r.Text("Name"))
	assert.Equal(t, "changed", c.Text("Name"))
}

func TestIsBlank(t *testing.T) {
	for _, v := range []any{nil, "", "  ", "0", "0.00", "$0.00", 0, 0.0, int64(0)} {
		assert.True(t, IsBlank(v), "%#v", v)
	}
	for _, v := range []any{"12", "-1.5", 3.2, "n/a", "x"} {
		assert.False(t, IsBlank(v), "%#v", v)
	}
}

func TestWritableFields(t *testing.T) {
	f := WritableFields()
	assert.Len(t, f, 5+5+2+HedgeDaySlots)
	assert.Equal(t, "HedgeResult1", f[0])
	assert.Equal(t, "HedgeResult1.1", f[5])
	assert.Equal(t, "HedgeDay34", f[len(f)-1])
	assert.True(t, IsWritable("HedgeResult7"))
	assert.False(t, IsWritable("HedgeResult8"))
	assert.False(t, IsWritable("HedgeDay35"))
}

func TestDecodeRows_KeepsFieldOrder(t *testing.T) {
	rows, err := DecodeRows([]byte(`[
	  {"Name": "Alice", "Account #": "MFFU7008", "HedgeResult1": 12.5, "HedgeDay1": null, "Active": true},
	  {"challenge_account": "X", "funded_account": "Y"}
	]`))
	if !assert.NoError(t, err) {
		return
	}
	assert.Len(t, rows, 2)
	assert.Equal(t, []string{"Name", "Account #", "HedgeResult1", "HedgeDay1", "Active"}, rows[0].Names())
	assert.Equal(t, "MFFU7008", rows[0].ChallengeAccount())
	v, _ := rows[0].Get("HedgeResult1")
	assert.Equal(t, 12.5, v)
	assert.Equal(t, "true", rows[0].Text("Active"))
	assert.Equal(t, "Y", rows[1].FundedAccount())

	for _, bad := range []string{``, `{}`, `[1]`, `[{"a": {"b": 1}}]`, `[{"a": [1]}]`} {
		_, err := DecodeRows([]byte(bad))
		assert.ErrorIs(t, err, ErrMalformedRows, bad)
	}
}
