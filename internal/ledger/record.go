// Package ledger models evaluation ledger rows and resolves trade identities
// against their account columns.
package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"hedgesync/internal/pkg/convert"
)

// 台账中的账户列。别名来自原始表格的列名。
const (
	ChallengeAccountField = "challenge_account"
	FundedAccountField    = "funded_account"
)

var accountAliases = map[string][]string{
	ChallengeAccountField: {"Account #"},
	FundedAccountField:    {"Account #.1"},
}

// Field is one named value of a ledger row. Value is nil, string or float64.
type Field struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// EvaluationRecord 是外部台账中的一行：有序的命名字段集合。
type EvaluationRecord struct {
	ID     int64
	fields []Field
	index  map[string]int
}

// NewRecord builds a record keeping the given field order. Later duplicates
// overwrite earlier values in place.
func NewRecord(id int64, fields ...Field) *EvaluationRecord {
	r := &EvaluationRecord{ID: id}
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Get returns the raw value of a field.
func (r *EvaluationRecord) Get(name string) (any, bool) {
	if r == nil || r.index == nil {
		return nil, false
	}
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Set 写入字段；未知字段追加在末尾。
func (r *EvaluationRecord) Set(name string, value any) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Fields returns a copy of the ordered fields.
func (r *EvaluationRecord) Fields() []Field {
	if r == nil {
		return nil
	}
	return append([]Field(nil), r.fields...)
}

func (r *EvaluationRecord) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

func (r *EvaluationRecord) Clone() *EvaluationRecord {
	if r == nil {
		return nil
	}
	return NewRecord(r.ID, r.fields...)
}

// Text returns the field rendered as trimmed text ("" when absent or nil).
func (r *EvaluationRecord) Text(name string) string {
	v, ok := r.Get(name)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		// 账号列可能是纯数字，避免 %v 输出指数形式
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

func (r *EvaluationRecord) ChallengeAccount() string {
	return r.account(ChallengeAccountField)
}

func (r *EvaluationRecord) FundedAccount() string {
	return r.account(FundedAccountField)
}

func (r *EvaluationRecord) account(field string) string {
	if s := r.Text(field); s != "" {
		return s
	}
	for _, alias := range accountAliases[field] {
		if s := r.Text(alias); s != "" {
			return s
		}
	}
	return ""
}

// AccountFor returns the account stored under the given role.
func (r *EvaluationRecord) AccountFor(role AccountRole) string {
	if role == RoleChallenge {
		return r.ChallengeAccount()
	}
	return r.FundedAccount()
}

// IsBlank 判断台账单元格是否为空：nil、空白字符串或数值 0。
// 无法解析为数字的非空文本视为已占用。
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return true
		}
		f, ok := convert.ParseAmount(s)
		return ok && f == 0
	default:
		f, err := convert.ToFloat64E(t)
		return err == nil && f == 0
	}
}
