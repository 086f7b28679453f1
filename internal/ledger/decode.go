package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformedRows marks a ledger payload that is not an array of objects.
var ErrMalformedRows = errors.New("malformed ledger rows")

// DecodeRows 解析 JSON 数组形式的台账行，保留每个对象中的字段顺序。
// 数字保存为 float64，字符串原样保存，null 保存为 nil，布尔值转为 "true"/"false"。
func DecodeRows(raw []byte) ([]*EvaluationRecord, error) {
	if len(strings.TrimSpace(string(raw))) == 0 || !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", ErrMalformedRows)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: payload must be a JSON array", ErrMalformedRows)
	}
	var (
		out []*EvaluationRecord
		err error
	)
	root.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			err = fmt.Errorf("%w: row #%d must be an object", ErrMalformedRows, len(out))
			return false
		}
		rec := &EvaluationRecord{}
		item.ForEach(func(k, v gjson.Result) bool {
			switch v.Type {
			case gjson.Null:
				rec.Set(k.String(), nil)
			case gjson.Number:
				rec.Set(k.String(), v.Float())
			case gjson.True, gjson.False:
				rec.Set(k.String(), v.String())
			case gjson.String:
				rec.Set(k.String(), v.String())
			default:
				err = fmt.Errorf("%w: row #%d field %q must be a scalar", ErrMalformedRows, len(out), k.String())
				return false
			}
			return true
		})
		if err != nil {
			return false
		}
		out = append(out, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
