package deal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hedgesync/internal/pkg/convert"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// RequiredFields 是采集端必须提供的字段。
var RequiredFields = []string{"comment", "type", "entry", "profit", "commission", "swap", "fee"}

const dealSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["comment", "type", "entry", "profit", "commission", "swap", "fee"],
  "properties": {
    "comment":    {"type": ["string", "null"]},
    "type":       {"type": ["string", "integer"]},
    "entry":      {"type": ["string", "integer", "null"]},
    "symbol":     {"type": ["string", "null"]},
    "ticket":     {"type": ["integer", "string", "null"]},
    "time":       {"type": ["integer", "number", "string", "null"]},
    "volume":     {"$ref": "#/$defs/amount"},
    "profit":     {"$ref": "#/$defs/amount"},
    "commission": {"$ref": "#/$defs/amount"},
    "swap":       {"$ref": "#/$defs/amount"},
    "fee":        {"$ref": "#/$defs/amount"}
  },
  "$defs": {
    "amount": {
      "type": ["number", "string", "null"],
      "pattern": "^\\s*([-+]?\\$?[0-9][0-9,]*(\\.[0-9]+)?([eE][-+]?[0-9]+)?)?\\s*$"
    }
  }
}`

var compiledDealSchema = jsonschema.MustCompileString("deal.json", dealSchema)

// Decode 解析 JSON 数组形式的成交列表；结构不合法时立即返回错误。
func Decode(raw []byte) ([]RawDeal, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedDeals)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", ErrMalformedDeals)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: payload must be a JSON array", ErrMalformedDeals)
	}
	var (
		out    []RawDeal
		idx    int
		outErr error
	)
	root.ForEach(func(_, item gjson.Result) bool {
		d, err := decodeOne(item)
		if err != nil {
			outErr = fmt.Errorf("%w: deal #%d: %v", ErrMalformedDeals, idx, err)
			return false
		}
		out = append(out, d)
		idx++
		return true
	})
	if outErr != nil {
		return nil, outErr
	}
	return out, nil
}

func decodeOne(item gjson.Result) (RawDeal, error) {
	if !item.IsObject() {
		return RawDeal{}, fmt.Errorf("must be an object")
	}
	if err := validateItem(item.Raw); err != nil {
		return RawDeal{}, err
	}
	ts, err := parseTime(item.Get("time"))
	if err != nil {
		return RawDeal{}, err
	}
	d := RawDeal{
		Ticket:  item.Get("ticket").Int(),
		Time:    ts,
		Symbol:  item.Get("symbol").String(),
		Type:    scalarString(item.Get("type")),
		Entry:   scalarString(item.Get("entry")),
		Comment: item.Get("comment").String(),
	}
	amounts := []struct {
		name string
		dst  *float64
	}{
		{"volume", &d.Volume},
		{"profit", &d.Profit},
		{"commission", &d.Commission},
		{"swap", &d.Swap},
		{"fee", &d.Fee},
	}
	for _, a := range amounts {
		v, err := amount(item.Get(a.name))
		if err != nil {
			return RawDeal{}, fmt.Errorf("field %q: %v", a.name, err)
		}
		*a.dst = v
	}
	return d, nil
}

func validateItem(raw string) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	if err := compiledDealSchema.Validate(doc); err != nil {
		return schemaMessage(err)
	}
	return nil
}

// schemaMessage 取最深层的第一条原因，便于定位具体字段。
func schemaMessage(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		return fmt.Errorf("%s", ve.Message)
	}
	return fmt.Errorf("field %q: %s", loc, ve.Message)
}

func scalarString(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return ""
	case gjson.Number:
		return strconv.FormatInt(r.Int(), 10)
	default:
		return strings.TrimSpace(r.String())
	}
}

func amount(r gjson.Result) (float64, error) {
	switch r.Type {
	case gjson.Null:
		return 0, nil
	case gjson.Number:
		return r.Float(), nil
	case gjson.String:
		return convert.ToFloat64E(r.String())
	default:
		if !r.Exists() {
			return 0, nil
		}
		return 0, fmt.Errorf("unsupported value %s", r.Raw)
	}
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(r gjson.Result) (time.Time, error) {
	switch r.Type {
	case gjson.Null:
		return time.Time{}, nil
	case gjson.Number:
		return time.Unix(r.Int(), 0).UTC(), nil
	case gjson.String:
		s := strings.TrimSpace(r.String())
		if s == "" {
			return time.Time{}, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(n, 0).UTC(), nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("field \"time\": unrecognised timestamp %q", s)
	default:
		return time.Time{}, nil
	}
}
