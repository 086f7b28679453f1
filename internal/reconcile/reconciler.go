package reconcile

import (
	"fmt"

	"hedgesync/internal/aggregate"
	"hedgesync/internal/ledger"
	"hedgesync/internal/pkg/money"
)

// Status 是单个汇总在一次对账中的结果。
type Status string

const (
	StatusMatched        Status = "matched"
	StatusNoLedgerMatch  Status = "no_ledger_match"
	StatusNoFieldMapping Status = "no_field_mapping"
	StatusConflict       Status = "conflict"
)

// Mutation is one (row, field, value) write produced by a pass. Value keeps
// full precision; rounding happens where the ledger is persisted.
type Mutation struct {
	Row   int     `json:"row"`
	RowID int64   `json:"row_id"`
	Field string  `json:"field"`
	Value float64 `json:"value"`
	Key   string  `json:"key"`
}

// Outcome 记录每个汇总的处理结果，Row 为 -1 表示没有定位到台账行。
type Outcome struct {
	Key    string           `json:"key"`
	Status Status           `json:"status"`
	Row    int              `json:"row"`
	Field  string           `json:"field,omitempty"`
	Tier   ledger.MatchTier `json:"tier,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// Assignment 记录某个身份 key 在某行上占用的字段，供后续重跑复用。
type Assignment struct {
	RowID int64  `json:"row_id"`
	Key   string `json:"key"`
	Field string `json:"field"`
}

// Report 是一次对账的完整输出。Rows 是应用了全部 Mutations 的工作副本。
type Report struct {
	Mutations   []Mutation                 `json:"mutations"`
	Outcomes    []Outcome                  `json:"outcomes"`
	Log         []string                   `json:"log"`
	Assignments []Assignment               `json:"assignments"`
	Rows        []*ledger.EvaluationRecord `json:"-"`
}

// Count returns how many outcomes carry the given status.
func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

type Reconciler struct {
	matchOpts []ledger.MatchOption
	prior     []Assignment
}

type Option func(*Reconciler)

// WithMatchOptions passes options through to ledger.Resolve.
func WithMatchOptions(opts ...ledger.MatchOption) Option {
	return func(r *Reconciler) { r.matchOpts = append(r.matchOpts, opts...) }
}

// WithPriorAssignments 注入之前对账已占用的字段，使同一 key 重跑时写回同一字段。
func WithPriorAssignments(prior []Assignment) Option {
	return func(r *Reconciler) { r.prior = append(r.prior, prior...) }
}

func New(opts ...Option) *Reconciler {
	r := &Reconciler{}
	for _, fn := range opts {
		if fn != nil {
			fn(r)
		}
	}
	return r
}

type cellRef struct {
	row   int64
	field string
}

type keyRef struct {
	row int64
	key string
}

// Run 按输入顺序逐个处理汇总，不修改传入的台账行。
//
// 同一行上的 Farming 槽位分配依赖前一个汇总写入后的工作副本，因此整个过程串行执行。
// 每个字段在一次对账中至多被一个身份 key 写入；其他 key 再次命中该字段时记为冲突并跳过。
func (r *Reconciler) Run(trades []*aggregate.AggregatedTrade, rows []*ledger.EvaluationRecord) Report {
	work := make([]*ledger.EvaluationRecord, len(rows))
	for i, row := range rows {
		work[i] = row.Clone()
	}

	owner := make(map[cellRef]string)
	prior := make(map[keyRef]string)
	for _, a := range r.prior {
		owner[cellRef{a.RowID, a.Field}] = a.Key
		prior[keyRef{a.RowID, a.Key}] = a.Field
	}

	rep := Report{Rows: work}
	for _, t := range trades {
		if t == nil {
			continue
		}
		r.resolveOne(t, work, owner, prior, &rep)
	}
	return rep
}

func (r *Reconciler) resolveOne(t *aggregate.AggregatedTrade, work []*ledger.EvaluationRecord, owner map[cellRef]string, prior map[keyRef]string, rep *Report) {
	key := t.Key()
	if _, ok := ledger.RoleForPhase(t.Phase); !ok {
		rep.skip(key, StatusNoFieldMapping, -1, "", "", fmt.Sprintf("phase %s has no ledger account role", t.Phase))
		return
	}
	cands := ledger.Resolve(t.Account, t.Phase, work, r.matchOpts...)
	if len(cands) == 0 {
		rep.skip(key, StatusNoLedgerMatch, -1, "", "", fmt.Sprintf("no ledger row for account %s", t.Account))
		return
	}
	// 多行命中时取第一行
	c := cands[0]
	row := work[c.Row]
	ref := rowRef(c.Row, row)

	field, ok := prior[keyRef{ref, key}]
	if !ok {
		taken := func(name string) bool {
			k, ok := owner[cellRef{ref, name}]
			return ok && k != key
		}
		field, ok = fieldFor(t, row, taken)
		if !ok {
			rep.skip(key, StatusNoFieldMapping, c.Row, "", c.Tier, fmt.Sprintf("no field for %s", t.Label()))
			return
		}
	}
	if k, ok := owner[cellRef{ref, field}]; ok && k != key {
		rep.skip(key, StatusConflict, c.Row, field, c.Tier, fmt.Sprintf("%s already written by %s", field, k))
		return
	}

	net := t.NetProfit()
	row.Set(field, net)
	owner[cellRef{ref, field}] = key
	prior[keyRef{ref, key}] = field

	rep.Mutations = append(rep.Mutations, Mutation{Row: c.Row, RowID: row.ID, Field: field, Value: net, Key: key})
	rep.Assignments = append(rep.Assignments, Assignment{RowID: ref, Key: key, Field: field})
	rep.Outcomes = append(rep.Outcomes, Outcome{Key: key, Status: StatusMatched, Row: c.Row, Field: field, Tier: c.Tier})
	rep.Log = append(rep.Log, fmt.Sprintf("✅ %s -> row %d %s = %s (%s match on %s account)", key, c.Row, field, money.FormatUSD(net), c.Tier, c.Role))
}

func (rep *Report) skip(key string, status Status, row int, field string, tier ledger.MatchTier, reason string) {
	rep.Outcomes = append(rep.Outcomes, Outcome{Key: key, Status: status, Row: row, Field: field, Tier: tier, Reason: reason})
	prefix := "⚠️"
	if status == StatusNoLedgerMatch {
		prefix = "❌"
	}
	rep.Log = append(rep.Log, fmt.Sprintf("%s %s: %s (%s)", prefix, key, status, reason))
}

// 持久化的行用 ID 标识；内存中的行没有 ID，用负的下标代替。
func rowRef(i int, row *ledger.EvaluationRecord) int64 {
	if row.ID != 0 {
		return row.ID
	}
	return -int64(i + 1)
}
