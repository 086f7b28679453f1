// Package model holds the gorm models of the ledger database.
package model

import (
	"encoding/json"
	"fmt"

	"hedgesync/internal/ledger"

	"gorm.io/datatypes"
)

// EvaluationModel 是一行台账，字段以有序 JSON 数组保存以保留列顺序。
type EvaluationModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Ledger        string         `gorm:"column:ledger;index:idx_evaluation_ledger,priority:1"`
	Position      int            `gorm:"column:position;index:idx_evaluation_ledger,priority:2"`
	FieldsJSON    datatypes.JSON `gorm:"column:fields_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (EvaluationModel) TableName() string { return "evaluations" }

// Record 将模型还原为 ledger.EvaluationRecord。
func (m EvaluationModel) Record() (*ledger.EvaluationRecord, error) {
	var fields []ledger.Field
	if len(m.FieldsJSON) > 0 {
		if err := json.Unmarshal(m.FieldsJSON, &fields); err != nil {
			return nil, fmt.Errorf("evaluation %d: decode fields: %w", m.ID, err)
		}
	}
	return ledger.NewRecord(m.ID, fields...), nil
}

// SetRecord 用记录的字段覆盖 FieldsJSON。
func (m *EvaluationModel) SetRecord(r *ledger.EvaluationRecord) error {
	fields := r.Fields()
	if fields == nil {
		fields = []ledger.Field{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	m.FieldsJSON = datatypes.JSON(raw)
	return nil
}

// AssignmentModel 记录某个身份 key 在某行上写入的字段。
type AssignmentModel struct {
	ID            int64   `gorm:"column:id;primaryKey"`
	Ledger        string  `gorm:"column:ledger;index"`
	EvaluationID  int64   `gorm:"column:evaluation_id;uniqueIndex:idx_assignment_key,priority:1"`
	Key           string  `gorm:"column:identity_key;uniqueIndex:idx_assignment_key,priority:2"`
	Field         string  `gorm:"column:field"`
	Value         float64 `gorm:"column:value"`
	RunID         string  `gorm:"column:run_id"`
	CreatedAtUnix int64   `gorm:"column:created_at"`
	UpdatedAtUnix int64   `gorm:"column:updated_at"`
}

func (AssignmentModel) TableName() string { return "field_assignments" }
