package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hedgesync/internal/store"
	"hedgesync/internal/store/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// evaluationRepo implements store.EvaluationRepository.
type evaluationRepo struct {
	db *gorm.DB
}

func NewEvaluationRepo(db *gorm.DB) *evaluationRepo {
	return &evaluationRepo{db: db}
}

func (r *evaluationRepo) ListByLedger(ctx context.Context, ledger string) ([]model.EvaluationModel, error) {
	var rows []model.EvaluationModel
	err := r.db.WithContext(ctx).
		Where("ledger = ?", ledger).
		Order("position ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *evaluationRepo) FindByID(ctx context.Context, id int64) (*model.EvaluationModel, error) {
	var row model.EvaluationModel
	err := r.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("evaluation %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Save inserts a new row or updates an existing one by ID.
func (r *evaluationRepo) Save(ctx context.Context, row *model.EvaluationModel) error {
	if row == nil {
		return errors.New("evaluation cannot be nil")
	}
	now := time.Now().Unix()
	if row.CreatedAtUnix == 0 {
		row.CreatedAtUnix = now
	}
	row.UpdatedAtUnix = now
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *evaluationRepo) UpdateField(ctx context.Context, id int64, field string, value float64) error {
	row, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	rec, err := row.Record()
	if err != nil {
		return err
	}
	rounded, _ := decimal.NewFromFloat(value).Round(2).Float64()
	rec.Set(field, rounded)
	if err := row.SetRecord(rec); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.EvaluationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"fields_json": row.FieldsJSON,
			"updated_at":  time.Now().Unix(),
		}).Error
}

func (r *evaluationRepo) Ledgers(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&model.EvaluationModel{}).
		Distinct("ledger").
		Order("ledger ASC").
		Pluck("ledger", &names).Error
	return names, err
}
