package sqlite

import (
	"context"
	"errors"
	"time"

	"hedgesync/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// assignmentRepo implements store.AssignmentRepository.
type assignmentRepo struct {
	db *gorm.DB
}

func NewAssignmentRepo(db *gorm.DB) *assignmentRepo {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) ListByLedger(ctx context.Context, ledger string) ([]model.AssignmentModel, error) {
	var out []model.AssignmentModel
	err := r.db.WithContext(ctx).
		Where("ledger = ?", ledger).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// Save 以 (evaluation_id, identity_key) 为冲突键写入或更新。
func (r *assignmentRepo) Save(ctx context.Context, a *model.AssignmentModel) error {
	if a == nil {
		return errors.New("assignment cannot be nil")
	}
	now := time.Now().Unix()
	if a.CreatedAtUnix == 0 {
		a.CreatedAtUnix = now
	}
	a.UpdatedAtUnix = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "evaluation_id"}, {Name: "identity_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"field", "value", "run_id", "updated_at"}),
	}).Create(a).Error
}
