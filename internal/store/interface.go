// Package store 定义台账持久化的仓储接口。
package store

import (
	"context"
	"errors"

	"hedgesync/internal/store/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// UnitOfWork defines a transaction scope.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error

	// Evaluations returns the ledger row repository within this transaction.
	Evaluations() EvaluationRepository
	// Assignments returns the field assignment repository within this transaction.
	Assignments() AssignmentRepository
}

// Store is the entry point for database access.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	// Close closes the store connection.
	Close() error
}

// EvaluationRepository handles ledger rows.
type EvaluationRepository interface {
	// ListByLedger returns the rows of a ledger ordered by position.
	ListByLedger(ctx context.Context, ledger string) ([]model.EvaluationModel, error)
	FindByID(ctx context.Context, id int64) (*model.EvaluationModel, error)
	Save(ctx context.Context, row *model.EvaluationModel) error
	// UpdateField 写入单个字段，数值在写入时保留两位小数。
	UpdateField(ctx context.Context, id int64, field string, value float64) error
	Ledgers(ctx context.Context) ([]string, error)
}

// AssignmentRepository records which identity key owns which ledger field.
type AssignmentRepository interface {
	ListByLedger(ctx context.Context, ledger string) ([]model.AssignmentModel, error)
	// Save upserts on (evaluation_id, key).
	Save(ctx context.Context, a *model.AssignmentModel) error
}
