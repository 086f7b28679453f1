package service

import (
	"context"
	"fmt"
	"strings"

	"hedgesync/internal/ledger"
	"hedgesync/internal/store"
	"hedgesync/internal/store/model"
)

// EvaluationView 是台账行的对外表示。
type EvaluationView struct {
	ID       int64          `json:"id"`
	Ledger   string         `json:"ledger"`
	Position int            `json:"position"`
	Fields   []ledger.Field `json:"fields"`
}

// ImportEvaluations 将行追加到台账末尾，返回写入后的视图。
func (s *Service) ImportEvaluations(ctx context.Context, ledgerName string, rows []*ledger.EvaluationRecord) ([]EvaluationView, error) {
	ledgerName = strings.TrimSpace(ledgerName)
	if ledgerName == "" {
		return nil, fmt.Errorf("%w: ledger name is required", ErrInvalidInput)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows to import", ErrInvalidInput)
	}
	var out []EvaluationView
	err := s.withUnitOfWork(ctx, func(uow store.UnitOfWork) error {
		existing, err := uow.Evaluations().ListByLedger(ctx, ledgerName)
		if err != nil {
			return err
		}
		next := 0
		for _, m := range existing {
			if m.Position >= next {
				next = m.Position + 1
			}
		}
		for _, rec := range rows {
			if rec == nil {
				continue
			}
			m := &model.EvaluationModel{Ledger: ledgerName, Position: next}
			if err := m.SetRecord(rec); err != nil {
				return err
			}
			if err := uow.Evaluations().Save(ctx, m); err != nil {
				return fmt.Errorf("save row %d: %w", next, err)
			}
			out = append(out, EvaluationView{ID: m.ID, Ledger: ledgerName, Position: m.Position, Fields: rec.Fields()})
			next++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListEvaluations(ctx context.Context, ledgerName string) ([]EvaluationView, error) {
	var out []EvaluationView
	err := s.withReadOnly(ctx, func(uow store.UnitOfWork) error {
		models, err := uow.Evaluations().ListByLedger(ctx, strings.TrimSpace(ledgerName))
		if err != nil {
			return err
		}
		out = make([]EvaluationView, 0, len(models))
		for _, m := range models {
			rec, err := m.Record()
			if err != nil {
				return err
			}
			out = append(out, EvaluationView{ID: m.ID, Ledger: m.Ledger, Position: m.Position, Fields: rec.Fields()})
		}
		return nil
	})
	return out, err
}

// Ledgers lists the known ledger names.
func (s *Service) Ledgers(ctx context.Context) ([]string, error) {
	var out []string
	err := s.withReadOnly(ctx, func(uow store.UnitOfWork) error {
		names, err := uow.Evaluations().Ledgers(ctx)
		out = names
		return err
	})
	if out == nil {
		out = []string{}
	}
	return out, err
}

// withUnitOfWork 在事务中执行 fn，出错回滚，成功提交。
func (s *Service) withUnitOfWork(ctx context.Context, fn func(store.UnitOfWork) error) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(uow); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}

func (s *Service) withReadOnly(ctx context.Context, fn func(store.UnitOfWork) error) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer uow.Rollback()
	return fn(uow)
}
