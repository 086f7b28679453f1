package service

import (
	"context"
	"fmt"
	"strings"

	"hedgesync/internal/aggregate"
	"hedgesync/internal/auditlog"
	"hedgesync/internal/deal"
	"hedgesync/internal/ledger"
	"hedgesync/internal/logger"
	"hedgesync/internal/pkg/text"
	"hedgesync/internal/reconcile"
	"hedgesync/internal/store"
	"hedgesync/internal/store/model"
)

// ReconcileResult 是一次对账的输出。
type ReconcileResult struct {
	RunID     string            `json:"run_id"`
	Ledger    string            `json:"ledger"`
	DryRun    bool              `json:"dry_run"`
	Counts    auditlog.Counts   `json:"counts"`
	Summary   aggregate.Summary `json:"summary"`
	Report    reconcile.Report  `json:"report"`
	Unmatched []deal.RawDeal    `json:"unmatched"`
	Rows      []EvaluationView  `json:"rows,omitempty"`
}

// Reconcile 聚合成交并写入指定台账。
//
// 台账行与已有的字段分配在同一事务中读取和写回；dryRun 时只回滚不提交。
// 每次调用都会在审计库中留下一条运行记录，失败时状态为 failed。
func (s *Service) Reconcile(ctx context.Context, ledgerName string, deals []deal.RawDeal, dryRun bool) (ReconcileResult, error) {
	ledgerName = strings.TrimSpace(ledgerName)
	if ledgerName == "" {
		return ReconcileResult{}, fmt.Errorf("%w: ledger name is required", ErrInvalidInput)
	}
	// 审计写入不随请求取消，失败的运行也要留下记录
	auditCtx := context.WithoutCancel(ctx)
	run := &auditlog.Run{ID: auditlog.NewRunID(), Ledger: ledgerName, DryRun: dryRun}
	if err := s.audit.InsertRun(auditCtx, run); err != nil {
		return ReconcileResult{}, fmt.Errorf("audit insert run: %w", err)
	}

	out, err := s.reconcile(ctx, run.ID, ledgerName, deals, dryRun)
	if err != nil {
		s.failRun(auditCtx, run.ID, ledgerName, len(deals), err)
		return ReconcileResult{}, err
	}

	if err := s.audit.AppendLines(auditCtx, run.ID, auditlog.KindParse, out.Summary.ParseLog); err != nil {
		logger.Warnf("audit %s: append parse lines failed: %v", run.ID, err)
	}
	if err := s.audit.AppendLines(auditCtx, run.ID, auditlog.KindMatch, out.Report.Log); err != nil {
		logger.Warnf("audit %s: append match lines failed: %v", run.ID, err)
	}
	msg := ""
	if dryRun {
		msg = "dry run, ledger untouched"
	}
	if err := s.audit.CompleteRun(auditCtx, run.ID, auditlog.StatusCompleted, out.Counts, msg); err != nil {
		logger.Warnf("audit %s: complete run failed: %v", run.ID, err)
	}
	logger.LogAudit(run.ID, ledgerName, out.Summary.ParseLog, out.Report.Log)
	logger.InfoLines("match "+ledgerName, out.Report.Log)
	logger.Infof("对账完成 run=%s ledger=%s deals=%d trades=%d mutations=%d skipped=%d dry_run=%v",
		run.ID, ledgerName, out.Counts.Deals, out.Counts.Trades, out.Counts.Mutations, out.Counts.Skipped, dryRun)
	return out, nil
}

func (s *Service) reconcile(ctx context.Context, runID, ledgerName string, deals []deal.RawDeal, dryRun bool) (ReconcileResult, error) {
	agg, err := s.aggregate(ctx, deals)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("aggregate: %w", err)
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = uow.Rollback()
		}
	}()

	models, err := uow.Evaluations().ListByLedger(ctx, ledgerName)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("load ledger %s: %w", ledgerName, err)
	}
	rows := make([]*ledger.EvaluationRecord, 0, len(models))
	for _, m := range models {
		rec, err := m.Record()
		if err != nil {
			return ReconcileResult{}, err
		}
		rows = append(rows, rec)
	}
	prior, err := uow.Assignments().ListByLedger(ctx, ledgerName)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("load assignments %s: %w", ledgerName, err)
	}

	rec := reconcile.New(
		reconcile.WithMatchOptions(ledger.WithSignatureFallback(s.signatureFallback)),
		reconcile.WithPriorAssignments(toAssignments(prior)),
	)
	rep := rec.Run(agg.Trades, rows)

	if !dryRun {
		if err := apply(ctx, uow, ledgerName, runID, rep); err != nil {
			return ReconcileResult{}, err
		}
		if err := uow.Commit(); err != nil {
			return ReconcileResult{}, fmt.Errorf("commit: %w", err)
		}
		committed = true
	}

	views := make([]EvaluationView, 0, len(rep.Rows))
	for i, r := range rep.Rows {
		views = append(views, EvaluationView{ID: r.ID, Ledger: ledgerName, Position: models[i].Position, Fields: r.Fields()})
	}
	unmatched := agg.Unmatched
	if unmatched == nil {
		unmatched = []deal.RawDeal{}
	}
	matched := rep.Count(reconcile.StatusMatched)
	return ReconcileResult{
		RunID:  runID,
		Ledger: ledgerName,
		DryRun: dryRun,
		Counts: auditlog.Counts{
			Deals:     len(deals),
			Trades:    len(agg.Trades),
			Unmatched: len(agg.Unmatched),
			Mutations: len(rep.Mutations),
			Skipped:   len(rep.Outcomes) - matched,
		},
		Summary:   aggregate.Summarize(agg),
		Report:    rep,
		Unmatched: unmatched,
		Rows:      views,
	}, nil
}

func apply(ctx context.Context, uow store.UnitOfWork, ledgerName, runID string, rep reconcile.Report) error {
	for _, m := range rep.Mutations {
		if m.RowID == 0 {
			return fmt.Errorf("mutation %s targets an unsaved row", m.Key)
		}
		if err := uow.Evaluations().UpdateField(ctx, m.RowID, m.Field, m.Value); err != nil {
			return fmt.Errorf("write %s row %d: %w", m.Field, m.RowID, err)
		}
		a := &model.AssignmentModel{
			Ledger:       ledgerName,
			EvaluationID: m.RowID,
			Key:          m.Key,
			Field:        m.Field,
			Value:        aggregate.Round2(m.Value),
			RunID:        runID,
		}
		if err := uow.Assignments().Save(ctx, a); err != nil {
			return fmt.Errorf("save assignment %s: %w", m.Key, err)
		}
	}
	return nil
}

func toAssignments(models []model.AssignmentModel) []reconcile.Assignment {
	out := make([]reconcile.Assignment, 0, len(models))
	for _, m := range models {
		out = append(out, reconcile.Assignment{RowID: m.EvaluationID, Key: m.Key, Field: m.Field})
	}
	return out
}

const maxFailureMessage = 500

func (s *Service) failRun(ctx context.Context, runID, ledgerName string, deals int, cause error) {
	ctx, cancel := context.WithTimeout(ctx, auditTimeout)
	defer cancel()
	if err := s.audit.CompleteRun(ctx, runID, auditlog.StatusFailed, auditlog.Counts{Deals: deals}, text.Truncate(cause.Error(), maxFailureMessage)); err != nil {
		logger.Warnf("audit %s: mark failed: %v", runID, err)
	}
	logger.Errorf("对账失败 run=%s ledger=%s err=%v", runID, ledgerName, cause)
}
