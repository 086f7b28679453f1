package service

import (
	"context"
	"time"

	"hedgesync/internal/auditlog"

	"github.com/patrickmn/go-cache"
)

const auditTimeout = 5 * time.Second

// RunLog 是一次运行及其全部日志行。
type RunLog struct {
	Run   auditlog.Run    `json:"run"`
	Lines []auditlog.Line `json:"lines"`
}

func (s *Service) Runs(ctx context.Context, limit int) ([]auditlog.Run, error) {
	runs, err := s.audit.ListRuns(ctx, limit)
	if runs == nil {
		runs = []auditlog.Run{}
	}
	return runs, err
}

// RunLog returns a run with its lines. Finished runs are served from cache.
func (s *Service) RunLog(ctx context.Context, id string) (RunLog, error) {
	if v, ok := s.runLogs.Get(id); ok {
		return v.(RunLog), nil
	}
	run, err := s.audit.GetRun(ctx, id)
	if err != nil {
		return RunLog{}, err
	}
	lines, err := s.audit.Lines(ctx, id)
	if err != nil {
		return RunLog{}, err
	}
	if lines == nil {
		lines = []auditlog.Line{}
	}
	out := RunLog{Run: run, Lines: lines}
	if run.Status != auditlog.StatusRunning {
		s.runLogs.Set(id, out, cache.DefaultExpiration)
	}
	return out, nil
}
