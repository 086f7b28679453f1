// Package service 编排解析、聚合、台账匹配与审计落库。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hedgesync/internal/auditlog"
	"hedgesync/internal/comment"
	"hedgesync/internal/ledger"
	"hedgesync/internal/phasebook"
	"hedgesync/internal/store"

	"github.com/patrickmn/go-cache"
)

// ErrInvalidInput marks caller mistakes (empty ledger name, no rows).
var ErrInvalidInput = errors.New("invalid input")

// AuditStore 是对账运行记录的持久化端口，由 auditlog.Store 实现。
type AuditStore interface {
	InsertRun(ctx context.Context, run *auditlog.Run) error
	CompleteRun(ctx context.Context, id, status string, counts auditlog.Counts, message string) error
	AppendLines(ctx context.Context, runID, kind string, lines []string) error
	Lines(ctx context.Context, runID string) ([]auditlog.Line, error)
	ListRuns(ctx context.Context, limit int) ([]auditlog.Run, error)
	GetRun(ctx context.Context, id string) (auditlog.Run, error)
}

// PhaseBook resolves phase codes to human meanings.
type PhaseBook interface {
	Meaning(code, firm string) string
}

// Config 描述 Service 依赖。
type Config struct {
	Store             store.Store
	Audit             AuditStore
	Phases            PhaseBook
	Shards            int
	SignatureFallback bool
	DefaultPropFirm   string
	RunLogTTL         time.Duration
	CleanupInterval   time.Duration
}

type Service struct {
	store             store.Store
	audit             AuditStore
	phases            PhaseBook
	shards            int
	signatureFallback bool
	defaultFirm       string

	// 已结束运行的日志不再变化，缓存以减少审计库读取
	runLogs *cache.Cache
}

func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store 不能为空")
	}
	if cfg.Audit == nil {
		return nil, fmt.Errorf("audit store 不能为空")
	}
	if cfg.Phases == nil {
		cfg.Phases = phasebook.NewDefault()
	}
	firm := strings.TrimSpace(cfg.DefaultPropFirm)
	if firm == "" {
		firm = phasebook.DefaultFirm
	}
	ttl := cfg.RunLogTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 30 * time.Minute
	}
	return &Service{
		store:             cfg.Store,
		audit:             cfg.Audit,
		phases:            cfg.Phases,
		shards:            cfg.Shards,
		signatureFallback: cfg.SignatureFallback,
		defaultFirm:       firm,
		runLogs:           cache.New(ttl, cleanup),
	}, nil
}

// ParseResult 是 /api/parse 的响应。
type ParseResult struct {
	Identity  map[string]any `json:"identity"`
	Display   string         `json:"display"`
	Meaning   string         `json:"meaning,omitempty"`
	Signature string         `json:"account_signature,omitempty"`
}

// Parse decodes a comment and annotates it with the firm's phase meaning.
func (s *Service) Parse(raw, firm string) ParseResult {
	id := comment.Parse(raw)
	res := ParseResult{
		Identity: id.Map(),
		Display:  id.String(),
	}
	if id.Account != nil {
		res.Signature = ledger.Signature(*id.Account)
	}
	if id.PhaseCode != nil {
		code := *id.PhaseCode
		if id.TradeNumber != nil {
			code = fmt.Sprintf("%s%d", code, *id.TradeNumber)
		}
		res.Meaning = s.PhaseMeaning(code, firm)
	}
	return res
}

// PhaseMeaning 查询阶段释义，firm 为空时使用配置的默认 firm。
func (s *Service) PhaseMeaning(code, firm string) string {
	if strings.TrimSpace(firm) == "" {
		firm = s.defaultFirm
	}
	return s.phases.Meaning(code, firm)
}

// Close 释放缓存；store 与 audit 由创建方关闭。
func (s *Service) Close() {
	if s == nil || s.runLogs == nil {
		return
	}
	s.runLogs.Flush()
}
