// Package app 负责应用级编排：加载配置→初始化依赖→启动 HTTP 服务。
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hedgesync/internal/auditlog"
	"hedgesync/internal/config"
	"hedgesync/internal/logger"
	"hedgesync/internal/phasebook"
	"hedgesync/internal/service"
	"hedgesync/internal/store/sqlite"
	apihttp "hedgesync/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 持有全部长生命周期依赖。
type App struct {
	cfg     *config.Config
	ledger  *sqlite.SqliteStore
	audit   *auditlog.Store
	phases  *phasebook.Registry
	svc     *service.Service
	http    *apihttp.Server
	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	ledgerStore, err := sqlite.NewSqliteStore(cfg.Store.LedgerDB)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	auditStore, err := auditlog.NewStore(cfg.Store.AuditDB)
	if err != nil {
		_ = ledgerStore.Close()
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	phases, err := newPhasebook(cfg.Phasebook)
	if err != nil {
		_ = ledgerStore.Close()
		_ = auditStore.Close()
		return nil, err
	}
	svc, err := service.New(service.Config{
		Store:             ledgerStore,
		Audit:             auditStore,
		Phases:            phases,
		Shards:            cfg.Reconcile.Shards,
		SignatureFallback: cfg.Reconcile.SignatureFallback,
		DefaultPropFirm:   cfg.Reconcile.DefaultPropFirm,
		RunLogTTL:         time.Duration(cfg.Cache.RunLogTTLSeconds) * time.Second,
		CleanupInterval:   time.Duration(cfg.Cache.CleanupIntervalSec) * time.Second,
	})
	if err != nil {
		_ = ledgerStore.Close()
		_ = auditStore.Close()
		return nil, err
	}
	server, err := apihttp.NewServer(apihttp.ServerConfig{Addr: cfg.App.HTTPAddr, Service: svc})
	if err != nil {
		_ = ledgerStore.Close()
		_ = auditStore.Close()
		return nil, err
	}
	return &App{
		cfg:     cfg,
		ledger:  ledgerStore,
		audit:   auditStore,
		phases:  phases,
		svc:     svc,
		http:    server,
		Summary: buildSummary(cfg, phases),
	}, nil
}

func newPhasebook(cfg config.PhasebookConfig) (*phasebook.Registry, error) {
	if cfg.Path == "" {
		return phasebook.NewDefault(), nil
	}
	reg, err := phasebook.New(cfg.Path, cfg.Watch)
	if err != nil {
		return nil, fmt.Errorf("load phasebook: %w", err)
	}
	reg.OnChange(func(s phasebook.Snapshot) {
		logger.Infof("phasebook 已重载 version=%d firms=%d", s.Version, len(s.Firms))
	})
	return reg, nil
}

// Service exposes the orchestration layer for one-shot commands.
func (a *App) Service() *service.Service {
	if a == nil {
		return nil
	}
	return a.svc
}

// Run 启动 HTTP 服务，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Close 关闭缓存与两个数据库。
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	a.svc.Close()
	return errors.Join(a.ledger.Close(), a.audit.Close())
}
