package app

import (
	"fmt"
	"strings"

	"hedgesync/internal/config"
	"hedgesync/internal/phasebook"
)

// StartupSummary 是启动时打印的配置摘要。
type StartupSummary struct {
	Env               string
	HTTPAddr          string
	LedgerDB          string
	AuditDB           string
	Shards            int
	DryRun            bool
	SignatureFallback bool
	DefaultFirm       string
	PhasebookPath     string
	PhasebookWatch    bool
	Firms             []string
}

func buildSummary(cfg *config.Config, phases *phasebook.Registry) *StartupSummary {
	s := &StartupSummary{
		Env:               cfg.App.Env,
		HTTPAddr:          cfg.App.HTTPAddr,
		LedgerDB:          cfg.Store.LedgerDB,
		AuditDB:           cfg.Store.AuditDB,
		Shards:            cfg.Reconcile.Shards,
		DryRun:            cfg.Reconcile.DryRun,
		SignatureFallback: cfg.Reconcile.SignatureFallback,
		DefaultFirm:       cfg.Reconcile.DefaultPropFirm,
		PhasebookPath:     cfg.Phasebook.Path,
		PhasebookWatch:    cfg.Phasebook.Watch,
	}
	if phases != nil {
		s.Firms = phases.Firms()
	}
	return s
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[服务 (SERVICE)]")
	fmt.Printf("  环境: %s\n", s.Env)
	fmt.Printf("  监听: %s\n", s.HTTPAddr)
	fmt.Println()

	fmt.Println("[存储 (STORAGE)]")
	fmt.Printf("  台账库: %s\n", s.LedgerDB)
	fmt.Printf("  审计库: %s\n", s.AuditDB)
	fmt.Println()

	fmt.Println("[对账 (RECONCILE)]")
	fmt.Printf("  聚合分片: %d\n", s.Shards)
	fmt.Printf("  默认 dry run: %v\n", s.DryRun)
	fmt.Printf("  签名兜底匹配: %v\n", s.SignatureFallback)
	fmt.Printf("  默认 prop firm: %s\n", s.DefaultFirm)
	fmt.Println()

	fmt.Println("[阶段释义 (PHASEBOOK)]")
	path := s.PhasebookPath
	if path == "" {
		path = "(内置)"
	}
	fmt.Printf("  文件: %s (watch=%v)\n", path, s.PhasebookWatch)
	fmt.Printf("  Firms: %s\n", formatList(s.Firms))
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
