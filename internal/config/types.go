package config

import "strings"

// Config 是 hedgesync 的主配置载体。
type Config struct {
	App       AppConfig       `toml:"app"`
	Store     StoreConfig     `toml:"store"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Phasebook PhasebookConfig `toml:"phasebook"`
	Cache     CacheConfig     `toml:"cache"`
}

type AppConfig struct {
	Env          string `toml:"env"`
	LogLevel     string `toml:"log_level"`
	HTTPAddr     string `toml:"http_addr"`
	LogPath      string `toml:"log_path"`
	AuditLogPath string `toml:"audit_log_path"`
}

// StoreConfig 指定两个 SQLite 文件：台账（gorm）与审计日志。
type StoreConfig struct {
	LedgerDB string `toml:"ledger_db"`
	AuditDB  string `toml:"audit_db"`
}

type ReconcileConfig struct {
	// Shards 为聚合并发分片数，<=1 表示串行。
	Shards            int    `toml:"shards"`
	DryRun            bool   `toml:"dry_run"`
	SignatureFallback bool   `toml:"signature_fallback"`
	DefaultPropFirm   string `toml:"default_prop_firm"`
}

type PhasebookConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

type CacheConfig struct {
	RunLogTTLSeconds   int `toml:"run_log_ttl_seconds"`
	CleanupIntervalSec int `toml:"cleanup_interval_seconds"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
