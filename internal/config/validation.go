package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Reconcile.validate(); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch a.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if strings.TrimSpace(s.LedgerDB) == "" {
		return fmt.Errorf("store.ledger_db cannot be empty")
	}
	if strings.TrimSpace(s.AuditDB) == "" {
		return fmt.Errorf("store.audit_db cannot be empty")
	}
	if s.LedgerDB == s.AuditDB && s.LedgerDB != ":memory:" {
		return fmt.Errorf("store.ledger_db and store.audit_db must be different files")
	}
	return nil
}

func (r *ReconcileConfig) validate() error {
	if r.Shards < 0 {
		return fmt.Errorf("reconcile.shards must be >= 0")
	}
	if r.DefaultPropFirm == "" {
		return fmt.Errorf("reconcile.default_prop_firm cannot be empty")
	}
	return nil
}

func (c *CacheConfig) validate() error {
	if c.RunLogTTLSeconds < 0 || c.CleanupIntervalSec < 0 {
		return fmt.Errorf("cache durations must be >= 0")
	}
	return nil
}
