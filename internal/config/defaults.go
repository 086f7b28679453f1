package config

import "strings"

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":9991"
	defaultLedgerDB        = "data/hedgesync.db"
	defaultAuditDB         = "data/hedgesync-audit.db"
	defaultShards          = 4
	defaultPropFirm        = "MFFU"
	defaultRunLogTTL       = 900
	defaultCacheCleanupSec = 1800
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Reconcile.applyDefaults(keys)
	c.Phasebook.applyDefaults(keys)
	c.Cache.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
	a.LogLevel = strings.ToLower(strings.TrimSpace(a.LogLevel))
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.ledger_db", &s.LedgerDB, defaultLedgerDB),
		stringFieldDefault("store.audit_db", &s.AuditDB, defaultAuditDB),
	)
}

func (r *ReconcileConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("reconcile.shards", &r.Shards, defaultShards),
		stringFieldDefault("reconcile.default_prop_firm", &r.DefaultPropFirm, defaultPropFirm),
	)
	r.DefaultPropFirm = strings.TrimSpace(r.DefaultPropFirm)
}

func (p *PhasebookConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	p.Path = strings.TrimSpace(p.Path)
	// 未显式配置时，有文件就监听变更
	applyFieldDefaults(keys,
		boolFieldDefault("phasebook.watch", &p.Watch, p.Path != ""),
	)
}

func (c *CacheConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("cache.run_log_ttl_seconds", &c.RunLogTTLSeconds, defaultRunLogTTL),
		intFieldDefault("cache.cleanup_interval_seconds", &c.CleanupIntervalSec, defaultCacheCleanupSec),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

// intFieldDefault 仅在值 <= 0 且未显式配置时生效。
func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
