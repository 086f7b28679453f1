// Package phasebook 维护各 prop firm 对阶段代码的释义，支持 YAML 文件热加载。
package phasebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"hedgesync/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultFirm 是未知 firm 的回退。
const DefaultFirm = "MFFU"

// Firm 描述一家 prop firm 的阶段释义。
type Firm struct {
	Name    string            `yaml:"-" json:"name"`
	Aliases []string          `yaml:"aliases" json:"aliases,omitempty"`
	Phases  map[string]string `yaml:"phases" json:"phases"`
}

// FileConfig 映射 phasebook 文件。
type FileConfig struct {
	DefaultFirm string          `yaml:"default_firm" json:"default_firm,omitempty"`
	PropFirms   map[string]Firm `yaml:"prop_firms" json:"prop_firms,omitempty"`
}

// Snapshot 公开的释义快照。
type Snapshot struct {
	Version     int64           `json:"version"`
	LoadedAt    time.Time       `json:"loaded_at"`
	DefaultFirm string          `json:"default_firm"`
	Firms       map[string]Firm `json:"firms"`
}

// ChangeListener 在 registry 重载时触发。
type ChangeListener func(Snapshot)

// Registry 管理阶段释义。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

func builtinFirms() map[string]Firm {
	return map[string]Firm{
		"MFFU": {Name: "MFFU", Phases: map[string]string{
			"CH":  "Challenge trades",
			"FD0": "Base funded trade",
			"FD":  "Payout",
			"DD":  "Double Dip",
			"FA":  "Farming/Consistency (5 days)",
		}},
		"Tradeify": {Name: "Tradeify", Phases: map[string]string{
			"CH": "Challenge trades",
			"FD": "Payout",
			"DD": "Double Dip",
			"FA": "Consistency",
		}},
		"FundingTicks": {Name: "FundingTicks", Phases: map[string]string{
			"CH": "Challenge trades",
			"FD": "Payout",
			"DD": "Double Dip",
			"FA": "Farming (6 days)",
		}},
		"AlphaFutures": {Name: "AlphaFutures", Phases: map[string]string{
			"CH": "Challenge trades",
			"FD": "Payout",
			"DD": "Double Dip",
			"FA": "Farming",
		}},
	}
}

// NewDefault returns a registry holding only the built-in firms.
func NewDefault() *Registry {
	r := &Registry{}
	r.install(FileConfig{})
	return r
}

// New 读取 phasebook 文件；watch 为 true 时监听文件变更并自动重载。
// path 为空时只使用内置释义。文件中的 firm 覆盖同名内置 firm。
func New(path string, watch bool) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return NewDefault(), nil
	}
	r := &Registry{path: path}
	if err := r.reload(); err != nil {
		return nil, err
	}
	if !watch {
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read phasebook failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("phasebook reload failed (%s): %v", evt.Name, err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	r.v = v
	return r, nil
}

// OnChange registers a listener for reloads.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Snapshot 返回当前释义集。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Firms returns the configured firm names sorted.
func (r *Registry) Firms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.snapshot.Firms))
	for name := range r.snapshot.Firms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Meaning 返回阶段代码在指定 firm 下的释义。
//
// firm 大小写不敏感并支持别名，未知 firm 回退到默认 firm。代码先按原样查找
// （如 FD0），再去掉序号按基础代码查找（FD1 -> FD）；都没有时返回 "Unknown phase: {code}"。
func (r *Registry) Meaning(code, firm string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.lookupFirm(firm)
	if !ok {
		f, _ = r.lookupFirm(r.snapshot.DefaultFirm)
	}
	norm := strings.ToUpper(strings.TrimSpace(code))
	if text, ok := f.Phases[norm]; ok {
		return text
	}
	if base := strings.TrimRight(norm, "0123456789"); base != norm {
		if text, ok := f.Phases[base]; ok {
			return text
		}
	}
	return "Unknown phase: " + code
}

func (r *Registry) lookupFirm(name string) (Firm, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Firm{}, false
	}
	firms := r.snapshot.Firms
	if f, ok := firms[name]; ok {
		return f, true
	}
	keys := make([]string, 0, len(firms))
	for key := range firms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	// 名称优先于别名；别名冲突时按名称排序取第一个
	for _, key := range keys {
		if strings.EqualFold(key, name) {
			return firms[key], true
		}
	}
	for _, key := range keys {
		for _, alias := range firms[key].Aliases {
			if strings.EqualFold(alias, name) {
				return firms[key], true
			}
		}
	}
	return Firm{}, false
}

func (r *Registry) reload() error {
	cfg, err := readPhasebookFile(r.path)
	if err != nil {
		return err
	}
	n := r.install(cfg)
	logger.Infof("phasebook loaded %d firms from %s", n, filepath.Base(r.path))
	return nil
}

func (r *Registry) install(cfg FileConfig) int {
	firms := builtinFirms()
	for name, f := range cfg.PropFirms {
		firms[strings.TrimSpace(name)] = normalizeFirm(name, f)
	}
	def := strings.TrimSpace(cfg.DefaultFirm)
	if def == "" {
		def = DefaultFirm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:     r.snapshot.Version + 1,
		LoadedAt:    time.Now(),
		DefaultFirm: def,
		Firms:       firms,
	}
	r.mu.Unlock()
	return len(firms)
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("phasebook listener")
			cb(snap)
		}(fn)
	}
}

func normalizeFirm(name string, f Firm) Firm {
	out := Firm{Name: strings.TrimSpace(name), Phases: make(map[string]string, len(f.Phases))}
	for code, text := range f.Phases {
		out.Phases[strings.ToUpper(strings.TrimSpace(code))] = strings.TrimSpace(text)
	}
	for _, a := range f.Aliases {
		if a = strings.TrimSpace(a); a != "" {
			out.Aliases = append(out.Aliases, a)
		}
	}
	return out
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:     src.Version,
		LoadedAt:    src.LoadedAt,
		DefaultFirm: src.DefaultFirm,
		Firms:       make(map[string]Firm, len(src.Firms)),
	}
	for name, f := range src.Firms {
		phases := make(map[string]string, len(f.Phases))
		for k, v := range f.Phases {
			phases[k] = v
		}
		f.Phases = phases
		f.Aliases = append([]string(nil), f.Aliases...)
		dst.Firms[name] = f
	}
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}

// 阶段代码必须是已知代码，可带序号，例如 FD0。
const fileSchema = `{
  "type": "object",
  "properties": {
    "default_firm": {"type": "string", "minLength": 1},
    "prop_firms": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "aliases": {"type": "array", "items": {"type": "string"}},
          "phases": {
            "type": "object",
            "propertyNames": {"pattern": "^(?i)(CH|FD|DD|FA|UNK|LEGACY)[0-9]*$"},
            "additionalProperties": {"type": "string", "minLength": 1}
          }
        },
        "required": ["phases"]
      }
    }
  }
}`

var compiledFileSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("phasebook.json", strings.NewReader(fileSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("phasebook.json")
}()

func readPhasebookFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read phasebook failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse phasebook failed: %w", err)
	}
	if err := validateFile(cfg); err != nil {
		return FileConfig{}, fmt.Errorf("invalid phasebook: %w", err)
	}
	return cfg, nil
}

// validateFile 通过 JSON 往返后交给 schema 校验。
func validateFile(cfg FileConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return compiledFileSchema.Validate(doc)
}
