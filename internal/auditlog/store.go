// Package auditlog 保存每次对账的运行记录与逐行解析/匹配日志。
package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("audit run not found")

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// 日志行类别。
const (
	KindParse = "parse"
	KindMatch = "match"
)

// Counts 是一次运行的统计。
type Counts struct {
	Deals     int `json:"deals"`
	Trades    int `json:"trades"`
	Unmatched int `json:"unmatched"`
	Mutations int `json:"mutations"`
	Skipped   int `json:"skipped"`
}

type Run struct {
	ID          string     `json:"id"`
	Ledger      string     `json:"ledger"`
	Status      string     `json:"status"`
	DryRun      bool       `json:"dry_run"`
	Counts      Counts     `json:"counts"`
	Message     string     `json:"message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Line struct {
	Seq  int    `json:"seq"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Store 管理 audit_runs / audit_lines 两张表。
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("audit store path 不能为空")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit_runs (
			id TEXT PRIMARY KEY,
			ledger TEXT NOT NULL,
			status TEXT NOT NULL,
			dry_run INTEGER NOT NULL DEFAULT 0,
			counts_json TEXT,
			message TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS audit_lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			text TEXT NOT NULL,
			FOREIGN KEY(run_id) REFERENCES audit_runs(id) ON DELETE CASCADE
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_audit_lines_run ON audit_lines(run_id, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_runs_created ON audit_runs(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun 写入一条 running 状态的运行记录；ID 为空时自动生成。
func (s *Store) InsertRun(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}
	now := time.Now()
	run.CreatedAt, run.UpdatedAt = now, now
	countsJSON, err := json.Marshal(run.Counts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_runs (id, ledger, status, dry_run, counts_json, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Ledger, run.Status, boolToInt(run.DryRun), string(countsJSON), run.Message,
		now.UnixMilli(), now.UnixMilli())
	return err
}

// CompleteRun 更新最终状态与统计。
func (s *Store) CompleteRun(ctx context.Context, id, status string, counts Counts, message string) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx, `
		UPDATE audit_runs
		SET status=?, counts_json=?, message=?, updated_at=?, completed_at=?
		WHERE id=?`, status, string(countsJSON), message, now, now, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// AppendLines 追加一批日志行，序号接在已有行之后。
func (s *Store) AppendLines(ctx context.Context, runID, kind string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM audit_lines WHERE run_id=?`, runID).Scan(&next); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO audit_lines (run_id, seq, kind, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, line := range lines {
		next++
		if _, err := stmt.ExecContext(ctx, runID, next, kind, line); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Lines(ctx context.Context, runID string) ([]Line, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, text FROM audit_lines
		WHERE run_id=?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.Seq, &l.Kind, &l.Text); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ledger, status, dry_run, counts_json, message, created_at, updated_at, completed_at
		FROM audit_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, run)
	}
	return list, rows.Err()
}

func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ledger, status, dry_run, counts_json, message, created_at, updated_at, completed_at
		FROM audit_runs WHERE id=?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run         Run
		dryRun      int
		countsJSON  sql.NullString
		message     sql.NullString
		createdAt   int64
		updatedAt   int64
		completedAt sql.NullInt64
	)
	if err := sc.Scan(&run.ID, &run.Ledger, &run.Status, &dryRun, &countsJSON, &message,
		&createdAt, &updatedAt, &completedAt); err != nil {
		return Run{}, err
	}
	run.DryRun = dryRun != 0
	run.Message = message.String
	run.CreatedAt = time.UnixMilli(createdAt)
	run.UpdatedAt = time.UnixMilli(updatedAt)
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64)
		run.CompletedAt = &t
	}
	if countsJSON.Valid && countsJSON.String != "" {
		if err := json.Unmarshal([]byte(countsJSON.String), &run.Counts); err != nil {
			return Run{}, err
		}
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
