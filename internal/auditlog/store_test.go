package auditlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &Run{Ledger: "main", DryRun: true}
	require.NoError(t, s.InsertRun(ctx, run))
	require.NotEmpty(t, run.ID)
	assert.Equal(t, StatusRunning, run.Status)

	require.NoError(t, s.AppendLines(ctx, run.ID, KindParse, []string{"✅ Aggregated: A_CH1 -> A_CH1", "⚠️ Unmatched: (empty)"}))
	require.NoError(t, s.AppendLines(ctx, run.ID, KindMatch, []string{"✅ A_CH1 -> row 0 HedgeResult1 = $1.00"}))
	require.NoError(t, s.AppendLines(ctx, run.ID, KindMatch, nil))

	counts := Counts{Deals: 3, Trades: 1, Unmatched: 1, Mutations: 1}
	require.NoError(t, s.CompleteRun(ctx, run.ID, StatusCompleted, counts, ""))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "main", got.Ledger)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.True(t, got.DryRun)
	assert.Equal(t, counts, got.Counts)
	require.NotNil(t, got.CompletedAt)

	lines, err := s.Lines(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, Line{Seq: 1, Kind: KindParse, Text: "✅ Aggregated: A_CH1 -> A_CH1"}, lines[0])
	assert.Equal(t, 3, lines[2].Seq)
	assert.Equal(t, KindMatch, lines[2].Kind)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		r := &Run{Ledger: name}
		require.NoError(t, s.InsertRun(ctx, r))
		ids = append(ids, r.ID)
	}
	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestUnknownRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.CompleteRun(ctx, "missing", StatusFailed, Counts{}, "boom"), ErrRunNotFound)

	lines, err := s.Lines(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, lines)
}
