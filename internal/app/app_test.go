package app

import (
	"path/filepath"
	"testing"

	"hedgesync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_WiresDependencies(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.LedgerDB = filepath.Join(dir, "ledger.db")
	cfg.Store.AuditDB = filepath.Join(dir, "audit.db")
	cfg.Phasebook.Path = ""

	a, err := NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.Service())
	assert.Equal(t, "Challenge trades", a.Service().PhaseMeaning("CH1", ""))
	assert.Contains(t, a.Summary.Firms, "MFFU")
	assert.Equal(t, cfg.Store.LedgerDB, a.Summary.LedgerDB)
}

func TestNewApp_NilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
