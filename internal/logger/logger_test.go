package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelAndOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	SetLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")

	SetLevel("bogus")
	InfoLines("parse", []string{"a", "  ", "b"})
	assert.Contains(t, buf.String(), "[parse] a")
	assert.Contains(t, buf.String(), "[parse] b")
}

func TestLogAudit(t *testing.T) {
	LogAudit("r1", "main", []string{"x"}, nil)

	var buf bytes.Buffer
	SetAuditWriter(&buf)
	defer SetAuditWriter(nil)
	LogAudit("r1", "main", []string{"✅ Aggregated: A_CH1 -> A_CH1"}, []string{"❌ B_FD1: no_ledger_match"})

	out := buf.String()
	assert.Contains(t, out, "[AUDIT][r1][main]")
	assert.Contains(t, out, "--- PARSE ---\n✅ Aggregated: A_CH1 -> A_CH1\n")
	assert.Contains(t, out, "--- MATCH ---\n❌ B_FD1: no_ledger_match\n=====")
}
