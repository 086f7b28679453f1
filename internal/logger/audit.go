package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

var (
	auditMu  sync.Mutex
	auditLog *log.Logger
)

// SetAuditWriter 设置对账审计日志的输出；nil 表示关闭。
func SetAuditWriter(w io.Writer) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if w == nil {
		auditLog = nil
		return
	}
	auditLog = log.New(w, "", log.LstdFlags)
}

type auditSection struct {
	Title string
	Lines []string
}

// LogAudit writes one reconciliation run as a block:
//
//	[AUDIT][run-id][ledger]
//	--- PARSE ---
//	...
//	--- MATCH ---
//	...
//	=====
func LogAudit(runID, ledger string, parseLog, matchLog []string) {
	auditMu.Lock()
	logger := auditLog
	auditMu.Unlock()
	if logger == nil {
		return
	}
	sections := []auditSection{
		{Title: "PARSE", Lines: parseLog},
		{Title: "MATCH", Lines: matchLog},
	}
	var b strings.Builder
	b.WriteString("[AUDIT]")
	for _, tag := range []string{runID, ledger} {
		if tag == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s]", tag)
	}
	b.WriteString("\n")
	for _, sec := range sections {
		fmt.Fprintf(&b, "--- %s ---\n", sec.Title)
		for _, line := range sec.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	logger.Print(b.String())
}
