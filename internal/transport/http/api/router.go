package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"hedgesync/internal/auditlog"
	"hedgesync/internal/deal"
	"hedgesync/internal/ledger"
	"hedgesync/internal/logger"
	"hedgesync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// Service 是路由依赖的业务端口，由 service.Service 实现。
type Service interface {
	Parse(raw, firm string) service.ParseResult
	PhaseMeaning(code, firm string) string
	Aggregate(ctx context.Context, deals []deal.RawDeal) (service.AggregateResult, error)
	Reconcile(ctx context.Context, ledgerName string, deals []deal.RawDeal, dryRun bool) (service.ReconcileResult, error)
	ImportEvaluations(ctx context.Context, ledgerName string, rows []*ledger.EvaluationRecord) ([]service.EvaluationView, error)
	ListEvaluations(ctx context.Context, ledgerName string) ([]service.EvaluationView, error)
	Ledgers(ctx context.Context) ([]string, error)
	Runs(ctx context.Context, limit int) ([]auditlog.Run, error)
	RunLog(ctx context.Context, id string) (service.RunLog, error)
}

var _ Service = (*service.Service)(nil)

type Router struct {
	svc Service
}

func NewRouter(svc Service) *Router {
	return &Router{svc: svc}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/parse", r.handleParse)
	group.POST("/aggregate", r.handleAggregate)
	group.GET("/ledgers", r.handleLedgers)
	group.GET("/ledgers/:ledger/evaluations", r.handleListEvaluations)
	group.POST("/ledgers/:ledger/evaluations", r.handleImportEvaluations)
	group.POST("/ledgers/:ledger/reconcile", r.handleReconcile)
	group.GET("/runs", r.handleRuns)
	group.GET("/runs/:id/log", r.handleRunLog)
	group.GET("/phases/:code", r.handlePhase)
}

type parseRequest struct {
	Comment  *string  `json:"comment"`
	Comments []string `json:"comments"`
	Firm     string   `json:"firm"`
}

func (r *Router) handleParse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Comment == nil && req.Comments == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment or comments is required"})
		return
	}
	if req.Comment != nil {
		c.JSON(http.StatusOK, r.svc.Parse(*req.Comment, req.Firm))
		return
	}
	out := make([]service.ParseResult, 0, len(req.Comments))
	for _, raw := range req.Comments {
		out = append(out, r.svc.Parse(raw, req.Firm))
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (r *Router) handleAggregate(c *gin.Context) {
	deals, ok := bindDeals(c)
	if !ok {
		return
	}
	res, err := r.svc.Aggregate(c.Request.Context(), deals)
	if err != nil {
		writeError(c, "aggregate", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleReconcile(c *gin.Context) {
	ledgerName := c.Param("ledger")
	dryRun, err := parseBool(c.Query("dry_run"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dry_run"})
		return
	}
	deals, ok := bindDeals(c)
	if !ok {
		return
	}
	res, err := r.svc.Reconcile(c.Request.Context(), ledgerName, deals, dryRun)
	if err != nil {
		writeError(c, "reconcile", err)
		return
	}
	logger.Infof("[api] reconcile ip=%s ledger=%s run=%s mutations=%d dry_run=%v",
		c.ClientIP(), ledgerName, res.RunID, len(res.Report.Mutations), dryRun)
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleLedgers(c *gin.Context) {
	names, err := r.svc.Ledgers(c.Request.Context())
	if err != nil {
		writeError(c, "ledgers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledgers": names})
}

func (r *Router) handleListEvaluations(c *gin.Context) {
	rows, err := r.svc.ListEvaluations(c.Request.Context(), c.Param("ledger"))
	if err != nil {
		writeError(c, "list evaluations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledger": c.Param("ledger"), "rows": rows})
}

func (r *Router) handleImportEvaluations(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recs, err := ledger.DecodeRows(unwrap(raw, "rows"))
	if err != nil {
		writeError(c, "import evaluations", err)
		return
	}
	views, err := r.svc.ImportEvaluations(c.Request.Context(), c.Param("ledger"), recs)
	if err != nil {
		writeError(c, "import evaluations", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ledger": c.Param("ledger"), "rows": views})
}

func (r *Router) handleRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := r.svc.Runs(c.Request.Context(), limit)
	if err != nil {
		writeError(c, "runs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (r *Router) handleRunLog(c *gin.Context) {
	log, err := r.svc.RunLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "run log", err)
		return
	}
	c.JSON(http.StatusOK, log)
}

func (r *Router) handlePhase(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	firm := c.Query("firm")
	c.JSON(http.StatusOK, gin.H{
		"code":    code,
		"firm":    firm,
		"meaning": r.svc.PhaseMeaning(code, firm),
	})
}

// bindDeals 接受成交数组，或 {"deals": [...]} 包装。
func bindDeals(c *gin.Context) ([]deal.RawDeal, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	deals, err := deal.Decode(unwrap(raw, "deals"))
	if err != nil {
		writeError(c, "decode deals", err)
		return nil, false
	}
	return deals, true
}

func unwrap(raw []byte, key string) []byte {
	if !gjson.ValidBytes(raw) {
		return raw
	}
	root := gjson.ParseBytes(raw)
	if root.IsObject() {
		if inner := root.Get(key); inner.Exists() {
			return []byte(inner.Raw)
		}
	}
	return raw
}

func writeError(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, deal.ErrMalformedDeals),
		errors.Is(err, ledger.ErrMalformedRows),
		errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, auditlog.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled):
		status = 499
	}
	if status >= http.StatusInternalServerError {
		logger.Errorf("[api] %s failed ip=%s err=%v", op, c.ClientIP(), err)
	} else {
		logger.Warnf("[api] %s rejected ip=%s err=%v", op, c.ClientIP(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseBool(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
