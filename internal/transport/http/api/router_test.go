package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hedgesync/internal/auditlog"
	"hedgesync/internal/deal"
	"hedgesync/internal/ledger"
	"hedgesync/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Parse(raw, firm string) service.ParseResult {
	args := m.Called(raw, firm)
	return args.Get(0).(service.ParseResult)
}

func (m *MockService) PhaseMeaning(code, firm string) string {
	return m.Called(code, firm).String(0)
}

func (m *MockService) Aggregate(ctx context.Context, deals []deal.RawDeal) (service.AggregateResult, error) {
	args := m.Called(ctx, deals)
	return args.Get(0).(service.AggregateResult), args.Error(1)
}

func (m *MockService) Reconcile(ctx context.Context, ledgerName string, deals []deal.RawDeal, dryRun bool) (service.ReconcileResult, error) {
	args := m.Called(ctx, ledgerName, deals, dryRun)
	return args.Get(0).(service.ReconcileResult), args.Error(1)
}

func (m *MockService) ImportEvaluations(ctx context.Context, ledgerName string, rows []*ledger.EvaluationRecord) ([]service.EvaluationView, error) {
	args := m.Called(ctx, ledgerName, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.EvaluationView), args.Error(1)
}

func (m *MockService) ListEvaluations(ctx context.Context, ledgerName string) ([]service.EvaluationView, error) {
	args := m.Called(ctx, ledgerName)
	return args.Get(0).([]service.EvaluationView), args.Error(1)
}

func (m *MockService) Ledgers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockService) Runs(ctx context.Context, limit int) ([]auditlog.Run, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]auditlog.Run), args.Error(1)
}

func (m *MockService) RunLog(ctx context.Context, id string) (service.RunLog, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(service.RunLog), args.Error(1)
}

func newTestServer(t *testing.T, svc Service) http.Handler {
	t.Helper()
	srv, err := NewServer(ServerConfig{Service: svc})
	require.NoError(t, err)
	return srv.Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const dealsBody = `[{"comment": "ACC_CH1", "type": "BUY", "entry": "OUT", "profit": 10, "commission": 0, "swap": 0, "fee": 0}]`

func TestHealthz(t *testing.T) {
	rec := do(newTestServer(t, new(MockService)), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	svc := new(MockService)
	svc.On("Parse", "ACC_CH1", "FTMO").Return(service.ParseResult{Display: "ACC | Challenge Trade #1"})
	svc.On("Parse", "", "").Return(service.ParseResult{Display: "Invalid: "})
	h := newTestServer(t, svc)

	rec := do(h, http.MethodPost, "/api/parse", `{"comment": "ACC_CH1", "firm": "FTMO"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ACC | Challenge Trade #1")

	rec = do(h, http.MethodPost, "/api/parse", `{"comments": [""]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results"`)

	rec = do(h, http.MethodPost, "/api/parse", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestAggregate(t *testing.T) {
	svc := new(MockService)
	svc.On("Aggregate", mock.Anything, mock.MatchedBy(func(ds []deal.RawDeal) bool {
		return len(ds) == 1 && ds[0].Comment == "ACC_CH1"
	})).Return(service.AggregateResult{}, nil).Twice()
	h := newTestServer(t, svc)

	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/aggregate", dealsBody).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/aggregate", `{"deals": `+dealsBody+`}`).Code)

	rec := do(h, http.MethodPost, "/api/aggregate", `[{"comment": "ACC_CH1"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestReconcile(t *testing.T) {
	svc := new(MockService)
	svc.On("Reconcile", mock.Anything, "jan", mock.Anything, true).
		Return(service.ReconcileResult{RunID: "run-1", Ledger: "jan", DryRun: true}, nil).Once()
	svc.On("Reconcile", mock.Anything, "feb", mock.Anything, false).
		Return(service.ReconcileResult{}, service.ErrInvalidInput).Once()
	h := newTestServer(t, svc)

	rec := do(h, http.MethodPost, "/api/ledgers/jan/reconcile?dry_run=true", dealsBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var out service.ReconcileResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "run-1", out.RunID)
	assert.True(t, out.DryRun)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/ledgers/feb/reconcile", dealsBody).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/api/ledgers/jan/reconcile?dry_run=maybe", dealsBody).Code)
	svc.AssertExpectations(t)
}

func TestEvaluations(t *testing.T) {
	svc := new(MockService)
	svc.On("ImportEvaluations", mock.Anything, "jan", mock.MatchedBy(func(rows []*ledger.EvaluationRecord) bool {
		return len(rows) == 1 && rows[0].ChallengeAccount() == "ACC"
	})).Return([]service.EvaluationView{{ID: 1, Ledger: "jan"}}, nil).Once()
	svc.On("ListEvaluations", mock.Anything, "jan").Return([]service.EvaluationView{{ID: 1, Ledger: "jan"}}, nil).Once()
	svc.On("Ledgers", mock.Anything).Return([]string{"jan"}, nil).Once()
	h := newTestServer(t, svc)

	rec := do(h, http.MethodPost, "/api/ledgers/jan/evaluations", `{"rows": [{"Name": "A", "Account #": "ACC"}]}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(h, http.MethodPost, "/api/ledgers/jan/evaluations", `[{"Name": {"nested": true}}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodGet, "/api/ledgers/jan/evaluations", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rows"`)

	rec = do(h, http.MethodGet, "/api/ledgers", "")
	assert.JSONEq(t, `{"ledgers":["jan"]}`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestRunsAndPhases(t *testing.T) {
	svc := new(MockService)
	svc.On("Runs", mock.Anything, 5).Return([]auditlog.Run{{ID: "r1"}}, nil).Once()
	svc.On("RunLog", mock.Anything, "r1").Return(service.RunLog{Run: auditlog.Run{ID: "r1"}}, nil).Once()
	svc.On("RunLog", mock.Anything, "nope").Return(service.RunLog{}, auditlog.ErrRunNotFound).Once()
	svc.On("PhaseMeaning", "FA", "").Return("Farming").Once()
	h := newTestServer(t, svc)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/runs?limit=5", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/runs/r1/log", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/runs/nope/log", "").Code)

	rec := do(h, http.MethodGet, "/api/phases/FA", "")
	assert.JSONEq(t, `{"code":"FA","firm":"","meaning":"Farming"}`, rec.Body.String())
	svc.AssertExpectations(t)
}
