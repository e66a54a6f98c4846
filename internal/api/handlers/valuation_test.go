package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingzhao/fundv/internal/contracts"
	"github.com/mingzhao/fundv/internal/industry"
	"github.com/mingzhao/fundv/internal/valuation"
	"github.com/mingzhao/fundv/pkg/config"
	"github.com/mingzhao/fundv/pkg/logger"
)

type fakeProvider struct {
	snap *contracts.FinancialSnapshot
	mkt  *contracts.MarketContext
	err  error
}

func (f *fakeProvider) Snapshot(_ context.Context, ticker string) (*contracts.FinancialSnapshot, *contracts.MarketContext, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.snap, f.mkt, nil
}

type fakeRepo struct {
	saved []*contracts.CombinedValuation
}

func (f *fakeRepo) SaveRun(_ context.Context, run *contracts.CombinedValuation) error {
	f.saved = append(f.saved, run)
	return nil
}

func (f *fakeRepo) LatestRun(_ context.Context, ticker string) (*contracts.CombinedValuation, error) {
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].Ticker == ticker {
			return f.saved[i], nil
		}
	}
	return nil, fmt.Errorf("no valuation run found for %s", ticker)
}

func (f *fakeRepo) RunsByTicker(_ context.Context, ticker string, limit int) ([]*contracts.CombinedValuation, error) {
	var runs []*contracts.CombinedValuation
	for i := len(f.saved) - 1; i >= 0 && len(runs) < limit; i-- {
		if f.saved[i].Ticker == ticker {
			runs = append(runs, f.saved[i])
		}
	}
	return runs, nil
}

func testEngine() *valuation.Engine {
	cfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "console"}
	log := logger.New(cfg)
	return valuation.NewEngine(
		industry.NewClassifier(),
		industry.NewDefaultResolver(),
		valuation.DefaultMarketParams(),
		log,
	)
}

func testLog() *logger.Logger {
	cfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "console"}
	return logger.New(cfg)
}

func utilitySnapshot() *contracts.FinancialSnapshot {
	return &contracts.FinancialSnapshot{
		Ticker:             "600900",
		NetIncome:          1e9,
		OperatingRevenue:   1e10,
		OperatingProfit:    1.3e9,
		Depreciation:       5e8,
		CapitalExpenditure: 6e8,
		FreeCashFlow:       8e8,
		WorkingCapital:     1.2e9,
		PrevWorkingCapital: 1.1e9,
		SharesOutstanding:  2e9,
		RevenueGrowth:      0.05,
		EarningsGrowth:     0.04,
		NetMargin:          0.10,
	}
}

func TestValuateSnapshot(t *testing.T) {
	h := NewValuationHandler(testEngine(), nil, nil, testLog())

	body, err := json.Marshal(ValuateRequest{
		Snapshot:     *utilitySnapshot(),
		MarketCap:    1.5e10,
		IndustryName: "电力",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/valuation", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ValuateSnapshot(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var run contracts.CombinedValuation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, "600900", run.Ticker)
	assert.Equal(t, "utilities", run.IndustryCode)
	assert.NotEmpty(t, run.Results)
}

func TestValuateSnapshotBadBody(t *testing.T) {
	h := NewValuationHandler(testEngine(), nil, nil, testLog())

	req := httptest.NewRequest(http.MethodPost, "/api/valuation", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.ValuateSnapshot(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValuateSnapshotMissingTicker(t *testing.T) {
	h := NewValuationHandler(testEngine(), nil, nil, testLog())

	req := httptest.NewRequest(http.MethodPost, "/api/valuation", bytes.NewReader([]byte(`{"market_cap":1}`)))
	rec := httptest.NewRecorder()
	h.ValuateSnapshot(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func tickerRequest(t *testing.T, h http.HandlerFunc, path, ticker string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = mux.SetURLVars(req, map[string]string{"ticker": ticker})
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestValuateTickerPersistsRun(t *testing.T) {
	provider := &fakeProvider{
		snap: utilitySnapshot(),
		mkt:  &contracts.MarketContext{MarketCap: 1.5e10, IndustryName: "电力"},
	}
	repo := &fakeRepo{}
	h := NewValuationHandler(testEngine(), provider, repo, testLog())

	rec := tickerRequest(t, h.ValuateTicker, "/api/valuation/600900", "600900")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "600900", repo.saved[0].Ticker)
}

func TestValuateTickerProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("connection refused")}
	h := NewValuationHandler(testEngine(), provider, nil, testLog())

	rec := tickerRequest(t, h.ValuateTicker, "/api/valuation/600900", "600900")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestValuateTickerNoProvider(t *testing.T) {
	h := NewValuationHandler(testEngine(), nil, nil, testLog())

	rec := tickerRequest(t, h.ValuateTicker, "/api/valuation/600900", "600900")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetLatestRun(t *testing.T) {
	repo := &fakeRepo{saved: []*contracts.CombinedValuation{
		{Ticker: "600900", Signal: contracts.SignalBullish},
	}}
	h := NewValuationHandler(testEngine(), nil, repo, testLog())

	rec := tickerRequest(t, h.GetLatestRun, "/api/valuation/600900/latest", "600900")
	require.Equal(t, http.StatusOK, rec.Code)

	var run contracts.CombinedValuation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, contracts.SignalBullish, run.Signal)
}

func TestGetLatestRunNotFound(t *testing.T) {
	h := NewValuationHandler(testEngine(), nil, &fakeRepo{}, testLog())

	rec := tickerRequest(t, h.GetLatestRun, "/api/valuation/000001/latest", "000001")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunHistoryLimit(t *testing.T) {
	repo := &fakeRepo{}
	for i := 0; i < 5; i++ {
		repo.saved = append(repo.saved, &contracts.CombinedValuation{Ticker: "600900"})
	}
	h := NewValuationHandler(testEngine(), nil, repo, testLog())

	rec := tickerRequest(t, h.GetRunHistory, "/api/valuation/600900/history?limit=3", "600900")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Count)
}
