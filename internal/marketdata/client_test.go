package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingzhao/fundv/pkg/config"
	"github.com/mingzhao/fundv/pkg/httputil"
	"github.com/mingzhao/fundv/pkg/logger"
)

func testLogger() *logger.Logger {
	cfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "console"}
	return logger.New(cfg)
}

func testClient(baseURL string) *Client {
	log := testLogger()
	return NewClient(httputil.New(log).DisableRetry(), log, nil, baseURL, 100)
}

const quoteFixture = `{"data":{"f43":2850,"f58":"长江电力","f84":24468000000,"f116":697000000000,"f162":2150,"f127":"电力行业"}}`

func TestFetchQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/api/qt/stock/get")
		assert.Equal(t, "1.600900", r.URL.Query().Get("secid"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(quoteFixture))
	}))
	defer server.Close()

	quote, err := testClient(server.URL).FetchQuote(context.Background(), "600900")
	require.NoError(t, err)

	assert.Equal(t, "长江电力", quote.Name)
	assert.InDelta(t, 28.50, quote.Price, 1e-9)
	assert.InDelta(t, 6.97e11, quote.MarketCap, 1)
	assert.InDelta(t, 21.50, quote.PERatio, 1e-9)
	assert.Equal(t, "电力行业", quote.IndustryName)
}

func TestFetchQuoteNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchQuote(context.Background(), "000001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no quote data")
}

func TestFetchQuoteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchQuote(context.Background(), "600900")
	assert.Error(t, err)
}

func TestFetchFinancials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/f10/report/600900.html"))
		_, _ = w.Write([]byte(reportFixture))
	}))
	defer server.Close()

	report, err := testClient(server.URL).FetchFinancials(context.Background(), "600900")
	require.NoError(t, err)

	assert.Equal(t, "600900", report.Ticker)
	assert.InDelta(t, 10.0e8, report.NetIncome, 1)
	assert.InDelta(t, 100.0e8, report.OperatingRevenue, 1)
}

func TestSecID(t *testing.T) {
	assert.Equal(t, "1.600900", secID("600900"))
	assert.Equal(t, "0.000001", secID("000001"))
	assert.Equal(t, "0.300750", secID("300750"))
}
