package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/mingzhao/fundv/pkg/httputil"
	"github.com/mingzhao/fundv/pkg/logger"
	"github.com/mingzhao/fundv/pkg/redis"
)

// Client handles communication with the Eastmoney quote and report pages.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cache      *redis.Cache
	limiter    *rate.Limiter
	baseURL    string
}

// NewClient creates a new Eastmoney client. cache may be nil when caching
// is disabled; requestsPerSec bounds outbound calls to the source.
func NewClient(httpClient *httputil.Client, log *logger.Logger, cache *redis.Cache, baseURL string, requestsPerSec int) *Client {
	if requestsPerSec <= 0 {
		requestsPerSec = 5
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), requestsPerSec),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Quote is the real-time quote payload for one listed company.
type Quote struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	MarketCap    float64 `json:"market_cap"` // absolute yuan
	PERatio      float64 `json:"pe_ratio"`
	IndustryName string  `json:"industry_name"`
	SharesTotal  float64 `json:"shares_total"`
}

// quoteResponse mirrors the push2-style quote endpoint. Field codes are
// fixed by the source: f43 price, f58 name, f84 total shares, f116 total
// market cap, f162 dynamic PE, f127 industry.
type quoteResponse struct {
	Data *struct {
		F43  float64 `json:"f43"`
		F58  string  `json:"f58"`
		F84  float64 `json:"f84"`
		F116 float64 `json:"f116"`
		F162 float64 `json:"f162"`
		F127 string  `json:"f127"`
	} `json:"data"`
}

// FetchQuote retrieves the current quote for a ticker, cached for a short TTL.
func (c *Client) FetchQuote(ctx context.Context, ticker string) (*Quote, error) {
	if c.cache != nil {
		var cached Quote
		if found, err := c.cache.Get(ctx, redis.QuoteKey(ticker), &cached); err == nil && found {
			return &cached, nil
		}
	}

	body, err := c.fetch(ctx, fmt.Sprintf("%s/api/qt/stock/get?secid=%s&fields=f43,f58,f84,f116,f127,f162", c.baseURL, secID(ticker)))
	if err != nil {
		return nil, err
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode quote failed: %w", err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("no quote data for %s", ticker)
	}

	// 价格以分报价, PE 放大 100 倍
	q := &Quote{
		Ticker:       ticker,
		Name:         resp.Data.F58,
		Price:        resp.Data.F43 / 100.0,
		MarketCap:    resp.Data.F116,
		PERatio:      resp.Data.F162 / 100.0,
		IndustryName: resp.Data.F127,
		SharesTotal:  resp.Data.F84,
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, redis.QuoteKey(ticker), q, redis.TTLQuote); err != nil {
			c.logger.WithError(err).Warn("Failed to cache quote")
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker":     ticker,
		"market_cap": q.MarketCap,
		"industry":   q.IndustryName,
	}).Debug("Fetched quote")
	return q, nil
}

// FetchFinancials retrieves and parses the latest reported financials
// from the ticker's report page, cached for a day.
func (c *Client) FetchFinancials(ctx context.Context, ticker string) (*FinancialReport, error) {
	if c.cache != nil {
		var cached FinancialReport
		if found, err := c.cache.Get(ctx, redis.FinancialKey(ticker, "latest"), &cached); err == nil && found {
			return &cached, nil
		}
	}

	body, err := c.fetch(ctx, fmt.Sprintf("%s/f10/report/%s.html", c.baseURL, ticker))
	if err != nil {
		return nil, err
	}

	report, err := parseFinancialHTML(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse financials for %s failed: %w", ticker, err)
	}
	report.Ticker = ticker

	if c.cache != nil {
		if err := c.cache.Set(ctx, redis.FinancialKey(ticker, "latest"), report, redis.TTLFinancial); err != nil {
			c.logger.WithError(err).Warn("Failed to cache financials")
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker":      ticker,
		"net_income":  report.NetIncome,
		"revenue":     report.OperatingRevenue,
		"num_periods": len(report.HistoricalCapex),
	}).Debug("Fetched financial report")
	return report, nil
}

// fetch performs a rate-limited GET and returns the response body.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// secID maps a ticker to the source's market-prefixed security id.
// 6xxxxx listings trade in Shanghai, everything else in Shenzhen.
func secID(ticker string) string {
	if strings.HasPrefix(ticker, "6") {
		return "1." + ticker
	}
	return "0." + ticker
}
