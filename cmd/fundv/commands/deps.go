package commands

import (
	"github.com/mingzhao/fundv/internal/industry"
	"github.com/mingzhao/fundv/internal/marketdata"
	"github.com/mingzhao/fundv/internal/valuation"
	"github.com/mingzhao/fundv/pkg/config"
	"github.com/mingzhao/fundv/pkg/httputil"
	"github.com/mingzhao/fundv/pkg/logger"
	"github.com/mingzhao/fundv/pkg/redis"
)

// newEngine builds the valuation engine from config
func newEngine(cfg *config.Config, log *logger.Logger) *valuation.Engine {
	market := valuation.MarketParams{
		RiskFreeRate:      cfg.Market.RiskFreeRate,
		RiskPremium:       cfg.Market.RiskPremium,
		DefaultBeta:       cfg.Market.DefaultBeta,
		DefaultCostOfDebt: cfg.Market.DefaultCostOfDebt,
		DefaultTaxRate:    cfg.Market.DefaultTaxRate,
	}

	return valuation.NewEngine(
		industry.NewClassifier(),
		industry.NewDefaultResolver(),
		market,
		log,
	)
}

// newProvider builds the market-data provider with its cache. The
// returned cleanup closes the redis connection.
func newProvider(cfg *config.Config, log *logger.Logger) (*marketdata.Provider, func(), error) {
	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = redisClient.Close()
	}

	httpClient := httputil.New(log)
	cache := redis.NewCache(redisClient, "fundv")
	client := marketdata.NewClient(httpClient, log, cache, cfg.Eastmoney.BaseURL, cfg.Eastmoney.RequestsPerSec)

	return marketdata.NewProvider(client, log), cleanup, nil
}
