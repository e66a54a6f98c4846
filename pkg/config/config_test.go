package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Port != "8086" {
		t.Errorf("Expected Port to be 8086, got %s", cfg.Port)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Database.MaxConns != 25 {
		t.Errorf("Expected DB MaxConns to be 25, got %d", cfg.Database.MaxConns)
	}

	if cfg.Market.RiskFreeRate != 0.028 {
		t.Errorf("Expected risk-free rate 0.028, got %v", cfg.Market.RiskFreeRate)
	}

	if cfg.Market.RiskPremium != 0.055 {
		t.Errorf("Expected market risk premium 0.055, got %v", cfg.Market.RiskPremium)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("ENV", "production")
	os.Setenv("DB_MAX_CONNS", "50")
	os.Setenv("LOG_LEVEL", "info")
	os.Setenv("MARKET_RISK_FREE_RATE", "0.03")
	os.Setenv("WATCHLIST", "600900, 300750,000858")

	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ENV")
		os.Unsetenv("DB_MAX_CONNS")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("MARKET_RISK_FREE_RATE")
		os.Unsetenv("WATCHLIST")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}

	if cfg.Database.MaxConns != 50 {
		t.Errorf("Expected DB MaxConns to be 50, got %d", cfg.Database.MaxConns)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel to be info, got %s", cfg.LogLevel)
	}

	if cfg.Market.RiskFreeRate != 0.03 {
		t.Errorf("Expected risk-free rate 0.03, got %v", cfg.Market.RiskFreeRate)
	}

	if len(cfg.Watchlist) != 3 || cfg.Watchlist[1] != "300750" {
		t.Errorf("Expected 3-ticker watchlist, got %v", cfg.Watchlist)
	}
}

func TestValidateBadEnv(t *testing.T) {
	os.Setenv("ENV", "sandbox")
	defer os.Unsetenv("ENV")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for unknown ENV, got nil")
	}
}

func TestValidateBadMarketRates(t *testing.T) {
	os.Setenv("MARKET_RISK_PREMIUM", "-0.02")
	defer os.Unsetenv("MARKET_RISK_PREMIUM")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for negative risk premium, got nil")
	}
}
