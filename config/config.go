/*
Package config holds the environment-driven configuration for the
loyalty engine.

PURPOSE:
  One struct, loaded once at startup with go-envconfig. Every tunable
  the system has - demo credentials included - lives here so nothing is
  hard-wired into the domain packages.

SECURITY NOTE:
  The default OTP code and admin credentials are the well-known demo
  placeholders. Override them in any deployment that is not a demo.
*/
package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     int    `env:"PORT, default=8080"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	LogPretty bool  `env:"LOG_PRETTY, default=false"`

	// Session
	TokenSecret string        `env:"TOKEN_SECRET, default=binrewards-dev-secret"`
	TokenTTL    time.Duration `env:"TOKEN_TTL, default=24h"`
	OTPCode     string        `env:"OTP_CODE, default=1234"`
	AdminUser   string        `env:"ADMIN_USER, default=admin"`
	AdminPass   string        `env:"ADMIN_PASS, default=password"`

	// Ledger seeds
	WelcomeBonus     int64 `env:"WELCOME_BONUS, default=750"`
	AdminSeedBalance int64 `env:"ADMIN_SEED_BALANCE, default=99999"`

	// Bin scanning
	BinCode         string        `env:"BIN_CODE, default=https://your-app.com/redeem?id=123"`
	ScanRewardAmount int64        `env:"SCAN_REWARD_AMOUNT, default=50"`
	ScanNoticeTTL   time.Duration `env:"SCAN_NOTICE_TTL, default=3s"`

	// Recommendation service
	RecommendURL     string        `env:"RECOMMEND_URL"`
	RecommendAPIKey  string        `env:"RECOMMEND_API_KEY"`
	RecommendModel   string        `env:"RECOMMEND_MODEL, default=gemini-2.5-flash"`
	RecommendTimeout time.Duration `env:"RECOMMEND_TIMEOUT, default=10s"`

	// Catalog persistence. Empty keeps the catalog in memory.
	CatalogDB string `env:"CATALOG_DB"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
