package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string  `mapstructure:"PORT"`
	Env              string  `mapstructure:"ENV"`
	DatabaseURL      string  `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32   `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32   `mapstructure:"DB_MIN_CONNS"`
	DefaultWorkspace string  `mapstructure:"DEFAULT_WORKSPACE"`
	MigrationsDir    string  `mapstructure:"MIGRATIONS_DIR"`
	JWTSigningKey    string  `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer        string  `mapstructure:"JWT_ISSUER"`
	OCRServiceURL    string  `mapstructure:"OCR_SERVICE_URL"`
	OCRTimeoutSecs   int     `mapstructure:"OCR_TIMEOUT_SECS"`
	CodingServiceURL string  `mapstructure:"CODING_SERVICE_URL"`
	AIMatchThreshold float64 `mapstructure:"AI_MATCH_THRESHOLD"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_WORKSPACE", "default")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("OCR_TIMEOUT_SECS", 120)
	v.SetDefault("AI_MATCH_THRESHOLD", 0.80)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("DEFAULT_WORKSPACE")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("JWT_SIGNING_KEY")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("OCR_SERVICE_URL")
	v.BindEnv("OCR_TIMEOUT_SECS")
	v.BindEnv("CODING_SERVICE_URL")
	v.BindEnv("AI_MATCH_THRESHOLD")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// OCRTimeout returns the OCR call timeout clamped to the 60-180s window the
// upstream vision service is known to need.
func (c *Config) OCRTimeout() time.Duration {
	secs := c.OCRTimeoutSecs
	if secs < 60 {
		secs = 60
	}
	if secs > 180 {
		secs = 180
	}
	return time.Duration(secs) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT signing key is required so real authentication is enforced, and the
// ai_match confidence threshold must stay in (0,1].
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.AIMatchThreshold <= 0 || c.AIMatchThreshold > 1 {
		return fmt.Errorf("AI_MATCH_THRESHOLD must be in (0,1], got %v", c.AIMatchThreshold)
	}
	return nil
}
