package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	defaultJWTSecret        = "default_jwt_secret"
	defaultJWTRefreshSecret = "default_refresh_secret"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	Database                  DatabaseConfig
	Prediction                PredictionConfig
	Insight                   InsightConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	SSLMode  string
	DSN      string
}

// PredictionConfig tunes the disease analysis endpoints.
type PredictionConfig struct {
	Delay         time.Duration
	RatePerMinute int
	RateBurst     int
	MinSymptoms   int
}

// InsightConfig configures the optional generative symptom analysis.
type InsightConfig struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
	CacheTTL  time.Duration
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

var defaults = map[string]string{
	"PORT":                         "3001",
	"ORIGIN":                       "http://localhost:4200",
	"NODE_ENV":                     "development",
	"JWT_SECRET":                   defaultJWTSecret,
	"JWT_REFRESH_SECRET":           defaultJWTRefreshSecret,
	"JWT_EXPIRATION_MINUTES":       "15",
	"JWT_REFRESH_EXPIRATION_HOURS": "168", // 7 days
	"DB_DRIVER":                    DriverMySQL,
	"DB_HOST":                      "localhost",
	"DB_PORT":                      "3306",
	"DB_USERNAME":                  "root",
	"DB_PASSWORD":                  "",
	"DB_NAME":                      "medi",
	"DB_SSLMODE":                   "disable",
	"DATABASE_URL":                 "",
	"PREDICTION_DELAY_MS":          "1500",
	"PREDICTION_RATE_PER_MINUTE":   "30",
	"PREDICTION_RATE_BURST":        "5",
	"MIN_SYMPTOMS":                 "3",
	"INSIGHT_PROVIDER":             "",
	"OPENAI_API_KEY":               "",
	"INSIGHT_BASE_URL":             "",
	"INSIGHT_MODEL":                "",
	"INSIGHT_TIMEOUT_SECONDS":      "30",
	"INSIGHT_MAX_TOKENS":           "1000",
	"INSIGHT_CACHE_TTL_MINUTES":    "60",
}

// LoadConfig loads configuration from, in increasing priority: defaults, the
// optional YAML file at path, a .env file in the working directory and the
// process environment.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	jwtExpMinutes, err := nonNegativeInt(v, "JWT_EXPIRATION_MINUTES")
	if err != nil {
		return nil, err
	}
	jwtRefreshExpHours, err := nonNegativeInt(v, "JWT_REFRESH_EXPIRATION_HOURS")
	if err != nil {
		return nil, err
	}
	delayMS, err := nonNegativeInt(v, "PREDICTION_DELAY_MS")
	if err != nil {
		return nil, err
	}
	ratePerMinute, err := nonNegativeInt(v, "PREDICTION_RATE_PER_MINUTE")
	if err != nil {
		return nil, err
	}
	rateBurst, err := nonNegativeInt(v, "PREDICTION_RATE_BURST")
	if err != nil {
		return nil, err
	}
	minSymptoms, err := nonNegativeInt(v, "MIN_SYMPTOMS")
	if err != nil {
		return nil, err
	}
	insightTimeout, err := nonNegativeInt(v, "INSIGHT_TIMEOUT_SECONDS")
	if err != nil {
		return nil, err
	}
	insightMaxTokens, err := nonNegativeInt(v, "INSIGHT_MAX_TOKENS")
	if err != nil {
		return nil, err
	}
	insightCacheTTL, err := nonNegativeInt(v, "INSIGHT_CACHE_TTL_MINUTES")
	if err != nil {
		return nil, err
	}

	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		Username: v.GetString("DB_USERNAME"),
		Password: v.GetString("DB_PASSWORD"),
		Name:     v.GetString("DB_NAME"),
		SSLMode:  v.GetString("DB_SSLMODE"),
		DSN:      v.GetString("DATABASE_URL"),
	}
	if dbConfig.DSN == "" {
		dsn, err := dbConfig.buildDSN()
		if err != nil {
			return nil, err
		}
		dbConfig.DSN = dsn
	} else if err := dbConfig.checkDriver(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                      v.GetString("PORT"),
		Origin:                    v.GetString("ORIGIN"),
		Environment:               v.GetString("NODE_ENV"),
		JWTSecret:                 v.GetString("JWT_SECRET"),
		JWTRefreshSecret:          v.GetString("JWT_REFRESH_SECRET"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		Database:                  dbConfig,
		Prediction: PredictionConfig{
			Delay:         time.Duration(delayMS) * time.Millisecond,
			RatePerMinute: ratePerMinute,
			RateBurst:     rateBurst,
			MinSymptoms:   minSymptoms,
		},
		Insight: InsightConfig{
			Provider:  strings.ToLower(v.GetString("INSIGHT_PROVIDER")),
			APIKey:    v.GetString("OPENAI_API_KEY"),
			BaseURL:   v.GetString("INSIGHT_BASE_URL"),
			Model:     v.GetString("INSIGHT_MODEL"),
			Timeout:   time.Duration(insightTimeout) * time.Second,
			MaxTokens: insightMaxTokens,
			CacheTTL:  time.Duration(insightCacheTTL) * time.Minute,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func nonNegativeInt(v *viper.Viper, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return n, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.Environment == "production" &&
		(c.JWTSecret == defaultJWTSecret || c.JWTRefreshSecret == defaultJWTRefreshSecret) {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must be set in production")
	}
	if c.JWTExpirationMinutes == 0 || c.JWTRefreshExpirationHours == 0 {
		return errors.New("JWT expirations must be positive")
	}
	return nil
}

func (d DatabaseConfig) checkDriver() error {
	switch d.Driver {
	case DriverMySQL, DriverPostgres:
		return nil
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (supported: %s, %s)", d.Driver, DriverMySQL, DriverPostgres)
	}
}

func (d DatabaseConfig) buildDSN() (string, error) {
	if err := d.checkDriver(); err != nil {
		return "", err
	}

	if d.Driver == DriverPostgres {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Username, d.Password, d.Name, d.Port, d.SSLMode), nil
	}

	mc := mysql.NewConfig()
	mc.User = d.Username
	mc.Passwd = d.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(d.Host, d.Port)
	mc.DBName = d.Name
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN(), nil
}
