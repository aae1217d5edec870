package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"healthcare-portal-server/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Config resolves configuration the same way serve does and prints it as YAML.
Secrets are masked.

Priority (highest first):
  1. Environment variables
  2. .env in the working directory
  3. The --config file
  4. Defaults`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		out, err := yaml.Marshal(newConfigView(cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

type configView struct {
	Server struct {
		Port        string `yaml:"port"`
		Origin      string `yaml:"origin"`
		Environment string `yaml:"environment"`
	} `yaml:"server"`
	JWT struct {
		Secret                 string `yaml:"secret"`
		RefreshSecret          string `yaml:"refresh_secret"`
		ExpirationMinutes      int    `yaml:"expiration_minutes"`
		RefreshExpirationHours int    `yaml:"refresh_expiration_hours"`
	} `yaml:"jwt"`
	Database struct {
		Driver string `yaml:"driver"`
		Host   string `yaml:"host"`
		Port   string `yaml:"port"`
		Name   string `yaml:"name"`
		User   string `yaml:"user"`
	} `yaml:"database"`
	Prediction struct {
		Delay         string `yaml:"delay"`
		RatePerMinute int    `yaml:"rate_per_minute"`
		RateBurst     int    `yaml:"rate_burst"`
		MinSymptoms   int    `yaml:"min_symptoms"`
	} `yaml:"prediction"`
	Insight struct {
		Provider  string `yaml:"provider"`
		APIKey    string `yaml:"api_key"`
		BaseURL   string `yaml:"base_url,omitempty"`
		Model     string `yaml:"model,omitempty"`
		Timeout   string `yaml:"timeout"`
		MaxTokens int    `yaml:"max_tokens"`
		CacheTTL  string `yaml:"cache_ttl"`
	} `yaml:"insight"`
}

func newConfigView(cfg *config.Config) configView {
	var v configView
	v.Server.Port = cfg.Port
	v.Server.Origin = cfg.Origin
	v.Server.Environment = cfg.Environment
	v.JWT.Secret = mask(cfg.JWTSecret)
	v.JWT.RefreshSecret = mask(cfg.JWTRefreshSecret)
	v.JWT.ExpirationMinutes = cfg.JWTExpirationMinutes
	v.JWT.RefreshExpirationHours = cfg.JWTRefreshExpirationHours
	v.Database.Driver = cfg.Database.Driver
	v.Database.Host = cfg.Database.Host
	v.Database.Port = cfg.Database.Port
	v.Database.Name = cfg.Database.Name
	v.Database.User = cfg.Database.Username
	v.Prediction.Delay = cfg.Prediction.Delay.String()
	v.Prediction.RatePerMinute = cfg.Prediction.RatePerMinute
	v.Prediction.RateBurst = cfg.Prediction.RateBurst
	v.Prediction.MinSymptoms = cfg.Prediction.MinSymptoms
	v.Insight.Provider = cfg.Insight.Provider
	v.Insight.APIKey = mask(cfg.Insight.APIKey)
	v.Insight.BaseURL = cfg.Insight.BaseURL
	v.Insight.Model = cfg.Insight.Model
	v.Insight.Timeout = cfg.Insight.Timeout.String()
	v.Insight.MaxTokens = cfg.Insight.MaxTokens
	v.Insight.CacheTTL = cfg.Insight.CacheTTL.String()
	return v
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
