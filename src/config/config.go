package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/classifier"
	"monzo-manager/src/monzo"
	"monzo-manager/src/sorter"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port    string
	DataDir string

	SecretsFile string
	TokensFile  string
	BudgetFile  string
	ClassesFile string
	WebhookFile string

	APIBaseURL  string
	AuthBaseURL string
	RedirectURL string
	HTTPTimeout time.Duration

	DatabaseURL string

	JWTSecret         string
	AdminPasswordHash string
	WebhookToken      string
	CORSOrigins       []string
	ReadOnly          bool

	SalaryTiers        []sorter.Tier
	SalaryRemainderPot string
	SalaryClass        string
	OnMissingField     classifier.MissingFieldPolicy
	DeliveryTTL        time.Duration
}

var keys = []string{
	"port", "data_dir", "secrets_file", "tokens_file", "budget_file", "classes_file", "webhook_file",
	"api_base_url", "auth_base_url", "redirect_url", "http_timeout", "database_url",
	"jwt_secret", "admin_password_hash", "webhook_token", "cors_origins", "read_only",
	"salary_tiers", "salary_remainder_pot", "salary_class", "on_missing_field", "delivery_ttl",
}

// Load reads settings from a .env file, the environment and an optional config
// file named by MONZO_CONFIG. Every key can be set as e.g. PORT or MONZO_PORT.
func Load() (Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("data_dir", "data")
	v.SetDefault("api_base_url", monzo.DefaultBaseURL)
	v.SetDefault("auth_base_url", monzo.DefaultAuthURL)
	v.SetDefault("redirect_url", "http://localhost:8080/oauth/callback")
	v.SetDefault("http_timeout", "30s")
	v.SetDefault("salary_tiers", "Bills:1000.00,Accessible Funds:2000.00")
	v.SetDefault("salary_remainder_pot", sorter.DefaultRemainderPot)
	v.SetDefault("salary_class", "salary")
	v.SetDefault("on_missing_field", "pass")
	v.SetDefault("delivery_ttl", "24h")
	v.SetDefault("read_only", false)

	for _, key := range keys {
		env := strings.ToUpper(key)
		if err := v.BindEnv(key, "MONZO_"+env, env); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if path := os.Getenv("MONZO_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, apperrors.Configuration("reading config file %s: %v", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	dataDir := v.GetString("data_dir")
	inData := func(key, name string) string {
		if p := v.GetString(key); p != "" {
			return p
		}
		return filepath.Join(dataDir, name)
	}

	cfg := Config{
		Port:               v.GetString("port"),
		DataDir:            dataDir,
		SecretsFile:        inData("secrets_file", "secrets.json"),
		TokensFile:         inData("tokens_file", "tokens.json"),
		BudgetFile:         inData("budget_file", "budget.json"),
		ClassesFile:        inData("classes_file", "transaction_classes.json"),
		WebhookFile:        inData("webhook_file", "webhook.json"),
		APIBaseURL:         v.GetString("api_base_url"),
		AuthBaseURL:        v.GetString("auth_base_url"),
		RedirectURL:        v.GetString("redirect_url"),
		DatabaseURL:        v.GetString("database_url"),
		JWTSecret:          v.GetString("jwt_secret"),
		AdminPasswordHash:  v.GetString("admin_password_hash"),
		WebhookToken:       v.GetString("webhook_token"),
		SalaryRemainderPot: v.GetString("salary_remainder_pot"),
		SalaryClass:        v.GetString("salary_class"),
		ReadOnly:           v.GetBool("read_only"),
	}
	for _, origin := range strings.Split(v.GetString("cors_origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	var err error
	if cfg.HTTPTimeout, err = time.ParseDuration(v.GetString("http_timeout")); err != nil {
		return Config{}, apperrors.Configuration("HTTP_TIMEOUT: %v", err)
	}
	if cfg.DeliveryTTL, err = time.ParseDuration(v.GetString("delivery_ttl")); err != nil {
		return Config{}, apperrors.Configuration("DELIVERY_TTL: %v", err)
	}
	if cfg.SalaryTiers, err = sorter.ParseTiers(v.GetString("salary_tiers")); err != nil {
		return Config{}, err
	}
	policy, ok := classifier.ParseMissingFieldPolicy(v.GetString("on_missing_field"))
	if !ok {
		return Config{}, apperrors.Configuration("ON_MISSING_FIELD must be pass or fail, got %q", v.GetString("on_missing_field"))
	}
	cfg.OnMissingField = policy

	return cfg, nil
}
