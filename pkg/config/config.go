package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Cron         CronConfig
	Gmail        GmailConfig
	Twilio       TwilioConfig
	OpenAI       OpenAIConfig
	Company      CompanyConfig
	FeatureFlags FeatureFlagsConfig
	Admin        AdminConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env              string   `envconfig:"AMBERWAY_APP_ENV" required:"true"`
	Port             string   `envconfig:"AMBERWAY_APP_PORT" required:"true"`
	LogLevel         string   `envconfig:"AMBERWAY_LOG_LEVEL" default:"info"`
	LogWarnStack     bool     `envconfig:"AMBERWAY_LOG_WARN_STACK" default:"false"`
	ExtraCORSOrigins []string `envconfig:"AMBERWAY_EXTRA_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AMBERWAY_DB_DSN"`
	Driver string `envconfig:"AMBERWAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AMBERWAY_DB_HOST"`
	LegacyPort     int    `envconfig:"AMBERWAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AMBERWAY_DB_USER"`
	LegacyPassword string `envconfig:"AMBERWAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"AMBERWAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"AMBERWAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AMBERWAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AMBERWAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AMBERWAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AMBERWAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AMBERWAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AMBERWAY_REDIS_ADDR"`
	Password     string        `envconfig:"AMBERWAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"AMBERWAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AMBERWAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AMBERWAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AMBERWAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AMBERWAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AMBERWAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CronConfig struct {
	Interval      time.Duration `envconfig:"AMBERWAY_CRON_INTERVAL" default:"24h"`
	LockTTL       time.Duration `envconfig:"AMBERWAY_CRON_LOCK_TTL" default:"25h"`
	StaleDealDays int           `envconfig:"AMBERWAY_CRON_STALE_DEAL_DAYS" default:"60"`
	MetricsPort   string        `envconfig:"AMBERWAY_CRON_METRICS_PORT" default:"9090"`
}

type GmailConfig struct {
	ClientID     string `envconfig:"AMBERWAY_GMAIL_CLIENT_ID"`
	ClientSecret string `envconfig:"AMBERWAY_GMAIL_CLIENT_SECRET"`
	RefreshToken string `envconfig:"AMBERWAY_GMAIL_REFRESH_TOKEN"`
	FromAddress  string `envconfig:"AMBERWAY_GMAIL_FROM" default:"info@amberwayequine.com"`
}

// Configured reports whether the Gmail sender has everything it needs.
func (g GmailConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RefreshToken != ""
}

type TwilioConfig struct {
	AccountSID  string `envconfig:"AMBERWAY_TWILIO_ACCOUNT_SID"`
	AuthToken   string `envconfig:"AMBERWAY_TWILIO_AUTH_TOKEN"`
	PhoneNumber string `envconfig:"AMBERWAY_TWILIO_PHONE_NUMBER"`
}

// Configured reports whether SMS sending is fully wired.
func (t TwilioConfig) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.PhoneNumber != ""
}

type OpenAIConfig struct {
	APIKey string `envconfig:"AMBERWAY_OPENAI_API_KEY"`
	Model  string `envconfig:"AMBERWAY_OPENAI_MODEL" default:"gpt-4o-mini"`
}

type CompanyConfig struct {
	Name  string `envconfig:"AMBERWAY_COMPANY_NAME" default:"Amberway Equine LLC"`
	Email string `envconfig:"AMBERWAY_COMPANY_EMAIL" default:"info@amberwayequine.com"`
	Phone string `envconfig:"AMBERWAY_COMPANY_PHONE"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AMBERWAY_AUTO_MIGRATE" default:"false"`
}

type AdminConfig struct {
	CleanupSecret string `envconfig:"AMBERWAY_CLEANUP_SECRET"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
