package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBUrl      string `mapstructure:"DB_URL"`
	DBMaxConns int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns int32  `mapstructure:"DB_MIN_CONNS"`
	HTTPAddr   string `mapstructure:"HTTP_ADDR"`
	AppURL     string `mapstructure:"APP_URL"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	IPaymuVA      string        `mapstructure:"IPAYMU_VA"`
	IPaymuAPIKey  string        `mapstructure:"IPAYMU_API_KEY"`
	IPaymuEnv     string        `mapstructure:"IPAYMU_ENV"`
	IPaymuTimeout time.Duration `mapstructure:"IPAYMU_TIMEOUT"`

	AAPanelURL        string        `mapstructure:"AAPANEL_URL"`
	AAPanelAPIKey     string        `mapstructure:"AAPANEL_API_KEY"`
	AAPanelTimeout    time.Duration `mapstructure:"AAPANEL_TIMEOUT"`
	AAPanelPHPVersion string        `mapstructure:"AAPANEL_PHP_VERSION"`

	SMTPHost    string `mapstructure:"SMTP_HOST"`
	SMTPPort    int    `mapstructure:"SMTP_PORT"`
	SMTPUser    string `mapstructure:"SMTP_USER"`
	SMTPPass    string `mapstructure:"SMTP_PASS"`
	SMTPFrom    string `mapstructure:"SMTP_FROM"`
	SMTPTLSMode string `mapstructure:"SMTP_TLS_MODE"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	OTPCodeTTL      time.Duration `mapstructure:"OTP_CODE_TTL"`
	OTPLockout      time.Duration `mapstructure:"OTP_LOCKOUT"`
	OTPMaxAttempts  int           `mapstructure:"OTP_MAX_ATTEMPTS"`
	ResetTokenTTL   time.Duration `mapstructure:"RESET_TOKEN_TTL"`
	OTPResendLimit  int           `mapstructure:"OTP_RESEND_LIMIT"`
	OTPResendWindow time.Duration `mapstructure:"OTP_RESEND_WINDOW"`

	ChannelsCacheTTL time.Duration `mapstructure:"CHANNELS_CACHE_TTL"`
}

// keys lists every setting so AutomaticEnv can resolve it during Unmarshal.
var keys = []string{
	"DB_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "HTTP_ADDR", "APP_URL", "JWT_SECRET", "LOG_LEVEL", "LOG_FORMAT",
	"IPAYMU_VA", "IPAYMU_API_KEY", "IPAYMU_ENV", "IPAYMU_TIMEOUT",
	"AAPANEL_URL", "AAPANEL_API_KEY", "AAPANEL_TIMEOUT", "AAPANEL_PHP_VERSION",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "SMTP_FROM", "SMTP_TLS_MODE",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"OTP_CODE_TTL", "OTP_LOCKOUT", "OTP_MAX_ATTEMPTS", "RESET_TOKEN_TTL",
	"OTP_RESEND_LIMIT", "OTP_RESEND_WINDOW", "CHANNELS_CACHE_TTL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("IPAYMU_ENV", "sandbox")
	v.SetDefault("IPAYMU_TIMEOUT", 15*time.Second)
	v.SetDefault("AAPANEL_TIMEOUT", 30*time.Second)
	v.SetDefault("AAPANEL_PHP_VERSION", "74")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_TLS_MODE", "auto")
	v.SetDefault("OTP_CODE_TTL", 10*time.Minute)
	v.SetDefault("OTP_LOCKOUT", 15*time.Minute)
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("RESET_TOKEN_TTL", time.Hour)
	v.SetDefault("OTP_RESEND_LIMIT", 5)
	v.SetDefault("OTP_RESEND_WINDOW", time.Hour)
	v.SetDefault("CHANNELS_CACHE_TTL", 10*time.Minute)
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (Config, error) {
	return load(".env")
}

func load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// a missing .env is fine, env variables are enough
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.DBUrl == "" {
		return errors.New("DB_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.OTPMaxAttempts < 1 {
		return errors.New("OTP_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// PaymentsEnabled reports whether gateway credentials are configured.
func (c Config) PaymentsEnabled() bool {
	return c.IPaymuVA != "" && c.IPaymuAPIKey != ""
}
