package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Politicas para las notas de una cuenta eliminada desde settings.
const (
	OrphanPolicyRetain = "retain"
	OrphanPolicyPurge  = "purge"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AdminEmail           string  `env:"ADMIN_EMAIL" envDefault:"admin@example.com"`
	StorageQuotaMB       float64 `env:"STORAGE_QUOTA_MB" envDefault:"1000"`
	AnalyticsTZ          string  `env:"ANALYTICS_TZ" envDefault:"Local"`
	AnalyticsDateLayout  string  `env:"ANALYTICS_DATE_LAYOUT" envDefault:"1/2/2006"`
	AccountOrphanPolicy  string  `env:"ACCOUNT_ORPHAN_POLICY" envDefault:"retain"`
	EnforceProfileStatus bool    `env:"ENFORCE_PROFILE_STATUS" envDefault:"true"`

	LoginMaxAttempts   int     `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindowMinutes int     `env:"LOGIN_WINDOW_MINUTES" envDefault:"10"`
	RateLimitRPS       float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normaliza y revisa los valores que env no puede validar solo.
func (c *Config) Validate() error {
	c.AccountOrphanPolicy = strings.ToLower(strings.TrimSpace(c.AccountOrphanPolicy))
	switch c.AccountOrphanPolicy {
	case OrphanPolicyRetain, OrphanPolicyPurge:
	default:
		return fmt.Errorf("ACCOUNT_ORPHAN_POLICY must be %q or %q, got %q", OrphanPolicyRetain, OrphanPolicyPurge, c.AccountOrphanPolicy)
	}
	if c.StorageQuotaMB <= 0 {
		return fmt.Errorf("STORAGE_QUOTA_MB must be positive, got %v", c.StorageQuotaMB)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("ANALYTICS_TZ: %w", err)
	}
	c.AdminEmail = strings.ToLower(strings.TrimSpace(c.AdminEmail))
	return nil
}

// Location devuelve la zona horaria usada para agrupar notas por dia.
func (c *Config) Location() (*time.Location, error) {
	if c.AnalyticsTZ == "" || c.AnalyticsTZ == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.AnalyticsTZ)
}
