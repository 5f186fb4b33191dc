package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DbHost    string
	DbPort    string
	DbUser    string
	DbPass    string
	DbName    string
	DbSSLMode string

	JWTSecret      string
	AccessTokenTTL string

	Log      string
	LogLevel string
	Env      string // dev|prod
	Origin   string

	UploadDir       string
	PublicURLPrefix string
	MaxAttachments  int
	AllowedMIME     []string
	MaxUploadMB     int
	EditRetries     int

	SweepInterval string
	OrphanGrace   string
}

var defaultMIME = "image/jpeg,image/png,image/gif,application/pdf"

// LoadConfig загружает .env, читает переменные окружения и выставляет дефолты.
// Ничего не логирует, logger ещё не инициализирован.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	def := func(v, d string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		return v
	}

	maxAttachments, err := atoiDef(os.Getenv("MAX_ATTACHMENTS"), 10)
	if err != nil {
		return nil, fmt.Errorf("MAX_ATTACHMENTS: %w", err)
	}
	maxUpload, err := atoiDef(os.Getenv("MAX_UPLOAD_MB"), 20)
	if err != nil {
		return nil, fmt.Errorf("MAX_UPLOAD_MB: %w", err)
	}
	retries, err := atoiDef(os.Getenv("EDIT_RETRIES"), 3)
	if err != nil {
		return nil, fmt.Errorf("EDIT_RETRIES: %w", err)
	}

	cfg := &Config{
		Port:      def(os.Getenv("PORT"), "8080"),
		DbHost:    os.Getenv("DB_HOST"),
		DbPort:    def(os.Getenv("DB_PORT"), "5432"),
		DbUser:    os.Getenv("DB_USER"),
		DbPass:    os.Getenv("DB_PASSWORD"),
		DbName:    os.Getenv("DB_NAME"),
		DbSSLMode: def(os.Getenv("DB_SSLMODE"), "disable"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: def(os.Getenv("ACCESS_TOKEN_EXPIRY"), "24h"),

		Log:      os.Getenv("LOG"),
		LogLevel: strings.ToLower(def(os.Getenv("LOGLEVEL"), "info")),
		Env:      strings.ToLower(def(os.Getenv("ENV"), "prod")),
		Origin:   def(os.Getenv("ORIGIN"), "*"),

		UploadDir:       def(os.Getenv("UPLOAD_DIR"), "uploads"),
		PublicURLPrefix: strings.TrimRight(def(os.Getenv("PUBLIC_URL_PREFIX"), "/uploads"), "/"),
		MaxAttachments:  maxAttachments,
		AllowedMIME:     splitList(def(os.Getenv("ALLOWED_MIME"), defaultMIME)),
		MaxUploadMB:     maxUpload,
		EditRetries:     retries,

		SweepInterval: def(os.Getenv("SWEEP_INTERVAL"), "1h"),
		OrphanGrace:   def(os.Getenv("ORPHAN_GRACE"), "24h"),
	}

	return cfg, nil
}

// Validate возвращает предупреждения и фатальную ошибку (если критично).
func (c *Config) Validate() (warnings []string, err error) {
	if c.DbHost == "" || c.DbUser == "" || c.DbName == "" {
		return nil, fmt.Errorf("incomplete DB config (DB_HOST/DB_USER/DB_NAME)")
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		warnings = append(warnings, "JWT_SECRET is empty")
	}
	if c.MaxAttachments <= 0 {
		return nil, fmt.Errorf("MAX_ATTACHMENTS must be positive, got %d", c.MaxAttachments)
	}
	if len(c.AllowedMIME) == 0 {
		warnings = append(warnings, "ALLOWED_MIME is empty, every upload will be rejected")
	}
	for name, raw := range map[string]string{
		"ACCESS_TOKEN_EXPIRY": c.AccessTokenTTL,
		"SWEEP_INTERVAL":      c.SweepInterval,
		"ORPHAN_GRACE":        c.OrphanGrace,
	} {
		if _, perr := time.ParseDuration(raw); perr != nil {
			return nil, fmt.Errorf("%s: %w", name, perr)
		}
	}

	return warnings, nil
}

func (c *Config) TokenTTL() time.Duration     { return mustDuration(c.AccessTokenTTL, 24*time.Hour) }
func (c *Config) SweepEvery() time.Duration   { return mustDuration(c.SweepInterval, time.Hour) }
func (c *Config) OrphanMaxAge() time.Duration { return mustDuration(c.OrphanGrace, 24*time.Hour) }

// GetDSN: полная DSN (с паролем)
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// GetDSNSafe: DSN без пароля (для логов)
func (c *Config) GetDSNSafe() string {
	return fmt.Sprintf(
		"postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

func atoiDef(v string, d int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return d, nil
	}
	return strconv.Atoi(v)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

func mustDuration(v string, d time.Duration) time.Duration {
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return d
	}
	return parsed
}
