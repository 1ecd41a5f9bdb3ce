package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const seasonEpochLayout = "2006-01-02"

// Config хранит все конфигурационные параметры приложения.
// Сезонные параметры передаются дальше явно, чтобы генерация расписаний
// оставалась чистой функцией без обращения к окружению.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// SeasonEpoch - календарная дата первого игрового дня сезона.
	SeasonEpoch time.Time

	// AutoFillSweepCron задаёт расписание проверки дедлайнов турниров.
	AutoFillSweepCron string

	CORSAllowedOrigins []string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	epochStr := os.Getenv("SEASON_EPOCH")
	if epochStr == "" {
		return nil, fmt.Errorf("SEASON_EPOCH environment variable is not set (expected %s)", seasonEpochLayout)
	}
	epoch, err := time.Parse(seasonEpochLayout, epochStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SEASON_EPOCH environment variable: %w", err)
	}

	sweepCron := os.Getenv("AUTOFILL_SWEEP_CRON")
	if sweepCron == "" {
		sweepCron = "*/5 * * * *" // Каждые пять минут по умолчанию
	}

	corsOrigins := splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		SeasonEpoch:        epoch,
		AutoFillSweepCron:  sweepCron,
		CORSAllowedOrigins: corsOrigins,
		R2AccountID:        os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:      os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:  os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:       os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:    os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	if err := cfg.validateR2(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// R2Enabled reports whether snapshot archiving is configured. The
// archiver is optional: without R2 credentials regeneration still
// works, snapshots are just skipped.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != ""
}

func (c *Config) validateR2() error {
	r2Fields := []struct {
		name  string
		value string
	}{
		{"R2_ACCOUNT_ID", c.R2AccountID},
		{"R2_ACCESS_KEY_ID", c.R2AccessKeyID},
		{"R2_SECRET_ACCESS_KEY", c.R2SecretAccessKey},
		{"R2_BUCKET_NAME", c.R2BucketName},
		{"R2_PUBLIC_BASE_URL", c.R2PublicBaseURL},
	}

	var set, missing []string
	for _, field := range r2Fields {
		if field.value == "" {
			missing = append(missing, field.name)
		} else {
			set = append(set, field.name)
		}
	}

	// Либо весь блок R2 задан, либо весь опущен.
	if len(set) > 0 && len(missing) > 0 {
		return fmt.Errorf("incomplete R2 configuration: %s set but %s missing",
			strings.Join(set, ", "), strings.Join(missing, ", "))
	}
	return nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
