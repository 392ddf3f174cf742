package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	Environment    string
	HTTPPort       string
	MigrationsPath string

	// Фоновая уборка записей
	AutoCompleteDelay      time.Duration
	AutoCancelPendingAfter time.Duration
	MaintenanceBatchSize   int
	MaintenanceInterval    time.Duration

	// Генерация занятий по еженедельным правилам
	RecurrenceInterval time.Duration
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    getEnv("ENV", "development"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),

		AutoCompleteDelay:      time.Duration(getEnvIntAtLeast("APPOINTMENT_AUTO_COMPLETE_DELAY_MINUTES", 5, 0)) * time.Minute,
		AutoCancelPendingAfter: time.Duration(getEnvIntAtLeast("APPOINTMENT_AUTO_CANCEL_PENDING_MINUTES", 1440, 1)) * time.Minute,
		MaintenanceBatchSize:   getEnvIntAtLeast("APPOINTMENT_AUTO_COMPLETE_BATCH_SIZE", 100, 1),
		MaintenanceInterval:    time.Duration(getEnvIntAtLeast("MAINTENANCE_INTERVAL_MINUTES", 10, 1)) * time.Minute,

		RecurrenceInterval: time.Duration(getEnvIntAtLeast("RECURRENCE_INTERVAL_HOURS", 24, 1)) * time.Hour,
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvIntAtLeast читает целое из окружения с нижней границей.
// Значение меньше min (например, отрицательная задержка) ломает
// расчёт порогов уборки, поэтому откатываемся на дефолт.
func getEnvIntAtLeast(key string, fallback, min int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	if n < min {
		log.Printf("Value for %s out of range: %d, using default %d", key, n, fallback)
		return fallback
	}
	return n
}
