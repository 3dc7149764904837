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
	Host         string
	Port         int
	AllowOrigins []string
	LogLevel     string
	MaxUploadMB  int
	LogFile      string

	DatabaseURL     string
	ImportBatchSize int
	ImportMaxRows   int
	FieldDefsTTL    time.Duration
}

// Load читает окружение; .env подхватывается, если он есть.
func Load() Config {
	_ = godotenv.Load()

	origins := strings.Split(getenv("ALLOW_ORIGINS", "*"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return Config{
		Host:         getenv("HOST", "127.0.0.1"),
		Port:         getint("PORT", 8082),
		AllowOrigins: origins,
		LogLevel:     getenv("LOG_LEVEL", "info"),
		MaxUploadMB:  getint("MAX_UPLOAD_MB", 50),
		LogFile:      getenv("LOG_FILE", "logs/helpdesk-transfer.log"),

		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ImportBatchSize: getint("IMPORT_BATCH_SIZE", 10),
		ImportMaxRows:   getint("IMPORT_MAX_ROWS", 10000),
		FieldDefsTTL:    time.Duration(getint("FIELD_DEFS_TTL_SEC", 300)) * time.Second,
	}
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getint: нечисловое или неположительное значение даёт дефолт.
func getint(k string, def int) int {
	n, err := strconv.Atoi(getenv(k, ""))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
