package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HOST", "PORT", "ALLOW_ORIGINS", "IMPORT_BATCH_SIZE", "IMPORT_MAX_ROWS", "FIELD_DEFS_TTL_SEC"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Addr() != "127.0.0.1:8082" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.ImportBatchSize != 10 || cfg.ImportMaxRows != 10000 || cfg.FieldDefsTTL != 5*time.Minute {
		t.Errorf("import defaults = %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("IMPORT_BATCH_SIZE", "25")
	t.Setenv("IMPORT_MAX_ROWS", "-1")
	t.Setenv("FIELD_DEFS_TTL_SEC", "60")

	cfg := Load()
	if cfg.Port != 9000 || cfg.ImportBatchSize != 25 || cfg.FieldDefsTTL != time.Minute {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ImportMaxRows != 10000 {
		t.Errorf("negative max rows should fall back, got %d", cfg.ImportMaxRows)
	}
	if len(cfg.AllowOrigins) != 2 || cfg.AllowOrigins[1] != "https://b.example" {
		t.Errorf("origins = %q", cfg.AllowOrigins)
	}
}
