package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("POSTGRES_URI", "postgres://localhost/interview")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("GCP_PROJECT_ID", "demo")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" || !cfg.UseAI || cfg.DefaultMinutes != 10 {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
	if cfg.FinalSilence != 2*time.Second || cfg.GraceDelay != 300*time.Millisecond {
		t.Fatalf("durations = %v/%v", cfg.FinalSilence, cfg.GraceDelay)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("USE_AI", "false")
	t.Setenv("STT_FINAL_SILENCE", "1500")
	t.Setenv("LISTEN_GRACE_DELAY", "1s")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://app.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UseAI {
		t.Fatal("UseAI = true, want false")
	}
	if cfg.FinalSilence != 1500*time.Millisecond {
		t.Fatalf("FinalSilence = %v, want 1.5s", cfg.FinalSilence)
	}
	if cfg.GraceDelay != time.Second {
		t.Fatalf("GraceDelay = %v, want 1s", cfg.GraceDelay)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if len(cfg.AllowedOrigins) != 1 {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("POSTGRES_URI", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_URI", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("GCP_PROJECT_ID", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
	for _, want := range []string{"MONGO_URI", "POSTGRES_URI", "REDIS_ADDR", "GCP_PROJECT_ID", "KAFKA_BROKERS"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
