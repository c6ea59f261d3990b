package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig is every knob the server reads from the environment.
type AppConfig struct {
	Port            string
	Env             string
	ShutdownTimeout time.Duration

	// UseAI=false replaces every model call with canned text.
	UseAI bool

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	MongoURI    string
	MongoDB     string
	PostgresURI string
	AutoMigrate bool
	RedisAddr   string
	RedisPrefix string

	GCPProject     string
	GCPLocation    string
	LLMModel       string
	EmbeddingModel string
	GCSBucket      string

	TTSLanguage   string
	TTSVoice      string
	STTSampleRate int

	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaTopicTurns    string
	KafkaTopicSessions string
	KafkaPrincipal     string

	SummaryWorkers int
	SummaryStream  string

	DefaultMinutes   int
	MaxMinutes       int
	FinalSilence     time.Duration
	GraceDelay       time.Duration
	AIRequestTimeout time.Duration
	MaxPlayback      time.Duration
	AllowedOrigins   []string
}

// Load reads the environment. Call godotenv.Load first to pick up .env.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:            getenv("PORT", "8080"),
		Env:             getenv("GO_ENV", "production"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 20*time.Second),

		UseAI: getBool("USE_AI", true),

		JWTSecret:   os.Getenv("SUPABASE_JWT_SECRET"),
		JWTIssuer:   os.Getenv("SUPABASE_JWT_ISSUER"),
		JWTAudience: os.Getenv("SUPABASE_JWT_AUDIENCE"),

		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     getenv("MONGO_DB", "ai_interview"),
		PostgresURI: os.Getenv("POSTGRES_URI"),
		AutoMigrate: getBool("POSTGRES_AUTO_MIGRATE", false),
		RedisAddr:   firstEnv("REDIS_ADDR", "REDIS_URI", "REDIS_URL"),
		RedisPrefix: getenv("REDIS_PREFIX", "interview:"),

		GCPProject:     firstEnv("GCP_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
		GCPLocation:    getenv("GCP_LOCATION", "us-central1"),
		LLMModel:       getenv("VERTEX_MODEL", "gemini-1.5-flash"),
		EmbeddingModel: os.Getenv("VERTEX_EMBEDDING_MODEL"),
		GCSBucket:      os.Getenv("GCS_BUCKET"),

		TTSLanguage:   getenv("TTS_LANGUAGE", "en-US"),
		TTSVoice:      getenv("TTS_VOICE", "en-US-Neural2-F"),
		STTSampleRate: getInt("STT_SAMPLE_RATE_HZ", 16000),

		KafkaEnabled:       getBool("KAFKA_ENABLED", false),
		KafkaBrokers:       getList("KAFKA_BROKERS"),
		KafkaTopicTurns:    getenv("KAFKA_TOPIC_TURNS", "interview.turns"),
		KafkaTopicSessions: getenv("KAFKA_TOPIC_SESSIONS", "interview.sessions"),
		KafkaPrincipal:     getenv("KAFKA_PRINCIPAL", "ai-interview"),

		SummaryWorkers: getInt("SUMMARY_WORKERS", 2),
		SummaryStream:  getenv("SUMMARY_STREAM", "summary:stream"),

		DefaultMinutes:   getInt("INTERVIEW_DEFAULT_MINUTES", 10),
		MaxMinutes:       getInt("INTERVIEW_MAX_MINUTES", 60),
		FinalSilence:     getDuration("STT_FINAL_SILENCE", 2*time.Second),
		GraceDelay:       getDuration("LISTEN_GRACE_DELAY", 300*time.Millisecond),
		AIRequestTimeout: getDuration("AI_REQUEST_TIMEOUT", 45*time.Second),
		MaxPlayback:      getDuration("MAX_PLAYBACK", 2*time.Minute),
		AllowedOrigins:   getList("WS_ALLOWED_ORIGINS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	var errs []error
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI environment variable is not set"))
	}
	if c.PostgresURI == "" {
		errs = append(errs, errors.New("POSTGRES_URI environment variable is not set"))
	}
	if c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR (or REDIS_URI/REDIS_URL) environment variable is not set"))
	}
	if c.UseAI && c.GCPProject == "" {
		errs = append(errs, errors.New("GCP_PROJECT_ID is required when USE_AI is on"))
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is on"))
	}
	if c.DefaultMinutes <= 0 || c.MaxMinutes < c.DefaultMinutes {
		errs = append(errs, errors.New("INTERVIEW_DEFAULT_MINUTES must be positive and at most INTERVIEW_MAX_MINUTES"))
	}
	return errors.Join(errs...)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

// getDuration accepts Go durations ("1.5s") or plain milliseconds.
func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func getList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
