package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port                   string
	CORSAllowOrigin        []string
	ObjectStoreType        string
	LocalStoreDir          string
	ScratchDir             string
	AWSRegion              string
	S3Bucket               string
	S3Prefix               string
	SSEKMSKeyID            string
	DatabaseURL            string
	Env                    string
	FieldServiceURL        string
	FieldServiceTimeout    time.Duration
	MaxUploadFiles         int
	MaxUploadBytes         int64
	JWTSecret              string
	ExternalRateLimitRPS   float64
	ExternalRateLimitBurst int
}

const (
	defaultFieldServiceURL     = "http://localhost:8000"
	defaultFieldServiceTimeout = 60 * time.Second
	defaultMaxUploadFiles      = 10
	defaultMaxUploadMB         = 50
)

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience. Variables already
	// present in the process environment win.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:                   getEnv("PORT", "8080"),
		CORSAllowOrigin:        splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:        normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:          getEnv("LOCAL_STORE_DIR", "./data"),
		ScratchDir:             getEnv("SCRATCH_DIR", os.TempDir()),
		AWSRegion:              getEnv("AWS_REGION", ""),
		S3Bucket:               getEnv("S3_BUCKET", ""),
		S3Prefix:               getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:            getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:            dbURL,
		Env:                    env,
		FieldServiceURL:        strings.TrimRight(getEnv("API_DATA_URL", defaultFieldServiceURL), "/"),
		FieldServiceTimeout:    getDuration("API_DATA_TIMEOUT", defaultFieldServiceTimeout),
		MaxUploadFiles:         getInt("MAX_UPLOAD_FILES", defaultMaxUploadFiles),
		MaxUploadBytes:         int64(getInt("MAX_UPLOAD_MB", defaultMaxUploadMB)) << 20,
		JWTSecret:              getEnv("JWT_SECRET", ""),
		ExternalRateLimitRPS:   getFloat("RATE_LIMIT_EXTERNAL_RPS", 2),
		ExternalRateLimitBurst: getInt("RATE_LIMIT_EXTERNAL_BURST", 5),
	}
}

func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("config: ignoring %s: %v", path, err)
		}
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val < 0 {
		log.Printf("config %s invalid number %q, using %v", key, raw, def)
		return def
	}
	return val
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
