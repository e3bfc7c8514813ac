package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Session  SessionConfig
	Geocoder GeocoderConfig
	Files    FilesConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
	TimeZone           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	Geoapify     string
	ResultsTopic string // watermill topic carrying finished results
	RepliesTopic string // redis channel read by the chat gateway
}

// SessionConfig controls mode session lifetimes.
type SessionConfig struct {
	DefaultTTL     time.Duration
	ModeTTLs       map[string]time.Duration
	SweepInterval  time.Duration
	DefaultProfile string
	StoreShards    int
}

type GeocoderConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Rate     float64 // requests per second
	Burst    int
	CacheTTL time.Duration
}

type FilesConfig struct {
	WorkDir string
}

// modeTTLDefaults are the idle timeouts used when SESSION_TTL_<MODE> is unset.
// Per-photo and per-image modes are short lived.
var modeTTLDefaults = map[string]time.Duration{
	"LOCATION": 30 * time.Minute,
	"WORKBOOK": 30 * time.Minute,
	"ARCHIVE":  30 * time.Minute,
	"KML":      30 * time.Minute,
	"GEOTAGS":  10 * time.Minute,
	"OCR":      10 * time.Minute,
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	modeTTLs := make(map[string]time.Duration, len(modeTTLDefaults))
	for mode, fallback := range modeTTLDefaults {
		modeTTLs[mode] = getEnvAsDuration("SESSION_TTL_"+mode, fallback)
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/mode_switch.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			TimeZone:           getEnv("APP_TIMEZONE", "Asia/Jakarta"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			Geoapify:     getEnv("GEOAPIFY_API_KEY", ""),
			ResultsTopic: getEnv("RESULTS_TOPIC_NAME", "FEATURE_RESULTS"),
			RepliesTopic: getEnv("REPLIES_CHANNEL_NAME", "bot_replies"),
		},
		Session: SessionConfig{
			DefaultTTL:     getEnvAsDuration("SESSION_TTL_DEFAULT", 30*time.Minute),
			ModeTTLs:       modeTTLs,
			SweepInterval:  getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),
			DefaultProfile: strings.ToUpper(getEnv("DEFAULT_TRAVEL_PROFILE", "CAR")),
			StoreShards:    getEnvAsInt("STORE_SHARDS", 32),
		},
		Geocoder: GeocoderConfig{
			BaseURL:  getEnv("GEOCODER_BASE_URL", "https://api.geoapify.com/v1/geocode/reverse"),
			Timeout:  getEnvAsDuration("GEOCODER_TIMEOUT", 5*time.Second),
			Rate:     getEnvAsFloat("GEOCODER_RATE", 5),
			Burst:    getEnvAsInt("GEOCODER_BURST", 10),
			CacheTTL: getEnvAsDuration("GEOCODER_CACHE_TTL", 24*time.Hour),
		},
		Files: FilesConfig{
			WorkDir: getEnv("FILES_WORK_DIR", "./uploads"),
		},
	}
}

// Location resolves the configured time zone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		log.Printf("[WARN] Unknown APP_TIMEZONE %q, using UTC", c.TimeZone)
		return time.UTC
	}
	return loc
}

func (c AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s", "10m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
