package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Grades        GradesConfig
	CourseBlocks  CourseBlocksConfig
	OfflineGrades OfflineGradesConfig
	Events        EventsConfig
	Tracing       TracingConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GradesConfig tunes course grade computation.
type GradesConfig struct {
	GenerateProfileScores bool
	AnonymousIDSecret     string
	CacheTTL              time.Duration
}

// CourseBlocksConfig tunes the course structure cache.
type CourseBlocksConfig struct {
	CacheTTL time.Duration
}

// OfflineGradesConfig sizes the offline grade calculation workers.
type OfflineGradesConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// EventsConfig configures grade event fan-out over NATS.
type EventsConfig struct {
	NATSURL string
	Channel string
}

// TracingConfig configures OpenTelemetry span export. Tracing stays a no-op
// until an OTLP endpoint is set.
type TracingConfig struct {
	ServiceName string
	Endpoint    string
	Enabled     bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Grades = GradesConfig{
		GenerateProfileScores: v.GetBool("GRADES_GENERATE_PROFILE_SCORES"),
		AnonymousIDSecret:     v.GetString("GRADES_ANONYMOUS_ID_SECRET"),
		CacheTTL:              parseDuration(v.GetString("GRADES_CACHE_TTL"), 5*time.Minute),
	}

	cfg.CourseBlocks = CourseBlocksConfig{
		CacheTTL: parseDuration(v.GetString("COURSE_BLOCKS_CACHE_TTL"), 24*time.Hour),
	}

	cfg.OfflineGrades = OfflineGradesConfig{
		Workers:    v.GetInt("OFFLINE_GRADES_WORKERS"),
		MaxRetries: v.GetInt("OFFLINE_GRADES_RETRIES"),
		RetryDelay: parseDuration(v.GetString("OFFLINE_GRADES_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Events = EventsConfig{
		NATSURL: v.GetString("NATS_URL"),
		Channel: v.GetString("EVENTS_CHANNEL"),
	}

	cfg.Tracing = TracingConfig{
		ServiceName: v.GetString("TRACING_SERVICE_NAME"),
		Endpoint:    v.GetString("TRACING_ENDPOINT"),
		Enabled:     v.GetBool("TRACING_ENABLED"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lms_grades")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GRADES_GENERATE_PROFILE_SCORES", false)
	v.SetDefault("GRADES_ANONYMOUS_ID_SECRET", "dev_anonymous_id_secret")
	v.SetDefault("GRADES_CACHE_TTL", "5m")
	v.SetDefault("COURSE_BLOCKS_CACHE_TTL", "24h")

	v.SetDefault("OFFLINE_GRADES_WORKERS", 2)
	v.SetDefault("OFFLINE_GRADES_RETRIES", 3)
	v.SetDefault("OFFLINE_GRADES_RETRY_DELAY", "5s")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("EVENTS_CHANNEL", "lms")
	v.SetDefault("TRACING_SERVICE_NAME", "lms-grades-api")
	v.SetDefault("TRACING_ENDPOINT", "")
	v.SetDefault("TRACING_ENABLED", true)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
