package config

import "time"

// ServerConfig holds runtime configuration for the NEO inspection service.
type ServerConfig struct {
	Environment        string
	Addr               string
	LogLevel           string
	DatabaseURL        string
	MigrationsDir      string
	AutoMigrate        bool
	JWTSecret          string
	AccessTokenTTL     time.Duration
	OperatorKeyHash    string
	GeminiAPIKey       string
	GeminiModel        string
	ReportFixturePath  string
	ReportFetchTimeout time.Duration
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
	TickInterval       time.Duration
	MinTickInterval    time.Duration
	MaxTickInterval    time.Duration
	RefreshDelay       time.Duration
	RetentionWindow    time.Duration
	CheckpointEvery    time.Duration
}

// LoadServerConfig constructs a ServerConfig from environment variables.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("NEO_ADDR", ":4000"),
		LogLevel:           GetString("LOG_LEVEL", "info"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://neo:neo@db:5432/neo?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		AutoMigrate:        GetBool("DB_AUTO_MIGRATE", true),
		JWTSecret:          GetString("JWT_SECRET", "supersecuresecret"),
		AccessTokenTTL:     GetDuration("ACCESS_TOKEN_TTL_MIN", 60, time.Minute),
		OperatorKeyHash:    GetString("OPERATOR_KEY_HASH", ""),
		GeminiAPIKey:       GetString("GEMINI_API_KEY", ""),
		GeminiModel:        GetString("GEMINI_MODEL", "gemini-2.5-flash"),
		ReportFixturePath:  GetString("REPORT_FIXTURE_PATH", ""),
		ReportFetchTimeout: GetDuration("REPORT_FETCH_TIMEOUT_SECONDS", 120, time.Second),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
		TickInterval:       GetDuration("SIM_TICK_INTERVAL_MS", 2500, time.Millisecond),
		MinTickInterval:    GetDuration("SIM_TICK_MIN_MS", 1000, time.Millisecond),
		MaxTickInterval:    GetDuration("SIM_TICK_MAX_MS", 10000, time.Millisecond),
		RefreshDelay:       GetDuration("SIM_REFRESH_DELAY_MS", 3000, time.Millisecond),
		RetentionWindow:    GetDuration("DATA_RETENTION_DAYS", 30, 24*time.Hour),
		CheckpointEvery:    GetDuration("SNAPSHOT_CHECKPOINT_SECONDS", 15, time.Second),
	}
}
