package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/trainingportal-backend/internal/data/db"
	"github.com/yungbote/trainingportal-backend/internal/platform/envutil"
	"github.com/yungbote/trainingportal-backend/internal/platform/gcp"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
	"github.com/yungbote/trainingportal-backend/internal/temporalx"
)

type Config struct {
	Env             string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	JWTSecretKey string
	JWTIssuer    string

	QuestionBudget time.Duration
	PassThreshold  int
	LockoutWindow  time.Duration
	AttemptTTL     time.Duration
	SweepInterval  time.Duration

	ProgressPersistEvery int
	TrackerIdleTTL       time.Duration

	WriteShards      int
	WriteBuffer      int
	WriteMaxAttempts int
	WriteJobTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	MetricsAddr string

	DB       db.Config
	Media    gcp.MediaConfig
	Temporal temporalx.Config
}

// LoadDotEnv reads .env files when present. Variables already set in the environment win.
func LoadDotEnv(log *logger.Logger) {
	files := envutil.List("ENV_FILES")
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Warn("Failed to load env file", "file", f, "error", err)
			continue
		}
		log.Debug("Loaded env file", "file", f)
	}
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Env:             strings.ToLower(envutil.String("APP_ENV", "development")),
		HTTPAddr:        envutil.String("HTTP_ADDR", ":8080"),
		ShutdownTimeout: envutil.Duration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
		CORSOrigins:     envutil.List("CORS_ALLOWED_ORIGINS"),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:    envutil.String("JWT_ISSUER", ""),

		QuestionBudget: envutil.Duration("ASSESSMENT_QUESTION_SECONDS", 120*time.Second),
		PassThreshold:  envutil.Int("ASSESSMENT_PASS_THRESHOLD", 70),
		LockoutWindow:  envutil.Duration("ASSESSMENT_LOCKOUT_WINDOW", 24*time.Hour),
		AttemptTTL:     envutil.Duration("ATTEMPT_ABANDON_AFTER", 24*time.Hour),
		SweepInterval:  envutil.Duration("ATTEMPT_SWEEP_INTERVAL", time.Minute),

		ProgressPersistEvery: envutil.Int("PROGRESS_PERSIST_SECONDS", 10),
		TrackerIdleTTL:       envutil.Duration("PROGRESS_TRACKER_IDLE_TTL", 30*time.Minute),

		WriteShards:      envutil.Int("WRITE_QUEUE_SHARDS", 8),
		WriteBuffer:      envutil.Int("WRITE_QUEUE_BUFFER", 256),
		WriteMaxAttempts: envutil.Int("WRITE_QUEUE_MAX_ATTEMPTS", 5),
		WriteJobTimeout:  envutil.Duration("WRITE_QUEUE_JOB_TIMEOUT", 10*time.Second),

		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		RedisPassword: envutil.String("REDIS_PASSWORD", ""),
		RedisDB:       envutil.Int("REDIS_DB", 0),
		RedisChannel:  envutil.String("REDIS_CHANNEL", "trainingportal:sse"),

		MetricsAddr: envutil.String("METRICS_ADDR", ""),

		DB: db.ConfigFromEnv(),
		Media: gcp.MediaConfig{
			Enabled:      envutil.Bool("MEDIA_SIGNING_ENABLED", false),
			EmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
			CDNDomain:    envutil.String("MEDIA_CDN_DOMAIN", ""),
			SignedURLTTL: envutil.Duration("MEDIA_SIGNED_URL_TTL", 2*time.Hour),
		},
		Temporal: temporalx.LoadConfig(),
	}
	log.Info("Config loaded",
		"env", cfg.Env,
		"http_addr", cfg.HTTPAddr,
		"db_driver", cfg.DB.Driver,
		"redis", cfg.RedisAddr != "",
		"temporal", cfg.Temporal.Enabled(),
		"media_signing", cfg.Media.Enabled,
	)
	return cfg
}
