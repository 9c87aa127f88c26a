package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Env      string
	LogLevel string

	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	SessionDuration time.Duration
	JWTSecret       string
	JWTTTL          time.Duration
	CSRFSecret      string
	// CSRFPreviousSecret still validates tokens after a rotation
	CSRFPreviousSecret string
	RateLimit          int
	RateWindow         time.Duration
	SignupClosed       bool

	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	AWSRegion      string
	EmailFrom      string
	EmailFromName  string
	AppBaseURL     string
	EmailDebug     bool
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	FlushInterval  time.Duration
	DailyPractice  time.Duration
	RestInterval   time.Duration
	DailyGameLimit time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("port", "8080")
	v.SetDefault("db.type", "sqlite")
	v.SetDefault("db.path", "./typingclash.db")
	v.SetDefault("database.url", "")
	v.SetDefault("migrations.path", "./migrations")
	v.SetDefault("session.duration", 24*time.Hour)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 12*time.Hour)
	v.SetDefault("csrf.secret", "")
	v.SetDefault("csrf.previous.secret", "")
	v.SetDefault("rate.limit", 10)
	v.SetDefault("rate.window", time.Minute)
	v.SetDefault("signup.closed", false)
	v.SetDefault("google.client.id", "")
	v.SetDefault("google.client.secret", "")
	v.SetDefault("oauth.redirect.base.url", "http://localhost:8080")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("email.from", "")
	v.SetDefault("email.from.name", "TypingClash")
	v.SetDefault("app.base.url", "http://localhost:8080")
	v.SetDefault("email.debug", false)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("sync.flush.interval", 30*time.Second)
	v.SetDefault("practice.daily", 30*time.Minute)
	v.SetDefault("practice.rest.interval", 5*time.Minute)
	v.SetDefault("game.daily.limit", 30*time.Minute)
}

// Load reads configuration from the environment, after loading the first
// .env file found among envFiles. Missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", f, err)
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
		break
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Env:                  v.GetString("env"),
		LogLevel:             v.GetString("log.level"),
		ServerPort:           v.GetString("port"),
		DatabaseType:         strings.ToLower(v.GetString("db.type")),
		DatabasePath:         v.GetString("db.path"),
		DatabaseURL:          v.GetString("database.url"),
		MigrationsPath:       v.GetString("migrations.path"),
		SessionDuration:      v.GetDuration("session.duration"),
		JWTSecret:            v.GetString("jwt.secret"),
		JWTTTL:               v.GetDuration("jwt.ttl"),
		CSRFSecret:           v.GetString("csrf.secret"),
		CSRFPreviousSecret:   v.GetString("csrf.previous.secret"),
		RateLimit:            v.GetInt("rate.limit"),
		RateWindow:           v.GetDuration("rate.window"),
		SignupClosed:         v.GetBool("signup.closed"),
		GoogleClientID:       v.GetString("google.client.id"),
		GoogleClientSecret:   v.GetString("google.client.secret"),
		OAuthRedirectBaseURL: v.GetString("oauth.redirect.base.url"),
		AWSRegion:            v.GetString("aws.region"),
		EmailFrom:            v.GetString("email.from"),
		EmailFromName:        v.GetString("email.from.name"),
		AppBaseURL:           v.GetString("app.base.url"),
		EmailDebug:           v.GetBool("email.debug"),
		RedisAddr:            v.GetString("redis.addr"),
		RedisPassword:        v.GetString("redis.password"),
		RedisDB:              v.GetInt("redis.db"),
		FlushInterval:        v.GetDuration("sync.flush.interval"),
		DailyPractice:        v.GetDuration("practice.daily"),
		RestInterval:         v.GetDuration("practice.rest.interval"),
		DailyGameLimit:       v.GetDuration("game.daily.limit"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

func (c *Config) validate() error {
	switch c.DatabaseType {
	case "sqlite", "sqlite3":
		c.DatabaseType = "sqlite"
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("unsupported DB_TYPE %q", c.DatabaseType)
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.CSRFSecret == "") {
		return fmt.Errorf("JWT_SECRET and CSRF_SECRET must be set in production")
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive")
	}
	return nil
}
