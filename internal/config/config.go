package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketAvatars string
	UseSSL        bool
	Region        string
}

type SecurityConfig struct {
	JWTSecret      string
	SessionTTL     time.Duration
	PasswordMaxLen int
}

// AuthCodeConfig carries the per-purpose verification code lifetimes and
// the reissue guard window of the code issuer.
type AuthCodeConfig struct {
	LoginTTL    time.Duration
	RegisterTTL time.Duration
	ResetTTL    time.Duration
	GuardWindow time.Duration
	CaptchaTTL  time.Duration
}

// OneAPIConfig points at the external billing service. Calls carry their
// own timeout so they stay bounded after the local transaction commits.
type OneAPIConfig struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	InitialQuota int64
}

type SMTPConfig struct {
	Host   string
	Port   int
	Secure bool
	User   string
	Pass   string
	From   string
}

type RateLimitConfig struct {
	LoginWindow time.Duration
	LoginLimit  int
}

type QueueConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	AuthCode         AuthCodeConfig
	OneAPI           OneAPIConfig
	SMTP             SMTPConfig
	RateLimit        RateLimitConfig
	Queue            QueueConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("LUGANG")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketavatars", "lugang-avatars")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.sessionttl", "168h") // 7 days
	v.SetDefault("security.passwordmaxlen", 20)

	v.SetDefault("authcode.loginttl", "60s")
	v.SetDefault("authcode.registerttl", "600s")
	v.SetDefault("authcode.resetttl", "600s")
	v.SetDefault("authcode.guardwindow", "60s")
	v.SetDefault("authcode.captchattl", "5m")

	v.SetDefault("oneapi.baseurl", "http://localhost:8080")
	v.SetDefault("oneapi.timeout", "10s")
	v.SetDefault("oneapi.initialquota", 10000)

	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.secure", true)

	v.SetDefault("ratelimit.loginwindow", "60s")
	v.SetDefault("ratelimit.loginlimit", 20)

	v.SetDefault("queue.stream", "billing:sync")
	v.SetDefault("queue.group", "billing-workers")
	v.SetDefault("queue.consumer", "worker-1")
	v.SetDefault("queue.claiminterval", "30s")
}
