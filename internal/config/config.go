package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	JWT       JWTConfig
	Casdoor   CasdoorConfig
	Mail      MailConfig
	Kafka     KafkaConfig
	StudentID StudentIDConfig `mapstructure:"student_id"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig

	// 运行时标志，由命令行参数设置
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool   `mapstructure:"parse_time"`
	SSLMode   string `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// 关闭时课程查询直接读数据库
	Enabled  bool
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type AuthConfig struct {
	// jwt 或 casdoor
	Provider string
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Cert         string
	Organization string
	Application  string
}

type MailConfig struct {
	// smtp, sendgrid 或 console
	Driver         string
	From           string
	FromName       string        `mapstructure:"from_name"`
	AdminEmail     string        `mapstructure:"admin_email"`
	SMTPHost       string        `mapstructure:"smtp_host"`
	SMTPPort       int           `mapstructure:"smtp_port"`
	SMTPUser       string        `mapstructure:"smtp_user"`
	SMTPPassword   string        `mapstructure:"smtp_password"`
	SendGridAPIKey string        `mapstructure:"sendgrid_api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type StudentIDConfig struct {
	// 数据库端生成函数名，为空时只使用本地生成
	GeneratorFunction string `mapstructure:"generator_function"`
	LocationsFile     string `mapstructure:"locations_file"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type LogConfig struct {
	File string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.cache_ttl", 10*time.Minute)
	v.SetDefault("auth.provider", "jwt")
	v.SetDefault("mail.driver", "console")
	v.SetDefault("mail.from", "noreply@learnhub.local")
	v.SetDefault("mail.from_name", "LearnHub")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.timeout", 10*time.Second)
	v.SetDefault("kafka.topic", "enrollments")
	v.SetDefault("student_id.generator_function", "generate_student_id")
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("log.file", "logs/app.log")
}

func LoadConfig(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load(filepath.Join(path, "..", ".env"))
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("LEARNHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("casdoor.client_secret", "CASDOOR_CLIENT_SECRET")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// Mail
	v.BindEnv("mail.smtp_password", "SMTP_PASSWORD")
	v.BindEnv("mail.sendgrid_api_key", "SENDGRID_API_KEY")
	v.BindEnv("mail.admin_email", "ADMIN_EMAIL")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Auth.Provider {
	case "jwt":
		// 生产环境校验 JWT Secret 强度
		if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
			return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
		}
	case "casdoor":
		if c.Casdoor.Endpoint == "" {
			return errors.New("casdoor endpoint is required when auth.provider is casdoor")
		}
	default:
		return fmt.Errorf("unsupported auth provider %q", c.Auth.Provider)
	}

	switch c.Mail.Driver {
	case "console":
	case "smtp", "sendgrid":
		if c.Mail.AdminEmail == "" {
			return errors.New("mail.admin_email is required")
		}
		if c.Mail.From == "" {
			return errors.New("mail.from is required")
		}
	default:
		return fmt.Errorf("unsupported mail driver %q", c.Mail.Driver)
	}

	return nil
}
