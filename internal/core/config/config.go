package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level string
	JSON  bool
	// 可选：写文件并切割
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// JWT 身份提供方签发令牌用的 HS256 密钥
type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Identity struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type Audit struct {
	Tables []string
}

type Policy struct {
	Disabled []string
}

type Retention struct {
	Schedule    string
	DefaultDays int `mapstructure:"default_days"`
	// 超过该阈值（毫秒）的请求写入 performance_logs
	SlowRequestMS int `mapstructure:"slow_request_ms"`
}

type Config struct {
	App       App
	Log       Log
	JWT       JWT
	DB        DB
	Redis     Redis `mapstructure:"redis"`
	Identity  Identity
	Audit     Audit
	Policy    Policy
	Retention Retention
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	if err := c.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "church-admin")
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("jwt.issuer", "supabase")
	v.SetDefault("jwt.accesstokenttlmin", 60)
	v.SetDefault("audit.tables", []string{"users", "events"})
	v.SetDefault("retention.schedule", "@daily")
	v.SetDefault("retention.default_days", 30)
	v.SetDefault("retention.slow_request_ms", 1000)
}

func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.JWT.Secret) == "":
		return errors.New("jwt.secret is required")
	case strings.TrimSpace(c.DB.DSN) == "":
		return errors.New("db.dsn is required")
	}
	return nil
}
