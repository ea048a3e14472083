package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/commentree-backend/internal/platform/envutil"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Comments CommentsConfig `yaml:"comments"`
}

type ServerConfig struct {
	Port               string `yaml:"port"`
	FrontendOrigin     string `yaml:"frontend_origin"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecretKey string `yaml:"jwt_secret_key"`
}

// CommentsConfig carries the per-deployment comment engine settings.
// ParentTypes lets a deployment override max depth or templates for one
// parent object type without code changes; filter hooks stay code-only.
type CommentsConfig struct {
	DefaultMaxDepth int                         `yaml:"default_max_depth"`
	MaxBodyLen      int                         `yaml:"max_body_len"`
	TemplatesDir    string                      `yaml:"templates_dir"`
	ParentTypes     map[string]ParentTypeConfig `yaml:"parent_types"`
}

type ParentTypeConfig struct {
	MaxDepth              *int   `yaml:"max_depth"`
	CommentsTemplate      string `yaml:"comments_template"`
	SingleCommentTemplate string `yaml:"single_comment_template"`
}

// Load reads the YAML file at path (CONFIG_PATH, then ./config.yaml, when
// empty), then lets environment variables override the connection-level
// settings so containers can inject them without a file.
func Load(path string, log *logger.Logger) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		log.Info("loaded config file", "path", path)
	}

	applyEnv(cfg, log)

	if strings.TrimSpace(cfg.Database.Name) == "" {
		return nil, fmt.Errorf("database name is required (comments.database.name or DB_NAME)")
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               "8080",
			FrontendOrigin:     "http://localhost:3000",
			ShutdownTimeoutSec: 15,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			SSLMode: "disable",
		},
		Redis: RedisConfig{},
		Comments: CommentsConfig{
			DefaultMaxDepth: 2,
			MaxBodyLen:      65535,
		},
	}
}

func applyEnv(cfg *Config, log *logger.Logger) {
	cfg.Server.Port = envutil.GetEnv("PORT", cfg.Server.Port, log)
	cfg.Server.FrontendOrigin = envutil.GetEnv("FRONTEND_ORIGIN", cfg.Server.FrontendOrigin, log)
	cfg.Database.Host = envutil.GetEnv("DB_HOST", cfg.Database.Host, log)
	cfg.Database.Port = envutil.GetEnv("DB_PORT", cfg.Database.Port, log)
	cfg.Database.User = envutil.GetEnv("DB_USER", cfg.Database.User, log)
	cfg.Database.Password = envutil.GetEnv("DB_PASSWORD", cfg.Database.Password, log)
	cfg.Database.Name = envutil.GetEnv("DB_NAME", cfg.Database.Name, log)
	cfg.Database.SSLMode = envutil.GetEnv("DB_SSLMODE", cfg.Database.SSLMode, log)
	cfg.Redis.Addr = envutil.GetEnv("REDIS_ADDR", cfg.Redis.Addr, log)
	cfg.Redis.Password = envutil.GetEnv("REDIS_PASSWORD", cfg.Redis.Password, log)
	cfg.Auth.JWTSecretKey = envutil.GetEnv("JWT_SECRET_KEY", cfg.Auth.JWTSecretKey, log)
	cfg.Comments.DefaultMaxDepth = envutil.GetEnvAsInt("COMMENTS_DEFAULT_MAX_DEPTH", cfg.Comments.DefaultMaxDepth, log)
	cfg.Comments.MaxBodyLen = envutil.GetEnvAsInt("COMMENTS_MAX_BODY_LEN", cfg.Comments.MaxBodyLen, log)
	cfg.Comments.TemplatesDir = envutil.GetEnv("COMMENTS_TEMPLATES_DIR", cfg.Comments.TemplatesDir, log)
}
