package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Supported output formats.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config holds the application configuration loaded from flags, environment
// variables and configs/.env.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	Output   string `mapstructure:"output"`

	Kubeconfig            string        `mapstructure:"kubeconfig"`
	KubeContext           string        `mapstructure:"kube_context"`
	MasterURL             string        `mapstructure:"master_url"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"kubeconfig":      "kubeconfig",
	"context":         "kube_context",
	"master":          "master_url",
	"request-timeout": "request_timeout_seconds",
	"output":          "output",
	"log-level":       "log_level",
	"storage":         "storage_type",
	"cache-path":      "bbolt_path",
}

// RegisterFlags declares the flags Load knows how to bind.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("kubeconfig", "", "path to a kubeconfig file (defaults to $KUBECONFIG, then in-cluster config)")
	fs.String("context", "", "kubeconfig context to use")
	fs.String("master", "", "override the API server URL")
	fs.Int64("request-timeout", 30, "request timeout in seconds applied to the cluster transport")
	fs.StringP("output", "o", OutputJSON, "output format: json or yaml")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("storage", "bbolt", "version cache backend: bbolt or none")
	fs.String("cache-path", "./data/apiversion.db", "bbolt version cache path")
}

// Load reads configuration from defaults, environment variables and, when fs
// is non-nil, the flags registered by RegisterFlags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "kubehttp")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("output", OutputJSON)
	v.SetDefault("kubeconfig", "")
	v.SetDefault("kube_context", "")
	v.SetDefault("master_url", "")
	v.SetDefault("request_timeout_seconds", 30)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/apiversion.db")
	v.SetDefault("storage_ttl_seconds", int64(time.Hour/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.RequestTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))
	switch cfg.Output {
	case OutputJSON, OutputYAML:
	default:
		return nil, fmt.Errorf("invalid output %q (must be json or yaml)", cfg.Output)
	}

	return &cfg, nil
}
