package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
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

// DatabaseConfig selects the relational store. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; an empty Addr disables the login limiter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig selects the blob store. Driver is "local" or "minio".
type StorageConfig struct {
	Driver    string
	Dir       string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type SecurityConfig struct {
	TokenBytes       int
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

type UploadConfig struct {
	MaxBytes          int64
	AllowedExtensions []string
}

type SharingConfig struct {
	SymmetricFriends bool
}

type ExportConfig struct {
	ScratchDir    string
	SweepSchedule string
	MaxScratchAge time.Duration
}

type AppConfig struct {
	Environment      string
	LogLevel         string
	HTTP             HTTPConfig
	Database         DatabaseConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Uploads          UploadConfig
	Sharing          SharingConfig
	Exports          ExportConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("FAMILYPHOTOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
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

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Storage.Driver {
	case "local", "minio":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Security.TokenBytes < 32 {
		return fmt.Errorf("security.tokenbytes must be at least 32, got %d", c.Security.TokenBytes)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("loglevel", "")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "30s")
	v.SetDefault("http.writetimeout", "5m") // archives can be large
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/family_photos.db")
	v.SetDefault("database.maxopen", 10)
	v.SetDefault("database.maxidle", 2)
	v.SetDefault("database.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.dir", "data/uploads")
	v.SetDefault("storage.bucket", "family-photos")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.tokenbytes", 32)
	v.SetDefault("security.loginmaxattempts", 10)
	v.SetDefault("security.loginwindow", "15m")

	v.SetDefault("uploads.maxbytes", 20<<20)
	v.SetDefault("uploads.allowedextensions", []string{"jpg", "jpeg", "png", "gif"})

	v.SetDefault("sharing.symmetricfriends", false)

	v.SetDefault("exports.scratchdir", filepath.Join(os.TempDir(), "familyphotos-exports"))
	v.SetDefault("exports.sweepschedule", "0 */10 * * * *")
	v.SetDefault("exports.maxscratchage", "1h")
}
