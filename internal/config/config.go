package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nikhil/chatgenius/internal/database"
)

// DevJWTSecret is the signing secret used when JWT_SECRET is unset. It is
// public, so production refuses it.
const DevJWTSecret = "chatgenius-dev-secret"

var ErrInsecureJWTSecret = errors.New("config: JWT_SECRET must be set to a non-default value in production")

type Config struct {
	Addr            string
	Env             string
	StoreDriver     string
	Database        database.Settings
	JWTSecret       string
	RedisURL        string
	RedisChannel    string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PublicRead    bool
	UploadMaxBytes  int64
	CORSOrigin      string
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return fromViper(newViper()), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORE_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_NAME", "chatgenius")
	v.SetDefault("JWT_SECRET", DevJWTSecret)
	v.SetDefault("REDIS_CHANNEL", "chatgenius:events")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("SHUTDOWN_SECONDS", 10)
	return v
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Addr:        v.GetString("HTTP_ADDR"),
		Env:         v.GetString("APP_ENV"),
		StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),
		Database: database.Settings{
			DSN:      v.GetString("DB_DSN"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
		},
		JWTSecret:       v.GetString("JWT_SECRET"),
		RedisURL:        v.GetString("REDIS_URL"),
		RedisChannel:    v.GetString("REDIS_CHANNEL"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Region:        v.GetString("S3_REGION"),
		S3Endpoint:      v.GetString("S3_ENDPOINT"),
		S3PublicRead:    v.GetBool("S3_PUBLIC_READ"),
		UploadMaxBytes:  v.GetInt64("UPLOAD_MAX_BYTES"),
		CORSOrigin:      v.GetString("CORS_ORIGIN"),
		ShutdownTimeout: time.Duration(v.GetInt("SHUTDOWN_SECONDS")) * time.Second,
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) UsesMemoryStore() bool {
	return c.StoreDriver == "memory"
}

// Validate rejects settings that are unsafe to serve with.
func (c Config) Validate() error {
	if c.IsProduction() && (strings.TrimSpace(c.JWTSecret) == "" || c.JWTSecret == DevJWTSecret) {
		return ErrInsecureJWTSecret
	}
	return nil
}
