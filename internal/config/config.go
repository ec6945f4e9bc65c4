// Package config loads server configuration from the environment. A
// .env file in the working directory is read first when present.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/avelar/hometask/internal/backup"
)

type Config struct {
	Port     string
	DBPath   string
	LogLevel string

	// Base URL of the remote sync store. Empty disables cloud sync.
	RemoteURL string

	VAPIDPublicKey  string
	VAPIDPrivateKey string

	Backup backup.Config
}

// Load reads configuration, preferring real environment variables over
// the optional .env file.
func Load() *Config {
	godotenv.Load()

	cfg := &Config{
		Port:            getEnv("HOMETASK_PORT", "8080"),
		DBPath:          getEnv("HOMETASK_DB_PATH", "hometask.db"),
		LogLevel:        getEnv("HOMETASK_LOG_LEVEL", "info"),
		RemoteURL:       os.Getenv("HOMETASK_REMOTE_URL"),
		VAPIDPublicKey:  os.Getenv("HOMETASK_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("HOMETASK_VAPID_PRIVATE_KEY"),
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("HOMETASK_S3_ENDPOINT"),
				Bucket:    os.Getenv("HOMETASK_S3_BUCKET"),
				Region:    getEnv("HOMETASK_S3_REGION", "auto"),
				AccessKey: os.Getenv("HOMETASK_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("HOMETASK_S3_SECRET_KEY"),
			},
			Passphrase:    os.Getenv("HOMETASK_BACKUP_PASSPHRASE"),
			RetentionDays: getEnvAsInt("HOMETASK_BACKUP_RETENTION_DAYS", 30),
		},
	}
	cfg.Backup.DBPath = cfg.DBPath
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
