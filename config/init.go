package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/mailgrove/mailgrove/internal/logger"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	DatabaseConfig  *DatabaseConfig
	S3StorageConfig *S3StorageConfig
	ThreadingConfig *ThreadingConfig
	SyncConfig      *SyncConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		DatabaseConfig:  &DatabaseConfig{},
		S3StorageConfig: &S3StorageConfig{},
		ThreadingConfig: &ThreadingConfig{},
		SyncConfig:      &SyncConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading mailgrove config: %v", err)
	}

	return config, nil
}
