package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Vendor LPR feed
	VendorWebhookSecret string `envconfig:"VENDOR_WEBHOOK_SECRET" required:"true"`

	// Plate recognition provider
	LPRProvider string `envconfig:"LPR_PROVIDER" default:"rekognition"`
	AWSRegion   string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Engine tuning
	DefaultHourlyRate      float64       `envconfig:"DEFAULT_HOURLY_RATE" default:"5.00"`
	HighOccupancyThreshold float64       `envconfig:"HIGH_OCCUPANCY_THRESHOLD" default:"90"`
	PermitSweepInterval    time.Duration `envconfig:"PERMIT_SWEEP_INTERVAL" default:"10m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
