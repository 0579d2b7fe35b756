package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram_Token string
	Db_Conn_Str    string
	Rabbit_Url     string

	// Error tracking (sentry-compatible)
	BugSink_Enabled     bool
	BugSink_DSN         string
	BugSink_Environment string
	BugSink_Release     string

	// Proximity defaults
	Default_Radius_Km int

	// TTL sweeping of stale records
	Pending_TTL_Hours      int
	Exchange_TTL_Hours     int
	Sweep_Interval_Minutes int
}

var config Config

func C() *Config {
	return &config
}

func Init(file string) {
	log.Printf("[CONFIG] Initializing configuration from file: %s", file)

	viper.SetConfigName(file)
	viper.AddConfigPath(".")

	viper.SetDefault("Default_Radius_Km", 10)
	viper.SetDefault("Pending_TTL_Hours", 72)
	viper.SetDefault("Exchange_TTL_Hours", 168)
	viper.SetDefault("Sweep_Interval_Minutes", 30)

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("Error reading config file: %s", err))
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		panic(fmt.Errorf("Error unmarshalling config: %s", err))
	}

	log.Printf("[CONFIG] Configuration loaded successfully")
	log.Printf("[CONFIG] Database connection string configured")
	log.Printf("[CONFIG] RabbitMQ URL configured")
}
