package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied before the config file is read. NATS and Redis stay
// disabled unless their URLs are set; the relay runs fully in-memory.
func setDefaults() {
	viper.SetDefault("port", 8080)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("history_capacity", 100)
	viper.SetDefault("typing_window", 3*time.Second)
}

// ReadConfig reads the configuration from the specified JSON file.
func ReadConfig(configPath string) (Config, error) {
	var cfg Config

	setDefaults()
	viper.SetConfigFile(configPath)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// ReadDefaults returns the built-in configuration, used when no config
// file is given.
func ReadDefaults() (Config, error) {
	var cfg Config
	setDefaults()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// MustReadConfig reads the configuration or panics if there's an error.
func MustReadConfig(configPath string) Config {
	cfg, err := ReadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return cfg
}
