package config

import "time"

type Config struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFile         string        `mapstructure:"log_file"`
	HistoryCapacity int           `mapstructure:"history_capacity"`
	TypingWindow    time.Duration `mapstructure:"typing_window"`
	NATSURL         string        `mapstructure:"nats_url"`
	RedisURL        string        `mapstructure:"redis_url"`
}
