package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/UKHgit/meet-point/config"
	"github.com/UKHgit/meet-point/internal/app"
)

var configPath = flag.String("config", "", "service configuration file (optional)")

func main() {
	flag.Parse()
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		*configPath = envPath
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Block until Stop is called or the listener fails.
	if err := application.Start(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the optional config file and applies the PORT and
// HISTORY_CAPACITY environment overrides. The server runs with built-in
// defaults when no file is given.
func loadConfig(path string) (config.Config, error) {
	var cfg config.Config
	var err error
	if path != "" {
		cfg, err = config.ReadConfig(path)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg, err = config.ReadDefaults()
		if err != nil {
			return cfg, err
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("HISTORY_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid HISTORY_CAPACITY %q", v)
		}
		cfg.HistoryCapacity = n
	}
	return cfg, nil
}
