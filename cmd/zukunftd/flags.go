package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/zukunftch/zukunft.com/config"
)

// CLIConfig holds the command-line configuration. Flags win over both the
// config file and the ZUKUNFT_* environment variables.
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	StoreDSN        string
	MetricsPort     int
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigPath, "config",
		getEnv("ZUKUNFT_CONFIG", ""),
		"Path to YAML configuration file (env: ZUKUNFT_CONFIG)")
	flag.StringVar(&cli.ConfigPath, "c",
		getEnv("ZUKUNFT_CONFIG", ""),
		"Path to YAML configuration file (shorthand)")

	flag.StringVar(&cli.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	flag.StringVar(&cli.LogFormat, "log-format", "",
		"Log format: text, json")
	flag.StringVar(&cli.StoreDSN, "store-dsn", "",
		"SQLite database path, selects the sqlite driver")
	flag.IntVar(&cli.MetricsPort, "metrics-port", 0,
		"Prometheus endpoint port, overrides the config file")
	flag.DurationVar(&cli.ShutdownTimeout, "shutdown-timeout", 30*time.Second,
		"Graceful shutdown timeout")

	flag.BoolVar(&cli.ShowVersion, "version", false, "Print version and exit")
	flag.BoolVar(&cli.ShowHelp, "help", false, "Print usage and exit")
	flag.BoolVar(&cli.Validate, "validate", false, "Validate configuration and exit")

	flag.Parse()
	return cli
}

// apply layers the flag overrides onto a loaded configuration.
func (cli *CLIConfig) apply(cfg *config.Config) {
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = cli.LogFormat
	}
	if cli.StoreDSN != "" {
		cfg.Store.Driver = config.StoreDriverSQLite
		cfg.Store.DSN = cli.StoreDSN
	}
	if cli.MetricsPort != 0 {
		cfg.Metrics.Port = cli.MetricsPort
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Printf("Usage: %s [flags]\n\n", appName)
	fmt.Println("Runs the zukunft knowledge core: the shared word, triple,")
	fmt.Println("formula and value store with per-user overrides, the change")
	fmt.Println("log and the phrase graph closure engine.")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
