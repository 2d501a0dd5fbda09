// Package config loads runtime settings for the streamguard CLI from a
// config file, environment variables, and defaults.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Alpha           float64 `mapstructure:"alpha"`             // EMA smoothing factor in (0, 1]
	Threshold       float64 `mapstructure:"threshold"`         // z-score above which a sample is flagged
	Source          string  `mapstructure:"source"`            // sim, csv or pcap
	CSVPath         string  `mapstructure:"csv_path"`          // series file for the csv source
	CSVColumn       int     `mapstructure:"csv_column"`        // column holding the values
	CSVHeader       bool    `mapstructure:"csv_header"`        // whether the file has a header row
	PcapPath        string  `mapstructure:"pcap_path"`         // capture file for the pcap source
	PcapMetric      string  `mapstructure:"pcap_metric"`       // size or interarrival
	Seed            int64   `mapstructure:"seed"`              // sim source RNG seed
	IntervalMS      int     `mapstructure:"interval_ms"`       // sim source pacing; 0 = unpaced
	JSONLPath       string  `mapstructure:"jsonl_path"`        // record log file; empty = disabled
	ListenAddr      string  `mapstructure:"listen_addr"`       // websocket hub address; empty = disabled
	LogLevel        string  `mapstructure:"log_level"`
	ContinueOnError bool    `mapstructure:"continue_on_error"` // keep consuming past invalid samples and sink failures
}

func Load() (*Config, error) {
	viper.SetConfigName("streamguard")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/streamguard/")
	viper.AddConfigPath("$HOME/.streamguard")
	viper.AddConfigPath(".")

	// Defaults
	viper.SetDefault("alpha", 0.1)
	viper.SetDefault("threshold", 3.0)
	viper.SetDefault("source", "sim")
	viper.SetDefault("csv_path", "")
	viper.SetDefault("csv_column", 0)
	viper.SetDefault("csv_header", true)
	viper.SetDefault("pcap_path", "")
	viper.SetDefault("pcap_metric", "size")
	viper.SetDefault("seed", 42)
	viper.SetDefault("interval_ms", 100)
	viper.SetDefault("jsonl_path", "")
	viper.SetDefault("listen_addr", "")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("continue_on_error", true)

	// Environment variables
	viper.SetEnvPrefix("STREAMGUARD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; using defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
