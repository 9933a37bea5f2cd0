package config

import "time"

// Config holds server configuration values.
type Config struct {
	ChatName          string        `mapstructure:"chat_name" yaml:"chat_name"`
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	SSHAddr           string        `mapstructure:"ssh_addr" yaml:"ssh_addr"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	HostKeyPath       string        `mapstructure:"host_key_path" yaml:"host_key_path"`
	HistoryLimit      int           `mapstructure:"history_limit" yaml:"history_limit"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ChatName:          "NoJS Chat",
		HTTPAddr:          ":8080",
		SSHAddr:           ":2222",
		DatabasePath:      "chat.db",
		HostKeyPath:       "host_key",
		HistoryLimit:      20,
		JWTSecret:         "change-me",
		LogLevel:          "info",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}
