package config

// Config holds client session configuration values.
type Config struct {
	ApiURL           string  `mapstructure:"api_url" yaml:"api_url"`
	SocketURL        string  `mapstructure:"socket_url" yaml:"socket_url"`
	Token            string  `mapstructure:"token" yaml:"token"`
	DatabasePath     string  `mapstructure:"database_path" yaml:"database_path"`
	JournalPath      string  `mapstructure:"journal_path" yaml:"journal_path"`
	LogLevel         string  `mapstructure:"log_level" yaml:"log_level"`
	RecoveryEnabled  bool    `mapstructure:"recovery_enabled" yaml:"recovery_enabled"`
	SyncSchedule     string  `mapstructure:"sync_schedule" yaml:"sync_schedule"`
	RetriesPerSecond float64 `mapstructure:"retries_per_second" yaml:"retries_per_second"`
	MetricsAddr      string  `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ApiURL:           "http://localhost:8080",
		SocketURL:        "ws://localhost:8080/events",
		DatabasePath:     "driftchat.db",
		JournalPath:      "driftchat-journal",
		LogLevel:         "info",
		RecoveryEnabled:  true,
		SyncSchedule:     "*/5 * * * *",
		RetriesPerSecond: 5,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.ApiURL != "" {
		c.ApiURL = other.ApiURL
	}
	if other.SocketURL != "" {
		c.SocketURL = other.SocketURL
	}
	if other.Token != "" {
		c.Token = other.Token
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JournalPath != "" {
		c.JournalPath = other.JournalPath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.SyncSchedule != "" {
		c.SyncSchedule = other.SyncSchedule
	}
	if other.RetriesPerSecond != 0 {
		c.RetriesPerSecond = other.RetriesPerSecond
	}
	if other.MetricsAddr != "" {
		c.MetricsAddr = other.MetricsAddr
	}
}
