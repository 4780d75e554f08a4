package config

import "time"

// Config is the complete bridge configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Timing       TimingConfig       `mapstructure:"timing"`
	Recorder     RecorderConfig     `mapstructure:"recorder"`
	VirtualStick VirtualStickConfig `mapstructure:"virtual_stick"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Audit        AuditConfig        `mapstructure:"audit"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Simulator    SimulatorConfig    `mapstructure:"simulator"`
}

// ServerConfig configures the host-facing HTTP server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TimingConfig holds heartbeat, command timeout and event buffer settings.
type TimingConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	HeartbeatJitter   time.Duration `mapstructure:"heartbeat_jitter"`

	// Command timeouts bound how long a caller waits for a vendor callback.
	CommandDefault      time.Duration `mapstructure:"command_default"`
	CommandStartMission time.Duration `mapstructure:"command_start_mission"`
	CommandStopMission  time.Duration `mapstructure:"command_stop_mission"`
	CommandKeyValue     time.Duration `mapstructure:"command_key_value"`

	EventBufferSize   int           `mapstructure:"event_buffer_size"`
	ClientSendTimeout time.Duration `mapstructure:"client_send_timeout"`
}

// RecorderConfig configures flight-data recording.
type RecorderConfig struct {
	Dir            string        `mapstructure:"dir"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
}

// VirtualStickConfig configures manual control.
type VirtualStickConfig struct {
	FrequencyHz float64 `mapstructure:"frequency_hz"`
}

// LoggingConfig configures the process logger. An empty File logs to stderr.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AuditConfig configures the command audit trail.
type AuditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Algorithm     string `mapstructure:"algorithm"`
	SecretKey     string `mapstructure:"secret_key"`
	PublicKeyFile string `mapstructure:"public_key_file"`
}

// SimulatorConfig configures the in-memory SDK used by `fcb serve --simulate`.
type SimulatorConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	CallbackDelay time.Duration `mapstructure:"callback_delay"`
	ExecutionStep time.Duration `mapstructure:"execution_step"`
}

// Baseline returns the default configuration.
func Baseline() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0, // SSE and WebSocket streams stay open
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Timing: TimingConfig{
			HeartbeatInterval:   15 * time.Second,
			HeartbeatJitter:     2 * time.Second,
			CommandDefault:      10 * time.Second,
			CommandStartMission: 60 * time.Second,
			CommandStopMission:  15 * time.Second,
			CommandKeyValue:     5 * time.Second,
			EventBufferSize:     50,
			ClientSendTimeout:   100 * time.Millisecond,
		},
		Recorder: RecorderConfig{
			Dir:            "flightlogs",
			SampleInterval: 100 * time.Millisecond,
		},
		VirtualStick: VirtualStickConfig{
			FrequencyHz: 10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Audit: AuditConfig{
			Enabled:    true,
			File:       "audit/audit.jsonl",
			MaxSizeMB:  10,
			MaxBackups: 10,
			MaxAgeDays: 90,
			Compress:   true,
		},
		Auth: AuthConfig{
			Algorithm: "HS256",
		},
		Simulator: SimulatorConfig{
			CallbackDelay: 20 * time.Millisecond,
			ExecutionStep: 2 * time.Second,
		},
	}
}
