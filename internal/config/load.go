package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FCB"

// SetDefaults registers every key of Baseline() with v so env overrides
// resolve even when no file sets the key.
func SetDefaults(v *viper.Viper) {
	d := Baseline()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("timing.heartbeat_interval", d.Timing.HeartbeatInterval)
	v.SetDefault("timing.heartbeat_jitter", d.Timing.HeartbeatJitter)
	v.SetDefault("timing.command_default", d.Timing.CommandDefault)
	v.SetDefault("timing.command_start_mission", d.Timing.CommandStartMission)
	v.SetDefault("timing.command_stop_mission", d.Timing.CommandStopMission)
	v.SetDefault("timing.command_key_value", d.Timing.CommandKeyValue)
	v.SetDefault("timing.event_buffer_size", d.Timing.EventBufferSize)
	v.SetDefault("timing.client_send_timeout", d.Timing.ClientSendTimeout)

	v.SetDefault("recorder.dir", d.Recorder.Dir)
	v.SetDefault("recorder.sample_interval", d.Recorder.SampleInterval)

	v.SetDefault("virtual_stick.frequency_hz", d.VirtualStick.FrequencyHz)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)

	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.file", d.Audit.File)
	v.SetDefault("audit.max_size_mb", d.Audit.MaxSizeMB)
	v.SetDefault("audit.max_backups", d.Audit.MaxBackups)
	v.SetDefault("audit.max_age_days", d.Audit.MaxAgeDays)
	v.SetDefault("audit.compress", d.Audit.Compress)

	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.algorithm", d.Auth.Algorithm)
	v.SetDefault("auth.secret_key", d.Auth.SecretKey)
	v.SetDefault("auth.public_key_file", d.Auth.PublicKeyFile)

	v.SetDefault("simulator.enabled", d.Simulator.Enabled)
	v.SetDefault("simulator.callback_delay", d.Simulator.CallbackDelay)
	v.SetDefault("simulator.execution_step", d.Simulator.ExecutionStep)
}

// New returns a viper instance with defaults, env overrides and, when found,
// the config file. An empty path searches for fcb.yaml in . and /etc/fcb; a
// missing file is not an error unless path was given explicitly.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fcb")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/fcb")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals and validates the current settings of v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Load is New followed by Decode.
func Load(path string) (*Config, *viper.Viper, error) {
	v, err := New(path)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Watch reloads the config file whenever it changes and passes each valid
// result to onChange. Invalid edits are logged and ignored. Watch is a no-op
// when v was not loaded from a file.
func Watch(v *viper.Viper, logger *slog.Logger, onChange func(*Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Decode(v)
		if err != nil {
			logger.Warn("ignoring invalid config change", "file", e.Name, "error", err)
			return
		}
		logger.Info("config reloaded", "file", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
}
