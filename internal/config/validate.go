package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidLogLevels lists accepted logging.level values.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate enforces configuration rules.
func Validate(config *Config) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateServer(&config.Server); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := ValidateTiming(&config.Timing); err != nil {
		return err
	}
	if err := validateRecorder(&config.Recorder, &config.VirtualStick); err != nil {
		return fmt.Errorf("recorder validation failed: %w", err)
	}
	if err := validateLogging(&config.Logging); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}
	if err := validateAuth(&config.Auth); err != nil {
		return fmt.Errorf("auth validation failed: %w", err)
	}
	return nil
}

// ValidateTiming enforces heartbeat, command timeout and buffer rules.
func ValidateTiming(config *TimingConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateHeartbeat(config); err != nil {
		return fmt.Errorf("heartbeat validation failed: %w", err)
	}
	if err := validateCommandTimeouts(config); err != nil {
		return fmt.Errorf("command timeout validation failed: %w", err)
	}
	if err := validateEventBuffer(config); err != nil {
		return fmt.Errorf("event buffer validation failed: %w", err)
	}
	return nil
}

func validateServer(config *ServerConfig) error {
	if config.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if config.ReadTimeout < 0 || config.WriteTimeout < 0 || config.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must be non-negative")
	}
	if config.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %v", config.ShutdownTimeout)
	}
	return nil
}

func validateHeartbeat(config *TimingConfig) error {
	if config.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", config.HeartbeatInterval)
	}

	// Jitter is at most half the interval.
	maxJitter := config.HeartbeatInterval / 2
	if config.HeartbeatJitter < 0 {
		return fmt.Errorf("heartbeat jitter must be non-negative, got %v", config.HeartbeatJitter)
	}
	if config.HeartbeatJitter > maxJitter {
		return fmt.Errorf("heartbeat jitter %v exceeds 50%% of interval %v", config.HeartbeatJitter, config.HeartbeatInterval)
	}
	return nil
}

func validateCommandTimeouts(config *TimingConfig) error {
	minTimeout := 100 * time.Millisecond
	maxTimeout := 10 * time.Minute

	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"default", config.CommandDefault},
		{"startMission", config.CommandStartMission},
		{"stopMission", config.CommandStopMission},
		{"keyValue", config.CommandKeyValue},
	}
	for _, t := range timeouts {
		if t.value < minTimeout || t.value > maxTimeout {
			return fmt.Errorf("command timeout %s %v is outside range [%v, %v]", t.name, t.value, minTimeout, maxTimeout)
		}
	}
	return nil
}

func validateEventBuffer(config *TimingConfig) error {
	if config.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", config.EventBufferSize)
	}
	if config.ClientSendTimeout <= 0 {
		return fmt.Errorf("client send timeout must be positive, got %v", config.ClientSendTimeout)
	}
	return nil
}

func validateRecorder(rec *RecorderConfig, stick *VirtualStickConfig) error {
	if rec.Dir == "" {
		return fmt.Errorf("recorder dir must not be empty")
	}
	if rec.SampleInterval < 10*time.Millisecond {
		return fmt.Errorf("sample interval %v is below 10ms", rec.SampleInterval)
	}
	if !(stick.FrequencyHz >= 1 && stick.FrequencyHz <= 50) {
		return fmt.Errorf("virtual stick frequency %.1fHz must be between 1 and 50", stick.FrequencyHz)
	}
	return nil
}

func validateLogging(config *LoggingConfig) error {
	level := strings.ToLower(config.Level)
	for _, valid := range ValidLogLevels() {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("unknown log level %q (valid: %s)", config.Level, strings.Join(ValidLogLevels(), ", "))
}

func validateAuth(config *AuthConfig) error {
	if !config.Enabled {
		return nil
	}
	switch config.Algorithm {
	case "HS256":
		if config.SecretKey == "" {
			return fmt.Errorf("HS256 requires secret_key")
		}
	case "RS256":
		if config.PublicKeyFile == "" {
			return fmt.Errorf("RS256 requires public_key_file")
		}
	default:
		return fmt.Errorf("unsupported algorithm %q", config.Algorithm)
	}
	return nil
}
