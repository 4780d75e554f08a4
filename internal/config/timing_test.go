package config

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestBaseline(t *testing.T) {
	cfg := Baseline()

	if cfg.Timing.HeartbeatInterval != 15*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 15s", cfg.Timing.HeartbeatInterval)
	}
	if cfg.Timing.CommandStartMission != 60*time.Second {
		t.Errorf("CommandStartMission = %v, want 60s", cfg.Timing.CommandStartMission)
	}
	if cfg.Timing.EventBufferSize != 50 {
		t.Errorf("EventBufferSize = %d, want 50", cfg.Timing.EventBufferSize)
	}
	if cfg.VirtualStick.FrequencyHz != 10 {
		t.Errorf("FrequencyHz = %v, want 10", cfg.VirtualStick.FrequencyHz)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("baseline must validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "zero heartbeat interval",
			modify:  func(c *Config) { c.Timing.HeartbeatInterval = 0 },
			wantErr: "heartbeat interval must be positive",
		},
		{
			name:    "jitter above half interval",
			modify:  func(c *Config) { c.Timing.HeartbeatJitter = 10 * time.Second },
			wantErr: "exceeds 50%",
		},
		{
			name:    "start mission timeout too short",
			modify:  func(c *Config) { c.Timing.CommandStartMission = time.Millisecond },
			wantErr: "command timeout startMission",
		},
		{
			name:    "empty event buffer",
			modify:  func(c *Config) { c.Timing.EventBufferSize = 0 },
			wantErr: "event buffer size must be positive",
		},
		{
			name:    "empty server addr",
			modify:  func(c *Config) { c.Server.Addr = "" },
			wantErr: "addr must not be empty",
		},
		{
			name:    "stick frequency too high",
			modify:  func(c *Config) { c.VirtualStick.FrequencyHz = 100 },
			wantErr: "virtual stick frequency",
		},
		{
			name:    "stick frequency NaN",
			modify:  func(c *Config) { c.VirtualStick.FrequencyHz = math.NaN() },
			wantErr: "virtual stick frequency",
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Logging.Level = "chatty" },
			wantErr: "unknown log level",
		},
		{
			name: "hs256 without secret",
			modify: func(c *Config) {
				c.Auth.Enabled = true
				c.Auth.Algorithm = "HS256"
			},
			wantErr: "HS256 requires secret_key",
		},
		{
			name: "unsupported algorithm",
			modify: func(c *Config) {
				c.Auth.Enabled = true
				c.Auth.Algorithm = "none"
			},
			wantErr: "unsupported algorithm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Baseline()
			tt.modify(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if err := ValidateTiming(nil); err == nil {
		t.Error("expected error for nil timing config")
	}
}
