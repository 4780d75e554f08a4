package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeCommand runs the root command with args and returns captured output
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func writeMission(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mission.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write mission: %v", err)
	}
	return path
}

const validMission = `
autoFlightSpeed: 5
maxFlightSpeed: 10
finishedAction: GO_HOME
waypoints:
  - {latitude: -33.9249, longitude: 18.4241, altitude: 30}
  - {latitude: -33.9259, longitude: 18.4251, altitude: 30}
`

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	if root.Use != "fcb" {
		t.Errorf("root.Use = %q, want %q", root.Use, "fcb")
	}

	expected := []string{"serve", "mission", "version"}
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "fcb "+Version+"\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestMissionCheck(t *testing.T) {
	path := writeMission(t, validMission)

	out, err := executeCommand(t, "mission", "check", path)
	if err != nil {
		t.Fatalf("mission check failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "OK") || !strings.Contains(out, "2 waypoints") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestMissionCheckJSON(t *testing.T) {
	path := writeMission(t, validMission)

	out, err := executeCommand(t, "mission", "check", "--json", path)
	if err != nil {
		t.Fatalf("mission check failed: %v\n%s", err, out)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
}

func TestMissionCheckRejectsInvalidMission(t *testing.T) {
	path := writeMission(t, `
waypoints:
  - {latitude: -33.9249, longitude: 18.4241, altitude: 900}
`)

	_, err := executeCommand(t, "mission", "check", path)
	if err == nil {
		t.Fatal("expected mission check to fail")
	}
	for _, want := range []string{"waypoint count 1", "altitude 900.0"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestMissionCheckRequiresFile(t *testing.T) {
	if _, err := executeCommand(t, "mission", "check"); err == nil {
		t.Fatal("expected an argument error")
	}
	if _, err := executeCommand(t, "mission", "check", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected a read error")
	}
}

func TestServeWithoutSDK(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "fcb.yaml")
	content := "audit:\n  enabled: false\nlogging:\n  file: " + filepath.Join(dir, "fcb.log") + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := executeCommand(t, "serve", "--config", cfgPath, "--addr", "127.0.0.1:0")
	if err != errNoSDK {
		t.Fatalf("expected errNoSDK, got %v", err)
	}
}
