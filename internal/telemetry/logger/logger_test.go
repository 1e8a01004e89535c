package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.Info("request handled", "route", "signup", "status", 201)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "request handled" {
		t.Errorf("msg = %v, want %q", entry["msg"], "request handled")
	}
	if entry["route"] != "signup" {
		t.Errorf("route = %v, want signup", entry["route"])
	}
}

func TestNew_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "text", Output: &buf})

	log.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("text output missing message: %s", buf.String())
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "json", Output: &buf})

	log.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info record emitted at warn level: %s", buf.String())
	}
	log.Warn("loud")
	if buf.Len() == 0 {
		t.Fatal("warn record suppressed at warn level")
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	SetLevel("debug")
	defer SetLevel("info")

	if GetLevel() != "debug" {
		t.Fatalf("GetLevel = %q, want debug", GetLevel())
	}
	log.Debug("now visible")
	if buf.Len() == 0 {
		t.Fatal("debug record suppressed after SetLevel(debug)")
	}
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.Info("login attempt",
		"identity", "a94a8fe5cc",
		"passcode", "hunter2",
		"cookie_secret", "abc123")

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "abc123") {
		t.Fatalf("sensitive value leaked: %s", out)
	}
	if !strings.Contains(out, redactedValue) {
		t.Fatalf("no redaction placeholder in output: %s", out)
	}
	if !strings.Contains(out, "a94a8fe5cc") {
		t.Fatalf("non-sensitive value redacted: %s", out)
	}
}

func TestRedaction_Groups(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.Info("config loaded", "auth", "whole-section-redacted")

	if strings.Contains(buf.String(), "whole-section-redacted") {
		t.Fatalf("auth-prefixed value leaked: %s", buf.String())
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"passcode", true},
		{"Passcode", true},
		{"cookie_secret", true},
		{"session_key", true},
		{"salt", true},
		{"identity", false},
		{"route", false},
		{"status", false},
	}
	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
