package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithOutputWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("ai-todo", "debug", &buf)

	log.WithField("task_id", 7).Info("task created")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "task created" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["service"] != "ai-todo" {
		t.Errorf("service = %v", entry["service"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("missing ts field")
	}
}

func TestNewWithOutputUnknownLevel(t *testing.T) {
	log := NewWithOutput("ai-todo", "loud", &bytes.Buffer{})
	if log.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info", log.GetLevel())
	}
}
