package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithOutputLevels(t *testing.T) {
	tests := map[string]logrus.Level{
		"":        logrus.InfoLevel,
		"debug":   logrus.DebugLevel,
		" WARN ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range tests {
		if got := NewWithOutput(&bytes.Buffer{}, in, "").GetLevel(); got != want {
			t.Errorf("level %q = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithOutputFormats(t *testing.T) {
	var buf bytes.Buffer
	NewWithOutput(&buf, "info", "").WithField("session_id", "s1").Info("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("json output: %v (%q)", err, buf.String())
	}
	if line["session_id"] != "s1" || line["msg"] != "hello" {
		t.Fatalf("line = %v", line)
	}

	buf.Reset()
	NewWithOutput(&buf, "info", "text").Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("text output = %q", buf.String())
	}
}
