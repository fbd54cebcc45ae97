package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestError_AcceptsBareError(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug")
	defer Init("info")

	Error("Repo:Op", errors.New("boom"), "user_id", "u1")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	if line["msg"] != "Repo:Op" || line["error"] != "boom" || line["user_id"] != "u1" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestInit_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn")
	defer Init("info")

	Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	Warn("kept", "k", 1)
	if buf.Len() == 0 {
		t.Fatalf("expected warn to be written")
	}
}
