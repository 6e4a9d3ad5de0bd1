package log

import (
	"bytes"
	stdlog "log"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevWriter := stdlog.Writer()
	prevFlags := stdlog.Flags()
	stdlog.SetOutput(&buf)
	stdlog.SetFlags(0)
	prevLevel := GetLevel()
	t.Cleanup(func() {
		stdlog.SetOutput(prevWriter)
		stdlog.SetFlags(prevFlags)
		SetLevel(prevLevel)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)

	SetLevel(LevelWarn)
	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below warn should be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") {
		t.Errorf("expected warn message, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("expected error message, got %q", out)
	}
}

func TestDebugEnabled(t *testing.T) {
	buf := captureOutput(t)

	SetLevel(LevelDebug)
	if !Enabled(LevelDebug) {
		t.Fatal("debug should be enabled")
	}
	Debug("into zone %s", "btn1")
	if !strings.Contains(buf.String(), "[DEBUG] into zone btn1") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "INFO"},
		{in: "debug", want: "DEBUG"},
		{in: "WARN", want: "WARN"},
		{in: "warning", want: "WARN"},
		{in: "error", want: "ERROR"},
		{in: "loud", want: "INFO", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got.String() != tt.want {
				t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
