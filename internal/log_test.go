package internal

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"ERROR":   LogLevelError,
		"warn":    LogLevelWarn,
		" debug ": LogLevelDebug,
		"TRACE":   LogLevelTrace,
		"":        LogLevelInfo,
		"verbose": LogLevelInfo,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestLogger_FiltersByLevelAndPrefixes(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	logger := NewLogger(LogLevelInfo).With("Pipeline")
	logger.Debug("hidden %d", 1)
	logger.Info("visible %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered at info level: %q", out)
	}
	if !strings.Contains(out, "[INFO] [Pipeline] visible 2") {
		t.Errorf("expected prefixed info message, got %q", out)
	}
}
