package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"not-a-level", zerolog.InfoLevel},
	}

	for _, tc := range cases {
		logger := NewLogger(Config{Level: tc.raw})
		if got := logger.GetLevel(); got != tc.want {
			t.Fatalf("level %q: want %s, got %s", tc.raw, tc.want, got)
		}
	}
}

func TestWriterSelection(t *testing.T) {
	if _, ok := writer(Config{Format: "console"}).(zerolog.ConsoleWriter); !ok {
		t.Fatal("console format should select the console writer")
	}
	if _, ok := writer(Config{PrettyPrint: true}).(zerolog.ConsoleWriter); !ok {
		t.Fatal("pretty flag should select the console writer")
	}
	if _, ok := writer(Config{Format: "json"}).(zerolog.ConsoleWriter); ok {
		t.Fatal("json format must not select the console writer")
	}
}
