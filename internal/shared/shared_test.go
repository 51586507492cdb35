package shared

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestClampPercent(t *testing.T) {
	tc := []struct {
		name string
		in   int
		want int
	}{
		{name: "negative", in: -5, want: 0},
		{name: "zero", in: 0, want: 0},
		{name: "within range", in: 42, want: 42},
		{name: "upper bound", in: 100, want: 100},
		{name: "overflow", in: 250, want: 100},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampPercent(tt.in); got != tt.want {
				t.Errorf("ClampPercent(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Errorf("expected unique IDs, got %s twice", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected valid uuid, got %s: %v", a, err)
	}
}

func TestLoggers(t *testing.T) {
	t.Run("NewLogger writes to buffer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "test")
		logger.Info("hello")

		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("expected log output to contain message, got %q", buf.String())
		}
		if !strings.Contains(buf.String(), "component=test") {
			t.Errorf("expected log output to contain key-value pair, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "inboxsync.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}
		logger.Info("written")
	})
}
