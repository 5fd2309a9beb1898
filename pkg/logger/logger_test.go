// pkg/logger/logger_test.go
package logger_test

import (
	"testing"

	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := logger.New(logger.Config{Level: "invalid", DevMode: false})
	if err == nil {
		t.Error("expected error for invalid level, got nil")
	}
}

func TestNew_ValidLevels(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error"}
	for _, lvl := range levels {
		_, err := logger.New(logger.Config{Level: lvl, DevMode: true})
		if err != nil {
			t.Errorf("expected no error for level %s, got %v", lvl, err)
		}
	}
}

func TestNew_DefaultLevel(t *testing.T) {
	l, err := logger.New(logger.Config{DevMode: true})
	if err != nil {
		t.Fatalf("expected no error for empty level, got %v", err)
	}
	l.Info("test message")
}

func TestNamed_NoPanic(t *testing.T) {
	l, _ := logger.New(logger.Config{Level: "info", DevMode: true})
	sub := l.Named("sub")
	sub.Debug("test message")
}

func TestSync_NoPanic(t *testing.T) {
	l, _ := logger.New(logger.Config{Level: "info", DevMode: true})
	// Sync should not panic
	l.Sync()
}
