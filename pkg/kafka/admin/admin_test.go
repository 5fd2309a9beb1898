// pkg/kafka/admin/admin_test.go
package admin

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Brokers: []string{"b1"}}
	cfg.applyDefaults()
	if cfg.Version == "" {
		t.Error("applyDefaults must set Version")
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v; want 10s", cfg.Timeout)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("validate() = %v; want nil", err)
	}
}

func TestConfigValidate_NoBrokers(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	if err := cfg.validate(); err == nil {
		t.Error("expected error for empty brokers, got nil")
	}
}

func TestCreate_ArgumentChecks(t *testing.T) {
	a := &Admin{}
	if err := a.Create("", 1); err == nil {
		t.Error("expected error for empty topic")
	}
	if err := a.Create("topic", 0); err == nil {
		t.Error("expected error for zero partitions")
	}
}

func TestDelete_ArgumentChecks(t *testing.T) {
	a := &Admin{}
	if err := a.Delete(""); err == nil {
		t.Error("expected error for empty topic")
	}
}
