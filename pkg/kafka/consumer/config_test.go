// pkg/kafka/consumer/config_test.go
package consumer

import "testing"

func TestConfigDefaultsAndValidate(t *testing.T) {
	cases := []struct {
		name    string
		input   Config
		wantErr bool
	}{
		{"empty", Config{}, true},
		{"noGroup", Config{Brokers: []string{"b1"}}, true},
		{"ok", Config{Brokers: []string{"b1"}, GroupID: "console"}, false},
		{"oldest", Config{Brokers: []string{"b1"}, GroupID: "g", InitialOffset: "oldest"}, false},
		{"badOffset", Config{Brokers: []string{"b1"}, GroupID: "g", InitialOffset: "latest"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := c.input
			cfg.applyDefaults()
			if cfg.Version == "" {
				t.Error("applyDefaults must set Version")
			}
			err := cfg.validate()
			if (err != nil) != c.wantErr {
				t.Errorf("validate() error = %v; wantErr=%v", err, c.wantErr)
			}
		})
	}
}
