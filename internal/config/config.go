// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/YaganovValera/kafka-sandbox/pkg/backoff"
	"github.com/YaganovValera/kafka-sandbox/pkg/httpserver"
	"github.com/YaganovValera/kafka-sandbox/pkg/kafka/admin"
	"github.com/YaganovValera/kafka-sandbox/pkg/kafka/consumer"
	"github.com/YaganovValera/kafka-sandbox/pkg/kafka/producer"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
	"github.com/YaganovValera/kafka-sandbox/pkg/telemetry"
)

// Config holds every setting of the sandbox binary.
type Config struct {
	ServiceName    string          `mapstructure:"service_name"`
	ServiceVersion string          `mapstructure:"service_version"`
	Kafka          KafkaConfig     `mapstructure:"kafka"`
	Producer       ProducerConfig  `mapstructure:"producer"`
	Consumer       ConsumerConfig  `mapstructure:"consumer"`
	Topics         TopicsConfig    `mapstructure:"topics"`
	Sequence       SequenceConfig  `mapstructure:"sequence"`
	Telemetry      TelemetryConfig `mapstructure:"telemetry"`
	Logging        Logging         `mapstructure:"logging"`
	HTTP           HTTPConfig      `mapstructure:"http"`
}

// KafkaConfig covers the broker connection shared by every command.
type KafkaConfig struct {
	Brokers        []string       `mapstructure:"brokers"`
	Version        string         `mapstructure:"version"`
	Acks           string         `mapstructure:"acks"`
	Timeout        time.Duration  `mapstructure:"timeout"`
	Compression    string         `mapstructure:"compression"`
	FlushFrequency time.Duration  `mapstructure:"flush_frequency"`
	FlushMessages  int            `mapstructure:"flush_messages"`
	Backoff        backoff.Config `mapstructure:"backoff"`
}

// ProducerConfig shapes the demo producer loops.
type ProducerConfig struct {
	// NonBlocking selects the fire-and-forget send path.
	NonBlocking bool `mapstructure:"non_blocking"`
	// Interval paces generated messages.
	Interval time.Duration `mapstructure:"interval"`
}

// ConsumerConfig shapes the demo consumer loops.
type ConsumerConfig struct {
	Group         string `mapstructure:"group"`
	InitialOffset string `mapstructure:"initial_offset"`
}

// TopicsConfig names the demo topics.
type TopicsConfig struct {
	Measurements string `mapstructure:"measurements"`
	Messages     string `mapstructure:"messages"`
	Sequence     string `mapstructure:"sequence"`
}

// SequenceConfig controls the loss-measuring series producer.
type SequenceConfig struct {
	StateFile string        `mapstructure:"state_file"`
	Interval  time.Duration `mapstructure:"interval"`
}

// TelemetryConfig holds tracing settings. Empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint     string  `mapstructure:"endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SamplerRatio float64 `mapstructure:"sampler_ratio"`
}

// Logging holds logger settings.
type Logging struct {
	Level   string `mapstructure:"level"`
	DevMode bool   `mapstructure:"dev_mode"`
}

// HTTPConfig holds the /metrics server settings. Port 0 disables it.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MetricsPath     string        `mapstructure:"metrics_path"`
	HealthzPath     string        `mapstructure:"healthz_path"`
	ReadyzPath      string        `mapstructure:"readyz_path"`
}

// Load reads the config from defaults, ENV (SANDBOX_ prefix) and an
// optional YAML file, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()

	// ---------- 1) Defaults ----------
	v.SetDefault("service_name", "kafka-sandbox")
	v.SetDefault("service_version", "v1.0.0")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.version", "2.8.0")
	v.SetDefault("kafka.acks", "all")
	v.SetDefault("kafka.timeout", "15s")
	v.SetDefault("kafka.compression", "none")
	v.SetDefault("kafka.flush_frequency", "0s")
	v.SetDefault("kafka.flush_messages", 0)

	v.SetDefault("producer.non_blocking", true)
	v.SetDefault("producer.interval", "1s")

	v.SetDefault("consumer.group", "console")
	v.SetDefault("consumer.initial_offset", "newest")

	v.SetDefault("topics.measurements", "measurements")
	v.SetDefault("topics.messages", "messages")
	v.SetDefault("topics.sequence", "sequence")

	v.SetDefault("sequence.state_file", "sequence.state")
	v.SetDefault("sequence.interval", "100ms")

	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sampler_ratio", 1.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dev_mode", true)

	v.SetDefault("http.port", 0)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "5s")
	v.SetDefault("http.metrics_path", "/metrics")
	v.SetDefault("http.healthz_path", "/healthz")
	v.SetDefault("http.readyz_path", "/readyz")

	// ---------- 2) ENV ----------
	v.SetEnvPrefix("SANDBOX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// ---------- 3) Optional file ----------
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", v.ConfigFileUsed(), err)
		}
	}

	// ---------- 4) Decode ----------
	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToBoolHook,
	)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "mapstructure",
		Result:     &cfg,
		DecodeHook: decodeHook,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// ---------- 5) Validation ----------
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func stringToBoolHook(f, t reflect.Kind, data interface{}) (interface{}, error) {
	if f == reflect.String && t == reflect.Bool {
		return strconv.ParseBool(data.(string))
	}
	return data, nil
}

func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("service_version is required")
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	switch strings.ToLower(c.Kafka.Acks) {
	case "all", "leader", "none":
	default:
		return fmt.Errorf("kafka.acks must be one of [all, leader, none]")
	}
	switch strings.ToLower(c.Kafka.Compression) {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("kafka.compression must be one of [none, gzip, snappy, lz4, zstd]")
	}

	if c.Producer.Interval <= 0 {
		return fmt.Errorf("producer.interval must be > 0")
	}

	if c.Consumer.Group == "" {
		return fmt.Errorf("consumer.group is required")
	}
	switch strings.ToLower(c.Consumer.InitialOffset) {
	case "newest", "oldest":
	default:
		return fmt.Errorf("consumer.initial_offset must be one of [newest, oldest]")
	}

	if c.Topics.Measurements == "" || c.Topics.Messages == "" || c.Topics.Sequence == "" {
		return fmt.Errorf("topics.measurements, topics.messages and topics.sequence are required")
	}

	if c.Sequence.StateFile == "" {
		return fmt.Errorf("sequence.state_file is required")
	}
	if c.Sequence.Interval <= 0 {
		return fmt.Errorf("sequence.interval must be > 0")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error]")
	}

	if c.HTTP.Port != 0 {
		if err := validateHTTP(&c.HTTP); err != nil {
			return err
		}
	}
	return nil
}

func validateHTTP(h *HTTPConfig) error {
	if h.Port < 0 || h.Port > 65535 {
		return fmt.Errorf("http.port must be between 0 and 65535")
	}
	durations := map[string]time.Duration{
		"http.read_timeout":     h.ReadTimeout,
		"http.write_timeout":    h.WriteTimeout,
		"http.idle_timeout":     h.IdleTimeout,
		"http.shutdown_timeout": h.ShutdownTimeout,
	}
	for k, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0", k)
		}
	}
	paths := map[string]string{
		"http.metrics_path": h.MetricsPath,
		"http.healthz_path": h.HealthzPath,
		"http.readyz_path":  h.ReadyzPath,
	}
	for k, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must start with '/'", k)
		}
	}
	return nil
}

// ProducerKafka maps the file sections onto the producer driver config.
func (c *Config) ProducerKafka(partition *int32) producer.Config {
	return producer.Config{
		Brokers:        c.Kafka.Brokers,
		RequiredAcks:   c.Kafka.Acks,
		Timeout:        c.Kafka.Timeout,
		Compression:    c.Kafka.Compression,
		FlushFrequency: c.Kafka.FlushFrequency,
		FlushMessages:  c.Kafka.FlushMessages,
		Partition:      partition,
		Backoff:        c.Kafka.Backoff,
	}
}

// ConsumerKafka maps the file sections onto the consumer driver config.
func (c *Config) ConsumerKafka(group string) consumer.Config {
	if group == "" {
		group = c.Consumer.Group
	}
	return consumer.Config{
		Brokers:       c.Kafka.Brokers,
		GroupID:       group,
		Version:       c.Kafka.Version,
		InitialOffset: c.Consumer.InitialOffset,
		Backoff:       c.Kafka.Backoff,
	}
}

// AdminKafka maps the file sections onto the admin driver config.
func (c *Config) AdminKafka() admin.Config {
	return admin.Config{
		Brokers: c.Kafka.Brokers,
		Version: c.Kafka.Version,
		Timeout: c.Kafka.Timeout,
		Backoff: c.Kafka.Backoff,
	}
}

// LoggerConfig maps the logging section onto the logger config.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Logging.Level, DevMode: c.Logging.DevMode}
}

// TracerConfig maps the telemetry section onto the tracer config.
func (c *Config) TracerConfig() telemetry.Config {
	return telemetry.Config{
		Endpoint:       c.Telemetry.Endpoint,
		ServiceName:    c.ServiceName,
		ServiceVersion: c.ServiceVersion,
		Insecure:       c.Telemetry.Insecure,
		SamplerRatio:   c.Telemetry.SamplerRatio,
	}
}

// HTTPServerConfig maps the http section onto the metrics server config.
func (c *Config) HTTPServerConfig() httpserver.Config {
	return httpserver.Config{
		Addr:            fmt.Sprintf(":%d", c.HTTP.Port),
		ReadTimeout:     c.HTTP.ReadTimeout,
		WriteTimeout:    c.HTTP.WriteTimeout,
		IdleTimeout:     c.HTTP.IdleTimeout,
		ShutdownTimeout: c.HTTP.ShutdownTimeout,
		MetricsPath:     c.HTTP.MetricsPath,
		HealthzPath:     c.HTTP.HealthzPath,
		ReadyzPath:      c.HTTP.ReadyzPath,
	}
}

// Print dumps the loaded config as JSON. Handy in DevMode.
func (c *Config) Print() {
	b, _ := json.MarshalIndent(c, "", "  ")
	fmt.Println("Loaded configuration:\n", string(b))
}
