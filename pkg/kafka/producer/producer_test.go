// pkg/kafka/producer/producer_test.go
package producer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "debug", DevMode: true})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cases := []struct {
		name     string
		input    Config
		wantErr  bool
		wantAcks string
		wantComp string
	}{
		{"empty", Config{}, true, "all", "none"},
		{"noBrokers", Config{Compression: "gzip"}, true, "all", "gzip"},
		{"ok", Config{Brokers: []string{"b1"}}, false, "all", "none"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := c.input
			cfg.applyDefaults()
			if got := cfg.RequiredAcks; got != c.wantAcks {
				t.Errorf("RequiredAcks = %q; want %q", got, c.wantAcks)
			}
			if got := cfg.Compression; got != c.wantComp {
				t.Errorf("Compression = %q; want %q", got, c.wantComp)
			}
			err := cfg.validate()
			if (err != nil) != c.wantErr {
				t.Errorf("validate() error = %v; wantErr=%v", err, c.wantErr)
			}
		})
	}
}

func TestConfigValidate_NegativePartition(t *testing.T) {
	part := int32(-1)
	cfg := Config{Brokers: []string{"b1"}, Partition: &part}
	cfg.applyDefaults()
	if err := cfg.validate(); err == nil {
		t.Error("expected error for negative partition, got nil")
	}
}

func TestBuildSaramaConfig_RequiredAcks(t *testing.T) {
	cases := []struct {
		acks    string
		wantErr bool
	}{
		{"all", false}, {"leader", false}, {"none", false},
		{"ALL", false}, {"LeAdEr", false}, {"invalid", true},
	}
	for _, c := range cases {
		t.Run(c.acks, func(t *testing.T) {
			cfg := Config{RequiredAcks: c.acks, Compression: "none", Brokers: []string{"x"}}
			sc, err := buildSaramaConfig(cfg)
			if c.wantErr {
				if err == nil {
					t.Errorf("buildSaramaConfig(%q) expected error", c.acks)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch strings.ToLower(c.acks) {
			case "all":
				if sc.Producer.RequiredAcks != sarama.WaitForAll {
					t.Errorf("got %v; want %v", sc.Producer.RequiredAcks, sarama.WaitForAll)
				}
			case "leader":
				if sc.Producer.RequiredAcks != sarama.WaitForLocal {
					t.Errorf("got %v; want %v", sc.Producer.RequiredAcks, sarama.WaitForLocal)
				}
			case "none":
				if sc.Producer.RequiredAcks != sarama.NoResponse {
					t.Errorf("got %v; want %v", sc.Producer.RequiredAcks, sarama.NoResponse)
				}
			}
		})
	}
}

func TestBuildSaramaConfig_Compression(t *testing.T) {
	cases := []struct {
		comp    string
		wantErr bool
	}{
		{"none", false}, {"gzip", false}, {"snappy", false},
		{"lz4", false}, {"zstd", false}, {"NONE", false},
		{"bogus", true},
	}
	for _, c := range cases {
		t.Run(c.comp, func(t *testing.T) {
			cfg := Config{RequiredAcks: "all", Compression: c.comp, Brokers: []string{"x"}}
			_, err := buildSaramaConfig(cfg)
			if c.wantErr {
				if err == nil {
					t.Errorf("buildSaramaConfig comp=%q expected error", c.comp)
				}
			} else if err != nil {
				t.Fatalf("unexpected error for %q: %v", c.comp, err)
			}
		})
	}
}

func TestBuildMessage_KeyAndPartition(t *testing.T) {
	part := int32(3)
	cfg := Config{Partition: &part}
	msg := buildMessage(cfg, "topic", "k1", []byte("v"))
	if msg.Key == nil {
		t.Error("expected key to be set")
	}
	if msg.Partition != 3 {
		t.Errorf("Partition = %d; want 3", msg.Partition)
	}

	msg = buildMessage(Config{}, "topic", "", []byte("v"))
	if msg.Key != nil {
		t.Error("empty key must leave the record unkeyed")
	}
}

// Blocking Send must not return before the broker answered: with the mock
// producer the ack (or failure) for that specific message is consumed
// inside SendMessage.
func TestSyncSend_AckAndFailure(t *testing.T) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	mockProd := mocks.NewSyncProducer(t, saramaConfig)
	defer mockProd.Close()

	mockProd.ExpectSendMessageAndSucceed()
	mockProd.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := &SyncProducer{prod: mockProd, log: testLogger(t)}

	out, err := p.Send(context.Background(), "topic", "key", []byte("value"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if out.Topic != "topic" {
		t.Errorf("Outcome.Topic = %q; want %q", out.Topic, "topic")
	}

	if _, err := p.Send(context.Background(), "topic", "key", []byte("value")); err == nil {
		t.Fatal("expected transport error, got nil")
	}
}

func TestNewSync_InvalidConfig(t *testing.T) {
	if _, err := NewSync(context.Background(), Config{}, testLogger(t)); err == nil {
		t.Fatal("expected error for empty Config, got nil")
	}
}

func TestNewSync_InvalidAcks(t *testing.T) {
	cfg := Config{
		Brokers:      []string{"dummy"},
		RequiredAcks: "invalid",
		Compression:  "none",
	}
	if _, err := NewSync(context.Background(), cfg, testLogger(t)); err == nil {
		t.Fatal("expected error for invalid RequiredAcks, got nil")
	}
}

// -----------------------------------------------------------------------------
// Async producer
// -----------------------------------------------------------------------------

// pendingAsyncProducer is a hand-rolled sarama.AsyncProducer that holds
// every ack until released, so tests can observe that Send returns while
// the exchange is still pending.
type pendingAsyncProducer struct {
	input     chan *sarama.ProducerMessage
	successes chan *sarama.ProducerMessage
	errors    chan *sarama.ProducerError
	release   chan struct{}
	done      chan struct{}
}

func newPendingAsyncProducer() *pendingAsyncProducer {
	p := &pendingAsyncProducer{
		input:     make(chan *sarama.ProducerMessage, 16),
		successes: make(chan *sarama.ProducerMessage, 16),
		errors:    make(chan *sarama.ProducerError, 16),
		release:   make(chan struct{}),
		done:      make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		for msg := range p.input {
			<-p.release
			p.successes <- msg
		}
	}()
	return p
}

func (p *pendingAsyncProducer) AsyncClose() { close(p.input) }
func (p *pendingAsyncProducer) Close() error {
	close(p.input)
	<-p.done
	close(p.successes)
	close(p.errors)
	return nil
}
func (p *pendingAsyncProducer) Input() chan<- *sarama.ProducerMessage     { return p.input }
func (p *pendingAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return p.successes }
func (p *pendingAsyncProducer) Errors() <-chan *sarama.ProducerError      { return p.errors }
func (p *pendingAsyncProducer) IsTransactional() bool                     { return false }
func (p *pendingAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnFlagReady
}
func (p *pendingAsyncProducer) BeginTxn() error  { return nil }
func (p *pendingAsyncProducer) CommitTxn() error { return nil }
func (p *pendingAsyncProducer) AbortTxn() error  { return nil }
func (p *pendingAsyncProducer) AddOffsetsToTxn(_ map[string][]*sarama.PartitionOffsetMetadata, _ string) error {
	return nil
}
func (p *pendingAsyncProducer) AddMessageToTxn(_ *sarama.ConsumerMessage, _ string, _ *string) error {
	return nil
}

func TestAsyncSend_ReturnsBeforeAck(t *testing.T) {
	fake := newPendingAsyncProducer()
	a := newAsyncFromProducer(fake, Config{}, testLogger(t))

	done := make(chan error, 1)
	go func() {
		done <- a.Send(context.Background(), "topic", "k1", []byte("v"))
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		// Send returned while the ack is still held back: the
		// non-blocking contract.
	case <-time.After(time.Second):
		t.Fatal("Send did not return before acknowledgment")
	}

	// Release the ack and close; Close must drain the last acks.
	close(fake.release)
	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestAsyncSend_CancelledContext(t *testing.T) {
	fake := newPendingAsyncProducer()
	fake.input = make(chan *sarama.ProducerMessage) // unbuffered, nobody reads

	a := &AsyncProducer{prod: fake, log: testLogger(t)}
	a.drain()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Send(ctx, "topic", "k1", []byte("v")); err == nil {
		t.Fatal("expected context error, got nil")
	}
}
