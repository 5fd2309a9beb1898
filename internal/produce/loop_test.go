// internal/produce/loop_test.go
package produce_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/kafka-sandbox/internal/produce"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

type sentRecord struct {
	Key   string
	Value string
}

// recordingSender is a test double standing in for the broker client.
type recordingSender struct {
	mu     sync.Mutex
	sends  []sentRecord
	closes int
	failOn map[int]error // 1-based send index -> error
}

func (s *recordingSender) Send(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, sentRecord{Key: key, Value: string(value)})
	if err, ok := s.failOn[len(s.sends)]; ok {
		return err
	}
	return nil
}

func (s *recordingSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *recordingSender) snapshot() ([]sentRecord, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentRecord(nil), s.sends...), s.closes
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "debug", DevMode: true})
	require.NoError(t, err)
	return log
}

// scriptedSupplier yields the given pulls in order, then cancels the
// loop context and reports cancellation, simulating the shutdown signal
// arriving during a pull.
func scriptedSupplier[T any](cancel context.CancelFunc, pulls []func() (T, error)) produce.Supplier[T] {
	i := 0
	return func(ctx context.Context) (T, error) {
		if i >= len(pulls) {
			cancel()
			var zero T
			return zero, ctx.Err()
		}
		pull := pulls[i]
		i++
		return pull()
	}
}

func value[T any](v T) func() (T, error) {
	return func() (T, error) { return v, nil }
}

func TestLoop_SendsInPullOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type chat struct {
		Sender string `json:"sender"`
		Text   string `json:"text"`
	}
	supplier := scriptedSupplier(cancel, []func() (chat, error){
		value(chat{Sender: "k1", Text: "a"}),
		value(chat{Sender: "k2", Text: "b"}),
		value(chat{Sender: "k3", Text: "c"}),
	})
	sender := &recordingSender{}

	loop := produce.NewLoop(supplier, func(m chat) string { return m.Sender }, sender, testLogger(t))
	require.NoError(t, loop.Run(ctx))

	sends, closes := sender.snapshot()
	require.Len(t, sends, 3)
	assert.Equal(t, []string{"k1", "k2", "k3"}, []string{sends[0].Key, sends[1].Key, sends[2].Key})
	assert.JSONEq(t, `{"sender":"k1","text":"a"}`, sends[0].Value)
	assert.Equal(t, 1, closes, "client handle must be closed exactly once")
}

func TestLoop_SupplierErrorContinues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	supplier := scriptedSupplier(cancel, []func() (string, error){
		value("a"),
		func() (string, error) { return "", boom },
		value("c"),
	})
	sender := &recordingSender{}

	loop := produce.NewLoop(supplier, nil, sender, testLogger(t))
	require.NoError(t, loop.Run(ctx))

	sends, closes := sender.snapshot()
	// The second pull failed but the loop went on to the third.
	require.Len(t, sends, 2)
	assert.Equal(t, `"a"`, sends[0].Value)
	assert.Equal(t, `"c"`, sends[1].Value)
	assert.Equal(t, 1, closes)
}

func TestLoop_SerializationFailureContinues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	supplier := scriptedSupplier(cancel, []func() (any, error){
		value[any]("a"),
		value[any](make(chan int)), // not serializable
		value[any]("c"),
	})
	sender := &recordingSender{}

	loop := produce.NewLoop(supplier, nil, sender, testLogger(t))
	require.NoError(t, loop.Run(ctx))

	sends, closes := sender.snapshot()
	require.Len(t, sends, 2)
	assert.Equal(t, 1, closes)
}

func TestLoop_TransportErrorContinues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	supplier := scriptedSupplier(cancel, []func() (string, error){
		value("a"), value("b"), value("c"),
	})
	sender := &recordingSender{failOn: map[int]error{2: errors.New("broker rejected")}}

	loop := produce.NewLoop(supplier, nil, sender, testLogger(t))
	require.NoError(t, loop.Run(ctx))

	sends, _ := sender.snapshot()
	require.Len(t, sends, 3, "a transport failure is terminal to one message, not the loop")
}

func TestLoop_CancelDuringPullClosesOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Supplier that blocks until cancellation, like a console reader
	// with no input.
	supplier := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	sender := &recordingSender{}

	done := make(chan error, 1)
	loop := produce.NewLoop[string](supplier, nil, sender, testLogger(t))
	go func() { done <- loop.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not observe cancellation")
	}

	sends, closes := sender.snapshot()
	assert.Empty(t, sends)
	assert.Equal(t, 1, closes)
}
