// internal/generator/generator_test.go
package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorSupplier_ProducesPlausibleReadings(t *testing.T) {
	supplier := NewSensorSupplier(time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		e, err := supplier(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, e.DeviceID)
		assert.NotEmpty(t, e.EventType)
		assert.NotEmpty(t, e.Unit)
		assert.False(t, e.Timestamp.IsZero())
		assert.Equal(t, e.DeviceID, SensorKey(e))
	}
}

func TestSensorSupplier_CancelledContext(t *testing.T) {
	supplier := NewSensorSupplier(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := supplier(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChatSupplier_WrapsLinesAndSkipsBlank(t *testing.T) {
	in := strings.NewReader("hello\n\n  \nworld\n")
	supplier := NewChatSupplier(in, "me")
	ctx := context.Background()

	m, err := supplier(ctx)
	require.NoError(t, err)
	assert.Equal(t, ChatMessage{SenderID: "me", Text: "hello"}, m)
	assert.Equal(t, "me", ChatKey(m))

	m, err = supplier(ctx)
	require.NoError(t, err)
	assert.Equal(t, "world", m.Text)

	// EOF reads as cancellation so the loop exits cleanly.
	_, err = supplier(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSequenceStore_ResumesAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "sequence")

	store, err := OpenSequenceStore(path)
	require.NoError(t, err)

	for want := uint64(1); want <= 3; want++ {
		n, err := store.Next()
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	reopened, err := OpenSequenceStore(path)
	require.NoError(t, err)
	n, err := reopened.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n, "series must continue after restart")
}

func TestSequenceStore_RejectsCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sequence")
	store, err := OpenSequenceStore(path)
	require.NoError(t, err)
	_, err = store.Next()
	require.NoError(t, err)

	// Corrupt the file behind the store's back.
	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))
	_, err = OpenSequenceStore(path)
	assert.Error(t, err)
}

func TestSequenceValidator_CountsLossAndDuplicates(t *testing.T) {
	var v SequenceValidator
	for _, n := range []uint64{1, 2, 5, 5, 6, 3} {
		v.Observe(n)
	}

	assert.Equal(t, uint64(6), v.Received)
	assert.Equal(t, uint64(2), v.Lost, "3 and 4 were skipped")
	assert.Equal(t, uint64(2), v.Duplicated, "second 5 and late 3")
}

func TestSequenceValidator_FirstObservationSetsBaseline(t *testing.T) {
	var v SequenceValidator
	v.Observe(100)
	v.Observe(101)

	assert.Equal(t, uint64(2), v.Received)
	assert.Zero(t, v.Lost)
	assert.Zero(t, v.Duplicated)
}
