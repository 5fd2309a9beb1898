// internal/generator/sequence.go
package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/YaganovValera/kafka-sandbox/internal/produce"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

// SequenceEvent carries one number of a strictly increasing series.
// Consumers use the series to measure delivery loss and duplication.
type SequenceEvent struct {
	Number uint64 `json:"number"`
}

// SequenceStore persists the next number to emit so a restarted
// producer continues the series instead of starting over.
type SequenceStore struct {
	path string
	mu   sync.Mutex
	next uint64
}

// OpenSequenceStore loads the series position from path, starting at 1
// when the file does not exist yet.
func OpenSequenceStore(path string) (*SequenceStore, error) {
	s := &SequenceStore{path: path, next: 1}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("sequence store: read %s: %w", path, err)
	}

	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("sequence store: parse %s: %w", path, err)
	}
	s.next = n
	return s, nil
}

// Next returns the current number and persists the successor. The
// write happens before the number is handed out, so a crash can skip
// a number but never repeat one.
func (s *SequenceStore) Next() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.next
	if err := s.persist(n + 1); err != nil {
		return 0, err
	}
	s.next = n + 1
	return n, nil
}

func (s *SequenceStore) persist(next uint64) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("sequence store: mkdir %s: %w", dir, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatUint(next, 10)), 0o644); err != nil {
		return fmt.Errorf("sequence store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("sequence store: rename %s: %w", tmp, err)
	}
	return nil
}

// NewSequenceSupplier emits one persisted number per interval.
func NewSequenceSupplier(store *SequenceStore, interval time.Duration) produce.Supplier[SequenceEvent] {
	ticker := time.NewTicker(interval)
	return func(ctx context.Context) (SequenceEvent, error) {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return SequenceEvent{}, ctx.Err()
		case <-ticker.C:
		}
		n, err := store.Next()
		if err != nil {
			return SequenceEvent{}, err
		}
		return SequenceEvent{Number: n}, nil
	}
}

// SequenceValidator checks a received series for gaps and repeats.
// It is driven from a single consumer goroutine and needs no locking.
type SequenceValidator struct {
	last       uint64
	seenFirst  bool
	Received   uint64
	Lost       uint64
	Duplicated uint64
}

// Observe accounts one received number against the expected series.
func (v *SequenceValidator) Observe(n uint64) {
	v.Received++
	if !v.seenFirst {
		v.seenFirst = true
		v.last = n
		return
	}
	switch {
	case n == v.last+1:
		// in order
	case n > v.last+1:
		v.Lost += n - v.last - 1
	default:
		v.Duplicated++
		return // keep last at the high-water mark
	}
	v.last = n
}

// PrintSequenceEvent validates and logs each consumed number, keeping
// running loss and duplication totals.
func PrintSequenceEvent(v *SequenceValidator, log *logger.Logger) func(SequenceEvent) {
	return func(e SequenceEvent) {
		v.Observe(e.Number)
		log.Info("sequence",
			zap.Uint64("number", e.Number),
			zap.Uint64("received", v.Received),
			zap.Uint64("lost", v.Lost),
			zap.Uint64("duplicated", v.Duplicated),
		)
	}
}
