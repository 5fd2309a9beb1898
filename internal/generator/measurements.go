// internal/generator/measurements.go
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/YaganovValera/kafka-sandbox/internal/produce"
	"github.com/YaganovValera/kafka-sandbox/pkg/logger"
)

// SensorEvent is a single simulated device reading.
type SensorEvent struct {
	DeviceID  string    `json:"deviceId"`
	EventType string    `json:"eventType"`
	Unit      string    `json:"unit"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Readings are paired: a given event type always reports in its unit.
var sensorKinds = []struct {
	eventType string
	unit      string
	min, max  int
}{
	{"TEMPERATURE", "CELSIUS", -20, 35},
	{"HUMIDITY", "PERCENT", 20, 95},
	{"PRESSURE", "HPA", 950, 1050},
}

// deviceID gives every running producer its own stable identity so
// that keyed records from one process land on one partition.
func deviceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("sensor-%s-%d", host, os.Getpid())
}

// NewSensorSupplier emits one random reading per interval. The pull
// blocks on the ticker, so the production rate is paced here and not
// in the send path.
func NewSensorSupplier(interval time.Duration) produce.Supplier[SensorEvent] {
	id := deviceID()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var mu sync.Mutex

	ticker := time.NewTicker(interval)
	return func(ctx context.Context) (SensorEvent, error) {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return SensorEvent{}, ctx.Err()
		case <-ticker.C:
		}

		mu.Lock()
		kind := sensorKinds[rng.Intn(len(sensorKinds))]
		value := kind.min + rng.Intn(kind.max-kind.min+1)
		mu.Unlock()

		return SensorEvent{
			DeviceID:  id,
			EventType: kind.eventType,
			Unit:      kind.unit,
			Value:     value,
			Timestamp: time.Now().UTC(),
		}, nil
	}
}

// SensorKey keys records by device so one device is always ordered.
func SensorKey(e SensorEvent) string { return e.DeviceID }

// PrintSensorEvent logs a consumed reading in a human-friendly line.
func PrintSensorEvent(log *logger.Logger) func(SensorEvent) {
	return func(e SensorEvent) {
		log.Info("measurement",
			zap.String("device", e.DeviceID),
			zap.String("type", e.EventType),
			zap.Int("value", e.Value),
			zap.String("unit", e.Unit),
			zap.Time("at", e.Timestamp),
		)
	}
}
