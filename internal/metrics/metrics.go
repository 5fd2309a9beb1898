package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// MessagesSupplied counts values pulled from the message supplier.
	MessagesSupplied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sandbox",
		Subsystem: "producer",
		Name:      "messages_supplied_total",
		Help:      "Total number of messages pulled from the supplier",
	})

	// SupplierErrors counts failed supplier pulls.
	SupplierErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sandbox",
		Subsystem: "producer",
		Name:      "supplier_errors_total",
		Help:      "Total number of supplier pulls that failed",
	})

	// SerializeErrors counts messages that could not be encoded to JSON.
	SerializeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sandbox",
		Subsystem: "producer",
		Name:      "serialize_errors_total",
		Help:      "Total number of messages that failed JSON encoding",
	})

	// MessagesConsumed counts messages handled by the consumer loop.
	MessagesConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sandbox",
		Subsystem: "consumer",
		Name:      "messages_consumed_total",
		Help:      "Total number of messages decoded and handled",
	})

	// DecodeErrors counts malformed payloads skipped by the consumer loop.
	DecodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sandbox",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Total number of payloads that failed JSON decoding",
	})
)

// Register registers all metrics in the given registry.
// Call without arguments to use the DefaultRegisterer.
func Register(registerers ...prometheus.Registerer) {
	once.Do(func() {
		var reg prometheus.Registerer
		if len(registerers) > 0 && registerers[0] != nil {
			reg = registerers[0]
		} else {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			MessagesSupplied,
			SupplierErrors,
			SerializeErrors,
			MessagesConsumed,
			DecodeErrors,
		)
	})
}
