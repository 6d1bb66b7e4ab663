// Package metrics implements the Prometheus metrics registry (C4): the
// named counters spec.md §4.4 requires plus a version info gauge, exposed
// on a scrape endpoint. Definitions follow the same promauto pattern the
// capture-agent lineage used in its own internal/metrics package — only
// the metric names and label sets are domain-specific here.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every counter a pipeline or the reassembly engine touches,
// all labeled by "pipeline" so per-pipeline rates can be sliced in queries.
// A single process-wide Registry is constructed once by the daemon and
// threaded through every Pipeline Runner and the reassembly engine. It owns
// a private *prometheus.Registry rather than registering onto the global
// DefaultRegisterer, so construction is repeatable (tests, multiple
// instances) without a duplicate-collector panic.
type Registry struct {
	reg *prometheus.Registry

	RxMessageTotal      *prometheus.CounterVec
	RxMessageOverSize    *prometheus.CounterVec
	RxMessageDiscarded   *prometheus.CounterVec
	RxMessageError       *prometheus.CounterVec
	RxMessageValid       *prometheus.CounterVec
	RxMessageInvalid     *prometheus.CounterVec
	TxMessageTotal       *prometheus.CounterVec
	ThrottleTotal        *prometheus.CounterVec

	RxZigbeeMessageTotal  *prometheus.CounterVec
	RxEgaugeMessageTotal  *prometheus.CounterVec
	RxC2DMessageTotal     *prometheus.CounterVec
	RxGDPMessageTotal     *prometheus.CounterVec
	RxIBRMessageTotal     *prometheus.CounterVec
	RxRCIMessageTotal     *prometheus.CounterVec
	TxCmdMessageTotal     *prometheus.CounterVec
	RxCmdMessageTotal     *prometheus.CounterVec
	RxGenericMessageTotal *prometheus.CounterVec

	ReassemblyActivePhotos prometheus.Gauge
	ReassemblyCompleted    *prometheus.CounterVec
	ReassemblyExpired      *prometheus.CounterVec

	Version *prometheus.GaugeVec
}

// NewRegistry constructs every named counter in spec.md §4.4 on a private
// Prometheus registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counterVec := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, []string{"pipeline"})
	}

	return &Registry{
		reg: reg,

		RxMessageTotal:     counterVec("zeppelin_rx_message_total", "Total inbound messages received"),
		RxMessageOverSize:  counterVec("zeppelin_rx_message_over_size", "Inbound messages rejected for exceeding max_payload_size_bytes"),
		RxMessageDiscarded: counterVec("zeppelin_rx_message_discarded", "Inbound messages discarded (unmapped topic, disabled route)"),
		RxMessageError:     counterVec("zeppelin_rx_message_error", "Inbound messages that errored during processing"),
		RxMessageValid:     counterVec("zeppelin_rx_message_valid", "Inbound messages that passed validation and were handed to the destination for publishing"),
		RxMessageInvalid:   counterVec("zeppelin_rx_message_invalid", "Inbound messages dropped as invalid"),
		TxMessageTotal:     counterVec("zeppelin_tx_message_total", "Total outbound messages published"),
		ThrottleTotal:      counterVec("zeppelin_throttle_total", "Total throttling events (cap reached, calling goroutine slept)"),

		RxZigbeeMessageTotal:  counterVec("zeppelin_rx_zigbee_message_total", "Zigbee processor inbound messages"),
		RxEgaugeMessageTotal:  counterVec("zeppelin_rx_egauge_message_total", "EGauge processor inbound messages"),
		RxC2DMessageTotal:     counterVec("zeppelin_rx_c2d_message_total", "C2D processor inbound messages"),
		RxGDPMessageTotal:     counterVec("zeppelin_rx_gdp_message_total", "GDP processor inbound messages"),
		RxIBRMessageTotal:     counterVec("zeppelin_rx_ibr_message_total", "IBR processor inbound messages"),
		RxRCIMessageTotal:     counterVec("zeppelin_rx_rci_message_total", "RCI processor inbound messages"),
		TxCmdMessageTotal:     counterVec("zeppelin_tx_cmd_message_total", "RCICommand outbound fan-out messages"),
		RxCmdMessageTotal:     counterVec("zeppelin_rx_cmd_message_total", "RCICommand inbound messages routed to default destination"),
		RxGenericMessageTotal: counterVec("zeppelin_rx_generic_message_total", "Generic processor inbound messages"),

		ReassemblyActivePhotos: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zeppelin_reassembly_active_photos",
			Help: "Number of in-progress photo reassembly entries",
		}),
		ReassemblyCompleted: counterVec("zeppelin_reassembly_completed_total", "Completed block reassemblies persisted"),
		ReassemblyExpired:   counterVec("zeppelin_reassembly_expired_total", "Block reassembly entries removed by expiration GC"),

		Version: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zeppelin_version",
			Help: "Static info gauge describing the running build",
		}, []string{"version", "version_date", "module"}),
	}
}

// Gatherer exposes the private registry for the scrape HTTP endpoint.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// SetVersion publishes the build info gauge, value pinned at 1.
func (r *Registry) SetVersion(version, versionDate, module string) {
	r.Version.WithLabelValues(version, versionDate, module).Set(1)
}
