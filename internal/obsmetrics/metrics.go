// Package obsmetrics exposes the benchmark run's shared state as
// Prometheus metrics on an optional HTTP endpoint. Registration only
// happens when a metrics address is configured; when it isn't, this
// package is never touched and nothing is served. It never alters
// benchmark semantics — it's a read-only view of internal/bench's run
// state: gauges are refreshed once per reporter tick, while the counters
// and the latency histogram move as requests are issued and recorded.
package obsmetrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the set of gauges/counters/histogram mirroring RunState.
type Registry struct {
	reg *prometheus.Registry

	liveClients      prometheus.Gauge
	requestsIssued   prometheus.Counter
	requestsFinished prometheus.Counter
	throughput       prometheus.Gauge
	latencyUs        prometheus.Histogram

	server *http.Server
}

// NewRegistry builds and registers every metric on a fresh registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		liveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redisbench_live_clients",
			Help: "Current number of connections registered with the readiness loop.",
		}),
		requestsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redisbench_requests_issued_total",
			Help: "Total pipelines started (write initiated).",
		}),
		requestsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redisbench_requests_finished_total",
			Help: "Total replies accepted into the latency array.",
		}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redisbench_requests_per_second",
			Help: "Most recently reported throughput (requests finished / wall-clock seconds elapsed).",
		}),
		latencyUs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "redisbench_request_latency_microseconds",
			Help:    "Per-pipeline latency samples in microseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
		}),
	}

	reg.MustRegister(r.liveClients, r.requestsIssued, r.requestsFinished, r.throughput, r.latencyUs)
	return r
}

// Snapshot is the minimal set of counters the reporter publishes each
// tick; internal/bench fills this from RunState without this package
// needing to import it back.
type Snapshot struct {
	LiveClients      int
	RequestsIssued   int
	RequestsFinished int
	ThroughputRps    float64
}

// Observe updates the live-client and throughput gauges from a RunState
// snapshot. The issued/finished counters are not touched here (they move
// through IncIssued/IncFinished), so snap.RequestsIssued and
// snap.RequestsFinished are not read.
func (r *Registry) Observe(snap Snapshot) {
	r.liveClients.Set(float64(snap.LiveClients))
	r.throughput.Set(snap.ThroughputRps)
}

// ObserveLatency feeds one per-pipeline latency sample (microseconds)
// into the histogram as it's recorded.
func (r *Registry) ObserveLatency(us int64) {
	r.latencyUs.Observe(float64(us))
}

// IncIssued/IncFinished track the monotonic counters directly, since
// Prometheus counters can't be Set().
func (r *Registry) IncIssued()   { r.requestsIssued.Inc() }
func (r *Registry) IncFinished() { r.requestsFinished.Inc() }

// Serve starts an HTTP server exposing /metrics on addr in the
// background. Call Shutdown to stop it.
func (r *Registry) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
	r.server = &http.Server{Addr: addr, Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() { _ = r.server.Serve(ln) }()
	return nil
}

// Shutdown stops the metrics server, waiting up to 5 seconds.
func (r *Registry) Shutdown() {
	if r.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = r.server.Shutdown(ctx)
}
