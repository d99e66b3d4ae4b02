// Package bench orchestrates one benchmark: it builds the seed client,
// clones it to fill the connection pool, drives the readiness loop until
// the request budget is satisfied, and reports throughput and latency
// distribution. It implements client.Owner so internal/client never needs
// to import this package back.
package bench

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/adred-codev/redisbench/internal/client"
	"github.com/adred-codev/redisbench/internal/config"
	"github.com/adred-codev/redisbench/internal/evloop"
	"github.com/adred-codev/redisbench/internal/obslog"
	"github.com/adred-codev/redisbench/internal/obsmetrics"
)

// Runner drives exactly one benchmark at a time; Run resets its state at
// the start of each call, so the same Runner can be reused across the
// built-in test catalog or a -l loop. Each call opens a fresh readiness
// loop: the loop's stop channel is single-use, so back-to-back benchmarks
// in the default suite or under -l each get their own.
type Runner struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *obsmetrics.Registry

	loop  *evloop.Loop
	state *RunState

	// spawnLimiter paces replacement-client creation so the listen
	// backlog is never overrun: a token bucket sized to roughly 64
	// connects per 50ms.
	spawnLimiter *rate.Limiter

	lastErrUnix int64
}

func nowUs() int64 { return time.Now().UnixNano() / 1000 }
func nowMs() int64 { return time.Now().UnixNano() / 1e6 }

// NewRunner builds a Runner for the lifetime of a process run (possibly
// many benchmarks in sequence, or a -l loop of the whole suite).
func NewRunner(cfg *config.Config, logger zerolog.Logger, metrics *obsmetrics.Registry) *Runner {
	return &Runner{
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
		spawnLimiter: rate.NewLimiter(rate.Limit(64/0.05), 64),
	}
}

// Run executes one complete benchmark titled title against cmd (a fully
// formed RESP frame, repeated P times per pipeline per client).
func (r *Runner) Run(title string, cmd []byte) error {
	loop, err := evloop.New()
	if err != nil {
		return fmt.Errorf("create readiness loop: %w", err)
	}
	r.loop = loop
	defer r.loop.Close()

	r.state = newRunState(title, r.cfg.Requests)

	seed, err := client.New(r.cfg, r, r.loop, cmd)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", endpoint(r.cfg), err)
	}
	r.addClient(seed)
	r.fillPool(seed, r.cfg.NumClients)

	r.state.StartMs = nowMs()
	r.startReporter()

	if err := r.loop.Run(); err != nil {
		return err
	}
	r.state.TotalLatencyMs = nowMs() - r.state.StartMs

	if !r.cfg.IdleMode {
		r.report()
	}
	r.freeAllClients()
	return nil
}

func endpoint(cfg *config.Config) string {
	if cfg.HostSocket != "" {
		return cfg.HostSocket
	}
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

func (r *Runner) addClient(c *client.Client) {
	r.state.Clients[c] = struct{}{}
	r.state.LiveClients++
}

// fillPool clones from until LiveClients reaches target, pacing spawns
// through spawnLimiter instead of bursting the whole pool at once.
func (r *Runner) fillPool(from *client.Client, target int) {
	for r.state.LiveClients < target {
		if err := r.spawnLimiter.Wait(context.Background()); err != nil {
			r.Fatal(err)
			return
		}
		nc, err := client.Clone(r.cfg, r, r.loop, from)
		if err != nil {
			r.Fatal(fmt.Errorf("spawn replacement: %w", err))
			return
		}
		r.addClient(nc)
	}
}

func (r *Runner) startReporter() {
	r.loop.CreateTimeEvent(250*time.Millisecond, func(l *evloop.Loop) time.Duration {
		r.tick()
		return 250 * time.Millisecond
	})
}

func (r *Runner) tick() {
	if r.state.LiveClients == 0 && r.state.RequestsFinished < r.cfg.Requests {
		r.Fatal(fmt.Errorf("no live clients remain with %d/%d requests finished",
			r.state.RequestsFinished, r.cfg.Requests))
		return
	}

	if r.metrics != nil {
		r.publishMetrics()
	}

	if r.cfg.CSV || r.cfg.Quiet {
		return
	}
	if r.cfg.IdleMode {
		fmt.Printf("\rclients: %d", r.state.LiveClients)
		return
	}

	elapsedS := float64(nowMs()-r.state.StartMs) / 1000.0
	if elapsedS <= 0 {
		elapsedS = 0.001
	}
	rps := float64(r.state.RequestsFinished) / elapsedS
	fmt.Printf("\r%s: %.2f", r.state.Title, rps)
}

func (r *Runner) publishMetrics() {
	elapsedS := float64(nowMs()-r.state.StartMs) / 1000.0
	if elapsedS <= 0 {
		elapsedS = 0.001
	}
	r.metrics.Observe(obsmetrics.Snapshot{
		LiveClients:      r.state.LiveClients,
		RequestsIssued:   r.state.RequestsIssued,
		RequestsFinished: r.state.RequestsFinished,
		ThroughputRps:    float64(r.state.RequestsFinished) / elapsedS,
	})
}

// report sorts the latency array, emits cumulative percentile lines, and
// prints throughput computed from the summed per-request latency, not
// wall-clock elapsed time, so setup cost between pipelines is excluded.
func (r *Runner) report() {
	n := r.cfg.Requests
	lat := append([]int64(nil), r.state.Latency[:n]...)
	sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })

	thresholdUs := r.cfg.MaxLatencyMs * 1000
	var totalUs int64
	var beyond int
	var lines []string
	curLatMs := int64(-1)
	for i, us := range lat {
		totalUs += us
		if us > thresholdUs {
			beyond++
		}
		ms := us / 1000
		if ms != curLatMs || i == n-1 {
			curLatMs = ms
			perc := float64(i+1) * 100 / float64(n)
			lines = append(lines, fmt.Sprintf("%.2f%% <= %d milliseconds", perc, ms))
		}
	}

	rps := float64(n) / (float64(totalUs) / 1e6)

	if r.cfg.CSV {
		fmt.Printf("%q,%q\n", r.state.Title, fmt.Sprintf("%.2f", rps))
		return
	}
	if r.cfg.Quiet {
		fmt.Printf("%s: %.2f requests per second\n", r.state.Title, rps)
		return
	}

	fmt.Printf("====== %s ======\n", r.state.Title)
	for _, line := range lines {
		fmt.Println(line)
	}
	fmt.Printf("%d requests latency > %d milliseconds\n", beyond, r.cfg.MaxLatencyMs)
	fmt.Println()
	fmt.Printf("  %d parallel clients\n", r.cfg.NumClients)
	fmt.Printf("  %d bytes payload\n", r.cfg.Datasize)
	fmt.Printf("  keep alive: %v\n", r.cfg.KeepAlive)
	fmt.Printf("  %d requests completed in %.2f seconds\n", n, float64(totalUs)/1e6)
	fmt.Printf("  %.2f requests per second\n\n", rps)
}

func (r *Runner) freeAllClients() {
	for c := range r.state.Clients {
		c.Destroy()
	}
}

// --- client.Owner ---

// BeginRequest implements client.Owner.
func (r *Runner) BeginRequest() bool {
	if r.state.RequestsIssued >= r.cfg.Requests {
		return false
	}
	r.state.RequestsIssued++
	if r.metrics != nil {
		r.metrics.IncIssued()
	}
	return true
}

// RecordLatency implements client.Owner.
func (r *Runner) RecordLatency(latencyUs int64) {
	if r.state.RequestsFinished >= r.cfg.Requests {
		return
	}
	r.state.Latency[r.state.RequestsFinished] = latencyUs
	r.state.RequestsFinished++
	if r.metrics != nil {
		r.metrics.IncFinished()
		r.metrics.ObserveLatency(latencyUs)
	}
}

// ReportServerError implements client.Owner: non-fatal and rate-limited
// to one line per second when -e is set, fatal otherwise.
func (r *Runner) ReportServerError(msg string) {
	if !r.cfg.ShowErrors {
		r.Fatal(fmt.Errorf("unexpected error reply: %s", msg))
		return
	}
	now := time.Now().Unix()
	if now != r.lastErrUnix {
		r.lastErrUnix = now
		fmt.Printf("Error from server: %s\n", msg)
	}
}

// Retire implements client.Owner: the lifecycle controller for a client
// whose pipeline just completed. With keep-alive off, replacements are
// spawned strictly before the finished client is destroyed, keeping
// LiveClients accurate throughout.
func (r *Runner) Retire(c *client.Client) {
	if r.state.RequestsFinished == r.cfg.Requests {
		c.Destroy()
		r.loop.Stop()
		return
	}
	if r.cfg.KeepAlive {
		c.Reset()
		return
	}
	r.fillPool(c, r.cfg.NumClients+1)
	c.Destroy()
}

// ClientGone implements client.Owner.
func (r *Runner) ClientGone(c *client.Client) {
	delete(r.state.Clients, c)
	r.state.LiveClients--
}

// Fatal implements client.Owner: log, print to stderr, and exit 1. There
// is no retry at the tool level; the operator reruns.
func (r *Runner) Fatal(err error) {
	obslog.LogErrorWithStack(r.logger, err, "fatal error")
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
