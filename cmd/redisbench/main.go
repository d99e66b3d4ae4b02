// Command redisbench is a load-generating benchmark client for RESP
// key-value servers: it drives many concurrent connections through a
// pipelined write/read cycle and reports throughput and latency
// distribution, mirroring the classic redis-benchmark tool's CLI and
// report format.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/adred-codev/redisbench/internal/bench"
	"github.com/adred-codev/redisbench/internal/config"
	"github.com/adred-codev/redisbench/internal/obslog"
	"github.com/adred-codev/redisbench/internal/obsmetrics"
	"github.com/adred-codev/redisbench/internal/resp"
	"github.com/adred-codev/redisbench/internal/selfstat"
	"github.com/adred-codev/redisbench/internal/testsuite"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := obslog.New(cfg)
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, a ...any) {
		logger.Debug().Msgf(format, a...)
	})); err != nil {
		logger.Warn().Err(err).Msg("automaxprocs: failed to set GOMAXPROCS")
	}
	cfg.LogConfig(logger)

	signal.Ignore(syscall.SIGHUP, syscall.SIGPIPE)

	var metrics *obsmetrics.Registry
	if cfg.MetricsAddr != "" {
		metrics = obsmetrics.NewRegistry()
		if err := metrics.Serve(cfg.MetricsAddr); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", fmt.Errorf("serve metrics on %s: %w", cfg.MetricsAddr, err))
			return 1
		}
		defer metrics.Shutdown()
	}

	if cfg.LogLevel == "debug" || cfg.ShowErrors {
		if mon, err := selfstat.NewMonitor(logger); err == nil {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go mon.Run(ctx, 5*time.Second)
		}
	}

	runner := bench.NewRunner(cfg, logger, metrics)

	if cfg.IdleMode {
		fmt.Printf("Creating %d idle connections and waiting forever (Ctrl+C when done)\n", cfg.NumClients)
		if err := runner.Run("idle", []byte{}); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return 1
		}
		return 0
	}

	if len(cfg.CommandTail) > 0 {
		return runCustomCommand(cfg, runner)
	}
	return runDefaultSuite(cfg, runner)
}

// runCustomCommand benchmarks the literal command template supplied after
// the flags, which replaces the built-in catalog.
func runCustomCommand(cfg *config.Config, runner *bench.Runner) int {
	title := strings.Join(cfg.CommandTail, " ")
	cmd := resp.FormatCommandArgv(cfg.CommandTail)
	for {
		if err := runner.Run(title, cmd); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return 1
		}
		if !cfg.Loop {
			return 0
		}
	}
}

// runDefaultSuite runs every catalog entry selected by -t, in catalog
// order, seeding mylist once per pass when any LRANGE variant is
// selected.
func runDefaultSuite(cfg *config.Config, runner *bench.Runner) int {
	payload := bytes.Repeat([]byte("x"), cfg.Datasize)
	catalog := testsuite.Catalog()

	for {
		if testsuite.LPushSeedFor(cfg) {
			seed := testsuite.LPushSeedEntry()
			if err := runner.Run(seed.Title, seed.Build(cfg, payload)); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				return 1
			}
		}
		for _, entry := range catalog {
			if !entry.Selected(cfg) {
				continue
			}
			if err := runner.Run(entry.Title, entry.Build(cfg, payload)); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				return 1
			}
		}
		if !cfg.CSV {
			fmt.Println()
		}
		if !cfg.Loop {
			return 0
		}
	}
}
