// Package config assembles the benchmark's global run configuration: CLI
// flags are authoritative (per the tool's external interface), with
// environment-variable defaults layered underneath the same way the
// teacher's server config does it, so the binary is equally happy driven
// from a shell one-liner or from a container's environment.
package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is the immutable global run configuration. Once Load returns, no
// component mutates it; it is passed by pointer to every other package.
type Config struct {
	Host       string `env:"REDISBENCH_HOST" envDefault:"127.0.0.1"`
	Port       int    `env:"REDISBENCH_PORT" envDefault:"6379"`
	HostSocket string `env:"REDISBENCH_SOCKET" envDefault:""`

	NumClients int  `env:"REDISBENCH_CLIENTS" envDefault:"50"`
	Requests   int  `env:"REDISBENCH_REQUESTS" envDefault:"100000"`
	Datasize   int  `env:"REDISBENCH_DATASIZE" envDefault:"3"`
	KeepAlive  bool `env:"REDISBENCH_KEEPALIVE" envDefault:"true"`
	Pipeline   int  `env:"REDISBENCH_PIPELINE" envDefault:"1"`

	RandomKeys    bool
	RandomKeysLen int

	Quiet      bool `env:"REDISBENCH_QUIET" envDefault:"false"`
	CSV        bool `env:"REDISBENCH_CSV" envDefault:"false"`
	Loop       bool `env:"REDISBENCH_LOOP" envDefault:"false"`
	IdleMode   bool `env:"REDISBENCH_IDLE" envDefault:"false"`
	ShowErrors bool `env:"REDISBENCH_SHOW_ERRORS" envDefault:"false"`

	Tests        string `env:"REDISBENCH_TESTS" envDefault:""`
	MaxLatencyMs int64  `env:"REDISBENCH_MAX_LATENCY_MS" envDefault:"10"`
	IncValue     int    `env:"REDISBENCH_INC_VALUE" envDefault:"1"`

	DBNum    int `env:"REDISBENCH_DBNUM" envDefault:"0"`
	DBNumStr string

	KeyPrefix string `env:"REDISBENCH_KEY_PREFIX" envDefault:"__rand_int__"`
	SubKeys   int    `env:"REDISBENCH_SUBKEYS" envDefault:"10"`

	MetricsAddr string `env:"REDISBENCH_METRICS_ADDR" envDefault:""`
	LogLevel    string `env:"REDISBENCH_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"REDISBENCH_LOG_FORMAT" envDefault:"console"`

	// CommandTail is the literal custom command template supplied after
	// flags on the command line; the first non-flag token starts it and it
	// replaces the built-in test catalog. Empty means use the catalog.
	CommandTail []string
}

// Load builds a Config from environment defaults (optionally backed by a
// .env file) overridden by CLI flags in args (os.Args[1:] in production).
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Optional: a missing .env file is not an error.
		_ = err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment defaults: %w", err)
	}

	fs := flag.NewFlagSet("redisbench", flag.ContinueOnError)
	host := fs.String("h", cfg.Host, "server hostname")
	port := fs.Int("p", cfg.Port, "server port")
	sock := fs.String("s", cfg.HostSocket, "server unix socket path (overrides -h/-p)")
	clients := fs.Int("c", cfg.NumClients, "number of parallel connections")
	requests := fs.Int("n", cfg.Requests, "total number of requests")
	datasize := fs.Int("d", cfg.Datasize, "payload size in bytes")
	keepaliveDefault := 0
	if cfg.KeepAlive {
		keepaliveDefault = 1
	}
	keepalive := fs.Int("k", keepaliveDefault, "1 = keep alive, 0 = reconnect per pipeline")
	pipeline := fs.Int("P", cfg.Pipeline, "pipeline depth")
	randomLen := fs.Int("r", -1, "random keys keyspace length (enables key randomization)")
	quiet := fs.Bool("q", cfg.Quiet, "quiet: one line per benchmark")
	csv := fs.Bool("csv", cfg.CSV, "CSV output")
	loop := fs.Bool("l", cfg.Loop, "loop the test suite forever")
	idle := fs.Bool("I", cfg.IdleMode, "idle mode: open connections, issue no requests")
	showErrors := fs.Bool("e", cfg.ShowErrors, "show server error replies (rate-limited)")
	tests := fs.String("t", cfg.Tests, "comma-separated list of enabled tests")
	maxLatency := fs.Int64("m", cfg.MaxLatencyMs, "max-latency threshold in milliseconds")
	incValue := fs.Int("v", cfg.IncValue, "INCRBY/HINCRBY increment value")
	dbnum := fs.Int("dbnum", cfg.DBNum, "SELECT this DB index at connect time")
	keyPrefix := fs.String("kp", cfg.KeyPrefix, "custom key-prefix token")
	subKeys := fs.Int("sk", cfg.SubKeys, "subkey count for multi-field tests")
	metricsAddr := fs.String("metrics-addr", cfg.MetricsAddr, "host:port to serve Prometheus metrics on (empty disables)")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	logFormat := fs.String("log-format", cfg.LogFormat, "log format: json|console")
	help := fs.Bool("help", false, "print usage and exit")

	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: redisbench [flags] [-- custom command template]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *help {
		fs.Usage()
		return nil, flag.ErrHelp
	}

	cfg.Host = *host
	cfg.Port = *port
	cfg.HostSocket = *sock
	cfg.NumClients = *clients
	cfg.Requests = *requests
	cfg.Datasize = *datasize
	cfg.KeepAlive = *keepalive != 0
	cfg.Pipeline = *pipeline
	cfg.Quiet = *quiet
	cfg.CSV = *csv
	cfg.Loop = *loop
	cfg.IdleMode = *idle
	cfg.ShowErrors = *showErrors
	cfg.Tests = *tests
	cfg.MaxLatencyMs = *maxLatency
	cfg.IncValue = *incValue
	cfg.DBNum = *dbnum
	cfg.KeyPrefix = *keyPrefix
	cfg.SubKeys = *subKeys
	cfg.MetricsAddr = *metricsAddr
	cfg.LogLevel = *logLevel
	cfg.LogFormat = *logFormat
	cfg.CommandTail = fs.Args()

	if *randomLen < 0 {
		cfg.RandomKeys = false
		cfg.RandomKeysLen = 0
	} else {
		cfg.RandomKeys = true
		cfg.RandomKeysLen = *randomLen
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize clamps and coerces values into their usable ranges.
func (c *Config) normalize() {
	if c.Pipeline < 1 {
		c.Pipeline = 1
	}
	if c.Datasize < 1 {
		c.Datasize = 1
	}
	const maxDatasize = 1 << 30
	if c.Datasize > maxDatasize {
		c.Datasize = maxDatasize
	}
	if c.RandomKeysLen < 0 {
		c.RandomKeysLen = 0
	}
	if c.SubKeys < 1 {
		c.SubKeys = 10
	}
	c.DBNumStr = strconv.Itoa(c.DBNum)
}

// Validate rejects configurations that cannot produce a meaningful run.
func (c *Config) Validate() error {
	if c.HostSocket == "" && c.Host == "" {
		return fmt.Errorf("usage: either -h or -s must name a target")
	}
	if c.NumClients < 1 {
		return fmt.Errorf("usage: -c must be >= 1, got %d", c.NumClients)
	}
	if c.Requests < 1 {
		return fmt.Errorf("usage: -n must be >= 1, got %d", c.Requests)
	}
	if c.KeyPrefix == "" {
		return fmt.Errorf("usage: --kp key-prefix must not be empty")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("usage: --log-level must be one of debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("usage: --log-format must be one of json, console")
	}
	return nil
}

// TestSelected reports whether name passes the -t filter: an empty filter
// selects everything, otherwise name must appear as a whole
// comma-separated token in Tests.
func (c *Config) TestSelected(name string) bool {
	if c.Tests == "" {
		return true
	}
	needle := "," + strings.ToLower(name) + ","
	haystack := "," + strings.ToLower(c.Tests) + ","
	return strings.Contains(haystack, needle)
}

// Print renders the configuration for human eyes on stdout, the same
// shape as the benchmark's own report output.
func (c *Config) Print() {
	fmt.Println("=== redisbench configuration ===")
	if c.HostSocket != "" {
		fmt.Printf("Target:          socket %s\n", c.HostSocket)
	} else {
		fmt.Printf("Target:          %s:%d\n", c.Host, c.Port)
	}
	fmt.Printf("Clients:         %d\n", c.NumClients)
	fmt.Printf("Requests:        %d\n", c.Requests)
	fmt.Printf("Pipeline:        %d\n", c.Pipeline)
	fmt.Printf("Payload bytes:   %d\n", c.Datasize)
	fmt.Printf("Keep-alive:      %v\n", c.KeepAlive)
	fmt.Printf("Random keys:     %v (keyspace %d)\n", c.RandomKeys, c.RandomKeysLen)
	fmt.Println("=================================")
}

// LogConfig emits the same information as a structured log line.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("host", c.Host).
		Int("port", c.Port).
		Str("socket", c.HostSocket).
		Int("clients", c.NumClients).
		Int("requests", c.Requests).
		Int("pipeline", c.Pipeline).
		Int("datasize", c.Datasize).
		Bool("keepalive", c.KeepAlive).
		Bool("random_keys", c.RandomKeys).
		Int("random_keyspace", c.RandomKeysLen).
		Str("metrics_addr", c.MetricsAddr).
		Msg("configuration loaded")
}
