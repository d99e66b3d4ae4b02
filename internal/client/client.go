// Package client implements one benchmark connection: the write path that
// floods a prepared pipeline of commands, the read path that drains
// replies and times them, and the lifecycle transitions between the two.
package client

import (
	"bytes"
	"math/rand"
	"time"

	"golang.org/x/sys/unix"

	"github.com/adred-codev/redisbench/internal/config"
	"github.com/adred-codev/redisbench/internal/evloop"
	"github.com/adred-codev/redisbench/internal/resp"
)

// randomAlphabet is the character set randomized key bytes are drawn from.
const randomAlphabet = "0123456789!@#$%^&*ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Owner is the runner-side hook surface a Client calls into. It exists so
// this package never imports the runner package that owns shared state.
type Owner interface {
	// BeginRequest claims one unit of the global request budget. ok is
	// false once the budget is already exhausted, in which case the
	// caller must destroy itself without writing.
	BeginRequest() (ok bool)
	// RecordLatency appends one latency sample for a completed, non-prefix
	// reply. It is a no-op past the budget (more clients can finish their
	// pipeline than there is budget left to record).
	RecordLatency(latencyUs int64)
	// ReportServerError surfaces an error reply. The owner decides whether
	// it is fatal and rate-limits printed lines to at most one per
	// wall-clock second.
	ReportServerError(msg string)
	// Retire runs the lifecycle controller for a client whose pipeline
	// just completed (pending == 0).
	Retire(c *Client)
	// ClientGone is called from every Destroy: when Retire or the owner's
	// final cleanup destroys the client, and when the client tears itself
	// down (connect failure, fatal I/O, budget exhausted before a write
	// began).
	ClientGone(c *Client)
	// Fatal reports an unrecoverable error. The runner's implementation
	// exits the process and does not return; callers still destroy c
	// after it for owners that do return.
	Fatal(err error)
}

// Client is one live benchmark connection: a prepared output buffer sent
// as a pipeline of P commands, a set of byte offsets inside that buffer
// marking where key randomization happens, and the bookkeeping needed to
// time one pipeline round-trip.
type Client struct {
	cfg   *config.Config
	owner Owner
	loop  *evloop.Loop
	rng   *rand.Rand

	fd        int
	connected bool

	obuf      []byte
	randptr   []int
	prefixLen int

	written       int
	pending       int
	prefixPending int

	startUs   int64
	latencyUs int64

	parser resp.Parser
	rbuf   []byte
}

func nowUs() int64 { return time.Now().UnixNano() / 1000 }

// New creates a seed client: it dials a fresh connection, builds obuf
// from an optional SELECT prefix followed by P copies of cmd, and scans
// obuf for key-prefix occurrences when random keys are enabled.
func New(cfg *config.Config, owner Owner, loop *evloop.Loop, cmd []byte) (*Client, error) {
	fd, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{
		cfg:   cfg,
		owner: owner,
		loop:  loop,
		fd:    fd,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(fd))),
		rbuf:  make([]byte, 16384),
	}

	var buf []byte
	if cfg.DBNum != 0 {
		buf = resp.FormatCommandArgv([]string{"SELECT", cfg.DBNumStr})
		c.prefixPending = 1
	}
	c.prefixLen = len(buf)
	for i := 0; i < cfg.Pipeline; i++ {
		buf = append(buf, cmd...)
	}
	c.obuf = buf
	c.pending = cfg.Pipeline + c.prefixPending

	if cfg.RandomKeys {
		c.randptr = scanRandptr(c.obuf, cfg.KeyPrefix, cfg.RandomKeysLen)
	}

	c.register()
	return c, nil
}

// Clone creates a replacement client sharing from's command bytes and
// translating its randomization offsets to account for a (possibly
// different) prefix length.
func Clone(cfg *config.Config, owner Owner, loop *evloop.Loop, from *Client) (*Client, error) {
	fd, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{
		cfg:   cfg,
		owner: owner,
		loop:  loop,
		fd:    fd,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(fd))),
		rbuf:  make([]byte, 16384),
	}

	var buf []byte
	if cfg.DBNum != 0 {
		buf = resp.FormatCommandArgv([]string{"SELECT", cfg.DBNumStr})
		c.prefixPending = 1
	}
	c.prefixLen = len(buf)
	buf = append(buf, from.obuf[from.prefixLen:]...)
	c.obuf = buf
	c.pending = cfg.Pipeline + c.prefixPending

	if len(from.randptr) > 0 {
		delta := c.prefixLen - from.prefixLen
		c.randptr = make([]int, len(from.randptr))
		for i, off := range from.randptr {
			c.randptr[i] = off + delta
		}
	}

	c.register()
	return c, nil
}

func (c *Client) register() {
	if c.cfg.IdleMode {
		return
	}
	_ = c.loop.CreateFileEvent(c.fd, evloop.Writable, func(l *evloop.Loop, fd int, mask evloop.Mask) {
		c.onWritable(l, fd, mask)
	})
}

// scanRandptr finds every occurrence of prefix in buf and records the
// start offset of the match; it then skips forward past the match and
// its L-byte randomization window before resuming the search, so
// adjacent occurrences are never double-counted.
func scanRandptr(buf []byte, prefix string, l int) []int {
	if prefix == "" {
		return nil
	}
	var offsets []int
	pos := 0
	step := len(prefix) + l
	for {
		idx := bytes.Index(buf[pos:], []byte(prefix))
		if idx < 0 {
			break
		}
		off := pos + idx
		offsets = append(offsets, off)
		pos = off + step
		if pos > len(buf) {
			break
		}
	}
	return offsets
}

// Randomize overwrites the L-byte window following each recorded
// key-prefix occurrence with fresh random characters.
func (c *Client) Randomize() {
	l := c.cfg.RandomKeysLen
	if l == 0 {
		return
	}
	prefixLen := len(c.cfg.KeyPrefix)
	for _, off := range c.randptr {
		start := off + prefixLen
		end := start + l
		if end > len(c.obuf) {
			continue
		}
		window := c.obuf[start:end]
		for i := range window {
			window[i] = randomAlphabet[c.rng.Intn(len(randomAlphabet))]
		}
	}
}

// Reset prepares a keep-alive client for its next pipeline.
func (c *Client) Reset() {
	c.loop.DeleteFileEvent(c.fd, evloop.Readable)
	c.loop.DeleteFileEvent(c.fd, evloop.Writable)
	_ = c.loop.CreateFileEvent(c.fd, evloop.Writable, func(l *evloop.Loop, fd int, mask evloop.Mask) {
		c.onWritable(l, fd, mask)
	})
	c.written = 0
	c.pending = c.cfg.Pipeline
}

// Destroy deregisters and closes the connection, then notifies the owner.
func (c *Client) Destroy() {
	c.loop.DeleteFileEvent(c.fd, evloop.Readable)
	c.loop.DeleteFileEvent(c.fd, evloop.Writable)
	_ = unix.Close(c.fd)
	c.owner.ClientGone(c)
}

