package client

import (
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adred-codev/redisbench/internal/config"
	"github.com/adred-codev/redisbench/internal/evloop"
	"github.com/adred-codev/redisbench/internal/resp"
)

// randGetCmd builds a GET command reserving a 12-byte randomization window
// after the key-prefix token, the same filler reservation
// internal/testsuite's randKey() applies to every key-bearing template.
func randGetCmd() []byte {
	return resp.FormatCommand("GET key:__rand_int__xxxxxxxxxxxx")
}

// testConfig builds a minimal Config pointed at a bare TCP listener, enough
// for dial() to succeed without speaking any protocol.
func testConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() { _ = c }() // accept and hold; the test never closes it
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	cfg, err := config.Load([]string{"-h", host, "-p", port})
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

type noopOwner struct{}

func (noopOwner) BeginRequest() bool            { return true }
func (noopOwner) RecordLatency(int64)           {}
func (noopOwner) ReportServerError(string)      {}
func (noopOwner) Retire(*Client)                {}
func (noopOwner) ClientGone(*Client)            {}
func (noopOwner) Fatal(error)                   {}

// TestScanRandptrFindsEveryNonOverlappingOccurrence exercises the property
// that each recorded offset points at a distinct key-prefix occurrence, and
// that the scan steps past the prefix and its randomization window so
// adjacent occurrences are never double-counted.
func TestScanRandptrFindsEveryNonOverlappingOccurrence(t *testing.T) {
	buf := []byte("SET key:__rand_int__xxxxxxxxxxxx %s\r\nGET key:__rand_int__xxxxxxxxxxxx\r\n")
	offsets := scanRandptr(buf, "__rand_int__", 12)
	require.Len(t, offsets, 2)
	for _, off := range offsets {
		require.Equal(t, "__rand_int__", string(buf[off:off+len("__rand_int__")]))
	}
}

func TestScanRandptrEmptyPrefixYieldsNoOffsets(t *testing.T) {
	require.Nil(t, scanRandptr([]byte("anything"), "", 12))
}

// TestRandomizeOverwritesExactlyLBytes checks that the randomization
// window is exactly L bytes at each recorded offset, nothing outside it
// changes, and the buffer length is stable across calls.
func TestRandomizeOverwritesExactlyLBytes(t *testing.T) {
	prefix := "__rand_int__"
	before := []byte("SET key:" + prefix + "000000000000 %s")
	obuf := append([]byte(nil), before...)

	cfg := &config.Config{KeyPrefix: prefix, RandomKeysLen: 12}
	c := &Client{
		cfg:     cfg,
		obuf:    obuf,
		randptr: scanRandptr(obuf, prefix, 12),
		rng:     rand.New(rand.NewSource(1)),
	}
	require.Len(t, c.randptr, 1)

	origLen := len(c.obuf)
	c.Randomize()

	require.Equal(t, origLen, len(c.obuf), "buffer length must not change across randomization")

	off := c.randptr[0]
	prefixEnd := off + len(prefix)
	// Bytes up to and including the prefix occurrence are untouched.
	require.Equal(t, before[:prefixEnd], c.obuf[:prefixEnd])
	// Bytes after the L-byte window are untouched.
	require.Equal(t, before[prefixEnd+12:], c.obuf[prefixEnd+12:])
	// The window itself changed (overwhelmingly likely with a 70-char alphabet).
	require.NotEqual(t, before[prefixEnd:prefixEnd+12], c.obuf[prefixEnd:prefixEnd+12])
	for _, b := range c.obuf[prefixEnd : prefixEnd+12] {
		require.Contains(t, randomAlphabet, string(b))
	}
}

func TestRandomizeNoopWhenWindowIsZero(t *testing.T) {
	cfg := &config.Config{KeyPrefix: "__rand_int__", RandomKeysLen: 0}
	obuf := []byte("GET key:__rand_int__")
	c := &Client{
		cfg:     cfg,
		obuf:    append([]byte(nil), obuf...),
		randptr: []int{8},
		rng:     rand.New(rand.NewSource(1)),
	}
	c.Randomize()
	require.Equal(t, obuf, c.obuf)
}

// TestCloneTranslatesRandptrOffsets checks that the bytes at the seed's
// and the clone's key-prefix offsets match, even though the
// clone's prefix length (its own SELECT, if any) may differ from the
// seed's.
func TestCloneTranslatesRandptrOffsets(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.DBNum = 0
		c.Pipeline = 2
		c.RandomKeys = true
		c.RandomKeysLen = 12
	})
	loop, err := evloop.New()
	require.NoError(t, err)
	defer loop.Close()

	cmd := randGetCmd()
	seed, err := New(cfg, noopOwner{}, loop, cmd)
	require.NoError(t, err)
	defer seed.Destroy()

	clone, err := Clone(cfg, noopOwner{}, loop, seed)
	require.NoError(t, err)
	defer clone.Destroy()

	require.Equal(t, len(seed.randptr), len(clone.randptr))
	const prefixLen = len("__rand_int__")
	for i := range seed.randptr {
		so, co := seed.randptr[i], clone.randptr[i]
		require.Equal(t,
			string(seed.obuf[so:so+prefixLen]),
			string(clone.obuf[co:co+prefixLen]),
		)
	}
}

// TestCloneAccountsForDifferentPrefixLengths covers offset translation
// when both seed and clone carry the same nonzero SELECT prefix, and when
// the seed's prefix has already been excised (prefixLen 0) while the
// clone still carries its own.
func TestCloneAccountsForDifferentPrefixLengths(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.DBNum = 3
		c.DBNumStr = "3"
		c.Pipeline = 1
		c.RandomKeys = true
		c.RandomKeysLen = 12
	})
	loop, err := evloop.New()
	require.NoError(t, err)
	defer loop.Close()

	cmd := randGetCmd()
	seed, err := New(cfg, noopOwner{}, loop, cmd)
	require.NoError(t, err)
	defer seed.Destroy()
	require.Equal(t, 1, seed.prefixPending)
	require.Greater(t, seed.prefixLen, 0)

	clone, err := Clone(cfg, noopOwner{}, loop, seed)
	require.NoError(t, err)
	defer clone.Destroy()
	require.Equal(t, seed.prefixLen, clone.prefixLen)

	const prefixLen = len("__rand_int__")
	for i := range seed.randptr {
		so, co := seed.randptr[i], clone.randptr[i]
		require.Equal(t,
			string(seed.obuf[so:so+prefixLen]),
			string(clone.obuf[co:co+prefixLen]),
		)
	}

	// Excise the seed's prefix the way onReadable does, then clone again.
	seed.obuf = append([]byte(nil), seed.obuf[seed.prefixLen:]...)
	for i := range seed.randptr {
		seed.randptr[i] -= seed.prefixLen
	}
	seed.prefixLen = 0

	clone2, err := Clone(cfg, noopOwner{}, loop, seed)
	require.NoError(t, err)
	defer clone2.Destroy()
	require.Greater(t, clone2.prefixLen, seed.prefixLen)
	require.Equal(t, len(seed.randptr), len(clone2.randptr))
	for i := range seed.randptr {
		so, co := seed.randptr[i], clone2.randptr[i]
		require.Equal(t,
			string(seed.obuf[so:so+prefixLen]),
			string(clone2.obuf[co:co+prefixLen]),
		)
	}
}

// TestPrefixExcisionShrinksBufferAndShiftsOffsets runs end-to-end over a
// real loopback connection that answers the
// SELECT with a status reply and nothing else: once the prefix reply is
// drained, obuf must shrink by the prefix length, prefixLen must reset to
// zero, and every randptr offset must keep pointing at the same key-prefix
// bytes.
func TestPrefixExcisionShrinksBufferAndShiftsOffsets(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// Reply +OK to the SELECT prefix, then never answer the GET so the
		// test can inspect post-excision state before pending reaches 0.
		buf := make([]byte, 4096)
		n, err := conn.Read(buf)
		if err != nil || n == 0 {
			return
		}
		_, _ = conn.Write([]byte("+OK\r\n"))
		time.Sleep(300 * time.Millisecond)
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	cfg, err := config.Load([]string{"-h", host, "-p", port, "--dbnum", "3", "-r", "12"})
	require.NoError(t, err)

	loop, err := evloop.New()
	require.NoError(t, err)
	defer loop.Close()

	cmd := randGetCmd()
	c, err := New(cfg, noopOwner{}, loop, cmd)
	require.NoError(t, err)
	defer c.Destroy()

	beforePrefixLen := c.prefixLen
	require.Greater(t, beforePrefixLen, 0)
	beforeLen := len(c.obuf)
	beforeBytesAtOffsets := make([]string, len(c.randptr))
	for i, off := range c.randptr {
		beforeBytesAtOffsets[i] = string(c.obuf[off : off+len(cfg.KeyPrefix)])
	}

	loop.CreateTimeEvent(150*time.Millisecond, func(l *evloop.Loop) time.Duration {
		l.Stop()
		return -1
	})
	require.NoError(t, loop.Run())

	require.Equal(t, beforeLen-beforePrefixLen, len(c.obuf))
	require.Equal(t, 0, c.prefixLen)
	require.Equal(t, 0, c.prefixPending)
	for i, off := range c.randptr {
		require.Equal(t, beforeBytesAtOffsets[i], string(c.obuf[off:off+len(cfg.KeyPrefix)]))
	}
}
