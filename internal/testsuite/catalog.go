// Package testsuite is the built-in command-template catalog: a table of
// title/selector/builder records the runner iterates uniformly, data
// instead of one function per test.
package testsuite

import (
	"strings"

	"github.com/adred-codev/redisbench/internal/config"
	"github.com/adred-codev/redisbench/internal/resp"
)

// Entry is one catalog test: a human-facing Title, a Selected predicate
// consulted against -t's filter, and a Build function producing the RESP
// frame (or, for PING_INLINE, the raw inline command) sent on every
// pipeline slot.
type Entry struct {
	Title    string
	Selected func(cfg *config.Config) bool
	Build    func(cfg *config.Config, payload []byte) []byte
}

func selector(names ...string) func(cfg *config.Config) bool {
	return func(cfg *config.Config) bool {
		for _, n := range names {
			if cfg.TestSelected(n) {
				return true
			}
		}
		return false
	}
}

// randKey appends a key-prefix occurrence to literal, followed by L filler
// bytes when random keys are enabled. Every key-bearing template routes
// through here so Client.Randomize always has a full L-byte window to
// overwrite in place; without the filler, randomization would spill past
// the key into the frame bytes that follow it.
func randKey(cfg *config.Config, literal string) string {
	s := literal + cfg.KeyPrefix
	if cfg.RandomKeys && cfg.RandomKeysLen > 0 {
		s += strings.Repeat("z", cfg.RandomKeysLen)
	}
	return s
}

// Catalog returns the built-in test table, covering the same default
// suite redis-benchmark runs.
func Catalog() []Entry {
	return []Entry{
		{
			Title:    "PING_INLINE",
			Selected: selector("ping_inline", "ping"),
			Build:    func(cfg *config.Config, _ []byte) []byte { return []byte("PING\r\n") },
		},
		{
			Title:    "PING_BULK",
			Selected: selector("ping_mbulk", "ping"),
			Build:    func(cfg *config.Config, _ []byte) []byte { return resp.FormatCommand("PING") },
		},
		{
			Title:    "SET",
			Selected: selector("set"),
			Build: func(cfg *config.Config, payload []byte) []byte {
				tmpl := "SET " + randKey(cfg, "key:") + " %s"
				return resp.FormatCommand(tmpl, payload)
			},
		},
		{
			Title:    "GET",
			Selected: selector("get"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("GET " + randKey(cfg, "key:"))
			},
		},
		{
			Title:    "INCR",
			Selected: selector("incr"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("INCR " + randKey(cfg, "counter:"))
			},
		},
		{
			Title:    "DECR",
			Selected: selector("decr"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("DECR " + randKey(cfg, "counter:"))
			},
		},
		{
			Title:    "INCRBY",
			Selected: selector("incrby"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				tmpl := "INCRBY " + randKey(cfg, "counter:") + " %d"
				return resp.FormatCommand(tmpl, cfg.IncValue)
			},
		},
		{
			Title:    "LPUSH",
			Selected: selector("lpush"),
			Build: func(cfg *config.Config, payload []byte) []byte {
				return resp.FormatCommand("LPUSH mylist %s", payload)
			},
		},
		{
			Title:    "RPUSH",
			Selected: selector("rpush"),
			Build: func(cfg *config.Config, payload []byte) []byte {
				return resp.FormatCommand("RPUSH mylist %s", payload)
			},
		},
		{
			Title:    "LPOP",
			Selected: selector("lpop"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("LPOP mylist")
			},
		},
		{
			Title:    "RPOP",
			Selected: selector("rpop"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("RPOP mylist")
			},
		},
		{
			Title:    "SADD",
			Selected: selector("sadd"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("SADD myset " + randKey(cfg, "element:"))
			},
		},
		{
			Title:    "ZADD",
			Selected: selector("zadd"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				var b strings.Builder
				b.WriteString("ZADD " + randKey(cfg, "myzset:"))
				args := make([]any, 0, cfg.SubKeys*2)
				for i := 0; i < cfg.SubKeys; i++ {
					b.WriteString(" %d element:__rand_field__%d")
					args = append(args, i, i)
				}
				return resp.FormatCommand(b.String(), args...)
			},
		},
		{
			Title:    "ZRANGE",
			Selected: selector("zrange"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("ZRANGE " + randKey(cfg, "myzset:") + " 0 -1 WITHSCORES")
			},
		},
		{
			Title:    "ZRANGEBYSCORE",
			Selected: selector("zrangebyscore"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				tmpl := "ZRANGEBYSCORE " + randKey(cfg, "myzset:") + " -inf +inf WITHSCORES LIMIT 0 %d"
				return resp.FormatCommand(tmpl, cfg.IncValue)
			},
		},
		{
			Title:    "ZRANK",
			Selected: selector("zrank"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("ZRANK " + randKey(cfg, "myzset:") + " element:__rand_field__0")
			},
		},
		{
			Title:    "HSET",
			Selected: selector("hset"),
			Build: func(cfg *config.Config, payload []byte) []byte {
				tmpl := "HSET " + randKey(cfg, "myset:") + " element:__rand_field__ %s"
				return resp.FormatCommand(tmpl, payload)
			},
		},
		{
			Title:    "HGET",
			Selected: selector("hget"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("HGET " + randKey(cfg, "myset:") + " element:__rand_field__")
			},
		},
		{
			Title:    "HKEYS",
			Selected: selector("hkeys"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("HKEYS " + randKey(cfg, "myset:"))
			},
		},
		{
			Title:    "HMSET",
			Selected: selector("hmset"),
			Build: func(cfg *config.Config, payload []byte) []byte {
				var b strings.Builder
				b.WriteString("HMSET " + randKey(cfg, "myset:"))
				args := make([]any, 0, cfg.SubKeys*2)
				for i := 0; i < cfg.SubKeys; i++ {
					b.WriteString(" element:__rand_field__%d %s")
					args = append(args, i, payload)
				}
				return resp.FormatCommand(b.String(), args...)
			},
		},
		{
			Title:    "HMGET",
			Selected: selector("hmget"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				var b strings.Builder
				b.WriteString("HMGET " + randKey(cfg, "myset:"))
				args := make([]any, 0, cfg.SubKeys)
				for i := 0; i < cfg.SubKeys; i++ {
					b.WriteString(" element:__rand_field__%d")
					args = append(args, i)
				}
				return resp.FormatCommand(b.String(), args...)
			},
		},
		{
			Title:    "HINCRBY",
			Selected: selector("hincrby"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				tmpl := "HINCRBY " + randKey(cfg, "myset:") + " element:__rand_field__ %d"
				return resp.FormatCommand(tmpl, cfg.IncValue)
			},
		},
		{
			Title:    "SPOP",
			Selected: selector("spop"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("SPOP myset")
			},
		},
		{
			Title:    "LRANGE_100 (first 100 elements)",
			Selected: selector("lrange", "lrange_100"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("LRANGE mylist 0 99")
			},
		},
		{
			Title:    "LRANGE_300 (first 300 elements)",
			Selected: selector("lrange", "lrange_300"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("LRANGE mylist 0 299")
			},
		},
		{
			Title:    "LRANGE_500 (first 450 elements)",
			Selected: selector("lrange", "lrange_500"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("LRANGE mylist 0 449")
			},
		},
		{
			Title:    "LRANGE_600 (first 600 elements)",
			Selected: selector("lrange", "lrange_600"),
			Build: func(cfg *config.Config, _ []byte) []byte {
				return resp.FormatCommand("LRANGE mylist 0 599")
			},
		},
		{
			Title:    "MSET (10 keys)",
			Selected: selector("mset"),
			Build: func(cfg *config.Config, payload []byte) []byte {
				argv := make([]string, 0, 21)
				argv = append(argv, "MSET")
				for i := 0; i < 10; i++ {
					argv = append(argv, randKey(cfg, "key:"), string(payload))
				}
				return resp.FormatCommandArgv(argv)
			},
		},
	}
}

// LPushSeedFor reports whether any of the four LRANGE variants are
// selected, in which case the runner must seed mylist with an LPUSH
// benchmark first.
func LPushSeedFor(cfg *config.Config) bool {
	return selector("lrange", "lrange_100", "lrange_300", "lrange_500", "lrange_600")(cfg)
}

// LPushSeedEntry builds that seeding benchmark.
func LPushSeedEntry() Entry {
	return Entry{
		Title:    "LPUSH (needed to benchmark LRANGE)",
		Selected: func(cfg *config.Config) bool { return true },
		Build: func(cfg *config.Config, payload []byte) []byte {
			return resp.FormatCommand("LPUSH mylist %s", payload)
		},
	}
}
