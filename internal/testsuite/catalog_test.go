package testsuite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adred-codev/redisbench/internal/config"
	"github.com/adred-codev/redisbench/internal/resp"
)

func TestCatalogCoversSpecNames(t *testing.T) {
	want := []string{
		"PING_INLINE", "PING_BULK", "SET", "GET", "INCR", "DECR", "INCRBY",
		"LPUSH", "RPUSH", "LPOP", "RPOP", "SADD", "ZADD", "ZRANGE",
		"ZRANGEBYSCORE", "ZRANK", "HSET", "HGET", "HKEYS", "HMSET", "HMGET",
		"HINCRBY", "SPOP",
	}
	cfg, err := config.Load(nil)
	require.NoError(t, err)

	got := map[string]bool{}
	for _, e := range Catalog() {
		got[e.Title] = true
		require.NotNil(t, e.Build(cfg, []byte("x")))
	}
	for _, title := range want {
		require.True(t, got[title], "catalog missing %s", title)
	}
}

func TestLRangeVariantsSelectableIndividually(t *testing.T) {
	cfg, err := config.Load([]string{"-t", "lrange_300"})
	require.NoError(t, err)
	require.True(t, LPushSeedFor(cfg))

	var titles []string
	for _, e := range Catalog() {
		if e.Selected(cfg) {
			titles = append(titles, e.Title)
		}
	}
	require.Equal(t, []string{"LRANGE_300 (first 300 elements)"}, titles)
}

func TestEmptyFilterSelectsEverything(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)
	for _, e := range Catalog() {
		require.True(t, e.Selected(cfg))
	}
}

func TestPingInlineIsRawNotRESP(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)
	for _, e := range Catalog() {
		if e.Title == "PING_INLINE" {
			require.Equal(t, []byte("PING\r\n"), e.Build(cfg, nil))
			return
		}
	}
	t.Fatal("PING_INLINE not found")
}

func TestRandomKeysReserveFillerWindowUniformly(t *testing.T) {
	cfg, err := config.Load([]string{"-r", "12", "-t", "get"})
	require.NoError(t, err)

	for _, e := range Catalog() {
		if e.Title != "GET" {
			continue
		}
		frame := e.Build(cfg, nil)
		p := resp.Parser{}
		p.Feed(frame)
		reply, ok, err := p.Next()
		require.NoError(t, err)
		require.True(t, ok, "GET frame with random keys enabled must still parse as one complete RESP frame")
		require.Len(t, reply.Array[1].Bulk, len("key:")+len(cfg.KeyPrefix)+cfg.RandomKeysLen)
	}
}

func TestMsetBuildsTenKeyValuePairs(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)
	for _, e := range Catalog() {
		if e.Title != "MSET (10 keys)" {
			continue
		}
		frame := e.Build(cfg, []byte("x"))
		p := resp.Parser{}
		p.Feed(frame)
		reply, ok, err := p.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, resp.KindArray, reply.Kind)
		require.Len(t, reply.Array, 21) // MSET + 10 key/value pairs
		return
	}
	t.Fatal("MSET (10 keys) not found")
}
