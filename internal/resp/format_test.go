package resp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatCommandArgv(t *testing.T) {
	frame := FormatCommandArgv([]string{"SET", "foo", "bar"})
	require.Equal(t, "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n", string(frame))
}

func TestFormatCommandSubstitution(t *testing.T) {
	frame := FormatCommand("SET key:__rand_int__ %s", "xxx")
	require.Equal(t, "*3\r\n$3\r\nSET\r\n$16\r\nkey:__rand_int__\r\n$3\r\nxxx\r\n", string(frame))
}

func TestFormatCommandRoundTrip(t *testing.T) {
	frame := FormatCommand("LPUSH mylist %s", "payload")

	var p Parser
	p.Feed(frame)
	reply, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, KindArray, reply.Kind)
	require.Len(t, reply.Array, 3)
	require.Equal(t, "LPUSH", string(reply.Array[0].Bulk))
	require.Equal(t, "mylist", string(reply.Array[1].Bulk))
	require.Equal(t, "payload", string(reply.Array[2].Bulk))
}
