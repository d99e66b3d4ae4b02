package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Host)
	require.Equal(t, 6379, cfg.Port)
	require.Equal(t, 50, cfg.NumClients)
	require.Equal(t, 100000, cfg.Requests)
	require.True(t, cfg.KeepAlive)
	require.False(t, cfg.RandomKeys)
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	cfg, err := Load([]string{"-c", "10", "-n", "500", "-P", "5", "-r", "0", "--csv"})
	require.NoError(t, err)
	require.Equal(t, 10, cfg.NumClients)
	require.Equal(t, 500, cfg.Requests)
	require.Equal(t, 5, cfg.Pipeline)
	require.True(t, cfg.RandomKeys)
	require.Equal(t, 0, cfg.RandomKeysLen)
	require.True(t, cfg.CSV)
}

func TestDatasizeClamping(t *testing.T) {
	cfg, err := Load([]string{"-d", "0"})
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Datasize)

	cfg, err = Load([]string{"-d", "2147483647"})
	require.NoError(t, err)
	require.Equal(t, 1<<30, cfg.Datasize)
}

func TestPipelineCoercedToAtLeastOne(t *testing.T) {
	cfg, err := Load([]string{"-P", "0"})
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Pipeline)
}

func TestCommandTail(t *testing.T) {
	cfg, err := Load([]string{"-r", "100", "-n", "10", "lpush", "mylist", "__rand_int__"})
	require.NoError(t, err)
	require.Equal(t, []string{"lpush", "mylist", "__rand_int__"}, cfg.CommandTail)
}

func TestTestSelected(t *testing.T) {
	cfg, err := Load([]string{"-t", "ping,set"})
	require.NoError(t, err)
	require.True(t, cfg.TestSelected("ping"))
	require.True(t, cfg.TestSelected("set"))
	require.False(t, cfg.TestSelected("get"))

	cfg, err = Load(nil)
	require.NoError(t, err)
	require.True(t, cfg.TestSelected("anything"))
}

func TestEmptyKeyPrefixRejected(t *testing.T) {
	_, err := Load([]string{"--kp", ""})
	require.Error(t, err)
}

func TestHelpReturnsErrHelp(t *testing.T) {
	_, err := Load([]string{"--help"})
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestIncValueDefault(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, 1, cfg.IncValue)
}
