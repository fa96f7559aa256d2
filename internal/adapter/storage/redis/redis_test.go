package redis

import (
	"context"
	"net"
	"strconv"
	"testing"

	"palmpay/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisConfigFor(t *testing.T, addr string) config.RedisConfig {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return config.RedisConfig{Enabled: true, Host: host, Port: p}
}

func TestNewClient_Connects(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := NewClient(context.Background(), redisConfigFor(t, s.Addr()), zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	hc := NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
}

func TestNewClient_RequiresPassword(t *testing.T) {
	s := miniredis.RunT(t)
	s.RequireAuth("hunter2")

	cfg := redisConfigFor(t, s.Addr())
	_, err := NewClient(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "pinging redis")

	cfg.Password = "hunter2"
	client, err := NewClient(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	client.Close()
}

func TestHealthCheck_ServerDown(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := NewClient(context.Background(), redisConfigFor(t, s.Addr()), zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	s.Close()
	assert.Error(t, NewHealthCheck(client).Ping(context.Background()))
}
