package cache

import (
	"testing"

	goredis "github.com/go-redis/redis/v8"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Key(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	r := NewRedisWithClient(client, "", 0)
	assert.Equal(t, "signaledge:prices:csv:SPY:open:open", r.key(Key{Source: "csv", Symbol: "SPY"}))

	r = NewRedisWithClient(client, "test", 0)
	assert.Equal(t, "test:csv:SPY:open:open", r.key(Key{Source: "csv", Symbol: "SPY"}))
}

func TestRedis_EncodeDecode(t *testing.T) {
	in := sampleSeries("SPY")
	vol := 1200.0
	in.Observations[1].Volume = &vol

	data, err := encodeSeries(in)
	require.NoError(t, err)

	out, err := decodeSeries(data)
	require.NoError(t, err)
	assert.Equal(t, in.Symbol, out.Symbol)
	assert.Equal(t, in.Closes(), out.Closes())
	assert.True(t, in.Start().Equal(out.Start()))
	require.NotNil(t, out.Observations[1].Volume)
	assert.Equal(t, vol, *out.Observations[1].Volume)

	_, err = decodeSeries([]byte("{"))
	assert.Error(t, err)
}

func TestNewRedis_Unreachable(t *testing.T) {
	_, err := NewRedis(RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorageFailed)
}
