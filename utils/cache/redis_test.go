package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	rev := time.Unix(1700000000, 5)
	assert.Equal(t, "summary:course:12:3:1700000000000000005", SummaryKey(12, 3, rev))
	assert.NotEqual(t, SummaryKey(12, 3, rev), SummaryKey(12, 3, rev.Add(time.Microsecond)))
	assert.Equal(t, "brute_force:attempts:10.0.0.1", LoginAttemptsKey("10.0.0.1"))
	assert.Equal(t, "brute_force:lock:10.0.0.1", LoginLockKey("10.0.0.1"))
}

func TestRedisCacheRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	c, err := NewRedisCache(url)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	key := "test:cache:" + time.Now().Format("150405.000000")
	defer c.Delete(ctx, key)

	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, key, "value", time.Minute))
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	type payload struct {
		Summary string `json:"summary"`
	}
	require.NoError(t, c.SetJSON(ctx, key+":json", payload{Summary: "calm"}, time.Minute))
	var decoded payload
	require.NoError(t, c.GetJSON(ctx, key+":json", &decoded))
	assert.Equal(t, "calm", decoded.Summary)
	require.NoError(t, c.Delete(ctx, key+":json"))

	n, err := c.Increment(ctx, key+":n")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, c.Delete(ctx, key+":n"))
}
