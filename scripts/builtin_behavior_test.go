package scripts_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/redlink/scripts"
)

// The built-in bodies are executed against an in-process server so the
// documented return values and key mutations hold on a real Lua engine,
// not just on paper.

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func evalBuiltin(t *testing.T, client *redis.Client, name string, keys []string, args ...any) any {
	t.Helper()
	def, ok := scripts.NewBuiltinRegistry().Get(name)
	require.True(t, ok, "builtin %s not registered", name)
	result, err := client.Eval(context.Background(), def.Body, keys, args...).Result()
	require.NoError(t, err)
	return result
}

func TestCappedSortedSetAddKeepsTopByScore(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	for i, member := range []string{"a", "b", "c"} {
		card := evalBuiltin(t, client, scripts.CappedSortedSetAdd, []string{"board"}, i+1, member, 3, 10)
		require.Equal(t, int64(i+1), card)
	}

	// The fourth insert overflows the cap; the lowest score goes, the
	// cardinality returns to the limit.
	card := evalBuiltin(t, client, scripts.CappedSortedSetAdd, []string{"board"}, 4, "d", 3, 10)
	require.Equal(t, int64(3), card)

	members, err := client.ZRange(ctx, "board", 0, -1).Result()
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "d"}, members)
}

func TestCappedSortedSetAddTrimsAtMostTrimCount(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	for i, member := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, client.ZAdd(ctx, "board", redis.Z{Score: float64(i + 1), Member: member}).Err())
	}

	// Overflow is 3 but trimCount only allows one removal per call.
	card := evalBuiltin(t, client, scripts.CappedSortedSetAdd, []string{"board"}, 6, "f", 3, 1)
	require.Equal(t, int64(5), card)

	members, err := client.ZRange(ctx, "board", 0, -1).Result()
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c", "d", "e", "f"}, members)
}

func TestExpireIfNoTTLSetsOnlyWhenAbsent(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "session", "v", 0).Err())
	result := evalBuiltin(t, client, scripts.ExpireIfNoTTL, []string{"session"}, 60)
	require.Equal(t, int64(1), result)
	require.Equal(t, 60*time.Second, client.TTL(ctx, "session").Val())

	// An existing TTL stays untouched.
	require.NoError(t, client.Expire(ctx, "session", 100*time.Second).Err())
	result = evalBuiltin(t, client, scripts.ExpireIfNoTTL, []string{"session"}, 60)
	require.Equal(t, int64(0), result)
	require.Equal(t, 100*time.Second, client.TTL(ctx, "session").Val())
}

func TestConditionalHashSetHigherDeltas(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	result := evalBuiltin(t, client, scripts.ConditionalHashSetHigher, []string{"peaks"}, "cpu", 5)
	require.Equal(t, int64(5), result)

	result = evalBuiltin(t, client, scripts.ConditionalHashSetHigher, []string{"peaks"}, "cpu", 5)
	require.Equal(t, int64(0), result)

	result = evalBuiltin(t, client, scripts.ConditionalHashSetHigher, []string{"peaks"}, "cpu", 9)
	require.Equal(t, int64(4), result)

	stored, err := client.HGet(ctx, "peaks", "cpu").Float64()
	require.NoError(t, err)
	require.Equal(t, 9.0, stored)
}

func TestConditionalHashSetLowerDeltas(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	result := evalBuiltin(t, client, scripts.ConditionalHashSetLower, []string{"lows"}, "latency", 5)
	require.Equal(t, int64(5), result)

	result = evalBuiltin(t, client, scripts.ConditionalHashSetLower, []string{"lows"}, "latency", 5)
	require.Equal(t, int64(0), result)

	result = evalBuiltin(t, client, scripts.ConditionalHashSetLower, []string{"lows"}, "latency", 2)
	require.Equal(t, int64(-3), result)

	stored, err := client.HGet(ctx, "lows", "latency").Float64()
	require.NoError(t, err)
	require.Equal(t, 2.0, stored)
}

func TestBoundingBoxMembershipIntersection(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	seed := func(member string, latMin, latMax, lonMin, lonMax float64) {
		require.NoError(t, client.ZAdd(ctx, "geo:lat:min", redis.Z{Score: latMin, Member: member}).Err())
		require.NoError(t, client.ZAdd(ctx, "geo:lat:max", redis.Z{Score: latMax, Member: member}).Err())
		require.NoError(t, client.ZAdd(ctx, "geo:lon:min", redis.Z{Score: lonMin, Member: member}).Err())
		require.NoError(t, client.ZAdd(ctx, "geo:lon:max", redis.Z{Score: lonMax, Member: member}).Err())
	}
	seed("chunk1", 10, 20, 30, 40)
	seed("chunk2", 50, 60, 30, 40)

	// Inside chunk1 on both axes, outside chunk2's latitude band.
	result := evalBuiltin(t, client, scripts.BoundingBoxMembership, []string{"geo"}, 15, 35, "tok-1")
	require.Equal(t, []any{"chunk1"}, result)

	// Between the two latitude bands: no chunk passes all four scans.
	result = evalBuiltin(t, client, scripts.BoundingBoxMembership, []string{"geo"}, 25, 35, "tok-2")
	require.Empty(t, result)

	// The per-call accumulators are cleaned up inside the script.
	exists, err := client.Exists(ctx, "geo:acc:tok-1", "geo:acc:tok-2").Result()
	require.NoError(t, err)
	require.Zero(t, exists)
}
