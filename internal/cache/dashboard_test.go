package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/projector"
)

func newTestDashboard(t *testing.T) (*Dashboard, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewDashboard(client, 30*time.Second), mr
}

func TestFunnelRoundTrip(t *testing.T) {
	d, _ := newTestDashboard(t)
	ctx := context.Background()

	_, ok, err := d.GetFunnel(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache must miss")

	want := map[models.Status]int{models.StatusApplied: 3, models.StatusHired: 1}
	require.NoError(t, d.SetFunnel(ctx, want))

	got, ok, err := d.GetFunnel(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestGrowthKeyedByFilter(t *testing.T) {
	d, _ := newTestDashboard(t)
	ctx := context.Background()

	all := projector.Growth{CurrentCount: 10, PreviousCount: 5, PercentageChange: 100}
	hired := models.StatusHired
	hiredGrowth := projector.Growth{CurrentCount: 2, PreviousCount: 2, PercentageChange: 0}

	require.NoError(t, d.SetGrowth(ctx, nil, all))
	require.NoError(t, d.SetGrowth(ctx, &hired, hiredGrowth))

	got, ok, err := d.GetGrowth(ctx, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, all, got)

	got, ok, err = d.GetGrowth(ctx, &hired)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hiredGrowth, got)

	other := models.StatusRejected
	_, ok, err = d.GetGrowth(ctx, &other)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotExpires(t *testing.T) {
	d, mr := newTestDashboard(t)
	ctx := context.Background()

	require.NoError(t, d.SetFunnel(ctx, map[models.Status]int{models.StatusApplied: 1}))
	mr.FastForward(time.Minute)

	_, ok, err := d.GetFunnel(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "snapshot must expire with the TTL")
}

func TestCorruptSnapshotIsAMiss(t *testing.T) {
	d, mr := newTestDashboard(t)
	require.NoError(t, mr.Set("dashboard:funnel", "not-json"))

	_, ok, err := d.GetFunnel(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
