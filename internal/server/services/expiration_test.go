package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExpired_Boundary(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := &ExpirationHandler{now: func() time.Time { return now }}

	assert.True(t, h.IsExpired(&models.Fruit{ExpiresAt: now}), "expires_at == now is dead")
	assert.True(t, h.IsExpired(&models.Fruit{ExpiresAt: now.Add(-time.Nanosecond)}))
	assert.False(t, h.IsExpired(&models.Fruit{ExpiresAt: now.Add(time.Microsecond)}))
}

func TestIsExpired_IgnoresZone(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := &ExpirationHandler{now: func() time.Time { return now }}

	// Same wall clock annotated with a zone east of UTC is compared as
	// naive UTC, so 12:30+03:00 counts as 12:30.
	east := time.FixedZone("UTC+3", 3*60*60)
	assert.False(t, h.IsExpired(&models.Fruit{ExpiresAt: time.Date(2024, 6, 1, 12, 30, 0, 0, east)}))
	assert.True(t, h.IsExpired(&models.Fruit{ExpiresAt: time.Date(2024, 6, 1, 11, 30, 0, 0, east)}))
}

func TestExpireIfNeeded_EmptyOpensNoTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := NewExpirationHandler(db, nil)
	alive, err := h.ExpireIfNeeded(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, alive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireIfNeeded_PurgesOnlyExpired(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	u := e.user(t, "a@mail.com")

	short := e.fruit(t, u, "short", time.Minute)
	long := e.fruit(t, u, "long", time.Hour)
	e.advance(2 * time.Minute)

	alive, err := e.expiration.ExpireIfNeeded(ctx, []*models.Fruit{short, long})
	require.NoError(t, err)
	assert.Equal(t, []string{long.ID}, fruitIDs(alive))
	assert.Nil(t, e.stored(t, short.ID))
	assert.NotNil(t, e.stored(t, long.ID))
}

func TestExpireIfNeeded_Idempotent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	u := e.user(t, "a@mail.com")

	f := e.fruit(t, u, "apple", time.Minute)
	e.advance(time.Hour)

	_, err := e.expiration.ExpireIfNeeded(ctx, []*models.Fruit{f})
	require.NoError(t, err)
	_, err = e.expiration.ExpireIfNeeded(ctx, []*models.Fruit{f})
	require.NoError(t, err)
	assert.Nil(t, e.stored(t, f.ID))
}

func TestGetAndExpireIfNeeded_Partitions(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	u := e.user(t, "a@mail.com")

	live := e.fruit(t, u, "live", time.Hour)
	dead := e.fruit(t, u, "dead", time.Minute)
	e.advance(2 * time.Minute)

	req := []string{dead.ID, live.ID, "missing", dead.ID, "missing", live.ID}
	alive, deadOrMissing, err := e.expiration.GetAndExpireIfNeeded(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, []string{live.ID}, fruitIDs(alive))
	assert.Equal(t, []string{dead.ID, "missing"}, deadOrMissing)
	assert.Nil(t, e.stored(t, dead.ID))

	for _, id := range fruitIDs(alive) {
		assert.NotContains(t, deadOrMissing, id)
	}
}

func TestGetAndExpireIfNeeded_Empty(t *testing.T) {
	e := newEngine(t)

	alive, dead, err := e.expiration.GetAndExpireIfNeeded(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, alive)
	assert.Empty(t, dead)
}
