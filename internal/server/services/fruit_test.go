package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFruitCreate_ComputesExpiry(t *testing.T) {
	e := newEngine(t)
	u := e.user(t, "a@mail.com")

	f := e.fruit(t, u, "apple", 90*time.Second)
	assert.True(t, f.CreatedAt.Equal(e.clock))
	assert.True(t, f.ExpiresAt.Equal(e.clock.Add(90*time.Second)))

	stored := e.stored(t, f.ID)
	require.NotNil(t, stored)
	assert.Equal(t, "apple", stored.Name)
	assert.Equal(t, int64(100), stored.Price)
	assert.True(t, stored.ExpiresAt.Equal(f.ExpiresAt))
}

func TestFruitCreate_BucketChecks(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	alice := e.user(t, "alice@mail.com")
	bob := e.user(t, "bob@mail.com")

	b, err := e.buckets.Create(ctx, models.BucketCreate{UserID: alice.ID, Capacity: 1})
	require.NoError(t, err)

	_, err = e.fruits.Create(ctx, models.FruitCreate{UserID: bob.ID, Name: "x", ExpirationSeconds: 60, BucketID: &b.ID})
	assert.ErrorIs(t, err, common.ErrFruitOwnerMismatch)

	missing := "missing"
	_, err = e.fruits.Create(ctx, models.FruitCreate{UserID: alice.ID, Name: "x", ExpirationSeconds: 60, BucketID: &missing})
	assert.ErrorIs(t, err, common.ErrBucketNotFound)

	_, err = e.fruits.Create(ctx, models.FruitCreate{UserID: "ghost", Name: "x", ExpirationSeconds: 60})
	assert.ErrorIs(t, err, common.ErrUserNotFound)

	// Creation does not check capacity.
	for i := 0; i < 2; i++ {
		_, err = e.fruits.Create(ctx, models.FruitCreate{UserID: alice.ID, Name: "x", ExpirationSeconds: 60, BucketID: &b.ID})
		require.NoError(t, err)
	}
	got, err := e.buckets.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, got.Fruits, 2)
}

func TestFruitGet(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	u := e.user(t, "a@mail.com")
	f := e.fruit(t, u, "apple", time.Minute)

	got, err := e.fruits.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	e.advance(time.Minute)
	_, err = e.fruits.Get(ctx, f.ID)
	assert.ErrorIs(t, err, common.ErrFruitNotFound)
	assert.Nil(t, e.stored(t, f.ID), "a dead fruit is deleted by the read")

	_, err = e.fruits.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrFruitNotFound)
}

func TestFruitListByOwner(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	alice := e.user(t, "alice@mail.com")
	bob := e.user(t, "bob@mail.com")
	live := e.fruit(t, alice, "live", time.Hour)
	dead := e.fruit(t, alice, "dead", time.Minute)
	e.fruit(t, bob, "other", time.Hour)
	e.advance(2 * time.Minute)

	got, err := e.fruits.ListByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{live.ID}, fruitIDs(got))
	assert.Nil(t, e.stored(t, dead.ID))

	_, err = e.fruits.ListByOwner(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestFruitListByBucket(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	u := e.user(t, "a@mail.com")
	live := e.fruit(t, u, "live", time.Hour)
	dead := e.fruit(t, u, "dead", time.Minute)
	loose := e.fruit(t, u, "loose", time.Hour)

	b, err := e.buckets.Create(ctx, models.BucketCreate{UserID: u.ID, Capacity: 2, FruitIDs: []string{live.ID, dead.ID}})
	require.NoError(t, err)
	e.advance(2 * time.Minute)

	got, err := e.fruits.ListByBucket(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{live.ID}, fruitIDs(got))
	assert.NotContains(t, fruitIDs(got), loose.ID)

	_, err = e.fruits.ListByBucket(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrBucketNotFound)
}

func TestFruitUpdate_Fields(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	u := e.user(t, "a@mail.com")
	f := e.fruit(t, u, "apple", time.Minute)
	e.advance(30 * time.Second)

	name := "green apple"
	price := int64(250)
	secs := 3600
	got, err := e.fruits.Update(ctx, f.ID, models.FruitPatch{Name: &name, Price: &price, ExpirationSeconds: &secs})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, price, got.Price)
	assert.True(t, got.ExpiresAt.Equal(f.CreatedAt.Add(time.Hour)), "expiry is relative to creation")

	stored := e.stored(t, f.ID)
	assert.Equal(t, name, stored.Name)
	assert.True(t, stored.ExpiresAt.Equal(got.ExpiresAt))
}

func TestFruitUpdate_ExpirationInPastDeletes(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	u := e.user(t, "a@mail.com")
	f := e.fruit(t, u, "apple", time.Hour)
	e.advance(10 * time.Minute)

	secs := 60
	got, err := e.fruits.Update(ctx, f.ID, models.FruitPatch{ExpirationSeconds: &secs})
	assert.ErrorIs(t, err, common.ErrFruitNotFound)
	assert.Nil(t, got)
	assert.Nil(t, e.stored(t, f.ID))
}

func TestFruitUpdate_MoveToBucket(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	u := e.user(t, "a@mail.com")
	other := e.user(t, "b@mail.com")
	f := e.fruit(t, u, "apple", time.Hour)
	member := e.fruit(t, u, "member", time.Hour)

	full, err := e.buckets.Create(ctx, models.BucketCreate{UserID: u.ID, Capacity: 1, FruitIDs: []string{member.ID}})
	require.NoError(t, err)
	free, err := e.buckets.Create(ctx, models.BucketCreate{UserID: u.ID, Capacity: 1})
	require.NoError(t, err)
	foreign, err := e.buckets.Create(ctx, models.BucketCreate{UserID: other.ID, Capacity: 1})
	require.NoError(t, err)

	_, err = e.fruits.Update(ctx, f.ID, models.FruitPatch{BucketSet: true, BucketID: &full.ID})
	assert.ErrorIs(t, err, common.ErrBucketCapacityExceeded)

	_, err = e.fruits.Update(ctx, f.ID, models.FruitPatch{BucketSet: true, BucketID: &foreign.ID})
	assert.ErrorIs(t, err, common.ErrFruitOwnerMismatch)

	missing := "missing"
	_, err = e.fruits.Update(ctx, f.ID, models.FruitPatch{BucketSet: true, BucketID: &missing})
	assert.ErrorIs(t, err, common.ErrBucketNotFound)
	assert.Nil(t, e.stored(t, f.ID).BucketID)

	got, err := e.fruits.Update(ctx, f.ID, models.FruitPatch{BucketSet: true, BucketID: &free.ID})
	require.NoError(t, err)
	assert.True(t, got.InBucket(free.ID))
	assert.True(t, e.stored(t, f.ID).InBucket(free.ID))

	// Re-assigning to the current bucket is not a move.
	_, err = e.fruits.Update(ctx, f.ID, models.FruitPatch{BucketSet: true, BucketID: &free.ID})
	require.NoError(t, err)

	got, err = e.fruits.Update(ctx, f.ID, models.FruitPatch{BucketSet: true})
	require.NoError(t, err)
	assert.Nil(t, got.BucketID)
	assert.Nil(t, e.stored(t, f.ID).BucketID)
}

func TestFruitUpdate_ExpiredMemberFreesSlot(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	u := e.user(t, "a@mail.com")
	f := e.fruit(t, u, "apple", time.Hour)
	dead := e.fruit(t, u, "dead", time.Minute)

	b, err := e.buckets.Create(ctx, models.BucketCreate{UserID: u.ID, Capacity: 1, FruitIDs: []string{dead.ID}})
	require.NoError(t, err)
	e.advance(2 * time.Minute)

	got, err := e.fruits.Update(ctx, f.ID, models.FruitPatch{BucketSet: true, BucketID: &b.ID})
	require.NoError(t, err)
	assert.True(t, got.InBucket(b.ID))
	assert.Nil(t, e.stored(t, dead.ID))
}

func TestFruitDelete(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	u := e.user(t, "a@mail.com")
	live := e.fruit(t, u, "live", time.Hour)
	dead := e.fruit(t, u, "dead", time.Minute)
	e.advance(2 * time.Minute)

	got, err := e.fruits.Delete(ctx, live.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, live.ID, got.ID)
	assert.Nil(t, e.stored(t, live.ID))

	got, err = e.fruits.Delete(ctx, dead.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "an expired fruit reports no prior state")
	assert.Nil(t, e.stored(t, dead.ID))

	_, err = e.fruits.Delete(ctx, dead.ID)
	assert.ErrorIs(t, err, common.ErrFruitNotFound)
}

func TestFruitOwner_IgnoresExpiry(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	u := e.user(t, "a@mail.com")
	f := e.fruit(t, u, "apple", time.Minute)
	e.advance(time.Hour)

	owner, err := e.fruits.Owner(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner)
	assert.NotNil(t, e.stored(t, f.ID), "Owner does not purge")

	_, err = e.fruits.Owner(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrFruitNotFound)
}
