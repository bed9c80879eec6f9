package tokens

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/daniyousefifar/temptokens/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	db := testutils.SetupTestDB(t, &TemporaryToken{})
	return NewGormStore(db, "")
}

func strPtr(s string) *string {
	return &s
}

func TestGormStore_Create(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("assigns id and timestamps", func(t *testing.T) {
		token := &TemporaryToken{Token: "111111", Type: strPtr("otp"), MaxUsageLimit: 1}

		require.NoError(t, store.Create(ctx, token))
		assert.NotEqual(t, uuid.Nil, token.ID)
		assert.False(t, token.CreatedAt.IsZero())
		assert.False(t, token.UpdatedAt.IsZero())
	})

	t.Run("duplicate type and value fails", func(t *testing.T) {
		dup := &TemporaryToken{Token: "111111", Type: strPtr("otp"), MaxUsageLimit: 1}
		err := store.Create(ctx, dup)
		assert.ErrorIs(t, err, ErrTokenExists)
	})

	t.Run("same value under different type succeeds", func(t *testing.T) {
		other := &TemporaryToken{Token: "111111", Type: strPtr("password-reset"), MaxUsageLimit: 1}
		assert.NoError(t, store.Create(ctx, other))
	})
}

func TestGormStore_FindByValue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &TemporaryToken{Token: "222222", Type: strPtr("otp")}))
	require.NoError(t, store.Create(ctx, &TemporaryToken{Token: "222222", Type: strPtr("password-reset")}))

	t.Run("without type filter", func(t *testing.T) {
		token, err := store.FindByValue(ctx, "222222", nil)
		require.NoError(t, err)
		assert.Equal(t, "222222", token.Token)
	})

	t.Run("with type filter", func(t *testing.T) {
		token, err := store.FindByValue(ctx, "222222", strPtr("password-reset"))
		require.NoError(t, err)
		require.NotNil(t, token.Type)
		assert.Equal(t, "password-reset", *token.Type)
	})

	t.Run("miss returns not found", func(t *testing.T) {
		_, err := store.FindByValue(ctx, "000000", nil)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("type filter miss", func(t *testing.T) {
		_, err := store.FindByValue(ctx, "222222", strPtr("email-verification"))
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})
}

func TestGormStore_FindValid(t *testing.T) {
	db := testutils.SetupTestDB(t, &TemporaryToken{})
	store := NewGormStore(db, "")
	ctx := context.Background()

	// every case probes the same token value on a freshly cleaned table, so
	// only the record's state decides whether the lookup finds it
	const value = "333333"

	t.Run("fresh token is found", func(t *testing.T) {
		testutils.CleanupTestDB(t, db, "temporary_tokens")
		require.NoError(t, store.Create(ctx, &TemporaryToken{Token: value, Type: strPtr("otp"), MaxUsageLimit: 1}))

		token, err := store.FindValid(ctx, value, strPtr("otp"))
		require.NoError(t, err)
		assert.True(t, token.IsValid())
	})

	t.Run("exhausted token is filtered out", func(t *testing.T) {
		testutils.CleanupTestDB(t, db, "temporary_tokens")
		created := &TemporaryToken{Token: value, Type: strPtr("otp"), MaxUsageLimit: 1, UsageCount: 1}
		require.NoError(t, store.Create(ctx, created))

		_, err := store.FindValid(ctx, value, strPtr("otp"))
		assert.ErrorIs(t, err, ErrTokenNotFound)

		// still present through the unfiltered lookup
		_, err = store.FindByValue(ctx, value, strPtr("otp"))
		assert.NoError(t, err)
	})

	t.Run("expired token is filtered out", func(t *testing.T) {
		testutils.CleanupTestDB(t, db, "temporary_tokens")
		past := time.Now().Add(-time.Minute)
		require.NoError(t, store.Create(ctx, &TemporaryToken{Token: value, Type: strPtr("otp"), MaxUsageLimit: 1, ExpiresAt: &past}))

		_, err := store.FindValid(ctx, value, strPtr("otp"))
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("unlimited usage stays valid", func(t *testing.T) {
		testutils.CleanupTestDB(t, db, "temporary_tokens")
		require.NoError(t, store.Create(ctx, &TemporaryToken{Token: value, Type: strPtr("otp"), MaxUsageLimit: 0, UsageCount: 500}))

		token, err := store.FindValid(ctx, value, strPtr("otp"))
		require.NoError(t, err)
		assert.Equal(t, 500, token.UsageCount)
	})

	t.Run("future expiry stays valid", func(t *testing.T) {
		testutils.CleanupTestDB(t, db, "temporary_tokens")
		future := time.Now().Add(time.Hour)
		require.NoError(t, store.Create(ctx, &TemporaryToken{Token: value, Type: strPtr("otp"), MaxUsageLimit: 1, ExpiresAt: &future}))

		_, err := store.FindValid(ctx, value, strPtr("otp"))
		assert.NoError(t, err)
	})
}

func TestGormStore_IncrementUsage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token := &TemporaryToken{Token: "888888", Type: strPtr("otp"), MaxUsageLimit: 2}
	require.NoError(t, store.Create(ctx, token))

	updated, err := store.IncrementUsage(ctx, token.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.UsageCount)

	updated, err = store.IncrementUsage(ctx, token.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.UsageCount)

	// no guard against exceeding the limit
	updated, err = store.IncrementUsage(ctx, token.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.UsageCount)
	assert.False(t, updated.IsValid())

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.IncrementUsage(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})
}

func TestGormStore_IncrementUsage_Concurrent(t *testing.T) {
	db := testutils.SetupTestDB(t, &TemporaryToken{})
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps every goroutine on the same in-memory
	// database while still exercising the single-statement increment
	sqlDB.SetMaxOpenConns(1)

	store := NewGormStore(db, "")
	ctx := context.Background()

	token := &TemporaryToken{Token: "999999", Type: strPtr("otp"), MaxUsageLimit: 0}
	require.NoError(t, store.Create(ctx, token))

	const callers = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncrementUsage(ctx, token.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	final, err := store.FindByValue(ctx, "999999", strPtr("otp"))
	require.NoError(t, err)
	assert.Equal(t, callers, final.UsageCount)
}

func TestGormStore_MarkExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token := &TemporaryToken{Token: "123123", Type: strPtr("otp"), MaxUsageLimit: 0}
	require.NoError(t, store.Create(ctx, token))

	updated, err := store.MarkExpired(ctx, token.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.ExpiresAt)
	assert.True(t, updated.HasExpired())

	// idempotent
	updated, err = store.MarkExpired(ctx, token.ID)
	require.NoError(t, err)
	assert.True(t, updated.HasExpired())
}

func TestGormStore_DeleteExpiredBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-2 * time.Hour)

	require.NoError(t, store.Create(ctx, &TemporaryToken{Token: "aaa", Type: strPtr("otp"), ExpiresAt: &old}))
	require.NoError(t, store.Create(ctx, &TemporaryToken{Token: "bbb", Type: strPtr("otp"), ExpiresAt: &recent}))
	require.NoError(t, store.Create(ctx, &TemporaryToken{Token: "ccc", Type: strPtr("otp")}))

	cutoff := time.Now().Add(-24 * time.Hour)

	deleted, err := store.DeleteExpiredBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.FindByValue(ctx, "aaa", nil)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = store.FindByValue(ctx, "bbb", nil)
	assert.NoError(t, err)
	_, err = store.FindByValue(ctx, "ccc", nil)
	assert.NoError(t, err)

	// second run deletes nothing and raises no error
	deleted, err = store.DeleteExpiredBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestGormStore_FindForOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &TemporaryToken{Token: "one", Type: strPtr("otp")}
	first.BindOwner(Owner{Type: "user", ID: "1"})
	second := &TemporaryToken{Token: "two", Type: strPtr("otp")}
	second.BindOwner(Owner{Type: "user", ID: "1"})
	other := &TemporaryToken{Token: "three", Type: strPtr("otp")}
	other.BindOwner(Owner{Type: "user", ID: "2"})

	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.Create(ctx, other))

	found, err := store.FindForOwner(ctx, "user", "1")
	require.NoError(t, err)
	require.Len(t, found, 2)
	values := []string{found[0].Token, found[1].Token}
	assert.ElementsMatch(t, []string{"one", "two"}, values)
}

func TestGormStore_CustomTableName(t *testing.T) {
	db := testutils.SetupTestDB(t)
	store := NewGormStore(db, "verification_codes")
	require.NoError(t, store.Migrate())

	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &TemporaryToken{Token: "custom", Type: strPtr("otp")}))

	var count int64
	require.NoError(t, db.Table("verification_codes").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err := store.FindByValue(ctx, "custom", nil)
	assert.NoError(t, err)
}
