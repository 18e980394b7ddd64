package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitRepository_Increment(t *testing.T) {
	database := setupTestDB(t)
	defer cleanupTestDB(t, database)

	ctx := context.Background()
	merchant := seedMerchant(t, database)
	repo := NewRateLimitRepository(database)

	t.Run("counts down to zero then denies", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			allowed, remaining, err := repo.Increment(ctx, merchant.ID, "tokenize", time.Minute, 3)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d", i)
			assert.Equal(t, 3-i, remaining, "request %d", i)
		}

		allowed, remaining, err := repo.Increment(ctx, merchant.ID, "tokenize", time.Minute, 3)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, 0, remaining)
	})

	t.Run("denied requests do not advance the counter", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			_, _, err := repo.Increment(ctx, merchant.ID, "tokenize", time.Minute, 3)
			require.NoError(t, err)
		}

		var count int
		err := database.QueryRowContext(ctx,
			`SELECT request_count FROM rate_limits WHERE merchant_id = $1 AND endpoint = 'tokenize'`,
			merchant.ID,
		).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("endpoints have independent windows", func(t *testing.T) {
		allowed, remaining, err := repo.Increment(ctx, merchant.ID, "create-transaction", time.Minute, 3)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2, remaining)
	})

	t.Run("an elapsed window resets the counter", func(t *testing.T) {
		other := seedMerchant(t, database)

		// exhaust a very short window
		for i := 0; i < 2; i++ {
			_, _, err := repo.Increment(ctx, other.ID, "tokenize", 50*time.Millisecond, 2)
			require.NoError(t, err)
		}
		allowed, _, err := repo.Increment(ctx, other.ID, "tokenize", 50*time.Millisecond, 2)
		require.NoError(t, err)
		require.False(t, allowed)

		time.Sleep(100 * time.Millisecond)

		allowed, remaining, err := repo.Increment(ctx, other.ID, "tokenize", 50*time.Millisecond, 2)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 1, remaining)
	})

	t.Run("concurrent increments never exceed the limit", func(t *testing.T) {
		other := seedMerchant(t, database)

		const workers = 20
		const limit = 10

		var wg sync.WaitGroup
		allowedCount := make(chan bool, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				allowed, _, err := repo.Increment(ctx, other.ID, "tokenize", time.Minute, limit)
				require.NoError(t, err)
				allowedCount <- allowed
			}()
		}
		wg.Wait()
		close(allowedCount)

		granted := 0
		for allowed := range allowedCount {
			if allowed {
				granted++
			}
		}
		assert.Equal(t, limit, granted)
	})
}
