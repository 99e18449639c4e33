package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub-kr/entitlement-engine/internal/models"
)

func TestStorage_ListEffectiveSubscriptions(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name      string
		wantCount int
		setup     func(t *testing.T, factory *TestDataFactory, uid string)
	}{
		{
			name:      "expired and cancelled rows are filtered out",
			wantCount: 1,
			setup: func(t *testing.T, factory *TestDataFactory, uid string) {
				future := now.AddDate(0, 1, 0)
				past := now.AddDate(0, -1, 0)
				factory.CreateSubscription(t, uid, "gallery", "active", 39000, now.AddDate(0, -1, 0), &future)
				factory.CreateSubscription(t, uid, "gallery", "active", 39000, now.AddDate(0, -2, 0), &past)
				factory.CreateSubscription(t, uid, "allinone", "cancelled", 59000, now.AddDate(0, -1, 0), &future)
			},
		},
		{
			name:      "lifetime row without expiry is effective",
			wantCount: 1,
			setup: func(t *testing.T, factory *TestDataFactory, uid string) {
				factory.CreateSubscription(t, uid, "profitguard_lifetime", "active", 200000, now.AddDate(-1, 0, 0), nil)
			},
		},
		{
			name:      "no subscriptions",
			wantCount: 0,
			setup:     func(_ *testing.T, _ *TestDataFactory, _ string) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			uid := uuid.New().String()
			factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")
			tt.setup(t, factory, uid)

			got, err := storage.ListEffectiveSubscriptions(context.Background(), uid, now)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
		})
	}
}

func TestStorage_CreateSubscriptionWithPayment(t *testing.T) {
	now := time.Now().UTC()

	t.Run("successful create with payment row", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		expiresAt := now.AddDate(0, 0, 30)
		subID, err := storage.CreateSubscriptionWithPayment(context.Background(), models.Subscription{
			AccountUID: uid,
			Plan:       models.PlanGallery,
			Status:     models.SubscriptionActive,
			Price:      39000,
			StartedAt:  now,
			ExpiresAt:  &expiresAt,
		}, "pg-order-001", now)

		require.NoError(t, err)
		assert.Equal(t, 1, subID)

		payment, err := storage.FindPaymentByExternalRef(context.Background(), "pg-order-001")
		require.NoError(t, err)
		assert.Equal(t, uid, payment.AccountUID)
		assert.Equal(t, subID, payment.SubscriptionID)
		assert.Equal(t, 39000, payment.Amount)
	})

	t.Run("duplicate external ref rolls back entirely", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		expiresAt := now.AddDate(0, 0, 30)
		sub := models.Subscription{
			AccountUID: uid,
			Plan:       models.PlanGallery,
			Status:     models.SubscriptionActive,
			Price:      39000,
			StartedAt:  now,
			ExpiresAt:  &expiresAt,
		}

		_, err := storage.CreateSubscriptionWithPayment(context.Background(), sub, "pg-order-001", now)
		require.NoError(t, err)

		_, err = storage.CreateSubscriptionWithPayment(context.Background(), sub, "pg-order-001", now)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrConflict)

		// Повторная доставка не должна оставить вторую подписку
		count, err := storage.CountSubscriptionHistory(context.Background(), uid)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestStorage_ExtendMostFutureSubscription(t *testing.T) {
	now := time.Now().UTC()

	t.Run("extends the latest effective subscription", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		near := now.AddDate(0, 0, 10)
		far := now.AddDate(0, 1, 0)
		factory.CreateSubscription(t, uid, "gallery", "active", 39000, now, &near)
		farID := factory.CreateSubscription(t, uid, "allinone", "active", 59000, now, &far)

		extended, err := storage.ExtendMostFutureSubscription(context.Background(), uid, 7*24*time.Hour, now)
		require.NoError(t, err)
		assert.True(t, extended)

		var gotExpires time.Time
		err = storage.DB.QueryRow("SELECT expires_at FROM subscriptions WHERE id = $1", farID).Scan(&gotExpires)
		require.NoError(t, err)
		assert.WithinDuration(t, far.AddDate(0, 0, 7), gotExpires, time.Second)
	})

	t.Run("bonus is lost without effective dated subscription", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		past := now.AddDate(0, -1, 0)
		factory.CreateSubscription(t, uid, "gallery", "active", 39000, now.AddDate(0, -2, 0), &past)

		extended, err := storage.ExtendMostFutureSubscription(context.Background(), uid, 7*24*time.Hour, now)
		require.NoError(t, err)
		assert.False(t, extended)
	})
}

func TestStorage_ApproveRewardClaimAndExtend(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("dated subscription is extended from its expiry", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		expires := now.AddDate(0, 0, 20)
		subID := factory.CreateSubscription(t, uid, "gallery", "active", 39000, now, &expires)
		claimID := factory.CreateRewardClaim(t, uid, "review-post-1", "pending", now)

		gotUID, extended, err := storage.ApproveRewardClaimAndExtend(context.Background(), claimID, 7*24*time.Hour, now)
		require.NoError(t, err)
		assert.Equal(t, uid, gotUID)
		assert.True(t, extended)

		var gotExpires time.Time
		err = storage.DB.QueryRow("SELECT expires_at FROM subscriptions WHERE id = $1", subID).Scan(&gotExpires)
		require.NoError(t, err)
		assert.WithinDuration(t, expires.AddDate(0, 0, 7), gotExpires, time.Second)

		claim, err := storage.GetRewardClaim(context.Background(), claimID)
		require.NoError(t, err)
		assert.Equal(t, models.RewardClaimApproved, claim.Status)
	})

	t.Run("subscription without expiry gets fresh deadline", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		subID := factory.CreateSubscription(t, uid, "profitguard_lifetime", "active", 200000, now, nil)
		claimID := factory.CreateRewardClaim(t, uid, "review-post-1", "pending", now)

		_, extended, err := storage.ApproveRewardClaimAndExtend(context.Background(), claimID, 7*24*time.Hour, now)
		require.NoError(t, err)
		assert.True(t, extended)

		var gotExpires time.Time
		err = storage.DB.QueryRow("SELECT expires_at FROM subscriptions WHERE id = $1", subID).Scan(&gotExpires)
		require.NoError(t, err)
		assert.WithinDuration(t, now.AddDate(0, 0, 7), gotExpires, time.Second)
	})

	t.Run("no active subscription still records approval", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")
		claimID := factory.CreateRewardClaim(t, uid, "review-post-1", "pending", now)

		_, extended, err := storage.ApproveRewardClaimAndExtend(context.Background(), claimID, 7*24*time.Hour, now)
		require.NoError(t, err)
		assert.False(t, extended)

		claim, err := storage.GetRewardClaim(context.Background(), claimID)
		require.NoError(t, err)
		assert.Equal(t, models.RewardClaimApproved, claim.Status)
	})

	t.Run("repeat approval conflicts without double extension", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		expires := now.AddDate(0, 0, 20)
		subID := factory.CreateSubscription(t, uid, "gallery", "active", 39000, now, &expires)
		claimID := factory.CreateRewardClaim(t, uid, "review-post-1", "pending", now)

		_, _, err := storage.ApproveRewardClaimAndExtend(context.Background(), claimID, 7*24*time.Hour, now)
		require.NoError(t, err)

		_, _, err = storage.ApproveRewardClaimAndExtend(context.Background(), claimID, 7*24*time.Hour, now)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrConflict)

		// Срок продлён ровно один раз, повтор ничего не добавил
		var gotExpires time.Time
		err = storage.DB.QueryRow("SELECT expires_at FROM subscriptions WHERE id = $1", subID).Scan(&gotExpires)
		require.NoError(t, err)
		assert.WithinDuration(t, expires.AddDate(0, 0, 7), gotExpires, time.Second)
	})

	t.Run("unknown claim", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		_, _, err := storage.ApproveRewardClaimAndExtend(context.Background(), 9999, 7*24*time.Hour, now)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestStorage_CancelSubscription(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		wantErr error
		setup   func(t *testing.T, factory *TestDataFactory, uid string) int
	}{
		{
			name:    "successful cancel keeps expiry",
			wantErr: nil,
			setup: func(t *testing.T, factory *TestDataFactory, uid string) int {
				future := now.AddDate(0, 1, 0)
				return factory.CreateSubscription(t, uid, "gallery", "active", 39000, now, &future)
			},
		},
		{
			name:    "lifetime plan is not cancellable",
			wantErr: models.ErrNotCancellable,
			setup: func(t *testing.T, factory *TestDataFactory, uid string) int {
				future := now.AddDate(10, 0, 0)
				return factory.CreateSubscription(t, uid, "profitguard_lifetime", "active", 200000, now, &future)
			},
		},
		{
			name:    "subscription without expiry is not cancellable",
			wantErr: models.ErrNotCancellable,
			setup: func(t *testing.T, factory *TestDataFactory, uid string) int {
				return factory.CreateSubscription(t, uid, "gallery", "active", 39000, now, nil)
			},
		},
		{
			name:    "unknown subscription",
			wantErr: models.ErrNotFound,
			setup:   func(_ *testing.T, _ *TestDataFactory, _ string) int { return 9999 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			uid := uuid.New().String()
			factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")
			subID := tt.setup(t, factory, uid)

			err := storage.CancelSubscription(context.Background(), subID, uid)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)

			verification := NewTestVerification(storage)
			verification.VerifySubscriptionStatus(t, subID, "cancelled")

			var expiresAt *time.Time
			err = storage.DB.QueryRow("SELECT expires_at FROM subscriptions WHERE id = $1", subID).Scan(&expiresAt)
			require.NoError(t, err)
			assert.NotNil(t, expiresAt)
		})
	}
}

func TestStorage_CancelSubscription_ForeignAccount(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	owner := uuid.New().String()
	stranger := uuid.New().String()
	factory.CreateAccount(t, owner, "owner@example.com", "hashedpassword")
	factory.CreateAccount(t, stranger, "stranger@example.com", "hashedpassword")

	now := time.Now().UTC()
	future := now.AddDate(0, 1, 0)
	subID := factory.CreateSubscription(t, owner, "gallery", "active", 39000, now, &future)

	err := storage.CancelSubscription(context.Background(), subID, stranger)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)

	verification := NewTestVerification(storage)
	verification.VerifySubscriptionStatus(t, subID, "active")
}

func TestStorage_CreateLinkRequestWithinQuota(t *testing.T) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	t.Run("insert within ceiling", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		id, err := storage.CreateLinkRequestWithinQuota(context.Background(), uid, "blog.example.com/post-1", monthStart, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, id)
	})

	t.Run("ceiling reached", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		for i := range 3 {
			factory.CreateLinkRequest(t, uid, fmt.Sprintf("blog.example.com/post-%d", i), now)
		}

		_, err := storage.CreateLinkRequestWithinQuota(context.Background(), uid, "blog.example.com/post-extra", monthStart, 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrQuotaExceeded)

		verification := NewTestVerification(storage)
		verification.VerifyLinkRequestCount(t, uid, 3)
	})

	t.Run("usage from previous month does not count", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		lastMonth := monthStart.AddDate(0, 0, -5)
		for i := range 3 {
			factory.CreateLinkRequest(t, uid, fmt.Sprintf("blog.example.com/old-%d", i), lastMonth)
		}

		id, err := storage.CreateLinkRequestWithinQuota(context.Background(), uid, "blog.example.com/new", monthStart, 3)
		require.NoError(t, err)
		assert.Positive(t, id)
	})

	t.Run("concurrent inserts cannot overshoot the ceiling", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		const attempts = 10
		const ceiling = 3

		errs := make(chan error, attempts)
		var wg sync.WaitGroup
		for i := range attempts {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := storage.CreateLinkRequestWithinQuota(context.Background(),
					uid, fmt.Sprintf("blog.example.com/race-%d", n), monthStart, ceiling)
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)

		var ok, exceeded int
		for err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, models.ErrQuotaExceeded):
				exceeded++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, ceiling, ok)
		assert.Equal(t, attempts-ceiling, exceeded)

		verification := NewTestVerification(storage)
		verification.VerifyLinkRequestCount(t, uid, ceiling)
	})
}

func TestStorage_RotateSessionToken_ConcurrentLogins(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	uid := uuid.New().String()
	factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

	const logins = 8
	tokens := make([]string, logins)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token-%d-%s", i, uuid.New().String())
	}

	errs := make(chan error, logins)
	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			errs <- storage.RotateSessionToken(context.Background(), uid, tok)
		}(token)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Последний победил: действителен ровно один из выданных токенов
	var stored string
	err := storage.DB.QueryRow("SELECT session_token FROM accounts WHERE uid = $1", uid).Scan(&stored)
	require.NoError(t, err)
	assert.Contains(t, tokens, stored)
}

func TestStorage_CreateRewardClaimWithinQuota(t *testing.T) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	t.Run("insert within ceiling", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		id, err := storage.CreateRewardClaimWithinQuota(context.Background(), uid, "review-post-1", monthStart, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, id)
	})

	t.Run("ceiling reached", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		for i := range 3 {
			factory.CreateRewardClaim(t, uid, fmt.Sprintf("review-post-%d", i), "pending", now)
		}

		_, err := storage.CreateRewardClaimWithinQuota(context.Background(), uid, "review-post-extra", monthStart, 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrQuotaExceeded)
	})

	t.Run("duplicate post reference", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")
		factory.CreateRewardClaim(t, uid, "review-post-1", "pending", now)

		_, err := storage.CreateRewardClaimWithinQuota(context.Background(), uid, "review-post-1", monthStart, 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrConflict)
	})
}

func TestStorage_SetRewardClaimStatus(t *testing.T) {
	now := time.Now().UTC()

	t.Run("approve pending claim", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")
		claimID := factory.CreateRewardClaim(t, uid, "review-post-1", "pending", now)

		err := storage.SetRewardClaimStatus(context.Background(), claimID, models.RewardClaimApproved)
		require.NoError(t, err)

		claim, err := storage.GetRewardClaim(context.Background(), claimID)
		require.NoError(t, err)
		assert.Equal(t, models.RewardClaimApproved, claim.Status)
		assert.Equal(t, uid, claim.AccountUID)
	})

	t.Run("decided claim cannot be flipped again", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")
		claimID := factory.CreateRewardClaim(t, uid, "review-post-1", "approved", now)

		err := storage.SetRewardClaimStatus(context.Background(), claimID, models.RewardClaimRejected)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrConflict)

		claim, err := storage.GetRewardClaim(context.Background(), claimID)
		require.NoError(t, err)
		assert.Equal(t, models.RewardClaimApproved, claim.Status)
	})

	t.Run("unknown claim", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		err := storage.SetRewardClaimStatus(context.Background(), 9999, models.RewardClaimRejected)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestStorage_ListPayments(t *testing.T) {
	t.Run("newest first with pagination", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")
		factory.CreatePayment(t, uid, "pg-order-001", "gallery", 39000)
		factory.CreatePayment(t, uid, "pg-order-002", "allinone", 59000)

		got, err := storage.ListPayments(context.Background(), uid, 10, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "pg-order-002", got[0].ExternalRef)
		assert.Equal(t, "pg-order-001", got[1].ExternalRef)
	})

	t.Run("no payments", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		uid := uuid.New().String()
		factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")

		got, err := storage.ListPayments(context.Background(), uid, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestStorage_FindSubscriptionsExpiringTomorrow(t *testing.T) {
	tests := []struct {
		name      string
		wantCount int
		setup     func(t *testing.T, factory *TestDataFactory, uid string)
	}{
		{
			name:      "one subscription expires tomorrow",
			wantCount: 1,
			setup: func(t *testing.T, factory *TestDataFactory, uid string) {
				tomorrow := time.Now().AddDate(0, 0, 1)
				nextWeek := time.Now().AddDate(0, 0, 7)
				factory.CreateSubscription(t, uid, "gallery", "active", 39000, time.Now().AddDate(0, -1, 0), &tomorrow)
				factory.CreateSubscription(t, uid, "allinone", "active", 59000, time.Now().AddDate(0, -1, 0), &nextWeek)
			},
		},
		{
			name:      "cancelled subscription is not reported",
			wantCount: 0,
			setup: func(t *testing.T, factory *TestDataFactory, uid string) {
				tomorrow := time.Now().AddDate(0, 0, 1)
				factory.CreateSubscription(t, uid, "gallery", "cancelled", 39000, time.Now().AddDate(0, -1, 0), &tomorrow)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			uid := uuid.New().String()
			factory.CreateAccount(t, uid, "test@example.com", "hashedpassword")
			tt.setup(t, factory, uid)

			got, err := storage.FindSubscriptionsExpiringTomorrow(context.Background())
			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
		})
	}
}
