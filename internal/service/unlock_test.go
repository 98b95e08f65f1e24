package service

import (
	"context"
	"sync"
	"testing"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnlock_ZeroCredits(t *testing.T) {
	f := newFixture(t)
	tender, _ := f.publishedTender(t)
	tenderId := uuid.MustParse(tender.Id)

	_, err := f.services.Unlock.Unlock(context.Background(), f.contractor, tenderId)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	credit, err := f.services.Ledger.GetOrCreateBalance(context.Background(), f.contractor.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), credit.Balance)
	assert.Empty(t, f.store.transactionsOf(f.contractor.Id))

	unlocked, err := f.services.Unlock.IsUnlocked(context.Background(), f.contractor, tenderId)
	require.NoError(t, err)
	assert.False(t, unlocked)
}

func TestUnlock_ChargesOnce(t *testing.T) {
	f := newFixture(t)
	tender, _ := f.publishedTender(t)
	tenderId := uuid.MustParse(tender.Id)
	f.store.setBalance(f.contractor.Id, 200)

	result, err := f.services.Unlock.Unlock(context.Background(), f.contractor, tenderId)
	require.NoError(t, err)
	assert.Equal(t, entity.UnlockGranted, result.Status)
	assert.Equal(t, int64(50), result.CreditsSpent)
	assert.Equal(t, int64(150), result.Balance)

	again, err := f.services.Unlock.Unlock(context.Background(), f.contractor, tenderId)
	require.NoError(t, err)
	assert.Equal(t, entity.UnlockAlready, again.Status)
	assert.Equal(t, int64(150), again.Balance)

	txns := f.store.transactionsOf(f.contractor.Id)
	require.Len(t, txns, 1)
	assert.Equal(t, common.TxnUnlock, txns[0].Type)
	assert.Equal(t, int64(-50), txns[0].Amount)
	assert.Equal(t, "Unlocked Tender: School renovation", txns[0].Description)
}

func TestUnlock_ConcurrentAttemptsChargeOnce(t *testing.T) {
	f := newFixture(t)
	tender, _ := f.publishedTender(t)
	tenderId := uuid.MustParse(tender.Id)
	f.store.setBalance(f.contractor.Id, 1000)

	const attempts = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.services.Unlock.Unlock(context.Background(), f.contractor, tenderId)
			assert.NoError(t, err)
			if err == nil && result.Status == entity.UnlockGranted {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, granted)
	assert.Len(t, f.store.transactionsOf(f.contractor.Id), 1)
	assert.Len(t, f.store.unlocks, 1)

	credit, err := f.services.Ledger.GetOrCreateBalance(context.Background(), f.contractor.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(950), credit.Balance)
}

func TestUnlock_PrivilegedRolesAreFree(t *testing.T) {
	f := newFixture(t)
	tender, _ := f.publishedTender(t)
	tenderId := uuid.MustParse(tender.Id)

	for _, actor := range []*entity.Actor{f.admin, f.owner} {
		result, err := f.services.Unlock.Unlock(context.Background(), actor, tenderId)
		require.NoError(t, err)
		assert.Equal(t, entity.UnlockPrivileged, result.Status)

		unlocked, err := f.services.Unlock.IsUnlocked(context.Background(), actor, tenderId)
		require.NoError(t, err)
		assert.True(t, unlocked)
	}

	assert.Empty(t, f.store.unlocks)
	assert.Empty(t, f.store.txns)
}

func TestUnlock_UnknownTender(t *testing.T) {
	f := newFixture(t)
	f.store.setBalance(f.contractor.Id, 200)

	_, err := f.services.Unlock.Unlock(context.Background(), f.contractor, uuid.New())
	assert.ErrorIs(t, err, ErrTenderNotFound)
}
