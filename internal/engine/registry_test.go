package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easybet/easybet/internal/domain"
)

func TestClaimRegistry_MintOrderAndCounts(t *testing.T) {
	r := NewClaimRegistry()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c1 := r.Mint(1, 0, alice, at)
	c2 := r.Mint(2, 1, alice, at)
	c3 := r.Mint(1, 1, bob, at)

	assert.Equal(t, int64(1), c1.TokenID)
	assert.Equal(t, int64(2), c2.TokenID)
	assert.Equal(t, int64(3), c3.TokenID)

	assert.Equal(t, []int64{1, 3}, r.ClaimsOfMarket(1))
	assert.Equal(t, []int64{2}, r.ClaimsOfMarket(2))
	assert.Equal(t, 2, r.CountForMarket(1))
	assert.Equal(t, 1, r.CountWinners(1, 1))
	assert.Equal(t, 0, r.CountWinners(2, 0))
}

func TestClaimRegistry_ClaimsOfIsRestartable(t *testing.T) {
	r := NewClaimRegistry()
	at := time.Now()
	r.Mint(1, 0, alice, at)
	r.Mint(1, 1, bob, at)
	r.Mint(1, 0, alice, at)

	seq := r.ClaimsOf(alice)

	var first []int64
	for id := range seq {
		first = append(first, id)
	}
	assert.Equal(t, []int64{1, 3}, first)

	// Early break, then a fresh full pass over the same sequence.
	for range seq {
		break
	}
	var second []int64
	for id := range seq {
		second = append(second, id)
	}
	assert.Equal(t, first, second)

	// A restart observes ownership changes.
	require.NoError(t, r.Transfer(1, alice, bob))
	var third []int64
	for id := range seq {
		third = append(third, id)
	}
	assert.Equal(t, []int64{3}, third)
}

func TestClaimRegistry_TransferGuards(t *testing.T) {
	r := NewClaimRegistry()
	c := r.Mint(1, 0, alice, time.Now())

	assert.ErrorIs(t, r.Transfer(999, alice, bob), domain.ErrNotFound)
	assert.ErrorIs(t, r.Transfer(c.TokenID, bob, carol), domain.ErrNotOwner)

	// Self-transfer succeeds without changing anything.
	require.NoError(t, r.Transfer(c.TokenID, alice, alice))
	owner, err := r.OwnerOf(c.TokenID)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
}

func TestClaimRegistry_MarkPrizeClaimedOnce(t *testing.T) {
	r := NewClaimRegistry()
	c := r.Mint(1, 0, alice, time.Now())

	require.NoError(t, r.MarkPrizeClaimed(c.TokenID))
	assert.ErrorIs(t, r.MarkPrizeClaimed(c.TokenID), domain.ErrAlreadyClaimed)
	assert.ErrorIs(t, r.MarkPrizeClaimed(999), domain.ErrNotFound)

	got, err := r.DetailsOf(c.TokenID)
	require.NoError(t, err)
	assert.True(t, got.PrizeClaimed)
}
