package engine

import (
	"iter"
	"sync"
	"time"

	"github.com/easybet/easybet/internal/domain"
)

// TokenOwnership is the capability the order book and the prize distributor
// need from the claim registry: resolve and move ownership, nothing else.
type TokenOwnership interface {
	OwnerOf(tokenID int64) (domain.Account, error)
	Transfer(tokenID int64, from, to domain.Account) error
}

// ClaimRegistry owns claim-token identity, ownership, and per-token
// metadata. Token ids are globally unique across markets, assigned by a
// monotonic counter, so Mint never fails on valid input.
//
// The registry's mutex only protects its maps; operation-level atomicity
// (e.g. ledger debit before mint) is the engine's responsibility and is
// provided by the per-market lock.
type ClaimRegistry struct {
	mu       sync.RWMutex
	nextID   int64
	tokens   map[int64]*domain.Claim
	byMarket map[int64][]int64 // token ids in mint order
}

// NewClaimRegistry creates an empty registry. Token ids start at 1.
func NewClaimRegistry() *ClaimRegistry {
	return &ClaimRegistry{
		nextID:   1,
		tokens:   make(map[int64]*domain.Claim),
		byMarket: make(map[int64][]int64),
	}
}

// Mint issues a fresh claim for marketID/option owned by owner.
func (r *ClaimRegistry) Mint(marketID int64, option int, owner domain.Account, at time.Time) domain.Claim {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := domain.Claim{
		TokenID:      r.nextID,
		MarketID:     marketID,
		ChosenOption: option,
		Owner:        owner,
		MintedAt:     at,
	}
	r.nextID++
	r.tokens[c.TokenID] = &c
	r.byMarket[marketID] = append(r.byMarket[marketID], c.TokenID)
	return c
}

// OwnerOf returns the current owner of tokenID.
func (r *ClaimRegistry) OwnerOf(tokenID int64) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.tokens[tokenID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return c.Owner, nil
}

// Transfer moves tokenID from from to to. A self-transfer is a successful
// no-op. Ownership is a total function: the token has exactly one owner
// before and after.
func (r *ClaimRegistry) Transfer(tokenID int64, from, to domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.tokens[tokenID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Owner != from {
		return domain.ErrNotOwner
	}
	if from == to {
		return nil
	}
	c.Owner = to
	return nil
}

// DetailsOf returns a copy of the claim record.
func (r *ClaimRegistry) DetailsOf(tokenID int64) (domain.Claim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.tokens[tokenID]
	if !ok {
		return domain.Claim{}, domain.ErrNotFound
	}
	return *c, nil
}

// MarkPrizeClaimed flips the one-shot prize flag on tokenID.
func (r *ClaimRegistry) MarkPrizeClaimed(tokenID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.tokens[tokenID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.PrizeClaimed {
		return domain.ErrAlreadyClaimed
	}
	c.PrizeClaimed = true
	return nil
}

// ClaimsOf yields the token ids currently owned by owner, in mint order.
// The sequence is finite and restartable; each restart observes a fresh
// snapshot of ownership.
func (r *ClaimRegistry) ClaimsOf(owner domain.Account) iter.Seq[int64] {
	return func(yield func(int64) bool) {
		for _, id := range r.snapshotOwned(owner) {
			if !yield(id) {
				return
			}
		}
	}
}

func (r *ClaimRegistry) snapshotOwned(owner domain.Account) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []int64
	for id := int64(1); id < r.nextID; id++ {
		if c, ok := r.tokens[id]; ok && c.Owner == owner {
			ids = append(ids, id)
		}
	}
	return ids
}

// ClaimsOfMarket returns the token ids minted for marketID, in mint order.
func (r *ClaimRegistry) ClaimsOfMarket(marketID int64) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, len(r.byMarket[marketID]))
	copy(ids, r.byMarket[marketID])
	return ids
}

// CountForMarket returns how many claims were ever minted for marketID.
func (r *ClaimRegistry) CountForMarket(marketID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byMarket[marketID])
}

// CountWinners returns how many of marketID's claims picked option.
func (r *ClaimRegistry) CountWinners(marketID int64, option int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, id := range r.byMarket[marketID] {
		if r.tokens[id].ChosenOption == option {
			n++
		}
	}
	return n
}

var _ TokenOwnership = (*ClaimRegistry)(nil)
