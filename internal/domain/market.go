// Package domain holds the core data model of the betting engine: markets,
// claim tokens, order-book listings, payouts, and the interfaces the engine
// requires from its collaborators (stores, caches, blob storage, the signal
// bus). It has no dependencies on any concrete infrastructure.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Account identifies a party on the credit ledger and the claim registry.
// The engine inherits the original system's address-based identity; parsing
// and checksum validation happen at the API boundary.
type Account = common.Address

// MarketState represents the lifecycle state of a market.
type MarketState string

const (
	MarketStateCreated          MarketState = "created"
	MarketStateActive           MarketState = "active"
	MarketStateInactive         MarketState = "inactive"
	MarketStateFinished         MarketState = "finished"
	MarketStatePayoutInProgress MarketState = "payout_in_progress"
	MarketStatePayoutComplete   MarketState = "payout_complete"
)

// Finalized reports whether the market has an announced outcome. Payout
// bookkeeping states are finalized states: the outcome can never change.
func (s MarketState) Finalized() bool {
	switch s {
	case MarketStateFinished, MarketStatePayoutInProgress, MarketStatePayoutComplete:
		return true
	default:
		return false
	}
}

// NoWinningOption is the WinningOption value of a market that has not been
// finalized.
const NoWinningOption = -1

// Market represents one bettable event. All monetary fields are in the
// smallest indivisible credit unit.
type Market struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	SideA         string      `json:"side_a"`
	SideB         string      `json:"side_b"`
	Options       []string    `json:"options"` // ordered outcome labels, last is conventionally "draw"
	TicketPrice   int64       `json:"ticket_price"`
	ResultTime    time.Time   `json:"result_time"`
	Pool          int64       `json:"pool"`
	State         MarketState `json:"state"`
	WinningOption int         `json:"winning_option"` // NoWinningOption until finalized
	// PrizeShare is fixed at announce time as pool / winning claim count;
	// zero until finalized or when no claim picked the winning option.
	PrizeShare int64 `json:"prize_share"`
	// FinalPool is the pool snapshot taken at announce time, before any
	// payout decrements Pool.
	FinalPool         int64     `json:"final_pool"`
	WinningClaims     int       `json:"winning_claims"`
	PaidClaims        int       `json:"paid_claims"`
	ClaimCount        int       `json:"claim_count"`
	PrizesDistributed bool      `json:"prizes_distributed"`
	Creator           Account   `json:"creator"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AcceptsPurchases reports whether the market state allows minting new
// claims. The result-time check is the lifecycle's responsibility.
func (m Market) AcceptsPurchases() bool {
	return m.State == MarketStateActive
}

// Remainder returns the dust that stays in the pool once every winning
// claim has been paid its fixed share. Zero before finalization. When no
// claim picked the winning option the whole pool is dust.
func (m Market) Remainder() int64 {
	if m.WinningOption == NoWinningOption {
		return 0
	}
	return m.FinalPool - m.PrizeShare*int64(m.WinningClaims)
}
