package domain

import "time"

// Claim is a transferable token representing one purchased stake on one
// outcome of one market. The market back-reference and the chosen option
// are immutable after mint; only the owner and the prize flag mutate.
type Claim struct {
	TokenID      int64     `json:"token_id"`
	MarketID     int64     `json:"market_id"`
	ChosenOption int       `json:"chosen_option"`
	Owner        Account   `json:"owner"`
	PrizeClaimed bool      `json:"prize_claimed"`
	MintedAt     time.Time `json:"minted_at"`
}

// ClaimDetails is the query view of a claim, enriched with outcome
// information once the owning market has been finalized.
type ClaimDetails struct {
	Claim
	OptionLabel string `json:"option_label"`
	// Listed reports a live order-book listing by the current owner.
	Listed bool `json:"listed"`
	// Winner is only meaningful when Finalized is true.
	Finalized bool `json:"finalized"`
	Winner    bool `json:"winner"`
}
