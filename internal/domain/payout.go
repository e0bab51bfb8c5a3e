package domain

import "time"

// Payout records one committed prize payment.
type Payout struct {
	MarketID  int64     `json:"market_id"`
	TokenID   int64     `json:"token_id"`
	Recipient Account   `json:"recipient"`
	Amount    int64     `json:"amount"`
	BatchID   string    `json:"batch_id,omitempty"` // set for distributeAll batches
	PaidAt    time.Time `json:"paid_at"`
}

// PayoutResult is the per-token outcome of a distributeAll batch. A failed
// entry never rolls back payments committed earlier in the same batch.
type PayoutResult struct {
	TokenID   int64   `json:"token_id"`
	Recipient Account `json:"recipient"`
	Amount    int64   `json:"amount"`
	Paid      bool    `json:"paid"`
	Skipped   bool    `json:"skipped"` // already claimed before this batch
	Error     string  `json:"error,omitempty"`
}

// Distribution summarizes one distributeAll invocation.
type Distribution struct {
	MarketID  int64          `json:"market_id"`
	BatchID   string         `json:"batch_id"`
	Results   []PayoutResult `json:"results"`
	TotalPaid int64          `json:"total_paid"`
	Remainder int64          `json:"remainder"`
	Complete  bool           `json:"complete"` // no unpaid winning claim remains
	RanAt     time.Time      `json:"ran_at"`
}
