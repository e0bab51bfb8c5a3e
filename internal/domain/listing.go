package domain

import "time"

// Listing is a standing offer to sell one claim at a fixed price. The
// seller is cached at listing time and re-validated against current
// ownership at settlement; a listing whose token changed hands by any other
// path is stale and gets evicted lazily.
type Listing struct {
	TokenID  int64     `json:"token_id"`
	MarketID int64     `json:"market_id"`
	Price    int64     `json:"price"`
	Seller   Account   `json:"seller"`
	ListedAt time.Time `json:"listed_at"`
}

// Trade records one settled order-book purchase.
type Trade struct {
	TokenID  int64     `json:"token_id"`
	MarketID int64     `json:"market_id"`
	Price    int64     `json:"price"`
	Seller   Account   `json:"seller"`
	Buyer    Account   `json:"buyer"`
	TradedAt time.Time `json:"traded_at"`
}
