package domain

import (
	"strconv"
	"time"
)

// Bus channels for engine events. The order-book channel is per market so
// clients can subscribe with the wildcard pattern "ch:book:*".
const (
	ChannelMarket = "ch:market"
	ChannelClaim  = "ch:claim"
	ChannelPayout = "ch:payout"
)

// BookChannel returns the per-market order-book channel name.
func BookChannel(marketID int64) string {
	return "ch:book:" + strconv.FormatInt(marketID, 10)
}

// EventType enumerates the engine events published on the signal bus.
type EventType string

const (
	EventMarketCreated     EventType = "market_created"
	EventMarketActivated   EventType = "market_activated"
	EventMarketDeactivated EventType = "market_deactivated"
	EventOutcomeAnnounced  EventType = "outcome_announced"
	EventClaimPurchased    EventType = "claim_purchased"
	EventClaimTransferred  EventType = "claim_transferred"
	EventListingCreated    EventType = "listing_created"
	EventListingCancelled  EventType = "listing_cancelled"
	EventTradeSettled      EventType = "trade_settled"
	EventPrizeClaimed      EventType = "prize_claimed"
	EventPrizesDistributed EventType = "prizes_distributed"
)

// Event is the JSON envelope published on the signal bus for every committed
// engine mutation.
type Event struct {
	Type     EventType `json:"type"`
	MarketID int64     `json:"market_id,omitempty"`
	TokenID  int64     `json:"token_id,omitempty"`
	Payload  any       `json:"payload,omitempty"`
	At       time.Time `json:"at"`
}
