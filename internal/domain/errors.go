package domain

import (
	"errors"
	"fmt"
)

// Top-level error taxonomy. Every engine failure maps to exactly one of
// these categories; the fine-grained sentinels below wrap their category so
// callers can match with errors.Is at either level.
var (
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrOwnership         = errors.New("ownership violation")
	ErrAlreadyClaimed    = errors.New("prize already claimed")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Lifecycle-state failures.
var (
	ErrMarketNotActive   = fmt.Errorf("market not active: %w", ErrInvalidState)
	ErrAlreadyActive     = fmt.Errorf("market already active: %w", ErrInvalidState)
	ErrMarketFinished    = fmt.Errorf("market finished: %w", ErrInvalidState)
	ErrMarketNotFinished = fmt.Errorf("market not finished: %w", ErrInvalidState)
	ErrMarketExpired     = fmt.Errorf("market past result time: %w", ErrInvalidState)
	ErrTooEarly          = fmt.Errorf("result time not reached: %w", ErrInvalidState)
)

// Ownership and order-book failures.
var (
	ErrNotOwner      = fmt.Errorf("not token owner: %w", ErrOwnership)
	ErrStaleListing  = fmt.Errorf("stale listing: %w", ErrOwnership)
	ErrAlreadyListed = fmt.Errorf("token already listed: %w", ErrInvalidState)
	ErrNotListed     = fmt.Errorf("token not listed: %w", ErrNotFound)
)

// Purchase and payout failures.
var (
	ErrInvalidOption         = fmt.Errorf("option out of range: %w", ErrInvalidParameters)
	ErrInvalidPrice          = fmt.Errorf("price must be positive: %w", ErrInvalidParameters)
	ErrNotWinningTicket      = errors.New("claim did not win")
	ErrInsufficientBalance   = fmt.Errorf("insufficient balance: %w", ErrInsufficientFunds)
	ErrInsufficientAllowance = fmt.Errorf("insufficient allowance: %w", ErrInsufficientFunds)
	ErrFaucetAlreadyClaimed  = fmt.Errorf("initial grant already claimed: %w", ErrInvalidState)
)

// Infrastructure failures surfaced by the cache layer.
var ErrLockHeld = errors.New("lock already held")
