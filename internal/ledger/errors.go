package ledger

import (
	"fmt"
	"time"
)

// InsufficientFundsError reports a rejected debit with the shortfall detail.
type InsufficientFundsError struct {
	Required  int64 // Coin amount the action costs.
	Available int64 // Balance at the time of the attempt.
}

// Error renders the shortfall.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %d coins, have %d", e.Required, e.Available)
}

// AlreadyClaimedError reports a daily claim attempted inside the 24h window.
type AlreadyClaimedError struct {
	NextIn time.Duration // Time remaining until the next claim is allowed.
}

// Error renders the remaining wait.
func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("daily claim already taken, next claim in %s", e.NextIn.Round(time.Second))
}
