package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
var (
	ErrNoAgents         = errors.New("cannot_determine_agent_counts")
	ErrUnknownAgentType = errors.New("unknown_agent_type")
	ErrMissingEndTime   = errors.New("missing_period_end_time")
	ErrRealtimeActive   = errors.New("realtime_period_already_active")
	ErrPeriodActive     = errors.New("period_already_active")
	ErrTradeShape       = errors.New("trade_not_single_unit")
	ErrUnknownTrader    = errors.New("trade_party_not_found")
	ErrTradePrice       = errors.New("trade_price_missing")
	ErrPeriodsComplete  = errors.New("all_periods_complete")
)

// ValidationError represents a configuration validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TradeError reports a trade that breaks the engine's trade contract.
// It unwraps to one of ErrTradeShape, ErrUnknownTrader or ErrTradePrice.
type TradeError struct {
	Trade Trade
	Err   error
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("%v: t=%v q=%d buy=%v sell=%v prices=%v",
		e.Err, e.Trade.T, e.Trade.Quantity, e.Trade.BuySlots, e.Trade.SellSlots, e.Trade.Prices)
}

func (e *TradeError) Unwrap() error {
	return e.Err
}
