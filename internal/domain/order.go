package domain

import "math"

// OrderSide indicates whether an order is a bid (buy) or ask (sell).
type OrderSide string

const (
	OrderSideBid OrderSide = "bid"
	OrderSideAsk OrderSide = "ask"
)

// Order is a limit order submitted by an agent to the matching engine.
// A single record carries either a buy price or a sell price, never both:
// Side says which one Price is.
type Order struct {
	OrderID        string  // assigned by the engine on submit
	Slot           int     // engine identity-table index, assigned on submit
	T              float64 // simulated submission time
	AgentID        int
	Quantity       int64
	Side           OrderSide
	Price          float64
	CancelPrevious bool // withdraw the agent's resting orders first
}

// IsBuy reports whether the order carries a buy price.
func (o *Order) IsBuy() bool {
	return o.Side == OrderSideBid
}

// IsSell reports whether the order carries a sell price.
func (o *Order) IsSell() bool {
	return o.Side == OrderSideAsk
}

// BuyPrice returns the buy limit price, or (0, false) for sell orders
// and orders without a usable price.
func (o *Order) BuyPrice() (float64, bool) {
	if !o.IsBuy() || !UsablePrice(o.Price) {
		return 0, false
	}
	return o.Price, true
}

// SellPrice returns the sell limit price, or (0, false) for buy orders
// and orders without a usable price.
func (o *Order) SellPrice() (float64, bool) {
	if !o.IsSell() || !UsablePrice(o.Price) {
		return 0, false
	}
	return o.Price, true
}

// UsablePrice reports whether p is a finite, strictly positive price.
func UsablePrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

// Quote is the best bid and ask currently resting on the book.
type Quote struct {
	Bid    float64
	Ask    float64
	HasBid bool
	HasAsk bool
}

// Spread returns ask - bid when both sides are present.
func (q Quote) Spread() (float64, bool) {
	if !q.HasBid || !q.HasAsk {
		return 0, false
	}
	return q.Ask - q.Bid, true
}
