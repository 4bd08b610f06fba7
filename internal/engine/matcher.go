package engine

import (
	"math"

	"github.com/google/uuid"

	"github.com/efreitasn/dasim/internal/domain"
)

// Rejection reasons carried by OrderRejected events.
const (
	RejectQuantity = "quantity_must_be_one"
	RejectPrice    = "price_out_of_bounds"
	RejectInteger  = "price_not_integer"
)

// Config holds the exchange's order acceptance and book rules.
type Config struct {
	MinPrice            float64 // 0 disables the lower bound
	MaxPrice            float64 // 0 disables the upper bound
	IntegerPrices       bool
	BookLimit           int // max resting orders per side, 0 for unlimited
	ResetAfterEachTrade bool
}

// Exchange is a single-good continuous double auction for unit orders.
// Submitted orders are queued; each Process call handles one queued
// order under price-time priority and appends the resulting events to
// an outbound stream drained with Events.
//
// The trade price is always the resting order's price.
type Exchange struct {
	cfg     Config
	book    *OrderBook
	seq     uint64
	slots   []int            // slot → agent id
	byAgent map[int][]string // agent id → resting order ids
	inbox   []domain.Order   // submitted, not yet processed
	outbox  []domain.Event   // produced, not yet drained
}

// NewExchange creates an Exchange with an empty book.
func NewExchange(cfg Config) *Exchange {
	return &Exchange{
		cfg:     cfg,
		book:    NewOrderBook(),
		byAgent: make(map[int][]string),
	}
}

// Submit assigns the order its identity-table slot and order id and
// queues it for processing.
func (x *Exchange) Submit(order domain.Order) {
	order.Slot = len(x.slots)
	order.OrderID = uuid.New().String()
	x.slots = append(x.slots, order.AgentID)
	x.inbox = append(x.inbox, order)
}

// Process handles the oldest queued order. It returns true while more
// queued orders remain.
func (x *Exchange) Process() bool {
	if len(x.inbox) == 0 {
		return false
	}
	order := x.inbox[0]
	x.inbox = x.inbox[1:]

	x.handle(order)

	return len(x.inbox) > 0
}

// handle validates one order, withdraws previous orders if requested,
// then matches it against the best opposite order or rests it.
func (x *Exchange) handle(order domain.Order) {
	// Step 1: Validate.
	if reason := x.validate(order); reason != "" {
		x.outbox = append(x.outbox, domain.RejectedEvent(order, reason))
		return
	}

	// Step 2: Withdraw the agent's resting orders.
	if order.CancelPrevious {
		x.cancelAgent(order.AgentID)
	}

	x.outbox = append(x.outbox, domain.AcceptedEvent(order))

	// Step 3: Peek best opposite and check price compatibility.
	var best OrderBookEntry
	var found bool
	if order.IsBuy() {
		best, found = x.book.BestAsk()
		found = found && order.Price >= best.Price
	} else {
		best, found = x.book.BestBid()
		found = found && best.Price >= order.Price
	}

	if found {
		x.book.Remove(best.OrderID)

		trade := domain.Trade{
			T:        order.T,
			Quantity: 1,
			Prices:   []float64{best.Price},
		}
		if order.IsBuy() {
			trade.BuySlots = []int{order.Slot}
			trade.SellSlots = []int{best.Order.Slot}
		} else {
			trade.BuySlots = []int{best.Order.Slot}
			trade.SellSlots = []int{order.Slot}
		}
		x.outbox = append(x.outbox, domain.TradeEvent(trade))

		if x.cfg.ResetAfterEachTrade {
			x.book.Clear()
			x.byAgent = make(map[int][]string)
		}
		return
	}

	// Step 4: Rest on the book.
	x.seq++
	entry := OrderBookEntry{
		Price:   order.Price,
		Seq:     x.seq,
		OrderID: order.OrderID,
		Order:   order,
	}
	if order.IsBuy() {
		x.book.InsertBid(entry)
	} else {
		x.book.InsertAsk(entry)
	}
	x.byAgent[order.AgentID] = append(x.byAgent[order.AgentID], order.OrderID)
	x.trim(order.Side)
}

func (x *Exchange) validate(order domain.Order) string {
	if order.Quantity != 1 {
		return RejectQuantity
	}
	if !order.IsBuy() && !order.IsSell() {
		return RejectPrice
	}
	if !domain.UsablePrice(order.Price) {
		return RejectPrice
	}
	if x.cfg.MinPrice > 0 && order.Price < x.cfg.MinPrice {
		return RejectPrice
	}
	if x.cfg.MaxPrice > 0 && order.Price > x.cfg.MaxPrice {
		return RejectPrice
	}
	if x.cfg.IntegerPrices && order.Price != math.Trunc(order.Price) {
		return RejectInteger
	}
	return ""
}

func (x *Exchange) cancelAgent(agentID int) {
	for _, id := range x.byAgent[agentID] {
		x.book.Remove(id)
	}
	delete(x.byAgent, agentID)
}

// trim drops the worst resting order on a side that exceeds BookLimit.
func (x *Exchange) trim(side domain.OrderSide) {
	if x.cfg.BookLimit <= 0 {
		return
	}
	if side == domain.OrderSideBid {
		for x.book.BidCount() > x.cfg.BookLimit {
			worst, _ := x.book.WorstBid()
			x.book.Remove(worst.OrderID)
		}
		return
	}
	for x.book.AskCount() > x.cfg.BookLimit {
		worst, _ := x.book.WorstAsk()
		x.book.Remove(worst.OrderID)
	}
}

// Clear discards the book, the queue, the identity table and any
// undrained events.
func (x *Exchange) Clear() {
	x.book.Clear()
	x.seq = 0
	x.slots = nil
	x.byAgent = make(map[int][]string)
	x.inbox = nil
	x.outbox = nil
}

// Events drains and returns the events produced since the last call.
func (x *Exchange) Events() []domain.Event {
	events := x.outbox
	x.outbox = nil
	return events
}

// AgentID resolves an identity-table slot to the submitting agent.
func (x *Exchange) AgentID(slot int) (int, bool) {
	if slot < 0 || slot >= len(x.slots) {
		return 0, false
	}
	return x.slots[slot], true
}

// Quote returns the best bid and ask on the book.
func (x *Exchange) Quote() domain.Quote {
	var q domain.Quote
	if b, ok := x.book.BestBid(); ok {
		q.Bid, q.HasBid = b.Price, true
	}
	if a, ok := x.book.BestAsk(); ok {
		q.Ask, q.HasAsk = a.Price, true
	}
	return q
}

// Book exposes the order book for inspection.
func (x *Exchange) Book() *OrderBook {
	return x.book
}
