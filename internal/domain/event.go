package domain

// EventKind tags the variant carried by an Event.
type EventKind string

const (
	EventTrade         EventKind = "trade"
	EventOrderAccepted EventKind = "order_accepted"
	EventOrderRejected EventKind = "order_rejected"
)

// Event is one entry of the matching engine's output stream. Exactly
// one of Order or Trade is set, according to Kind.
type Event struct {
	Kind   EventKind
	Order  *Order
	Trade  *Trade
	Reason string // set for rejections
}

// TradeEvent wraps a trade.
func TradeEvent(t Trade) Event {
	return Event{Kind: EventTrade, Trade: &t}
}

// AcceptedEvent wraps an order accepted for the book.
func AcceptedEvent(o Order) Event {
	return Event{Kind: EventOrderAccepted, Order: &o}
}

// RejectedEvent wraps a rejected order and the rejection reason.
func RejectedEvent(o Order, reason string) Event {
	return Event{Kind: EventOrderRejected, Order: &o, Reason: reason}
}
