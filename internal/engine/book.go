package engine

import (
	"github.com/google/btree"

	"github.com/efreitasn/dasim/internal/domain"
)

// OrderBookEntry represents a single order resting on the book.
type OrderBookEntry struct {
	Price   float64
	Seq     uint64 // arrival sequence, the time half of price-time priority
	OrderID string
	Order   domain.Order
}

// bidLess defines ordering for the bid side: price descending, then
// arrival ascending, then order_id ascending. Min() returns the best bid.
func bidLess(a, b OrderBookEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return a.OrderID < b.OrderID
}

// askLess defines ordering for the ask side: price ascending, then
// arrival ascending, then order_id ascending. Min() returns the best ask.
func askLess(a, b OrderBookEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return a.OrderID < b.OrderID
}

// OrderBook maintains the bid and ask sides of the single traded good
// using B-trees with a secondary index for removal by order ID.
//
// The book is driven from the simulation's single thread of control and
// is not safe for concurrent use.
type OrderBook struct {
	bids  *btree.BTreeG[OrderBookEntry]
	asks  *btree.BTreeG[OrderBookEntry]
	index map[string]OrderBookEntry // order_id → entry
}

// NewOrderBook creates an empty order book.
func NewOrderBook() *OrderBook {
	const degree = 32
	return &OrderBook{
		bids:  btree.NewG[OrderBookEntry](degree, bidLess),
		asks:  btree.NewG[OrderBookEntry](degree, askLess),
		index: make(map[string]OrderBookEntry),
	}
}

// InsertBid adds an entry to the bid side of the book.
func (ob *OrderBook) InsertBid(entry OrderBookEntry) {
	ob.bids.ReplaceOrInsert(entry)
	ob.index[entry.OrderID] = entry
}

// InsertAsk adds an entry to the ask side of the book.
func (ob *OrderBook) InsertAsk(entry OrderBookEntry) {
	ob.asks.ReplaceOrInsert(entry)
	ob.index[entry.OrderID] = entry
}

// Remove deletes an order from the book by order ID using the
// secondary index. It tries both sides since the caller may not
// know which side the order is on.
func (ob *OrderBook) Remove(orderID string) {
	entry, ok := ob.index[orderID]
	if !ok {
		return
	}
	delete(ob.index, orderID)
	ob.bids.Delete(entry)
	ob.asks.Delete(entry)
}

// BestBid returns the highest-priority bid (highest price, earliest arrival).
func (ob *OrderBook) BestBid() (OrderBookEntry, bool) {
	return ob.bids.Min()
}

// BestAsk returns the highest-priority ask (lowest price, earliest arrival).
func (ob *OrderBook) BestAsk() (OrderBookEntry, bool) {
	return ob.asks.Min()
}

// WorstBid returns the lowest-priority bid.
func (ob *OrderBook) WorstBid() (OrderBookEntry, bool) {
	return ob.bids.Max()
}

// WorstAsk returns the lowest-priority ask.
func (ob *OrderBook) WorstAsk() (OrderBookEntry, bool) {
	return ob.asks.Max()
}

// WalkAsks iterates asks in order (lowest price first). The callback
// returns true to continue, false to stop.
func (ob *OrderBook) WalkAsks(fn func(OrderBookEntry) bool) {
	ob.asks.Ascend(fn)
}

// WalkBids iterates bids in order (highest price first). The callback
// returns true to continue, false to stop.
func (ob *OrderBook) WalkBids(fn func(OrderBookEntry) bool) {
	ob.bids.Ascend(fn)
}

// BidCount returns the number of bid orders on the book.
func (ob *OrderBook) BidCount() int {
	return ob.bids.Len()
}

// AskCount returns the number of ask orders on the book.
func (ob *OrderBook) AskCount() int {
	return ob.asks.Len()
}

// Clear empties both sides of the book.
func (ob *OrderBook) Clear() {
	ob.bids.Clear(false)
	ob.asks.Clear(false)
	ob.index = make(map[string]OrderBookEntry)
}
