package engine

import (
	"testing"

	"github.com/efreitasn/dasim/internal/domain"
)

// helper to create an OrderBookEntry with a minimal Order.
func makeEntry(price float64, seq uint64, orderID string) OrderBookEntry {
	return OrderBookEntry{
		Price:   price,
		Seq:     seq,
		OrderID: orderID,
		Order: domain.Order{
			OrderID:  orderID,
			Price:    price,
			Quantity: 1,
		},
	}
}

func TestBidLess_PriceDescending(t *testing.T) {
	a := makeEntry(200, 1, "a")
	b := makeEntry(100, 1, "b")
	// Higher price should come first (be "less" in bid ordering).
	if !bidLess(a, b) {
		t.Error("expected higher price to be less on bid side")
	}
	if bidLess(b, a) {
		t.Error("expected lower price to not be less on bid side")
	}
}

func TestBidLess_ArrivalAscending(t *testing.T) {
	a := makeEntry(100, 1, "a")
	b := makeEntry(100, 2, "b")
	if !bidLess(a, b) {
		t.Error("expected earlier arrival to be less on bid side at same price")
	}
	if bidLess(b, a) {
		t.Error("expected later arrival to not be less on bid side at same price")
	}
}

func TestBidLess_OrderIDAscending(t *testing.T) {
	a := makeEntry(100, 1, "a")
	b := makeEntry(100, 1, "b")
	if !bidLess(a, b) {
		t.Error("expected smaller order_id to be less on bid side at same price and arrival")
	}
}

func TestAskLess_PriceAscending(t *testing.T) {
	a := makeEntry(100, 1, "a")
	b := makeEntry(200, 1, "b")
	if !askLess(a, b) {
		t.Error("expected lower price to be less on ask side")
	}
	if askLess(b, a) {
		t.Error("expected higher price to not be less on ask side")
	}
}

func TestAskLess_ArrivalAscending(t *testing.T) {
	a := makeEntry(100, 1, "a")
	b := makeEntry(100, 2, "b")
	if !askLess(a, b) {
		t.Error("expected earlier arrival to be less on ask side at same price")
	}
}

func TestOrderBook_BestBidAndAsk(t *testing.T) {
	book := NewOrderBook()
	book.InsertBid(makeEntry(90, 1, "b1"))
	book.InsertBid(makeEntry(95, 2, "b2"))
	book.InsertAsk(makeEntry(110, 3, "a1"))
	book.InsertAsk(makeEntry(105, 4, "a2"))

	bid, ok := book.BestBid()
	if !ok || bid.OrderID != "b2" {
		t.Errorf("BestBid() = %v, want b2", bid.OrderID)
	}
	ask, ok := book.BestAsk()
	if !ok || ask.OrderID != "a2" {
		t.Errorf("BestAsk() = %v, want a2", ask.OrderID)
	}
	worst, ok := book.WorstBid()
	if !ok || worst.OrderID != "b1" {
		t.Errorf("WorstBid() = %v, want b1", worst.OrderID)
	}
	worst, ok = book.WorstAsk()
	if !ok || worst.OrderID != "a1" {
		t.Errorf("WorstAsk() = %v, want a1", worst.OrderID)
	}
}

func TestOrderBook_EmptyBook(t *testing.T) {
	book := NewOrderBook()
	if _, ok := book.BestBid(); ok {
		t.Error("expected no best bid on empty book")
	}
	if _, ok := book.BestAsk(); ok {
		t.Error("expected no best ask on empty book")
	}
}

func TestOrderBook_Remove(t *testing.T) {
	book := NewOrderBook()
	book.InsertBid(makeEntry(90, 1, "b1"))
	book.InsertAsk(makeEntry(110, 2, "a1"))

	book.Remove("b1")
	if book.BidCount() != 0 {
		t.Errorf("expected 0 bids after remove, got %d", book.BidCount())
	}
	if book.AskCount() != 1 {
		t.Errorf("expected ask side untouched, got %d", book.AskCount())
	}

	// Removing an unknown id is a no-op.
	book.Remove("missing")
	if book.AskCount() != 1 {
		t.Errorf("expected 1 ask after no-op remove, got %d", book.AskCount())
	}
}

func TestOrderBook_WalkOrder(t *testing.T) {
	book := NewOrderBook()
	book.InsertAsk(makeEntry(120, 1, "a1"))
	book.InsertAsk(makeEntry(100, 2, "a2"))
	book.InsertAsk(makeEntry(110, 3, "a3"))

	var prices []float64
	book.WalkAsks(func(e OrderBookEntry) bool {
		prices = append(prices, e.Price)
		return true
	})
	want := []float64{100, 110, 120}
	for i := range want {
		if prices[i] != want[i] {
			t.Fatalf("WalkAsks order = %v, want %v", prices, want)
		}
	}
}

func TestOrderBook_Clear(t *testing.T) {
	book := NewOrderBook()
	book.InsertBid(makeEntry(90, 1, "b1"))
	book.InsertAsk(makeEntry(110, 2, "a1"))

	book.Clear()
	if book.BidCount() != 0 || book.AskCount() != 0 {
		t.Errorf("expected empty book, got bids=%d asks=%d", book.BidCount(), book.AskCount())
	}
	// The index is reset too: re-inserting the same id works.
	book.InsertBid(makeEntry(90, 1, "b1"))
	if book.BidCount() != 1 {
		t.Errorf("expected 1 bid after re-insert, got %d", book.BidCount())
	}
}
