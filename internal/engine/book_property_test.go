package engine

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// Property: Order book sorting invariant

// genOrderBookEntry generates a random OrderBookEntry with constrained values.
func genOrderBookEntry(id int) *rapid.Generator[OrderBookEntry] {
	return rapid.Custom(func(t *rapid.T) OrderBookEntry {
		price := float64(rapid.IntRange(1, 200).Draw(t, "price"))
		// Small sequence range to encourage collisions and exercise tiebreaking.
		seq := uint64(rapid.IntRange(0, 20).Draw(t, "seq"))
		return makeEntry(price, seq, fmt.Sprintf("order-%d", id))
	})
}

func TestProperty_BidSideSortingInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 50).Draw(t, "numEntries")
		book := NewOrderBook()

		for i := 0; i < n; i++ {
			book.InsertBid(genOrderBookEntry(i).Draw(t, fmt.Sprintf("bid-%d", i)))
		}

		var prev *OrderBookEntry
		book.WalkBids(func(entry OrderBookEntry) bool {
			if prev != nil {
				if entry.Price > prev.Price {
					t.Fatalf("bid side: price should be descending, got %v after %v", entry.Price, prev.Price)
				}
				if entry.Price == prev.Price && entry.Seq < prev.Seq {
					t.Fatalf("bid side: same price %v, seq should be ascending, got %d after %d",
						entry.Price, entry.Seq, prev.Seq)
				}
			}
			cur := entry
			prev = &cur
			return true
		})
	})
}

func TestProperty_AskSideSortingInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 50).Draw(t, "numEntries")
		book := NewOrderBook()

		for i := 0; i < n; i++ {
			book.InsertAsk(genOrderBookEntry(i).Draw(t, fmt.Sprintf("ask-%d", i)))
		}

		var prev *OrderBookEntry
		book.WalkAsks(func(entry OrderBookEntry) bool {
			if prev != nil {
				if entry.Price < prev.Price {
					t.Fatalf("ask side: price should be ascending, got %v after %v", entry.Price, prev.Price)
				}
				if entry.Price == prev.Price && entry.Seq < prev.Seq {
					t.Fatalf("ask side: same price %v, seq should be ascending, got %d after %d",
						entry.Price, entry.Seq, prev.Seq)
				}
			}
			cur := entry
			prev = &cur
			return true
		})
	})
}
