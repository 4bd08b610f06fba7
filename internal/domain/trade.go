package domain

// Trade is a match reported by the engine. Slots index the engine's
// identity table. The engine contract is one unit between one buyer
// and one seller at one price; any other shape is a contract breach
// that the trade recorder reports.
type Trade struct {
	T         float64
	Quantity  int64
	BuySlots  []int
	SellSlots []int
	Prices    []float64
}
