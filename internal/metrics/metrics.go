// Package metrics reduces a period's trade prices and the population's
// wealth into the per-period analytics rows.
package metrics

import (
	"slices"
	"sort"
	"sync"
)

// OHLC summarizes a period's trade prices in execution order.
type OHLC struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// PriceSummary returns the open, high, low and close of prices. It
// reports false for a period without trades; no row is produced then.
func PriceSummary(prices []float64) (OHLC, bool) {
	if len(prices) == 0 {
		return OHLC{}, false
	}
	return OHLC{
		Open:  prices[0],
		High:  slices.Max(prices),
		Low:   slices.Min(prices),
		Close: prices[len(prices)-1],
	}, true
}

// Volume is the number of units traded. Every trade is a single unit.
func Volume(prices []float64) int {
	return len(prices)
}

// Profit returns the per-agent money snapshot as a row, in pool order.
func Profit(money []float64) []float64 {
	return slices.Clone(money)
}

// EfficiencyOfAllocation is 100 times the population's total money over
// the maximum gains from trade. The money is cumulative across periods,
// so the value is too. It reports false when maxGains is not positive.
func EfficiencyOfAllocation(money []float64, maxGains float64) (float64, bool) {
	if !(maxGains > 0) {
		return 0, false
	}
	var total float64
	for _, m := range money {
		total += m
	}
	return 100 * total / maxGains, true
}

// MaximumGainsFromTrade is the competitive-equilibrium surplus: values
// sorted highest first are paired with costs sorted lowest first while
// the value exceeds the cost, and the differences summed.
func MaximumGainsFromTrade(values, costs []float64) float64 {
	v := slices.Clone(values)
	c := slices.Clone(costs)
	sort.Sort(sort.Reverse(sort.Float64Slice(v)))
	sort.Float64s(c)

	var gains float64
	for i := 0; i < len(v) && i < len(c); i++ {
		if !(v[i] > c[i]) {
			break
		}
		gains += v[i] - c[i]
	}
	return gains
}

// Gains memoizes MaximumGainsFromTrade for one market.
type Gains struct {
	values []float64
	costs  []float64

	once  sync.Once
	value float64
}

// NewGains captures copies of the aggregate values and costs.
func NewGains(values, costs []float64) *Gains {
	return &Gains{values: slices.Clone(values), costs: slices.Clone(costs)}
}

// Value computes the maximum gains on first use and returns the cached
// result afterwards.
func (g *Gains) Value() float64 {
	g.once.Do(func() {
		g.value = MaximumGainsFromTrade(g.values, g.costs)
	})
	return g.value
}
