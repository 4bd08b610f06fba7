package agent

import (
	"math"

	"github.com/efreitasn/dasim/internal/domain"
)

// Kind tags a behavior for capability checks.
type Kind string

const (
	KindZI        Kind = "ZIAgent"
	KindTruthful  Kind = "TruthfulAgent"
	KindDoNothing Kind = "DoNothingAgent"
	KindSniper    Kind = "KaplanSniperAgent"
)

// TradingBehavior prices an agent's next unit. Returning false means
// the agent stays out of the market on this wake.
type TradingBehavior interface {
	Kind() Kind
	BidPrice(a *Agent, q domain.Quote, value float64) (float64, bool)
	AskPrice(a *Agent, q domain.Quote, cost float64) (float64, bool)
}

// JuicyPrices is the source of the previous period's extreme prices.
type JuicyPrices interface {
	LastHigh() (float64, bool)
	LastLow() (float64, bool)
}

// ZIBehavior is a zero-intelligence trader. Constrained agents draw
// bids from [minPrice, value] and asks from [cost, maxPrice]; agents
// ignoring the budget draw from the whole price range.
type ZIBehavior struct{}

func (ZIBehavior) Kind() Kind { return KindZI }

func (ZIBehavior) BidPrice(a *Agent, _ domain.Quote, value float64) (float64, bool) {
	hi := value
	if a.opts.IgnoreBudget || hi > a.opts.MaxPrice {
		hi = a.opts.MaxPrice
	}
	return a.uniformPrice(a.opts.MinPrice, hi)
}

func (ZIBehavior) AskPrice(a *Agent, _ domain.Quote, cost float64) (float64, bool) {
	lo := cost
	if a.opts.IgnoreBudget || lo < a.opts.MinPrice {
		lo = a.opts.MinPrice
	}
	return a.uniformPrice(lo, a.opts.MaxPrice)
}

// uniformPrice draws from [lo, hi], on integers when the market
// requires integer prices.
func (a *Agent) uniformPrice(lo, hi float64) (float64, bool) {
	if a.opts.IntegerPrices {
		lo, hi = math.Ceil(lo), math.Floor(hi)
		if hi < lo {
			return 0, false
		}
		return lo + float64(a.rng.IntN(int(hi-lo)+1)), true
	}
	if hi < lo {
		return 0, false
	}
	return lo + a.rng.Float64()*(hi-lo), true
}

// TruthfulBehavior bids its value and asks its cost.
type TruthfulBehavior struct{}

func (TruthfulBehavior) Kind() Kind { return KindTruthful }

func (TruthfulBehavior) BidPrice(a *Agent, _ domain.Quote, value float64) (float64, bool) {
	if a.opts.IntegerPrices {
		value = math.Floor(value)
	}
	return value, domain.UsablePrice(value)
}

func (TruthfulBehavior) AskPrice(a *Agent, _ domain.Quote, cost float64) (float64, bool) {
	if a.opts.IntegerPrices {
		cost = math.Ceil(cost)
	}
	return cost, domain.UsablePrice(cost)
}

// DoNothingBehavior never trades.
type DoNothingBehavior struct{}

func (DoNothingBehavior) Kind() Kind { return KindDoNothing }

func (DoNothingBehavior) BidPrice(*Agent, domain.Quote, float64) (float64, bool) {
	return 0, false
}

func (DoNothingBehavior) AskPrice(*Agent, domain.Quote, float64) (float64, bool) {
	return 0, false
}

// Sniper thresholds.
const (
	sniperSpreadFraction = 0.10
	sniperEndFraction    = 0.10
)

// SniperBehavior waits in the background and only takes the standing
// quote: when it beats last period's extreme price, when the spread is
// narrow, or when the period is nearly over. It never takes a loss.
type SniperBehavior struct {
	Juicy JuicyPrices
}

func (*SniperBehavior) Kind() Kind { return KindSniper }

// JuicyBidPrice is the previous period's high.
func (s *SniperBehavior) JuicyBidPrice() (float64, bool) {
	if s.Juicy == nil {
		return 0, false
	}
	return s.Juicy.LastHigh()
}

// JuicyAskPrice is the previous period's low.
func (s *SniperBehavior) JuicyAskPrice() (float64, bool) {
	if s.Juicy == nil {
		return 0, false
	}
	return s.Juicy.LastLow()
}

func (s *SniperBehavior) BidPrice(a *Agent, q domain.Quote, value float64) (float64, bool) {
	if !q.HasAsk || q.Ask >= value {
		return 0, false
	}
	juicy, ok := s.JuicyBidPrice()
	if (ok && q.Ask <= juicy) || narrowSpread(q) || nearPeriodEnd(a) {
		return q.Ask, true
	}
	return 0, false
}

func (s *SniperBehavior) AskPrice(a *Agent, q domain.Quote, cost float64) (float64, bool) {
	if !q.HasBid || q.Bid <= cost {
		return 0, false
	}
	juicy, ok := s.JuicyAskPrice()
	if (ok && q.Bid >= juicy) || narrowSpread(q) || nearPeriodEnd(a) {
		return q.Bid, true
	}
	return 0, false
}

func narrowSpread(q domain.Quote) bool {
	spread, ok := q.Spread()
	return ok && q.Ask > 0 && spread/q.Ask < sniperSpreadFraction
}

func nearPeriodEnd(a *Agent) bool {
	p := a.period
	d := p.EndTime - p.StartTime
	return d > 0 && p.EndTime-a.wakeTime < d*sniperEndFraction
}
