// Package agent provides the trading population: agents with unit
// values or costs, their pricing behaviors, and the pool that wakes
// them in simulated-time order.
package agent

import (
	"math"
	"math/rand/v2"

	"github.com/efreitasn/dasim/internal/domain"
)

// Role distinguishes buyers from sellers.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Inventory is an agent's holdings. Goods counts units bought (positive)
// or sold (negative) in the current period.
type Inventory struct {
	Goods int64
	Money float64
}

// Market is the view of the matching engine an agent trades against.
// Process returns true while more matching work remains and surfaces
// fatal errors raised while recording the engine's events.
type Market interface {
	Submit(order domain.Order)
	Process() (bool, error)
	Quote() domain.Quote
}

// Trader is the capability set the simulation needs from an agent.
type Trader interface {
	ID() int
	Inventory() Inventory
	UnitValue(inv Inventory) (float64, bool)
	UnitCost(inv Inventory) (float64, bool)
}

// Options configures a new Agent.
type Options struct {
	ID                 int
	Role               Role
	Type               string // registry name, informational
	Rate               float64
	MinPrice           float64
	MaxPrice           float64
	IntegerPrices      bool
	IgnoreBudget       bool
	KeepPreviousOrders bool
	Seed               uint64
}

// Agent is a single-good trader. Buyers redeem units at their values,
// sellers produce units at their costs. Values are consumed highest
// first and costs lowest first.
type Agent struct {
	opts     Options
	values   []float64
	costs    []float64
	wakeTime float64
	inv      Inventory
	period   domain.Period
	behavior TradingBehavior
	rng      *rand.Rand
}

// New creates an agent with the given behavior.
func New(opts Options, behavior TradingBehavior) *Agent {
	return &Agent{
		opts:     opts,
		behavior: behavior,
		wakeTime: math.Inf(1),
		rng:      rand.New(rand.NewPCG(opts.Seed, uint64(opts.ID))),
	}
}

func (a *Agent) ID() int                   { return a.opts.ID }
func (a *Agent) Role() Role                { return a.opts.Role }
func (a *Agent) Type() string              { return a.opts.Type }
func (a *Agent) WakeTime() float64         { return a.wakeTime }
func (a *Agent) Inventory() Inventory      { return a.inv }
func (a *Agent) Period() domain.Period     { return a.period }
func (a *Agent) Behavior() TradingBehavior { return a.behavior }

// Values returns the buyer's unit values, highest first.
func (a *Agent) Values() []float64 {
	return append([]float64(nil), a.values...)
}

// Costs returns the seller's unit costs, lowest first.
func (a *Agent) Costs() []float64 {
	return append([]float64(nil), a.costs...)
}

// UnitValue is the value of the next unit a buyer holding inv would buy.
func (a *Agent) UnitValue(inv Inventory) (float64, bool) {
	if a.opts.Role != RoleBuyer {
		return 0, false
	}
	i := inv.Goods
	if i < 0 || i >= int64(len(a.values)) {
		return 0, false
	}
	return a.values[i], true
}

// UnitCost is the cost of the next unit a seller holding inv would sell.
func (a *Agent) UnitCost(inv Inventory) (float64, bool) {
	if a.opts.Role != RoleSeller {
		return 0, false
	}
	i := -inv.Goods
	if i < 0 || i >= int64(len(a.costs)) {
		return 0, false
	}
	return a.costs[i], true
}

// Wake lets the agent act once at its wake time: price the next unit
// through its behavior and submit the order.
func (a *Agent) Wake(m Market) error {
	q := m.Quote()
	switch a.opts.Role {
	case RoleBuyer:
		value, ok := a.UnitValue(a.inv)
		if !ok {
			return nil
		}
		price, ok := a.behavior.BidPrice(a, q, value)
		if !ok {
			return nil
		}
		return a.Bid(m, price)
	case RoleSeller:
		cost, ok := a.UnitCost(a.inv)
		if !ok {
			return nil
		}
		price, ok := a.behavior.AskPrice(a, q, cost)
		if !ok {
			return nil
		}
		return a.Ask(m, price)
	}
	return nil
}

// Bid submits a unit buy order and drains matching.
func (a *Agent) Bid(m Market, price float64) error {
	return a.send(m, domain.OrderSideBid, price)
}

// Ask submits a unit sell order and drains matching.
func (a *Agent) Ask(m Market, price float64) error {
	return a.send(m, domain.OrderSideAsk, price)
}

func (a *Agent) send(m Market, side domain.OrderSide, price float64) error {
	m.Submit(domain.Order{
		T:              a.wakeTime,
		AgentID:        a.opts.ID,
		Quantity:       1,
		Side:           side,
		Price:          price,
		CancelPrevious: !a.opts.KeepPreviousOrders,
	})
	for {
		more, err := m.Process()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// scheduleNext advances the wake clock by an exponential inter-arrival
// time, making arrivals a Poisson process with the agent's rate.
func (a *Agent) scheduleNext() {
	if a.opts.Rate <= 0 {
		a.wakeTime = math.Inf(1)
		return
	}
	a.wakeTime += a.rng.ExpFloat64() / a.opts.Rate
}

func (a *Agent) initPeriod(p domain.Period) {
	a.period = p
	a.inv.Goods = 0
	a.wakeTime = p.StartTime
	a.scheduleNext()
}

// endPeriod redeems bought units at their values and charges produced
// units at their costs.
func (a *Agent) endPeriod() {
	switch a.opts.Role {
	case RoleBuyer:
		for i := int64(0); i < a.inv.Goods && i < int64(len(a.values)); i++ {
			a.inv.Money += a.values[i]
		}
	case RoleSeller:
		for i := int64(0); i < -a.inv.Goods && i < int64(len(a.costs)); i++ {
			a.inv.Money -= a.costs[i]
		}
	}
	a.inv.Goods = 0
}

func (a *Agent) settleBuy(price float64) {
	a.inv.Goods++
	a.inv.Money -= price
}

func (a *Agent) settleSell(price float64) {
	a.inv.Goods--
	a.inv.Money += price
}
