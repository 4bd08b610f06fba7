package agent

import (
	"fmt"
	"sort"

	"github.com/google/btree"

	"github.com/efreitasn/dasim/internal/domain"
)

// Attribute names an aggregate array distributed over the population.
type Attribute string

const (
	AttrValues Attribute = "values"
	AttrCosts  Attribute = "costs"
)

// wakeLess orders agents by wake time, then by id.
func wakeLess(a, b *Agent) bool {
	if a.wakeTime != b.wakeTime {
		return a.wakeTime < b.wakeTime
	}
	return a.opts.ID < b.opts.ID
}

// Pool holds the population and wakes agents in simulated-time order.
// It is not safe for concurrent use; the simulation drives it from a
// single goroutine.
type Pool struct {
	agents []*Agent
	byID   map[int]*Agent
	queue  *btree.BTreeG[*Agent]
	period domain.Period
	active bool
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{
		byID:  make(map[int]*Agent),
		queue: btree.NewG[*Agent](32, wakeLess),
	}
}

// Push adds an agent. Ids must be unique.
func (p *Pool) Push(a *Agent) error {
	if _, dup := p.byID[a.opts.ID]; dup {
		return fmt.Errorf("agent %d already in pool", a.opts.ID)
	}
	p.agents = append(p.agents, a)
	p.byID[a.opts.ID] = a
	return nil
}

// Distribute deals values round robin over the agents that use attr,
// then sorts each agent's share: values highest first, costs lowest first.
func (p *Pool) Distribute(attr Attribute, values []float64) {
	role := RoleBuyer
	if attr == AttrCosts {
		role = RoleSeller
	}
	var targets []*Agent
	for _, a := range p.agents {
		if a.opts.Role == role {
			targets = append(targets, a)
		}
	}
	if len(targets) == 0 {
		return
	}
	for i, v := range values {
		a := targets[i%len(targets)]
		if attr == AttrCosts {
			a.costs = append(a.costs, v)
		} else {
			a.values = append(a.values, v)
		}
	}
	for _, a := range targets {
		if attr == AttrCosts {
			sort.Float64s(a.costs)
		} else {
			sort.Sort(sort.Reverse(sort.Float64Slice(a.values)))
		}
	}
}

// InitPeriod resets inventories and reschedules every agent's wake
// clock from the start of the window.
func (p *Pool) InitPeriod(period domain.Period) {
	p.period = period
	p.active = true
	p.queue.Clear(false)
	for _, a := range p.agents {
		a.initPeriod(period)
		p.queue.ReplaceOrInsert(a)
	}
}

// EndPeriod redeems every agent's period trades.
func (p *Pool) EndPeriod() {
	for _, a := range p.agents {
		a.endPeriod()
	}
}

// EndTime is the end of the current period window. It reports false
// before the first InitPeriod.
func (p *Pool) EndTime() (float64, bool) {
	if !p.active {
		return 0, false
	}
	return p.period.EndTime, true
}

// SyncRun wakes agents until none is due before until.
func (p *Pool) SyncRun(m Market, until float64) error {
	for {
		more, err := p.RunBatch(m, until, 1<<30)
		if err != nil || !more {
			return err
		}
	}
}

// RunBatch wakes at most n agents due before until and reports whether
// more are still due.
func (p *Pool) RunBatch(m Market, until float64, n int) (bool, error) {
	for i := 0; i < n; i++ {
		a, ok := p.queue.Min()
		if !ok || a.wakeTime >= until {
			return false, nil
		}
		if err := p.wake(m, a); err != nil {
			return false, err
		}
	}
	a, ok := p.queue.Min()
	return ok && a.wakeTime < until, nil
}

func (p *Pool) wake(m Market, a *Agent) error {
	p.queue.Delete(a)
	err := a.Wake(m)
	a.scheduleNext()
	p.queue.ReplaceOrInsert(a)
	return err
}

// Settle transfers one unit from seller to buyer at price.
func (p *Pool) Settle(buyerID, sellerID int, price float64) error {
	buyer, ok := p.byID[buyerID]
	if !ok {
		return fmt.Errorf("%w: buyer %d", domain.ErrUnknownTrader, buyerID)
	}
	seller, ok := p.byID[sellerID]
	if !ok {
		return fmt.Errorf("%w: seller %d", domain.ErrUnknownTrader, sellerID)
	}
	buyer.settleBuy(price)
	seller.settleSell(price)
	return nil
}

// Agent looks an agent up by id.
func (p *Pool) Agent(id int) (Trader, bool) {
	a, ok := p.byID[id]
	if !ok {
		return nil, false
	}
	return a, true
}

// Agents returns the population in push order.
func (p *Pool) Agents() []Trader {
	out := make([]Trader, len(p.agents))
	for i, a := range p.agents {
		out[i] = a
	}
	return out
}

// Members returns the concrete agents in push order.
func (p *Pool) Members() []*Agent {
	return append([]*Agent(nil), p.agents...)
}
