package simulation

import (
	"fmt"
	"slices"
	"sync"

	"github.com/efreitasn/dasim/internal/agent"
	"github.com/efreitasn/dasim/internal/domain"
)

// PriceSequence is the ordered list of the current period's trade prices.
type PriceSequence struct {
	mu     sync.RWMutex
	prices []float64
}

func (p *PriceSequence) Append(price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prices = append(p.prices, price)
}

func (p *PriceSequence) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prices = nil
}

// Snapshot returns a copy of the prices in execution order.
func (p *PriceSequence) Snapshot() []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return slices.Clone(p.prices)
}

// identities resolves engine slots to agent ids.
type identities interface {
	AgentID(slot int) (int, bool)
}

// TradeRecorder validates each trade against the unit-trade contract,
// records its price and writes the trade row.
type TradeRecorder struct {
	ids    identities
	pool   AgentPool
	prices *PriceSequence
	sink   LogSink
	window func() domain.Period
}

// Record handles one trade. Any contract breach is returned as a
// *domain.TradeError and the price is not recorded.
func (r *TradeRecorder) Record(tr domain.Trade) (buyerID, sellerID int, err error) {
	if tr.Quantity != 1 || len(tr.BuySlots) != 1 || len(tr.SellSlots) != 1 || len(tr.Prices) != 1 {
		return 0, 0, &domain.TradeError{Trade: tr, Err: domain.ErrTradeShape}
	}
	price := tr.Prices[0]
	if !domain.UsablePrice(price) {
		return 0, 0, &domain.TradeError{Trade: tr, Err: domain.ErrTradePrice}
	}
	buyer, ok := r.resolve(tr.BuySlots[0])
	if !ok {
		return 0, 0, &domain.TradeError{Trade: tr, Err: domain.ErrUnknownTrader}
	}
	seller, ok := r.resolve(tr.SellSlots[0])
	if !ok {
		return 0, 0, &domain.TradeError{Trade: tr, Err: domain.ErrUnknownTrader}
	}

	value, vok := buyer.UnitValue(buyer.Inventory())
	cost, cok := seller.UnitCost(seller.Inventory())

	r.prices.Append(price)

	if r.sink != nil {
		w := r.window()
		row := []any{
			w.Number, tr.T, w.Offset(tr.T), price,
			buyer.ID(), nullable(value, vok), nullable(value-price, vok),
			seller.ID(), nullable(cost, cok), nullable(price-cost, cok),
		}
		if err := r.sink.Write(row); err != nil {
			return 0, 0, fmt.Errorf("write trade row: %w", err)
		}
	}
	return buyer.ID(), seller.ID(), nil
}

func (r *TradeRecorder) resolve(slot int) (agent.Trader, bool) {
	id, ok := r.ids.AgentID(slot)
	if !ok {
		return nil, false
	}
	return r.pool.Agent(id)
}

// OrderRecorder writes accepted and rejected orders to the order logs.
// Orders without a resolvable agent or a usable price are skipped.
type OrderRecorder struct {
	ids    identities
	pool   AgentPool
	logs   map[string]LogSink
	window func() domain.Period
}

func (r *OrderRecorder) Record(o domain.Order, rejected bool) error {
	id, ok := r.ids.AgentID(o.Slot)
	if !ok {
		return nil
	}
	a, ok := r.pool.Agent(id)
	if !ok {
		return nil
	}
	inv := a.Inventory()
	w := r.window()

	if price, ok := o.BuyPrice(); ok {
		name := LogBuyOrder
		if rejected {
			name = LogRejectBuyOrder
		}
		value, vok := a.UnitValue(inv)
		row := []any{w.Number, o.T, w.Offset(o.T), id, inv.Goods, price, nullable(value, vok), nil, nil}
		if err := r.write(name, row); err != nil {
			return err
		}
	}
	if price, ok := o.SellPrice(); ok {
		name := LogSellOrder
		if rejected {
			name = LogRejectSellOrder
		}
		cost, cok := a.UnitCost(inv)
		row := []any{w.Number, o.T, w.Offset(o.T), id, inv.Goods, nil, nil, price, nullable(cost, cok)}
		if err := r.write(name, row); err != nil {
			return err
		}
	}
	return nil
}

func (r *OrderRecorder) write(name string, row []any) error {
	sink, ok := r.logs[name]
	if !ok || sink == nil {
		return nil
	}
	if err := sink.Write(row); err != nil {
		return fmt.Errorf("write %s row: %w", name, err)
	}
	return nil
}
