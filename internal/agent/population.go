package agent

import (
	"fmt"

	"github.com/efreitasn/dasim/internal/config"
	"github.com/efreitasn/dasim/internal/domain"
)

// NewPopulation builds the pool a configuration describes: buyers
// first, then sellers, with ids 1..N, agent types and rates rotated
// over the configured lists, and values and costs dealt round robin.
func NewPopulation(cfg *config.SimulationConfig, reg Registry, env Env) (*Pool, error) {
	nb, ns := cfg.BuyerCount(), cfg.SellerCount()
	if nb == 0 || ns == 0 {
		return nil, domain.ErrNoAgents
	}
	if reg == nil {
		reg = DefaultRegistry()
	}

	pool := NewPool()
	add := func(id int, role Role, typ string, rate float64) error {
		behavior, err := reg.Build(typ, env)
		if err != nil {
			return fmt.Errorf("%s %d: %w", role, id, err)
		}
		return pool.Push(New(Options{
			ID:                 id,
			Role:               role,
			Type:               typ,
			Rate:               rate,
			MinPrice:           cfg.L,
			MaxPrice:           cfg.H,
			IntegerPrices:      cfg.Integer,
			IgnoreBudget:       cfg.IgnoreBudgetConstraint,
			KeepPreviousOrders: cfg.KeepPreviousOrders,
			Seed:               cfg.Seed,
		}, behavior))
	}

	for i := 0; i < nb; i++ {
		if err := add(i+1, RoleBuyer, cfg.BuyerTypeFor(i), cfg.BuyerRateFor(i)); err != nil {
			return nil, err
		}
	}
	for i := 0; i < ns; i++ {
		if err := add(nb+i+1, RoleSeller, cfg.SellerTypeFor(i), cfg.SellerRateFor(i)); err != nil {
			return nil, err
		}
	}

	pool.Distribute(AttrValues, cfg.BuyerValues)
	pool.Distribute(AttrCosts, cfg.SellerCosts)
	return pool, nil
}
