package agent

import (
	"fmt"
	"sort"

	"github.com/efreitasn/dasim/internal/domain"
)

// Env carries the collaborators a behavior may need at construction.
type Env struct {
	Juicy JuicyPrices
}

// Factory builds a behavior for one agent.
type Factory func(env Env) TradingBehavior

// Registry maps agent type names to behavior factories.
type Registry map[string]Factory

// DefaultRegistry returns the built-in agent types.
func DefaultRegistry() Registry {
	return Registry{
		string(KindZI):        func(Env) TradingBehavior { return ZIBehavior{} },
		string(KindTruthful):  func(Env) TradingBehavior { return TruthfulBehavior{} },
		string(KindDoNothing): func(Env) TradingBehavior { return DoNothingBehavior{} },
		string(KindSniper):    func(env Env) TradingBehavior { return &SniperBehavior{Juicy: env.Juicy} },
	}
}

// Build constructs the behavior registered under name.
func (r Registry) Build(name string, env Env) (TradingBehavior, error) {
	f, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAgentType, name)
	}
	return f(env), nil
}

// Names lists the registered type names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
