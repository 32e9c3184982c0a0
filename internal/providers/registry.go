package providers

import (
	"MarketPulse/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is providers constructors.
var ProviderSet = wire.NewSet(NewRegistry)

// Registry holds the configured outbound clients by name. Ordering and
// enable/disable live in the runtime config; the registry only knows how
// to reach each provider.
type Registry struct {
	market map[string]*MarketClient
	ai     map[string]*AIClient
	logger *log.Helper
}

// NewRegistry builds all configured provider clients.
func NewRegistry(c *conf.Providers, logger log.Logger) (*Registry, error) {
	helper := log.NewHelper(logger)
	r := &Registry{
		market: make(map[string]*MarketClient),
		ai:     make(map[string]*AIClient),
		logger: helper,
	}

	if c == nil {
		helper.Warn("providers configuration is nil, no outbound clients available")
		return r, nil
	}

	for _, m := range c.Market {
		if m.Name == "" || m.BaseURL == "" {
			helper.Warnw("skipping market vendor with missing name or base_url", "name", m.Name)
			continue
		}
		r.market[m.Name] = NewMarketClient(m.Name, m.BaseURL, m.Timeout.AsDuration())
	}

	for _, a := range c.AI {
		if a.Name == "" || a.BaseURL == "" {
			helper.Warnw("skipping AI provider with missing name or base_url", "name", a.Name)
			continue
		}
		client, err := NewAIClient(a.Name, a.BaseURL, a.Model, a.Keys, a.Timeout.AsDuration(), c.Proxy)
		if err != nil {
			return nil, err
		}
		r.ai[a.Name] = client
	}

	helper.Infow("provider registry initialized",
		"market_vendors", len(r.market),
		"ai_providers", len(r.ai))

	return r, nil
}

// Market returns the vendor client by name, or nil if not configured.
func (r *Registry) Market(name string) *MarketClient {
	return r.market[name]
}

// AI returns the AI provider client by name, or nil if not configured.
func (r *Registry) AI(name string) *AIClient {
	return r.ai[name]
}
