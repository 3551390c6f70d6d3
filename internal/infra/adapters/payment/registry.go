package payment

import (
	"fmt"
	"sort"
	"strings"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/ports/adapter"
)

// Registry resolves gateways by provider name so callers never switch on
// gateway identity.
type Registry struct {
	gateways map[string]adapter.PaymentGateway
}

func NewRegistry(gws ...adapter.PaymentGateway) *Registry {
	r := &Registry{gateways: make(map[string]adapter.PaymentGateway, len(gws))}
	for _, g := range gws {
		if g != nil {
			r.gateways[g.Name()] = g
		}
	}
	return r
}

func (r *Registry) Get(provider string) (adapter.PaymentGateway, error) {
	g, ok := r.gateways[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, provider)
	}
	return g, nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
