package adapters

import (
	"strings"

	"github.com/rankforge/rankforge/internal/payment/domain"
)

// Registry holds the configured provider adapters keyed by provider name.
type Registry struct {
	adapters map[string]domain.PaymentAdapter
}

func NewRegistry(adapters ...domain.PaymentAdapter) *Registry {
	reg := &Registry{adapters: make(map[string]domain.PaymentAdapter, len(adapters))}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(adapter.Provider()))
		if name == "" {
			continue
		}
		reg.adapters[name] = adapter
	}
	return reg
}

func (r *Registry) Get(provider string) (domain.PaymentAdapter, bool) {
	if r == nil {
		return nil, false
	}
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(provider))]
	return adapter, ok
}
