// Package provider implements the outbound adapters for the external
// payment rails. Each adapter normalizes its gateway's callbacks and status
// API onto the canonical PaymentProvider port; the reconciliation pipeline
// never sees provider-specific shapes.
package provider

import (
	"net/http"
	"sort"

	"creator-ledger/internal/core/ports"
	"creator-ledger/pkg/apperror"
)

// HTTPClient is the outbound HTTP seam, satisfied by *http.Client and by
// test doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Registry resolves provider adapters by name.
type Registry struct {
	providers map[string]ports.PaymentProvider
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(providers ...ports.PaymentProvider) *Registry {
	m := make(map[string]ports.PaymentProvider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (ports.PaymentProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, apperror.ErrUnknownProvider(name)
	}
	return p, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
