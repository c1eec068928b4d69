package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrNoDefaultProvider is returned when a bare model name cannot be routed
	ErrNoDefaultProvider = errors.New("no default provider registered")
)

// Registry manages provider instances and resolves candidate names to them.
// A candidate written as "<provider>/<model>" is sent to that provider;
// any other name goes to the default provider.
type Registry struct {
	mu              sync.RWMutex
	providers       map[string]Provider
	defaultProvider string
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// RegisterProvider registers a provider instance. The first provider
// registered becomes the default.
func (r *Registry) RegisterProvider(provider Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}
	if _, exists := r.providers[name]; exists {
		return ErrProviderAlreadyRegistered
	}

	r.providers[name] = provider
	if r.defaultProvider == "" {
		r.defaultProvider = name
	}
	return nil
}

// SetDefault selects the provider used for unprefixed model names
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return ErrProviderNotFound
	}
	r.defaultProvider = name
	return nil
}

// Resolve maps a candidate name to its provider and the model id that
// provider expects.
func (r *Registry) Resolve(candidate string) (Provider, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if prefix, model, ok := strings.Cut(candidate, "/"); ok && prefix != "models" {
		provider, exists := r.providers[prefix]
		if !exists {
			return nil, "", fmt.Errorf("%w: %s", ErrProviderNotFound, prefix)
		}
		return provider, model, nil
	}

	provider, exists := r.providers[r.defaultProvider]
	if !exists {
		return nil, "", ErrNoDefaultProvider
	}
	return provider, candidate, nil
}

// Generate routes one generation call to the provider owning the candidate.
// An unknown provider prefix is reported as a 404 so it is treated like a
// missing model.
func (r *Registry) Generate(ctx context.Context, candidate string, req GenerationRequest) (string, error) {
	provider, model, err := r.Resolve(candidate)
	if err != nil {
		return "", NewProviderError("registry", "NOT_FOUND", "cannot route candidate "+candidate, http.StatusNotFound, err)
	}
	return provider.Generate(ctx, model, req)
}

// ListModels aggregates the upstream model lists of every provider.
// Models of non-default providers are returned with their provider prefix
// so they can be pasted straight into the candidate list.
func (r *Registry) ListModels(ctx context.Context) ([]ModelInfo, error) {
	r.mu.RLock()
	snapshot := make(map[string]Provider, len(r.providers))
	for name, p := range r.providers {
		snapshot[name] = p
	}
	defaultName := r.defaultProvider
	r.mu.RUnlock()

	var all []ModelInfo
	var errs []error
	for _, name := range sortedKeys(snapshot) {
		models, err := snapshot[name].ListModels(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		for _, m := range models {
			if name != defaultName {
				m.ID = name + "/" + m.ID
			}
			all = append(all, m)
		}
	}

	if len(all) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return all, nil
}

// ListProviders returns all registered provider names
func (r *Registry) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.providers)
}

// DefaultProvider returns the name of the provider used for bare model names
func (r *Registry) DefaultProvider() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.defaultProvider
}

func sortedKeys(m map[string]Provider) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
