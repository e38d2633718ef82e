package algorithms

import (
	"fmt"
	"sync"

	"github.com/aforsythe/HughesLabTools/internal/algorithms/tumor"
	"github.com/aforsythe/HughesLabTools/internal/algorithms/vessel"
	"github.com/aforsythe/HughesLabTools/internal/channel"
	"github.com/aforsythe/HughesLabTools/internal/logger"
)

type Registry struct {
	strategies map[channel.ImageType]Strategy
	mu         sync.RWMutex
}

// NewRegistry builds a registry with the built-in tumor and vessel
// strategies registered.
func NewRegistry(log logger.Logger) *Registry {
	registry := &Registry{
		strategies: make(map[channel.ImageType]Strategy),
	}

	registry.Register(tumor.New(log))
	registry.Register(vessel.New(log))

	return registry
}

// Register installs a strategy, replacing any previous one for its type.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Type()] = s
}

// ForType resolves the strategy for an image type.
func (r *Registry) ForType(t channel.ImageType) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	strategy, exists := r.strategies[t]
	if !exists {
		return nil, fmt.Errorf("no strategy registered for image type: %s", t)
	}
	return strategy, nil
}

// Types lists the registered image types.
func (r *Registry) Types() []channel.ImageType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]channel.ImageType, 0, len(r.strategies))
	for t := range r.strategies {
		types = append(types, t)
	}
	return types
}
