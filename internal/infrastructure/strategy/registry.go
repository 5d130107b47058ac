package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/domain/shared/strategy"
)

// StrategyRegistry manages strategy registrations. It satisfies the
// inventory package's cost and batch strategy providers.
type StrategyRegistry struct {
	mu              sync.RWMutex
	costStrategies  map[string]strategy.CostCalculationStrategy
	batchStrategies map[string]strategy.BatchSelectionStrategy
	defaults        map[strategy.StrategyType]string
}

// NewStrategyRegistry creates a new strategy registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		costStrategies:  make(map[string]strategy.CostCalculationStrategy),
		batchStrategies: make(map[string]strategy.BatchSelectionStrategy),
		defaults:        make(map[strategy.StrategyType]string),
	}
}

// RegisterCostStrategy registers a cost calculation strategy
func (r *StrategyRegistry) RegisterCostStrategy(s strategy.CostCalculationStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.costStrategies[name]; exists {
		return fmt.Errorf("%w: cost strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.costStrategies[name] = s
	return nil
}

// GetCostStrategy returns a cost strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetCostStrategy(name string) (strategy.CostCalculationStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaults[strategy.StrategyTypeCost]
		if name == "" {
			return nil, fmt.Errorf("%w: no default cost strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.costStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: cost strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// GetCostStrategyOrDefault returns a cost strategy by name, or the default if not found
func (r *StrategyRegistry) GetCostStrategyOrDefault(name string) strategy.CostCalculationStrategy {
	s, err := r.GetCostStrategy(name)
	if err != nil {
		s, _ = r.GetCostStrategy("")
	}
	return s
}

// ListCostStrategies returns all registered cost strategy names
func (r *StrategyRegistry) ListCostStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.costStrategies)
}

// UnregisterCostStrategy removes a cost strategy
func (r *StrategyRegistry) UnregisterCostStrategy(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.costStrategies[name]; !exists {
		return fmt.Errorf("%w: cost strategy '%s' not found", shared.ErrNotFound, name)
	}
	delete(r.costStrategies, name)

	if r.defaults[strategy.StrategyTypeCost] == name {
		delete(r.defaults, strategy.StrategyTypeCost)
	}
	return nil
}

// RegisterBatchStrategy registers a batch selection strategy
func (r *StrategyRegistry) RegisterBatchStrategy(s strategy.BatchSelectionStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.batchStrategies[name]; exists {
		return fmt.Errorf("%w: batch strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.batchStrategies[name] = s
	return nil
}

// GetBatchStrategy returns a batch strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetBatchStrategy(name string) (strategy.BatchSelectionStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaults[strategy.StrategyTypeBatch]
		if name == "" {
			return nil, fmt.Errorf("%w: no default batch strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.batchStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: batch strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// GetBatchStrategyOrDefault returns a batch strategy by name, or the default if not found
func (r *StrategyRegistry) GetBatchStrategyOrDefault(name string) strategy.BatchSelectionStrategy {
	s, err := r.GetBatchStrategy(name)
	if err != nil {
		s, _ = r.GetBatchStrategy("")
	}
	return s
}

// ListBatchStrategies returns all registered batch strategy names
func (r *StrategyRegistry) ListBatchStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.batchStrategies)
}

// UnregisterBatchStrategy removes a batch strategy
func (r *StrategyRegistry) UnregisterBatchStrategy(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.batchStrategies[name]; !exists {
		return fmt.Errorf("%w: batch strategy '%s' not found", shared.ErrNotFound, name)
	}
	delete(r.batchStrategies, name)

	if r.defaults[strategy.StrategyTypeBatch] == name {
		delete(r.defaults, strategy.StrategyTypeBatch)
	}
	return nil
}

// SetDefault sets the default strategy for a strategy type
func (r *StrategyRegistry) SetDefault(strategyType strategy.StrategyType, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRegisteredLocked(strategyType, name) {
		return fmt.Errorf("%w: strategy '%s' of type '%s' not found", shared.ErrNotFound, name, strategyType)
	}

	r.defaults[strategyType] = name
	return nil
}

// GetDefault returns the default strategy name for a strategy type
func (r *StrategyRegistry) GetDefault(strategyType strategy.StrategyType) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[strategyType]
}

// HasDefault returns true if a default is set for the strategy type
func (r *StrategyRegistry) HasDefault(strategyType strategy.StrategyType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[strategyType] != ""
}

// IsRegistered returns true if a strategy with the given name is registered for the type
func (r *StrategyRegistry) IsRegistered(strategyType strategy.StrategyType, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isRegisteredLocked(strategyType, name)
}

// isRegisteredLocked checks registration without locking (caller must hold lock)
func (r *StrategyRegistry) isRegisteredLocked(strategyType strategy.StrategyType, name string) bool {
	switch strategyType {
	case strategy.StrategyTypeCost:
		_, exists := r.costStrategies[name]
		return exists
	case strategy.StrategyTypeBatch:
		_, exists := r.batchStrategies[name]
		return exists
	default:
		return false
	}
}

// Stats returns registration counts for each strategy type
func (r *StrategyRegistry) Stats() map[strategy.StrategyType]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[strategy.StrategyType]int{
		strategy.StrategyTypeCost:  len(r.costStrategies),
		strategy.StrategyTypeBatch: len(r.batchStrategies),
	}
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
