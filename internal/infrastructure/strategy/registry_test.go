package strategy

import (
	"context"
	"sync"
	"testing"

	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/domain/shared/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock cost strategy for testing
type mockCostStrategy struct {
	strategy.BaseStrategy
}

func newMockCostStrategy(name string) *mockCostStrategy {
	return &mockCostStrategy{
		BaseStrategy: strategy.NewBaseStrategy(name, strategy.StrategyTypeCost, "Mock cost strategy"),
	}
}

func (s *mockCostStrategy) Method() strategy.CostMethod {
	return strategy.CostMethodWeightedAverage
}

func (s *mockCostStrategy) CalculateCost(ctx context.Context, costCtx strategy.CostContext, layers []strategy.CostLayer) (strategy.CostResult, error) {
	return strategy.CostResult{}, nil
}

// Mock batch strategy for testing
type mockBatchStrategy struct {
	strategy.BaseStrategy
}

func newMockBatchStrategy(name string) *mockBatchStrategy {
	return &mockBatchStrategy{
		BaseStrategy: strategy.NewBaseStrategy(name, strategy.StrategyTypeBatch, "Mock batch strategy"),
	}
}

func (s *mockBatchStrategy) Order(batches []strategy.Batch) []strategy.Batch {
	return batches
}

func (s *mockBatchStrategy) SelectBatches(ctx context.Context, selCtx strategy.BatchSelectionContext, batches []strategy.Batch) (strategy.BatchSelectionResult, error) {
	return strategy.BatchSelectionResult{}, nil
}

func (s *mockBatchStrategy) ConsidersExpiry() bool {
	return false
}

// The registry is what the inventory engines resolve strategies through.
var (
	_ inventory.CostStrategyProvider  = (*StrategyRegistry)(nil)
	_ inventory.BatchStrategyProvider = (*StrategyRegistry)(nil)
)

func TestNewStrategyRegistry(t *testing.T) {
	r := NewStrategyRegistry()
	assert.NotNil(t, r)
	assert.NotNil(t, r.costStrategies)
	assert.NotNil(t, r.batchStrategies)
	assert.NotNil(t, r.defaults)
}

func TestRegisterCostStrategy(t *testing.T) {
	r := NewStrategyRegistry()

	t.Run("successful registration", func(t *testing.T) {
		err := r.RegisterCostStrategy(newMockCostStrategy("test_cost"))
		assert.NoError(t, err)
		assert.True(t, r.IsRegistered(strategy.StrategyTypeCost, "test_cost"))
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		s := newMockCostStrategy("duplicate_cost")
		require.NoError(t, r.RegisterCostStrategy(s))

		err := r.RegisterCostStrategy(s)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestGetCostStrategy(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("get_cost")))

	t.Run("get by name", func(t *testing.T) {
		got, err := r.GetCostStrategy("get_cost")
		assert.NoError(t, err)
		assert.Equal(t, "get_cost", got.Name())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := r.GetCostStrategy("nonexistent")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("get default when name is empty", func(t *testing.T) {
		require.NoError(t, r.SetDefault(strategy.StrategyTypeCost, "get_cost"))
		got, err := r.GetCostStrategy("")
		assert.NoError(t, err)
		assert.Equal(t, "get_cost", got.Name())
	})

	t.Run("no default set", func(t *testing.T) {
		_, err := NewStrategyRegistry().GetCostStrategy("")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGetCostStrategyOrDefault(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("default_cost")))
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("other_cost")))
	require.NoError(t, r.SetDefault(strategy.StrategyTypeCost, "default_cost"))

	t.Run("get existing by name", func(t *testing.T) {
		assert.Equal(t, "other_cost", r.GetCostStrategyOrDefault("other_cost").Name())
	})

	t.Run("fallback to default when not found", func(t *testing.T) {
		assert.Equal(t, "default_cost", r.GetCostStrategyOrDefault("nonexistent").Name())
	})

	t.Run("fallback to default when empty name", func(t *testing.T) {
		assert.Equal(t, "default_cost", r.GetCostStrategyOrDefault("").Name())
	})
}

func TestListCostStrategies(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("b_cost")))
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("a_cost")))
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("c_cost")))

	assert.Equal(t, []string{"a_cost", "b_cost", "c_cost"}, r.ListCostStrategies())
}

func TestUnregisterCostStrategy(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("unregister_cost")))
	require.NoError(t, r.SetDefault(strategy.StrategyTypeCost, "unregister_cost"))

	t.Run("successful unregister", func(t *testing.T) {
		assert.NoError(t, r.UnregisterCostStrategy("unregister_cost"))
		assert.False(t, r.IsRegistered(strategy.StrategyTypeCost, "unregister_cost"))
		assert.False(t, r.HasDefault(strategy.StrategyTypeCost))
	})

	t.Run("unregister nonexistent", func(t *testing.T) {
		assert.ErrorIs(t, r.UnregisterCostStrategy("nonexistent"), shared.ErrNotFound)
	})
}

func TestRegisterBatchStrategy(t *testing.T) {
	r := NewStrategyRegistry()

	t.Run("successful registration", func(t *testing.T) {
		assert.NoError(t, r.RegisterBatchStrategy(newMockBatchStrategy("test_batch")))
		assert.True(t, r.IsRegistered(strategy.StrategyTypeBatch, "test_batch"))
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		s := newMockBatchStrategy("duplicate_batch")
		require.NoError(t, r.RegisterBatchStrategy(s))
		assert.ErrorIs(t, r.RegisterBatchStrategy(s), shared.ErrAlreadyExists)
	})
}

func TestGetBatchStrategy(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterBatchStrategy(newMockBatchStrategy("get_batch")))

	got, err := r.GetBatchStrategy("get_batch")
	assert.NoError(t, err)
	assert.Equal(t, "get_batch", got.Name())

	_, err = r.GetBatchStrategy("nonexistent")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListAndUnregisterBatchStrategies(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterBatchStrategy(newMockBatchStrategy("z_batch")))
	require.NoError(t, r.RegisterBatchStrategy(newMockBatchStrategy("a_batch")))
	require.NoError(t, r.SetDefault(strategy.StrategyTypeBatch, "z_batch"))

	assert.Equal(t, []string{"a_batch", "z_batch"}, r.ListBatchStrategies())

	require.NoError(t, r.UnregisterBatchStrategy("z_batch"))
	assert.Equal(t, []string{"a_batch"}, r.ListBatchStrategies())
	assert.False(t, r.HasDefault(strategy.StrategyTypeBatch))
	assert.ErrorIs(t, r.UnregisterBatchStrategy("z_batch"), shared.ErrNotFound)
}

func TestGetBatchStrategyOrDefault(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterBatchStrategy(newMockBatchStrategy("default_batch")))
	require.NoError(t, r.SetDefault(strategy.StrategyTypeBatch, "default_batch"))

	assert.Equal(t, "default_batch", r.GetBatchStrategyOrDefault("nonexistent").Name())
}

func TestSetDefault(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("default_test")))

	t.Run("set default successfully", func(t *testing.T) {
		assert.NoError(t, r.SetDefault(strategy.StrategyTypeCost, "default_test"))
		assert.Equal(t, "default_test", r.GetDefault(strategy.StrategyTypeCost))
		assert.True(t, r.HasDefault(strategy.StrategyTypeCost))
	})

	t.Run("set default for nonexistent strategy fails", func(t *testing.T) {
		assert.ErrorIs(t, r.SetDefault(strategy.StrategyTypeCost, "nonexistent"), shared.ErrNotFound)
	})

	t.Run("default of the wrong type fails", func(t *testing.T) {
		assert.ErrorIs(t, r.SetDefault(strategy.StrategyTypeBatch, "default_test"), shared.ErrNotFound)
	})
}

func TestIsRegistered(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("registered")))

	assert.True(t, r.IsRegistered(strategy.StrategyTypeCost, "registered"))
	assert.False(t, r.IsRegistered(strategy.StrategyTypeCost, "not_registered"))
	assert.False(t, r.IsRegistered(strategy.StrategyTypeBatch, "registered"))
	assert.False(t, r.IsRegistered("invalid_type", "registered"))
}

func TestStats(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("cost1")))
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("cost2")))
	require.NoError(t, r.RegisterBatchStrategy(newMockBatchStrategy("batch1")))

	stats := r.Stats()
	assert.Equal(t, 2, stats[strategy.StrategyTypeCost])
	assert.Equal(t, 1, stats[strategy.StrategyTypeBatch])
}

func TestConcurrentAccess(t *testing.T) {
	r := NewStrategyRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			name := string(rune('a' + (idx % 26)))
			// Some goroutines lose the race and get a duplicate error
			_ = r.RegisterCostStrategy(newMockCostStrategy(name))
		}(i)
	}
	wg.Wait()

	list := r.ListCostStrategies()
	assert.Len(t, list, 26)
}

func TestConcurrentReadWrite(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterCostStrategy(newMockCostStrategy("concurrent_test")))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = r.GetCostStrategy("concurrent_test")
				r.ListCostStrategies()
				r.Stats()
			}
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_ = r.RegisterBatchStrategy(newMockBatchStrategy(string(rune('A' + idx))))
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.ListBatchStrategies(), 10)
}

func TestNewRegistryWithDefaults(t *testing.T) {
	r, err := NewRegistryWithDefaults()
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.Equal(t, []string{"fefo", "fifo", "last_purchase_price", "lifo", "weighted_average"}, r.ListCostStrategies())
	assert.Equal(t, []string{"fefo", "fifo", "lifo", "specified"}, r.ListBatchStrategies())
	assert.Equal(t, "fefo", r.GetDefault(strategy.StrategyTypeCost))
	assert.Equal(t, "fefo", r.GetDefault(strategy.StrategyTypeBatch))

	t.Run("every costing method resolves", func(t *testing.T) {
		methods := []inventory.CostingMethod{
			inventory.CostingMethodFIFO,
			inventory.CostingMethodLIFO,
			inventory.CostingMethodFEFO,
			inventory.CostingMethodWeightedAverage,
			inventory.CostingMethodLastPurchasePrice,
		}
		for _, m := range methods {
			_, err := r.GetCostStrategy(inventory.CostStrategyName(m))
			assert.NoError(t, err, "cost strategy for %s", m)
			_, err = r.GetBatchStrategy(inventory.BatchStrategyName(m))
			assert.NoError(t, err, "batch strategy for %s", m)
		}
	})
}
