package inventory

import (
	"fmt"
	"strings"

	"github.com/larder/backend/internal/domain/shared"
)

// NonPositivePolicy decides what happens to a zero or negative quantity
// passed to Increase, Decrease, Reserve or Release
type NonPositivePolicy string

const (
	NonPositiveIgnore NonPositivePolicy = "ignore"
	NonPositiveReject NonPositivePolicy = "reject"
)

// OverDecrementPolicy decides what happens when a decrease exceeds current stock
type OverDecrementPolicy string

const (
	OverDecrementClamp  OverDecrementPolicy = "clamp"
	OverDecrementReject OverDecrementPolicy = "reject"
)

// QuantityPolicy bundles the ledger's input policies
type QuantityPolicy struct {
	NonPositive   NonPositivePolicy
	OverDecrement OverDecrementPolicy
}

// DefaultQuantityPolicy ignores non-positive input and clamps over-decrements, logging both
func DefaultQuantityPolicy() QuantityPolicy {
	return QuantityPolicy{
		NonPositive:   NonPositiveIgnore,
		OverDecrement: OverDecrementClamp,
	}
}

// ParseQuantityPolicy builds a policy from config strings; empty means default
func ParseQuantityPolicy(nonPositive, overDecrement string) (QuantityPolicy, error) {
	policy := DefaultQuantityPolicy()
	switch NonPositivePolicy(strings.ToLower(strings.TrimSpace(nonPositive))) {
	case "":
	case NonPositiveIgnore:
		policy.NonPositive = NonPositiveIgnore
	case NonPositiveReject:
		policy.NonPositive = NonPositiveReject
	default:
		return policy, fmt.Errorf("%w: non-positive policy %q", shared.ErrInvalidInput, nonPositive)
	}
	switch OverDecrementPolicy(strings.ToLower(strings.TrimSpace(overDecrement))) {
	case "":
	case OverDecrementClamp:
		policy.OverDecrement = OverDecrementClamp
	case OverDecrementReject:
		policy.OverDecrement = OverDecrementReject
	default:
		return policy, fmt.Errorf("%w: over-decrement policy %q", shared.ErrInvalidInput, overDecrement)
	}
	return policy, nil
}
