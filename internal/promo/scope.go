package promo

import (
	"github.com/google/uuid"

	"github.com/foodflow/pos-api/internal/money"
	"github.com/foodflow/pos-api/internal/order"
)

// RefKind tells whether a scope entry references a single product or a
// whole category.
type RefKind string

// Role tells how a matched item participates: TRIGGER entries activate the
// promotion, TARGET entries receive the benefit.
type Role string

const (
	RefProduct  RefKind = "PRODUCT"
	RefCategory RefKind = "CATEGORY"

	RoleTrigger Role = "TRIGGER"
	RoleTarget  Role = "TARGET"
)

// ScopeEntry maps one product or category reference onto a promotion role.
// A reference id may appear at most once per promotion.
type ScopeEntry struct {
	RefID uuid.UUID `json:"ref_id"`
	Kind  RefKind   `json:"kind"`
	Role  Role      `json:"role"`
}

// Unit is a single unit of a matched line item. Strategies that pick the
// cheapest units out of a group need unit-level granularity, so resolution
// expands each matched line into Quantity units carrying the line's
// snapshot price. LineIndex preserves insertion order for tie-breaking.
type Unit struct {
	ItemID    uuid.UUID
	ProductID uuid.UUID
	UnitPrice money.Money
	LineIndex int
}

// Match is the resolver output: the order's units split by promotion role.
// A line may appear under both roles when referenced by entries of both
// roles, but is never duplicated within one role.
type Match struct {
	Trigger []Unit
	Target  []Unit
}

// ResolveScope maps a promotion's scope entries onto the order's concrete
// line items. Category references match items through their category
// snapshot, which is equivalent to expanding the category into its products
// at evaluation time. Extras are invisible here: they carry no product
// reference and never count toward either role.
func ResolveScope(entries []ScopeEntry, items []order.LineItem) Match {
	var m Match
	for idx, li := range items {
		inTrigger := false
		inTarget := false
		for _, e := range entries {
			if !entryMatches(e, li) {
				continue
			}
			switch e.Role {
			case RoleTrigger:
				inTrigger = true
			case RoleTarget:
				inTarget = true
			}
		}
		if !inTrigger && !inTarget {
			continue
		}
		units := expandUnits(li, idx)
		if inTrigger {
			m.Trigger = append(m.Trigger, units...)
		}
		if inTarget {
			m.Target = append(m.Target, units...)
		}
	}
	return m
}

func entryMatches(e ScopeEntry, li order.LineItem) bool {
	switch e.Kind {
	case RefProduct:
		return e.RefID == li.ProductID
	case RefCategory:
		return e.RefID == li.CategoryID
	default:
		return false
	}
}

func expandUnits(li order.LineItem, lineIndex int) []Unit {
	units := make([]Unit, 0, li.Quantity)
	for i := 0; i < li.Quantity; i++ {
		units = append(units, Unit{
			ItemID:    li.ID,
			ProductID: li.ProductID,
			UnitPrice: li.UnitPrice,
			LineIndex: lineIndex,
		})
	}
	return units
}
