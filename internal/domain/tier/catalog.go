package tier

import (
	"sort"

	"github.com/flexprice/tiersync/internal/config"
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/flexprice/tiersync/internal/types"
	"github.com/samber/lo"
)

// Catalog maps billing provider plan identifiers (price or product IDs) to
// tiers. It is derived once from the configured plan list and never mutated.
type Catalog struct {
	tiers map[string]types.Tier
}

// NewCatalog derives the lookup table from the plan list. Naming an unknown
// tier, or mapping one identifier to two different tiers, is an error.
func NewCatalog(plans []config.PlanConfig) (*Catalog, error) {
	tiers := make(map[string]types.Tier)

	for _, plan := range plans {
		if err := plan.Tier.Validate(); err != nil {
			return nil, err
		}

		ids := lo.Compact(append(append([]string{}, plan.PriceIDs...), plan.ProductIDs...))
		for _, id := range ids {
			if existing, ok := tiers[id]; ok && existing != plan.Tier {
				return nil, ierr.NewError("plan identifier mapped to conflicting tiers").
					WithHint("Each plan identifier may belong to one tier only").
					WithReportableDetails(map[string]any{
						"plan_identifier": id,
						"tiers":           []types.Tier{existing, plan.Tier},
					}).
					Mark(ierr.ErrValidation)
			}
			tiers[id] = plan.Tier
		}
	}

	return &Catalog{tiers: tiers}, nil
}

// NewCatalogFromConfig is the fx constructor
func NewCatalogFromConfig(cfg *config.Configuration) (*Catalog, error) {
	return NewCatalog(cfg.Billing.Plans)
}

// ResolveTier returns the tier for a plan identifier, or free when the
// identifier is not in the catalog. It never fails open to a paid tier.
func (c *Catalog) ResolveTier(planIdentifier string) types.Tier {
	t, _ := c.Lookup(planIdentifier)
	return t
}

// Lookup is ResolveTier that also reports whether the identifier is known
func (c *Catalog) Lookup(planIdentifier string) (types.Tier, bool) {
	if c == nil || planIdentifier == "" {
		return types.TierFree, false
	}
	t, ok := c.tiers[planIdentifier]
	if !ok {
		return types.TierFree, false
	}
	return t, true
}

// ResolveHighest resolves a set of identifiers, typically every price and
// product of one subscription's items, to the highest ranked known tier.
// matched is false when none of the identifiers is in the catalog.
func (c *Catalog) ResolveHighest(planIdentifiers ...string) (best types.Tier, matched bool) {
	best = types.TierFree
	for _, id := range planIdentifiers {
		t, ok := c.Lookup(id)
		if !ok {
			continue
		}
		matched = true
		if t.Rank() > best.Rank() {
			best = t
		}
	}
	return best, matched
}

// Identifiers lists the known identifiers in a stable order
func (c *Catalog) Identifiers() []string {
	ids := lo.Keys(c.tiers)
	sort.Strings(ids)
	return ids
}

// IsKnown is true when the identifier maps to a tier
func (c *Catalog) IsKnown(planIdentifier string) bool {
	_, ok := c.Lookup(planIdentifier)
	return ok
}
