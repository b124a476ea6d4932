package types

import (
	ierr "github.com/flexprice/tiersync/internal/errors"
	"github.com/samber/lo"
)

// Tier is the entitlement level granted to a tenant
type Tier string

const (
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Tiers lists every tier in ascending rank order
var Tiers = []Tier{TierFree, TierStarter, TierPro, TierEnterprise}

func (t Tier) String() string {
	return string(t)
}

func (t Tier) Validate() error {
	if !lo.Contains(Tiers, t) {
		return ierr.NewError("invalid tier").
			WithHint("Invalid tier").
			WithReportableDetails(map[string]any{
				"tier":           t,
				"allowed_values": Tiers,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Rank orders tiers by entitlement. Unknown tiers rank below free.
func (t Tier) Rank() int {
	return lo.IndexOf(Tiers, t)
}

// IsPaid is true for every tier above free
func (t Tier) IsPaid() bool {
	return t.Rank() > TierFree.Rank()
}
