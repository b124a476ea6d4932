package internal

import (
	"fmt"

	"github.com/flexprice/tiersync/internal/config"
	"github.com/flexprice/tiersync/internal/domain/tier"
)

// PrintCatalog validates billing.plans and prints what each identifier maps to
func PrintCatalog() error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}

	catalog, err := tier.NewCatalogFromConfig(cfg)
	if err != nil {
		return err
	}

	for _, id := range catalog.Identifiers() {
		fmt.Printf("%-40s %s\n", id, catalog.ResolveTier(id))
	}
	return nil
}
