package indicators

import (
	"context"

	"medj/internal/labs"
)

// Loader reads the full dictionary. The store depends only on this.
type Loader interface {
	LoadDefinitions(ctx context.Context) ([]labs.IndicatorDefinition, error)
}

// Repository is the read/write contract of the dictionary tables.
type Repository interface {
	Loader

	// Upsert matches def by either name, case-insensitively. Existing rows
	// are overwritten only when update is set; aliases are always added.
	Upsert(ctx context.Context, def labs.IndicatorDefinition, update bool) (UpsertResult, error)
}

// UpsertResult tells what one Upsert changed.
type UpsertResult struct {
	Created      bool
	Updated      bool
	AliasesAdded int
}

// ImportStats totals an import run.
type ImportStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Aliases int `json:"aliases"`
}

// Import writes defs in order and totals the outcome.
func Import(ctx context.Context, repo Repository, defs []labs.IndicatorDefinition, update bool) (ImportStats, error) {
	var stats ImportStats
	for _, d := range defs {
		res, err := repo.Upsert(ctx, d, update)
		if err != nil {
			return stats, err
		}
		switch {
		case res.Created:
			stats.Created++
		case res.Updated:
			stats.Updated++
		default:
			stats.Skipped++
		}
		stats.Aliases += res.AliasesAdded
	}
	return stats, nil
}
