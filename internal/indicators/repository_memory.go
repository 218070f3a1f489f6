package indicators

import (
	"context"
	"strings"
	"sync"

	"medj/internal/labs"
)

type InMemoryRepository struct {
	mu   sync.RWMutex
	defs []labs.IndicatorDefinition
}

func NewInMemoryRepository(seed ...labs.IndicatorDefinition) *InMemoryRepository {
	r := &InMemoryRepository{}
	for _, d := range seed {
		_, _ = r.Upsert(context.Background(), d, true)
	}
	return r
}

func (r *InMemoryRepository) LoadDefinitions(ctx context.Context) ([]labs.IndicatorDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]labs.IndicatorDefinition, len(r.defs))
	for i, d := range r.defs {
		d.Names = append([]string(nil), d.Names...)
		d.Aliases = append([]string(nil), d.Aliases...)
		out[i] = d
	}
	return out, nil
}

func (r *InMemoryRepository) Upsert(ctx context.Context, def labs.IndicatorDefinition, update bool) (UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res UpsertResult
	i := r.find(def)
	if i < 0 {
		r.defs = append(r.defs, labs.IndicatorDefinition{
			Name:    def.Name,
			Names:   append([]string(nil), def.Names...),
			Unit:    def.Unit,
			RefLow:  def.RefLow,
			RefHigh: def.RefHigh,
		})
		i = len(r.defs) - 1
		res.Created = true
	} else if update {
		cur := &r.defs[i]
		cur.Name = def.Name
		if len(def.Names) > 0 {
			cur.Names = append([]string(nil), def.Names...)
		}
		if def.Unit != "" {
			cur.Unit = def.Unit
		}
		if def.RefLow != nil {
			cur.RefLow = def.RefLow
		}
		if def.RefHigh != nil {
			cur.RefHigh = def.RefHigh
		}
		res.Updated = true
	}

	cur := &r.defs[i]
	for _, a := range def.Aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || containsFold(cur.Aliases, a) {
			continue
		}
		cur.Aliases = append(cur.Aliases, a)
		res.AliasesAdded++
	}
	return res, nil
}

func (r *InMemoryRepository) find(def labs.IndicatorDefinition) int {
	candidates := append([]string{def.Name}, def.Names...)
	for i, d := range r.defs {
		for _, c := range candidates {
			if c == "" {
				continue
			}
			if strings.EqualFold(d.Name, c) || containsFold(d.Names, c) {
				return i
			}
		}
	}
	return -1
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
