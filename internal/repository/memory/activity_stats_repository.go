package memory

import (
	"context"

	"geoassist-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// ActivityStatsRepository keeps activity counters in process memory. Used
// when redis is not reachable.
type ActivityStatsRepository struct {
	counters *cache.Cache
}

func NewActivityStatsRepository() contract.ActivityStatsRepository {
	return &ActivityStatsRepository{counters: cache.New(cache.NoExpiration, 0)}
}

func (r *ActivityStatsRepository) Increment(_ context.Context, field string) error {
	// Add fails when the counter exists, which is fine
	_ = r.counters.Add(field, int64(0), cache.NoExpiration)
	_, err := r.counters.IncrementInt64(field, 1)
	return err
}

func (r *ActivityStatsRepository) All(context.Context) (map[string]int64, error) {
	items := r.counters.Items()
	out := make(map[string]int64, len(items))
	for field, item := range items {
		if n, ok := item.Object.(int64); ok {
			out[field] = n
		}
	}
	return out, nil
}
