// FILE: internal/repository/implementation/activity_stats_repository_impl.go
// Redis hash backed activity counters shared by every instance
package implementation

import (
	"context"
	"strconv"

	"geoassist-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const activityStatsKey = "geoassist:activity"

type ActivityStatsRepositoryImpl struct {
	rdb *redis.Client
}

func NewActivityStatsRepository(rdb *redis.Client) contract.ActivityStatsRepository {
	return &ActivityStatsRepositoryImpl{rdb: rdb}
}

func (r *ActivityStatsRepositoryImpl) Increment(ctx context.Context, field string) error {
	return r.rdb.HIncrBy(ctx, activityStatsKey, field, 1).Err()
}

func (r *ActivityStatsRepositoryImpl) All(ctx context.Context) (map[string]int64, error) {
	raw, err := r.rdb.HGetAll(ctx, activityStatsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for field, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}
