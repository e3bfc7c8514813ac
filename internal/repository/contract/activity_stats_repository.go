// FILE: internal/repository/contract/activity_stats_repository.go
// Counters of mode switches and stored results
package contract

import "context"

type ActivityStatsRepository interface {
	Increment(ctx context.Context, field string) error
	All(ctx context.Context) (map[string]int64, error)
}
