package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityStatsRepositoryCounts(t *testing.T) {
	repo := NewActivityStatsRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.Increment(ctx, "switch:entered:KML"))
		}()
	}
	wg.Wait()
	require.NoError(t, repo.Increment(ctx, "result:geotag"))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"switch:entered:KML": 50, "result:geotag": 1}, all)
}
