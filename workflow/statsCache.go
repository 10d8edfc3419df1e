package workflow

import (
	"fmt"
	"time"

	"github.com/heytrack/purchasing_backend/config"
	"github.com/heytrack/purchasing_backend/models"
)

// statsCacheTTL bounds staleness of the dashboard aggregate. Mutations also
// invalidate eagerly, so the TTL only matters for writes that bypass the
// workflow (manual SQL fixes, the rebuild tool).
const statsCacheTTL = 5 * time.Minute

func statsCacheKey(userId string) string {
	return fmt.Sprintf("purchaseStats:%s", userId)
}

// GetCachedPurchaseStats reads the cached aggregate. A cache miss or a broken
// cache entry reports found=false; callers fall through to the database.
func GetCachedPurchaseStats(userId string) (*models.PurchaseStats, bool) {
	var stats models.PurchaseStats
	found, err := config.GetRedisObject(statsCacheKey(userId), &stats)
	if err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "statsCache.go", "GetCachedPurchaseStats", "redis get", userId, err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &stats, true
}

func SetCachedPurchaseStats(userId string, stats *models.PurchaseStats) {
	if err := config.SetRedisObject(statsCacheKey(userId), stats, statsCacheTTL); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "statsCache.go", "SetCachedPurchaseStats", "redis set", userId, err)
	}
}

func InvalidatePurchaseStats(userId string) {
	if err := config.RemoveRedisKey(statsCacheKey(userId)); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "statsCache.go", "InvalidatePurchaseStats", "redis del", userId, err)
	}
}
