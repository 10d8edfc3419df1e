package utils

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/heytrack/purchasing_backend/config"
)

func AtoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func ProcessValidationErrors(err error) map[string]string {
	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// PurchaseLock guards a single purchase id against concurrent status-changing
// calls. It returns a release func; callers must defer it. This is the soft
// in-flight guard, not a cross-entity transaction.
func PurchaseLock(ctx context.Context, purchaseId string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Avoid nil-pointer panics when the Redis lock isn't initialized yet;
		// fall back to running unguarded (soft guard only).
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("purchaseStatus:%s", purchaseId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for purchase", purchaseId, err)
		return nil, ErrorOperationInFlight
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for purchase", purchaseId, err)
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}

func RequireUserId(ctx context.Context) (string, error) {
	if v, ok := GetUserIdFromContext(ctx); ok && v != "" {
		return v, nil
	}
	return "", errors.New("user id is required")
}
