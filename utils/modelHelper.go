package utils

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/heytrack/purchasing_backend/config"
)

// FetchModel loads a user-scoped row by string id, preloading the given
// associations. Returns ErrorRecordNotFound when the row does not exist for
// this owner; any other database error is passed through untouched.
func FetchModel[T any](ctx context.Context, userId string, id string, associations ...string) (*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("user_id = ?", userId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	if err := dbCtx.Where("id = ?", id).First(&result).Error; err != nil {
		return nil, TranslateFetchError(err)
	}
	return &result, nil
}

// TranslateFetchError maps gorm's missing-row sentinel to ErrorRecordNotFound
// and leaves every other error alone, so an unreachable database surfaces as
// a 500 instead of a phantom 404.
func TranslateFetchError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorRecordNotFound
	}
	return err
}
