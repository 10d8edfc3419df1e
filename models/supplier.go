package models

import (
	"context"
	"strings"
	"time"

	"github.com/heytrack/purchasing_backend/config"
	"gorm.io/gorm"
)

type Supplier struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserId    string    `gorm:"size:36;index" json:"userId"`
	Nama      string    `gorm:"size:191" json:"nama"`
	Kontak    string    `gorm:"size:191" json:"kontak"`
	Alamat    string    `json:"alamat"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

// GetSupplierNameById resolves the supplier field of a purchase to a display
// name. The column historically stores either a supplier id or a free-form
// name, so an id that matches nothing falls back to the raw value.
func GetSupplierNameById(ctx context.Context, userId string, supplier string) string {
	trimmed := strings.TrimSpace(supplier)
	if trimmed == "" {
		return "Supplier tidak diketahui"
	}

	var row Supplier
	err := config.GetDB().WithContext(ctx).
		Select("nama").
		Where("user_id = ? AND id = ?", userId, trimmed).
		First(&row).Error
	if err == nil && strings.TrimSpace(row.Nama) != "" {
		return row.Nama
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		logger := config.GetLogger()
		config.LogError(logger, "models", "GetSupplierNameById", "supplier lookup failed", map[string]interface{}{"supplier": trimmed}, err)
	}
	return trimmed
}
