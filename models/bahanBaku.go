package models

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/heytrack/purchasing_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BahanBaku is one raw material in the user's warehouse. HargaSatuan carries
// the weighted average cost and is only recomputed when stock comes in.
type BahanBaku struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	UserId      string          `gorm:"size:36;index" json:"userId"`
	Nama        string          `gorm:"size:191;index" json:"nama"`
	Satuan      string          `gorm:"size:50" json:"satuan"`
	Stok        decimal.Decimal `gorm:"type:decimal(20,4)" json:"stok"`
	Minimum     decimal.Decimal `gorm:"type:decimal(20,4)" json:"minimum"`
	HargaSatuan decimal.Decimal `gorm:"type:decimal(20,4)" json:"hargaSatuan"`
	Kategori    string          `gorm:"size:100" json:"kategori"`
	Supplier    string          `gorm:"size:191" json:"supplier"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (BahanBaku) TableName() string {
	return "bahan_baku"
}

// FindMaterialByIdOrName resolves a purchase item to a warehouse material.
// Lookup order: primary key first, then case-insensitive name plus unit.
// Returns nil without error when nothing matches.
func FindMaterialByIdOrName(ctx context.Context, userId string, id string, nama string, satuan string) (*BahanBaku, error) {
	db := config.GetDB().WithContext(ctx)

	if strings.TrimSpace(id) != "" {
		var material BahanBaku
		err := db.Where("user_id = ? AND id = ?", userId, id).First(&material).Error
		if err == nil {
			return &material, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	nama = strings.TrimSpace(nama)
	if nama == "" {
		return nil, nil
	}

	var material BahanBaku
	err := db.Where("user_id = ? AND LOWER(nama) = ? AND satuan = ?", userId, strings.ToLower(nama), strings.TrimSpace(satuan)).
		First(&material).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &material, nil
}

// CreateMaterial inserts a new material row with a generated id.
func CreateMaterial(ctx context.Context, material *BahanBaku) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	material.CreatedAt = now
	material.UpdatedAt = now
	return config.GetDB().WithContext(ctx).Create(material).Error
}

// UpdateMaterialStock writes the new stock level and, when priced, the new
// weighted average cost for one material.
func UpdateMaterialStock(ctx context.Context, userId string, id string, stok decimal.Decimal, hargaSatuan *decimal.Decimal) error {
	patch := map[string]interface{}{
		"stok":       stok,
		"updated_at": time.Now().UTC(),
	}
	if hargaSatuan != nil {
		patch["harga_satuan"] = *hargaSatuan
	}

	result := config.GetDB().WithContext(ctx).Model(&BahanBaku{}).
		Where("user_id = ? AND id = ?", userId, id).
		Updates(patch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetMaterialsForUser lists the user's materials ordered by name, used by the
// warehouse rebuild tool.
func GetMaterialsForUser(ctx context.Context, userId string) ([]BahanBaku, error) {
	var materials []BahanBaku
	err := config.GetDB().WithContext(ctx).
		Where("user_id = ?", userId).
		Order("nama ASC").
		Find(&materials).Error
	return materials, err
}
