package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/heytrack/purchasing_backend/config"
	"github.com/heytrack/purchasing_backend/utils"
	"github.com/shopspring/decimal"
)

type Purchase struct {
	ID                string          `gorm:"primaryKey;size:36" json:"id"`
	UserId            string          `gorm:"index;not null;size:36" json:"user_id"`
	Supplier          string          `gorm:"size:255;not null" json:"supplier"`
	Tanggal           time.Time       `gorm:"not null;index" json:"tanggal"`
	Items             PurchaseItems   `gorm:"type:json" json:"items"`
	TotalNilai        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_nilai"`
	Status            PurchaseStatus  `gorm:"type:enum('pending','completed','cancelled');default:'pending';index" json:"status"`
	MetodePerhitungan CostingMethod   `gorm:"type:enum('FIFO','LIFO','AVERAGE');default:'FIFO'" json:"metode_perhitungan"`
	Catatan           string          `gorm:"type:text" json:"catatan"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// PurchaseItem keys follow the wire names of the purchases.items column.
type PurchaseItem struct {
	BahanBakuId string          `json:"bahanBakuId"`
	Nama        string          `json:"nama"`
	Kuantitas   decimal.Decimal `json:"kuantitas"`
	Satuan      string          `json:"satuan"`
	HargaSatuan decimal.Decimal `json:"hargaSatuan"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Keterangan  string          `json:"keterangan,omitempty"`
}

// PurchaseItems is stored as a JSON column.
type PurchaseItems []PurchaseItem

func (items PurchaseItems) Value() (driver.Value, error) {
	if items == nil {
		items = PurchaseItems{}
	}
	return json.Marshal(items)
}

func (items *PurchaseItems) Scan(value interface{}) error {
	if value == nil {
		*items = PurchaseItems{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PurchaseItems", value)
	}
	if len(data) == 0 {
		*items = PurchaseItems{}
		return nil
	}
	return json.Unmarshal(data, items)
}

// SubtotalSum returns the sum of item subtotals, recomputing a missing
// subtotal from kuantitas * hargaSatuan.
func (items PurchaseItems) SubtotalSum() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sub := item.Subtotal
		if sub.IsZero() {
			sub = item.Kuantitas.Mul(item.HargaSatuan)
		}
		sum = sum.Add(sub)
	}
	return sum
}

// NewPurchase is the payload for creating a purchase.
type NewPurchase struct {
	Supplier          string          `json:"supplier" binding:"required"`
	Tanggal           time.Time       `json:"tanggal" binding:"required"`
	Items             PurchaseItems   `json:"items" binding:"required"`
	TotalNilai        decimal.Decimal `json:"total_nilai"`
	Status            PurchaseStatus  `json:"status"`
	MetodePerhitungan CostingMethod   `json:"metode_perhitungan"`
	Catatan           string          `json:"catatan"`
}

// UpdatePurchaseInput carries only the fields the caller wants changed.
type UpdatePurchaseInput struct {
	Supplier          *string          `json:"supplier"`
	Tanggal           *time.Time       `json:"tanggal"`
	Items             *PurchaseItems   `json:"items"`
	TotalNilai        *decimal.Decimal `json:"total_nilai"`
	Status            *PurchaseStatus  `json:"status"`
	MetodePerhitungan *CostingMethod   `json:"metode_perhitungan"`
	Catatan           *string          `json:"catatan"`
}

// HasContentChange reports whether the update touches anything that feeds the
// warehouse sync (items, totals, dates, supplier) as opposed to status only.
func (input *UpdatePurchaseInput) HasContentChange() bool {
	return input.Supplier != nil || input.Tanggal != nil || input.Items != nil ||
		input.TotalNilai != nil || input.MetodePerhitungan != nil || input.Catatan != nil
}

type PurchaseStats struct {
	TotalPurchases int64           `json:"total_purchases"`
	TotalValue     decimal.Decimal `json:"total_value"`
	PendingCount   int64           `json:"pending_count"`
	CompletedCount int64           `json:"completed_count"`
	CancelledCount int64           `json:"cancelled_count"`
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// InsertPurchase writes a new row. IDs are generated here; on the (rare)
// duplicate-key collision the insert is retried with a fresh id.
func InsertPurchase(ctx context.Context, purchase *Purchase) error {
	db := config.GetDB()
	if purchase.ID == "" {
		purchase.ID = uuid.NewString()
	}
	for attempt := 0; ; attempt++ {
		err := db.WithContext(ctx).Create(purchase).Error
		if err == nil {
			return nil
		}
		if isDuplicateKeyErr(err) && attempt < 2 {
			purchase.ID = uuid.NewString()
			continue
		}
		return err
	}
}

func GetPurchase(ctx context.Context, userId string, id string) (*Purchase, error) {
	return utils.FetchModel[Purchase](ctx, userId, id)
}

// GetPurchases lists all purchases for the owner, newest purchase date first.
func GetPurchases(ctx context.Context, userId string) ([]*Purchase, error) {
	db := config.GetDB()
	var results []*Purchase
	err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("tanggal DESC, created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetPurchasesByDateRange(ctx context.Context, userId string, start time.Time, end time.Time) ([]*Purchase, error) {
	db := config.GetDB()
	var results []*Purchase
	err := db.WithContext(ctx).
		Where("user_id = ? AND tanggal BETWEEN ? AND ?", userId, start, end).
		Order("tanggal DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// SearchPurchases matches the supplier name or any item name.
func SearchPurchases(ctx context.Context, userId string, query string, limit int) ([]*Purchase, error) {
	if limit <= 0 || limit > config.SearchLimit {
		limit = config.SearchLimit
	}
	db := config.GetDB()
	var results []*Purchase
	like := "%" + query + "%"
	err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("supplier LIKE ? OR items LIKE ?", like, like).
		Order("tanggal DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// UpdatePurchaseFields applies a partial row patch (see PurchaseRowForUpdate).
func UpdatePurchaseFields(ctx context.Context, userId string, id string, patch map[string]interface{}) error {
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&Purchase{}).
		Where("user_id = ? AND id = ?", userId, id).
		Updates(patch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func DeletePurchaseRow(ctx context.Context, userId string, id string) error {
	db := config.GetDB()
	result := db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userId, id).
		Delete(&Purchase{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func GetPurchaseStats(ctx context.Context, userId string) (*PurchaseStats, error) {
	db := config.GetDB()
	var stats PurchaseStats
	err := db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_purchases,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN total_nilai ELSE 0 END), 0) AS total_value,
			COALESCE(SUM(status = 'pending'), 0) AS pending_count,
			COALESCE(SUM(status = 'completed'), 0) AS completed_count,
			COALESCE(SUM(status = 'cancelled'), 0) AS cancelled_count
		FROM purchases
		WHERE user_id = ?`, userId).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
