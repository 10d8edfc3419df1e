package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/heytrack/purchasing_backend/config"
	"github.com/heytrack/purchasing_backend/models"
	"github.com/shopspring/decimal"
)

// MaterialStore is the warehouse surface the sync needs. The production
// implementation is gorm-backed (see stores.go); tests use an in-memory fake.
type MaterialStore interface {
	FindByIdOrName(ctx context.Context, userId string, id string, nama string, satuan string) (*models.BahanBaku, error)
	Create(ctx context.Context, material *models.BahanBaku) error
	UpdateStock(ctx context.Context, userId string, id string, stok decimal.Decimal, hargaSatuan *decimal.Decimal) error
}

// ItemSyncOutcome describes what happened to one purchase item during a sync.
type ItemSyncOutcome string

const (
	ItemSyncCreated ItemSyncOutcome = "created"
	ItemSyncUpdated ItemSyncOutcome = "updated"
	ItemSyncSkipped ItemSyncOutcome = "skipped"
	ItemSyncFailed  ItemSyncOutcome = "failed"
)

type ItemSyncResult struct {
	Nama    string          `json:"nama"`
	Outcome ItemSyncOutcome `json:"outcome"`
	Message string          `json:"message,omitempty"`
}

// SyncReport collects per-item outcomes. A report can carry failures while
// other items succeeded; callers decide whether that is fatal.
type SyncReport struct {
	Items []ItemSyncResult
}

func (r *SyncReport) record(nama string, outcome ItemSyncOutcome, message string) {
	r.Items = append(r.Items, ItemSyncResult{Nama: nama, Outcome: outcome, Message: message})
}

func (r *SyncReport) FailedCount() int {
	count := 0
	for _, item := range r.Items {
		if item.Outcome == ItemSyncFailed {
			count++
		}
	}
	return count
}

func (r *SyncReport) FailureMessages() []string {
	var messages []string
	for _, item := range r.Items {
		if item.Outcome == ItemSyncFailed {
			messages = append(messages, fmt.Sprintf("%s: %s", item.Nama, item.Message))
		}
	}
	return messages
}

// CalculateWac returns the weighted average cost after receiving qty units at
// unitPrice on top of existing stock. Zero or negative existing stock means
// the incoming price becomes the cost outright; the stale average of an empty
// bin must not dilute fresh stock.
func CalculateWac(currentStock, currentWac, qty, unitPrice decimal.Decimal) decimal.Decimal {
	if !currentStock.IsPositive() {
		return unitPrice
	}
	totalQty := currentStock.Add(qty)
	if !totalQty.IsPositive() {
		return unitPrice
	}
	existingValue := currentStock.Mul(currentWac)
	incomingValue := qty.Mul(unitPrice)
	return existingValue.Add(incomingValue).Div(totalQty)
}

// defaultMinimumStock derives the reorder threshold for an auto-created
// material: 10% of the first received quantity, floored, at least 1.
func defaultMinimumStock(qty decimal.Decimal) decimal.Decimal {
	minimum := qty.Mul(decimal.NewFromFloat(0.1)).Floor()
	if minimum.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return minimum
}

// WarehouseSyncService applies and reverses the stock effect of completed
// purchases, item by item. One bad item does not stop the rest; every item
// gets its own outcome in the report.
type WarehouseSyncService struct {
	Materials MaterialStore
	Retry     RetryOptions
}

func NewWarehouseSyncService(materials MaterialStore) *WarehouseSyncService {
	return &WarehouseSyncService{Materials: materials, Retry: DefaultRetryOptions()}
}

// ApplyPurchase adds each item's quantity to warehouse stock and recomputes
// the weighted average cost. Unknown materials are auto-created unless the
// feature flag disables it. Returns an error when any item failed.
func (s *WarehouseSyncService) ApplyPurchase(ctx context.Context, purchase *models.Purchase) (*SyncReport, error) {
	logger := config.GetLogger()
	report := &SyncReport{}

	for _, item := range purchase.Items {
		if err := s.applyItem(ctx, purchase, item, report); err != nil {
			config.LogError(logger, "warehouseSync.go", "ApplyPurchase", "applyItem", map[string]interface{}{
				"purchaseId": purchase.ID,
				"nama":       item.Nama,
			}, err)
			report.record(item.Nama, ItemSyncFailed, err.Error())
		}
	}

	if failed := report.FailedCount(); failed > 0 {
		return report, fmt.Errorf("%d item gagal disinkronkan ke gudang: %s", failed, strings.Join(report.FailureMessages(), "; "))
	}
	return report, nil
}

func (s *WarehouseSyncService) applyItem(ctx context.Context, purchase *models.Purchase, item models.PurchaseItem, report *SyncReport) error {
	if !item.Kuantitas.IsPositive() {
		report.record(item.Nama, ItemSyncSkipped, "kuantitas tidak positif")
		return nil
	}

	material, err := s.Materials.FindByIdOrName(ctx, purchase.UserId, item.BahanBakuId, item.Nama, item.Satuan)
	if err != nil {
		return err
	}

	if material == nil {
		if config.DisableWarehouseAutoCreate() {
			return fmt.Errorf("bahan baku %q tidak ditemukan di gudang", item.Nama)
		}
		created := &models.BahanBaku{
			UserId:      purchase.UserId,
			Nama:        strings.TrimSpace(item.Nama),
			Satuan:      strings.TrimSpace(item.Satuan),
			Stok:        item.Kuantitas,
			Minimum:     defaultMinimumStock(item.Kuantitas),
			HargaSatuan: item.HargaSatuan,
			Supplier:    purchase.Supplier,
		}
		err = ExecuteWithRetry(ctx, s.Retry, func() error {
			return s.Materials.Create(ctx, created)
		})
		if err != nil {
			return err
		}
		report.record(item.Nama, ItemSyncCreated, "")
		return nil
	}

	newStock := material.Stok.Add(item.Kuantitas)
	newWac := CalculateWac(material.Stok, material.HargaSatuan, item.Kuantitas, item.HargaSatuan)
	err = ExecuteWithRetry(ctx, s.Retry, func() error {
		return s.Materials.UpdateStock(ctx, purchase.UserId, material.ID, newStock, &newWac)
	})
	if err != nil {
		return err
	}
	report.record(item.Nama, ItemSyncUpdated, "")
	return nil
}

// ReversePurchase subtracts each item's quantity again, clamping at zero so a
// reversal can never drive stock negative. The weighted average cost is left
// as is: cost history cannot be un-averaged, and the next receipt will fold
// in correctly.
func (s *WarehouseSyncService) ReversePurchase(ctx context.Context, purchase *models.Purchase) (*SyncReport, error) {
	logger := config.GetLogger()
	report := &SyncReport{}

	for _, item := range purchase.Items {
		if err := s.reverseItem(ctx, purchase, item, report); err != nil {
			config.LogError(logger, "warehouseSync.go", "ReversePurchase", "reverseItem", map[string]interface{}{
				"purchaseId": purchase.ID,
				"nama":       item.Nama,
			}, err)
			report.record(item.Nama, ItemSyncFailed, err.Error())
		}
	}

	if failed := report.FailedCount(); failed > 0 {
		return report, fmt.Errorf("%d item gagal dikembalikan dari gudang: %s", failed, strings.Join(report.FailureMessages(), "; "))
	}
	return report, nil
}

func (s *WarehouseSyncService) reverseItem(ctx context.Context, purchase *models.Purchase, item models.PurchaseItem, report *SyncReport) error {
	if !item.Kuantitas.IsPositive() {
		report.record(item.Nama, ItemSyncSkipped, "kuantitas tidak positif")
		return nil
	}

	material, err := s.Materials.FindByIdOrName(ctx, purchase.UserId, item.BahanBakuId, item.Nama, item.Satuan)
	if err != nil {
		return err
	}
	if material == nil {
		// Material deleted since completion. Nothing to restore.
		report.record(item.Nama, ItemSyncSkipped, "bahan baku sudah tidak ada")
		return nil
	}

	newStock := material.Stok.Sub(item.Kuantitas)
	if newStock.IsNegative() {
		newStock = decimal.Zero
	}
	err = ExecuteWithRetry(ctx, s.Retry, func() error {
		return s.Materials.UpdateStock(ctx, purchase.UserId, material.ID, newStock, nil)
	})
	if err != nil {
		return err
	}
	report.record(item.Nama, ItemSyncUpdated, "")
	return nil
}
