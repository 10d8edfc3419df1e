package workflow

import (
	"context"
	"time"

	"github.com/heytrack/purchasing_backend/models"
	"github.com/shopspring/decimal"
)

// gorm-backed implementations of the workflow's collaborator interfaces.
// They are thin: all query logic lives in the models package.

type gormPurchaseStore struct{}

func (gormPurchaseStore) Insert(ctx context.Context, purchase *models.Purchase) error {
	return models.InsertPurchase(ctx, purchase)
}

func (gormPurchaseStore) Get(ctx context.Context, userId string, id string) (*models.Purchase, error) {
	return models.GetPurchase(ctx, userId, id)
}

func (gormPurchaseStore) UpdateFields(ctx context.Context, userId string, id string, patch map[string]interface{}) error {
	return models.UpdatePurchaseFields(ctx, userId, id, patch)
}

func (gormPurchaseStore) DeleteRow(ctx context.Context, userId string, id string) error {
	return models.DeletePurchaseRow(ctx, userId, id)
}

type gormMaterialStore struct{}

func (gormMaterialStore) FindByIdOrName(ctx context.Context, userId string, id string, nama string, satuan string) (*models.BahanBaku, error) {
	return models.FindMaterialByIdOrName(ctx, userId, id, nama, satuan)
}

func (gormMaterialStore) Create(ctx context.Context, material *models.BahanBaku) error {
	return models.CreateMaterial(ctx, material)
}

func (gormMaterialStore) UpdateStock(ctx context.Context, userId string, id string, stok decimal.Decimal, hargaSatuan *decimal.Decimal) error {
	return models.UpdateMaterialStock(ctx, userId, id, stok, hargaSatuan)
}

type gormFinancialRecorder struct{}

func (gormFinancialRecorder) RecordExpense(ctx context.Context, userId string, purchase *models.Purchase, description string) bool {
	return models.AddFinancialTransaction(ctx, &models.FinancialTransaction{
		UserId:      userId,
		Type:        models.TransactionTypeExpense,
		Category:    "Pembelian Bahan Baku",
		Amount:      purchase.TotalNilai,
		Description: description,
		Date:        purchase.Tanggal,
		RelatedId:   purchase.ID,
	})
}

func (gormFinancialRecorder) DeleteByRelatedId(ctx context.Context, userId string, relatedId string) (int64, error) {
	return models.DeleteFinancialTransactionsByRelatedId(ctx, userId, relatedId)
}

type gormNotifier struct{}

func (gormNotifier) Notify(ctx context.Context, userId string, notificationType models.NotificationType, title string, message string) {
	models.AddNotification(ctx, userId, notificationType, title, message)
}

type gormActivityRecorder struct{}

func (gormActivityRecorder) Record(ctx context.Context, userId string, title string, detail string, activityType string) {
	models.AddActivity(ctx, userId, title, detail, activityType)
}

type gormSupplierResolver struct{}

func (gormSupplierResolver) DisplayName(ctx context.Context, userId string, supplier string) string {
	return models.GetSupplierNameById(ctx, userId, supplier)
}

// touchTimestamp is shared by the compensating status writes, which bypass
// the transformer.
func touchTimestamp() time.Time {
	return time.Now().UTC()
}
