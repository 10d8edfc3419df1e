package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/heytrack/purchasing_backend/config"
	"github.com/shopspring/decimal"
)

// FinancialTransaction is one row of the user's income/expense ledger.
// Purchase expenses link back through RelatedId so they can be cleaned up
// when the purchase is deleted.
type FinancialTransaction struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	UserId      string          `gorm:"size:36;index" json:"userId"`
	Type        TransactionType `gorm:"size:20" json:"type"`
	Category    string          `gorm:"size:100" json:"category"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4)" json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	RelatedId   string          `gorm:"size:36;index" json:"relatedId"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (FinancialTransaction) TableName() string {
	return "financial_transactions"
}

// AddFinancialTransaction records a ledger entry. It is best-effort: failures
// are logged and reported as false, never propagated, so bookkeeping problems
// cannot block the purchase itself.
func AddFinancialTransaction(ctx context.Context, transaction *FinancialTransaction) bool {
	if transaction.ID == "" {
		transaction.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	transaction.CreatedAt = now
	transaction.UpdatedAt = now

	if err := config.GetDB().WithContext(ctx).Create(transaction).Error; err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "models", "AddFinancialTransaction", "create failed", map[string]interface{}{
			"userId":    transaction.UserId,
			"relatedId": transaction.RelatedId,
			"amount":    transaction.Amount,
		}, err)
		return false
	}
	return true
}

// DeleteFinancialTransactionsByRelatedId removes every ledger entry linked to
// the given source record and returns how many rows went away.
func DeleteFinancialTransactionsByRelatedId(ctx context.Context, userId string, relatedId string) (int64, error) {
	result := config.GetDB().WithContext(ctx).
		Where("user_id = ? AND related_id = ?", userId, relatedId).
		Delete(&FinancialTransaction{})
	return result.RowsAffected, result.Error
}
