package models

// PurchaseStatus values are stored as the exact lowercase wire strings.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

func (s PurchaseStatus) IsValid() bool {
	switch s {
	case PurchaseStatusPending, PurchaseStatusCompleted, PurchaseStatusCancelled:
		return true
	}
	return false
}

// DisplayText returns the Indonesian label shown to users.
func (s PurchaseStatus) DisplayText() string {
	switch s {
	case PurchaseStatusPending:
		return "Menunggu"
	case PurchaseStatusCompleted:
		return "Selesai"
	case PurchaseStatusCancelled:
		return "Dibatalkan"
	}
	return string(s)
}

// CostingMethod tags how inventory cost should be derived for a purchase.
// Only AVERAGE (weighted average cost) is actually computed by the warehouse
// sync; FIFO/LIFO are stored for forward compatibility.
type CostingMethod string

const (
	CostingMethodFIFO    CostingMethod = "FIFO"
	CostingMethodLIFO    CostingMethod = "LIFO"
	CostingMethodAverage CostingMethod = "AVERAGE"
)

func (m CostingMethod) IsValid() bool {
	switch m {
	case CostingMethodFIFO, CostingMethodLIFO, CostingMethodAverage:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

type NotificationType string

const (
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)
