package workflow

import (
	"context"
	"fmt"

	"github.com/heytrack/purchasing_backend/config"
	"github.com/heytrack/purchasing_backend/models"
	"github.com/heytrack/purchasing_backend/utils"
)

// PurchaseStore is the row-level persistence surface for purchases.
type PurchaseStore interface {
	Insert(ctx context.Context, purchase *models.Purchase) error
	Get(ctx context.Context, userId string, id string) (*models.Purchase, error)
	UpdateFields(ctx context.Context, userId string, id string, patch map[string]interface{}) error
	DeleteRow(ctx context.Context, userId string, id string) error
}

// WarehouseSyncer applies/reverses the stock effect of a completed purchase.
type WarehouseSyncer interface {
	ApplyPurchase(ctx context.Context, purchase *models.Purchase) (*SyncReport, error)
	ReversePurchase(ctx context.Context, purchase *models.Purchase) (*SyncReport, error)
}

// FinancialRecorder writes purchase expenses to the ledger. RecordExpense is
// best-effort and reports success as a bool.
type FinancialRecorder interface {
	RecordExpense(ctx context.Context, userId string, purchase *models.Purchase, description string) bool
	DeleteByRelatedId(ctx context.Context, userId string, relatedId string) (int64, error)
}

type Notifier interface {
	Notify(ctx context.Context, userId string, notificationType models.NotificationType, title string, message string)
}

type ActivityRecorder interface {
	Record(ctx context.Context, userId string, title string, detail string, activityType string)
}

type SupplierResolver interface {
	DisplayName(ctx context.Context, userId string, supplier string) string
}

// GuardFunc serializes status-affecting operations per purchase id. The
// returned func releases the guard.
type GuardFunc func(ctx context.Context, purchaseId string, moduleName string, functionName string) (func(), error)

// PurchaseWorkflow orchestrates purchase mutations across the purchase row,
// warehouse stock, the expense ledger and the side channels. Stock and ledger
// live in separate tables with no cross-entity transaction; ordering and
// compensation keep them consistent.
type PurchaseWorkflow struct {
	Store           PurchaseStore
	Sync            WarehouseSyncer
	Financial       FinancialRecorder
	Notifier        Notifier
	Activity        ActivityRecorder
	Suppliers       SupplierResolver
	Events          EventPublisher
	Guard           GuardFunc
	InvalidateStats func(userId string)
	Retry           RetryOptions
}

// NewPurchaseWorkflow wires the production implementation: gorm stores, the
// Redis change stream, the Redis in-flight guard.
func NewPurchaseWorkflow() *PurchaseWorkflow {
	return &PurchaseWorkflow{
		Store:           gormPurchaseStore{},
		Sync:            NewWarehouseSyncService(gormMaterialStore{}),
		Financial:       gormFinancialRecorder{},
		Notifier:        gormNotifier{},
		Activity:        gormActivityRecorder{},
		Suppliers:       gormSupplierResolver{},
		Events:          RedisEventPublisher{},
		Guard:           utils.PurchaseLock,
		InvalidateStats: InvalidatePurchaseStats,
		Retry:           DefaultRetryOptions(),
	}
}

func (w *PurchaseWorkflow) retryOpts() RetryOptions {
	if w.Retry.MaxAttempts <= 0 {
		return DefaultRetryOptions()
	}
	return w.Retry
}

// writeFields retries the row patch: status and content writes are the atoms
// the lifecycle compensation logic reasons about, so a transient database
// error must not be mistaken for a failed transition.
func (w *PurchaseWorkflow) writeFields(ctx context.Context, userId string, id string, patch map[string]interface{}) error {
	return ExecuteWithRetry(ctx, w.retryOpts(), func() error {
		return w.Store.UpdateFields(ctx, userId, id, patch)
	})
}

// StatusChangeResult reports what a SetStatus call actually did.
type StatusChangeResult struct {
	Purchase    *models.Purchase      `json:"purchase"`
	OldStatus   models.PurchaseStatus `json:"oldStatus"`
	NewStatus   models.PurchaseStatus `json:"newStatus"`
	SyncApplied bool                  `json:"syncApplied"`
	Warnings    []string              `json:"warnings,omitempty"`
	NoOp        bool                  `json:"noOp"`
}

// Create validates and inserts a purchase. New purchases land as pending; a
// requested completed or cancelled status is then reached through the same
// transition path as an explicit status change, so the warehouse sync has
// exactly one entry point.
func (w *PurchaseWorkflow) Create(ctx context.Context, userId string, input *models.NewPurchase) (*models.Purchase, []string, error) {
	if input.TotalNilai.IsZero() {
		input.TotalNilai = input.Items.SubtotalSum()
	}

	validation := models.ValidatePurchaseInput(input)
	if !validation.IsValid() {
		return nil, validation.Warnings, &utils.ValidationError{Errors: validation.Errors, Warnings: validation.Warnings}
	}
	warnings := validation.Warnings

	requestedStatus := input.Status
	if requestedStatus == "" {
		requestedStatus = models.PurchaseStatusPending
	}
	if !requestedStatus.IsValid() {
		return nil, warnings, &utils.ValidationError{Errors: []string{fmt.Sprintf("Status %q tidak dikenal", requestedStatus)}}
	}

	metode := input.MetodePerhitungan
	if metode == "" {
		metode = models.CostingMethodFIFO
	}

	purchase := &models.Purchase{
		UserId:            userId,
		Supplier:          input.Supplier,
		Tanggal:           input.Tanggal,
		Items:             input.Items,
		TotalNilai:        input.TotalNilai,
		Status:            models.PurchaseStatusPending,
		MetodePerhitungan: metode,
		Catatan:           input.Catatan,
	}

	if err := w.Store.Insert(ctx, purchase); err != nil {
		return nil, warnings, err
	}

	w.Events.PublishChange(ctx, userId, ChangeEvent{EventType: ChangeEventInsert, New: purchase})
	w.invalidateStats(userId)
	w.Activity.Record(ctx, userId, "Pembelian baru", fmt.Sprintf("Pembelian dari %s senilai %s", purchase.Supplier, purchase.TotalNilai), "purchase_created")

	if requestedStatus != models.PurchaseStatusPending {
		result, err := w.setStatusLocked(ctx, userId, purchase, requestedStatus)
		if err != nil {
			// The pending row stays; the caller can retry the transition.
			return purchase, warnings, err
		}
		warnings = append(warnings, result.Warnings...)
		return result.Purchase, warnings, nil
	}

	return purchase, warnings, nil
}

// SetStatus moves a purchase through its lifecycle, guarded per purchase id
// so two concurrent transitions cannot interleave their stock writes.
func (w *PurchaseWorkflow) SetStatus(ctx context.Context, userId string, id string, newStatus models.PurchaseStatus) (*StatusChangeResult, error) {
	release, err := w.Guard(ctx, id, "purchaseWorkflow.go", "SetStatus")
	if err != nil {
		return nil, err
	}
	defer release()

	purchase, err := w.Store.Get(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	return w.setStatusLocked(ctx, userId, purchase, newStatus)
}

// setStatusLocked does the transition work. Callers hold the guard (or own a
// row nobody else can see yet, as in Create).
func (w *PurchaseWorkflow) setStatusLocked(ctx context.Context, userId string, purchase *models.Purchase, newStatus models.PurchaseStatus) (*StatusChangeResult, error) {
	oldStatus := purchase.Status

	if oldStatus == newStatus {
		// Idempotent repeat of the current status: zero writes.
		return &StatusChangeResult{Purchase: purchase, OldStatus: oldStatus, NewStatus: newStatus, NoOp: true}, nil
	}

	validation := models.ValidateStatusTransition(oldStatus, newStatus)
	if !validation.IsValid() {
		return nil, &utils.ValidationError{Errors: validation.Errors, Warnings: validation.Warnings}
	}
	warnings := validation.Warnings

	result := &StatusChangeResult{Purchase: purchase, OldStatus: oldStatus, NewStatus: newStatus}

	entersCompleted := newStatus == models.PurchaseStatusCompleted
	exitsCompleted := oldStatus == models.PurchaseStatusCompleted

	switch {
	case entersCompleted:
		completionWarnings, err := w.completePurchase(ctx, userId, purchase)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, completionWarnings...)
		result.SyncApplied = true

	case exitsCompleted:
		if err := w.uncompletePurchase(ctx, userId, purchase, newStatus); err != nil {
			return nil, err
		}

	default:
		// pending <-> cancelled: a plain status write, no stock involved.
		patch := map[string]interface{}{"status": newStatus, "updated_at": touchTimestamp()}
		if err := w.writeFields(ctx, userId, purchase.ID, patch); err != nil {
			return nil, err
		}
		purchase.Status = newStatus
	}

	result.Warnings = warnings

	old := *purchase
	old.Status = oldStatus
	w.Events.PublishChange(ctx, userId, ChangeEvent{EventType: ChangeEventUpdate, New: purchase, Old: &old})

	supplierName := w.Suppliers.DisplayName(ctx, userId, purchase.Supplier)
	w.Events.PublishStatusChanged(ctx, userId, StatusChangedEvent{
		PurchaseId:   purchase.ID,
		SupplierName: supplierName,
		OldStatus:    oldStatus,
		NewStatus:    newStatus,
	})
	w.Notifier.Notify(ctx, userId, models.NotificationTypeInfo,
		"Status pembelian berubah",
		fmt.Sprintf("Pembelian dari %s: %s menjadi %s", supplierName, oldStatus.DisplayText(), newStatus.DisplayText()))
	w.Activity.Record(ctx, userId, "Status pembelian berubah",
		fmt.Sprintf("Pembelian %s: %s menjadi %s", purchase.ID, oldStatus.DisplayText(), newStatus.DisplayText()),
		"purchase_status_changed")
	w.invalidateStats(userId)

	return result, nil
}

// completePurchase enters the completed state. The status row is written
// first so a crash mid-sync leaves a completed purchase whose stock can be
// replayed by the rebuild tool; a sync failure rolls the status back.
func (w *PurchaseWorkflow) completePurchase(ctx context.Context, userId string, purchase *models.Purchase) ([]string, error) {
	logger := config.GetLogger()

	validation := models.ValidatePurchaseForCompletion(purchase)
	if !validation.IsValid() {
		return nil, &utils.ValidationError{Errors: validation.Errors, Warnings: validation.Warnings}
	}
	warnings := validation.Warnings

	previousStatus := purchase.Status
	patch := map[string]interface{}{"status": models.PurchaseStatusCompleted, "updated_at": touchTimestamp()}
	if err := w.writeFields(ctx, userId, purchase.ID, patch); err != nil {
		return nil, err
	}
	purchase.Status = models.PurchaseStatusCompleted

	if _, err := w.Sync.ApplyPurchase(ctx, purchase); err != nil {
		config.LogError(logger, "purchaseWorkflow.go", "completePurchase", "ApplyPurchase", purchase.ID, err)

		rollback := map[string]interface{}{"status": previousStatus, "updated_at": touchTimestamp()}
		rolledBack := true
		if rbErr := w.writeFields(ctx, userId, purchase.ID, rollback); rbErr != nil {
			rolledBack = false
			config.LogError(logger, "purchaseWorkflow.go", "completePurchase", "rollback status", purchase.ID, rbErr)
		} else {
			purchase.Status = previousStatus
		}
		return nil, &utils.SyncError{Op: "sinkronisasi gudang", RolledBack: rolledBack, Err: err}
	}

	// The expense record is best-effort: stock is already correct, so a
	// ledger hiccup downgrades to a warning instead of undoing the
	// completion.
	description := fmt.Sprintf("Pembelian bahan baku dari %s", w.Suppliers.DisplayName(ctx, userId, purchase.Supplier))
	if ok := w.Financial.RecordExpense(ctx, userId, purchase, description); !ok {
		warnings = append(warnings, "Pembelian selesai, namun pengeluaran tidak tercatat di laporan keuangan")
		w.Notifier.Notify(ctx, userId, models.NotificationTypeWarning,
			"Pengeluaran tidak tercatat",
			fmt.Sprintf("Pembelian dari %s selesai, namun pengeluaran gagal dicatat", purchase.Supplier))
	}

	return warnings, nil
}

// uncompletePurchase leaves the completed state. The stock reversal runs
// first; only after it succeeds is the status written, and a failed status
// write re-applies the stock so the row and the warehouse stay in step.
func (w *PurchaseWorkflow) uncompletePurchase(ctx context.Context, userId string, purchase *models.Purchase, newStatus models.PurchaseStatus) error {
	saga := &Saga{
		Name: "uncompletePurchase",
		Steps: []Step{
			{
				Name: "reverseStock",
				Run: func(ctx context.Context) error {
					_, err := w.Sync.ReversePurchase(ctx, purchase)
					return err
				},
				Compensate: func(ctx context.Context) error {
					_, err := w.Sync.ApplyPurchase(ctx, purchase)
					return err
				},
			},
			{
				Name: "writeStatus",
				Run: func(ctx context.Context) error {
					patch := map[string]interface{}{"status": newStatus, "updated_at": touchTimestamp()}
					return w.writeFields(ctx, userId, purchase.ID, patch)
				},
			},
		},
	}

	if err := saga.Execute(ctx); err != nil {
		sagaErr := err.(*SagaError)
		if sagaErr.Step == "reverseStock" {
			return &utils.SyncError{Op: "pengembalian stok gudang", RolledBack: true, Err: sagaErr.Err}
		}
		return &utils.SyncError{Op: "penulisan status", RolledBack: sagaErr.Compensated, Err: sagaErr.Err}
	}

	purchase.Status = newStatus
	return nil
}

// Update applies a partial edit. Status-only updates delegate to SetStatus.
// Content edits on a completed purchase rebuild the warehouse effect: the old
// items are reversed, the row rewritten, the new items applied, each step
// compensated on failure.
func (w *PurchaseWorkflow) Update(ctx context.Context, userId string, id string, input *models.UpdatePurchaseInput) (*models.Purchase, []string, error) {
	if input.Status != nil && !input.HasContentChange() {
		result, err := w.SetStatus(ctx, userId, id, *input.Status)
		if err != nil {
			return nil, nil, err
		}
		return result.Purchase, result.Warnings, nil
	}

	release, err := w.Guard(ctx, id, "purchaseWorkflow.go", "Update")
	if err != nil {
		return nil, nil, err
	}
	defer release()

	old, err := w.Store.Get(ctx, userId, id)
	if err != nil {
		return nil, nil, err
	}

	updated := *old
	if input.Supplier != nil {
		updated.Supplier = *input.Supplier
	}
	if input.Tanggal != nil {
		updated.Tanggal = *input.Tanggal
	}
	if input.Items != nil {
		updated.Items = *input.Items
	}
	if input.TotalNilai != nil {
		updated.TotalNilai = *input.TotalNilai
	}
	if input.MetodePerhitungan != nil {
		updated.MetodePerhitungan = *input.MetodePerhitungan
	}
	if input.Catatan != nil {
		updated.Catatan = *input.Catatan
	}

	var validation models.ValidationResult
	validation.Merge(models.ValidatePurchaseItems(updated.Items))
	validation.Merge(models.ValidateTotalTolerance(updated.TotalNilai, updated.Items.SubtotalSum()))
	if input.Tanggal != nil {
		validation.Merge(models.ValidateTanggal(*input.Tanggal))
	}
	if !validation.IsValid() {
		return nil, validation.Warnings, &utils.ValidationError{Errors: validation.Errors, Warnings: validation.Warnings}
	}
	warnings := validation.Warnings

	patch := models.PurchaseRowForUpdate(input)
	delete(patch, "status")

	if old.Status == models.PurchaseStatusCompleted && input.HasContentChange() {
		if err := w.rebuildCompletedPurchase(ctx, userId, old, &updated, patch); err != nil {
			return nil, warnings, err
		}
	} else {
		if err := w.writeFields(ctx, userId, id, patch); err != nil {
			return nil, warnings, err
		}
	}

	w.Events.PublishChange(ctx, userId, ChangeEvent{EventType: ChangeEventUpdate, New: &updated, Old: old})
	w.invalidateStats(userId)

	if input.Status != nil && *input.Status != old.Status {
		result, err := w.setStatusLocked(ctx, userId, &updated, *input.Status)
		if err != nil {
			return &updated, warnings, err
		}
		warnings = append(warnings, result.Warnings...)
		return result.Purchase, warnings, nil
	}

	return &updated, warnings, nil
}

// rebuildCompletedPurchase swaps the warehouse effect of a completed purchase
// from its old item list to the new one.
func (w *PurchaseWorkflow) rebuildCompletedPurchase(ctx context.Context, userId string, old *models.Purchase, updated *models.Purchase, patch map[string]interface{}) error {
	saga := &Saga{
		Name: "rebuildCompletedPurchase",
		Steps: []Step{
			{
				Name: "reverseOldStock",
				Run: func(ctx context.Context) error {
					_, err := w.Sync.ReversePurchase(ctx, old)
					return err
				},
				Compensate: func(ctx context.Context) error {
					_, err := w.Sync.ApplyPurchase(ctx, old)
					return err
				},
			},
			{
				Name: "writeRow",
				Run: func(ctx context.Context) error {
					return w.writeFields(ctx, userId, old.ID, patch)
				},
				Compensate: func(ctx context.Context) error {
					revert := models.PurchaseRowForInsert(old, userId)
					delete(revert, "id")
					delete(revert, "user_id")
					delete(revert, "created_at")
					return w.writeFields(ctx, userId, old.ID, revert)
				},
			},
			{
				Name: "applyNewStock",
				Run: func(ctx context.Context) error {
					_, err := w.Sync.ApplyPurchase(ctx, updated)
					return err
				},
			},
		},
	}

	if err := saga.Execute(ctx); err != nil {
		sagaErr := err.(*SagaError)
		return &utils.SyncError{Op: "pembaruan pembelian selesai", RolledBack: sagaErr.Compensated, Err: sagaErr.Err}
	}
	return nil
}

// Delete removes a purchase. Completed purchases first give their stock back
// and then shed their ledger entries, so no orphaned expense rows survive.
func (w *PurchaseWorkflow) Delete(ctx context.Context, userId string, id string) error {
	release, err := w.Guard(ctx, id, "purchaseWorkflow.go", "Delete")
	if err != nil {
		return err
	}
	defer release()

	purchase, err := w.Store.Get(ctx, userId, id)
	if err != nil {
		return err
	}
	return w.deleteLocked(ctx, userId, purchase)
}

func (w *PurchaseWorkflow) deleteLocked(ctx context.Context, userId string, purchase *models.Purchase) error {
	logger := config.GetLogger()

	if purchase.Status == models.PurchaseStatusCompleted {
		if _, err := w.Sync.ReversePurchase(ctx, purchase); err != nil {
			config.LogError(logger, "purchaseWorkflow.go", "deleteLocked", "ReversePurchase", purchase.ID, err)
			return &utils.SyncError{Op: "pengembalian stok gudang", RolledBack: true, Err: err}
		}
	}

	if _, err := w.Financial.DeleteByRelatedId(ctx, userId, purchase.ID); err != nil {
		config.LogError(logger, "purchaseWorkflow.go", "deleteLocked", "DeleteByRelatedId", purchase.ID, err)
		return err
	}

	if err := w.Store.DeleteRow(ctx, userId, purchase.ID); err != nil {
		return err
	}

	w.Events.PublishChange(ctx, userId, ChangeEvent{EventType: ChangeEventDelete, Old: purchase})
	w.Activity.Record(ctx, userId, "Pembelian dihapus",
		fmt.Sprintf("Pembelian dari %s senilai %s dihapus", purchase.Supplier, purchase.TotalNilai),
		"purchase_deleted")
	w.invalidateStats(userId)
	return nil
}

// BulkDeleteResult carries per-id outcomes of a batch delete.
type BulkDeleteResult struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// BulkDelete deletes each id independently; one failure does not abort the
// rest. When some ids fail a PartialBatchFailure is returned alongside the
// result so the caller can report both sides.
func (w *PurchaseWorkflow) BulkDelete(ctx context.Context, userId string, ids []string) (*BulkDeleteResult, error) {
	result := &BulkDeleteResult{Failed: map[string]string{}}

	for _, id := range ids {
		if err := w.Delete(ctx, userId, id); err != nil {
			result.Failed[id] = err.Error()
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}

	if len(result.Failed) > 0 {
		return result, &utils.PartialBatchFailure{
			Successful: len(result.Deleted),
			Failed:     len(result.Failed),
			Failures:   result.Failed,
		}
	}
	return result, nil
}

func (w *PurchaseWorkflow) invalidateStats(userId string) {
	if w.InvalidateStats != nil {
		w.InvalidateStats(userId)
	}
}
