package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/heytrack/purchasing_backend/models"
	"github.com/heytrack/purchasing_backend/utils"
	"github.com/shopspring/decimal"
)

type fakePurchaseStore struct {
	rows            map[string]*models.Purchase
	updates         int
	deletes         int
	failUpdate      error
	failUpdateTimes int
	failDelete      map[string]error
}

func newFakePurchaseStore(purchases ...*models.Purchase) *fakePurchaseStore {
	store := &fakePurchaseStore{rows: map[string]*models.Purchase{}, failDelete: map[string]error{}}
	for _, p := range purchases {
		store.rows[p.ID] = p
	}
	return store
}

func (s *fakePurchaseStore) Insert(_ context.Context, purchase *models.Purchase) error {
	if purchase.ID == "" {
		purchase.ID = "generated-id"
	}
	s.rows[purchase.ID] = purchase
	return nil
}

func (s *fakePurchaseStore) Get(_ context.Context, userId string, id string) (*models.Purchase, error) {
	p, ok := s.rows[id]
	if !ok || p.UserId != userId {
		return nil, utils.ErrorRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *fakePurchaseStore) UpdateFields(_ context.Context, userId string, id string, patch map[string]interface{}) error {
	if s.failUpdateTimes > 0 {
		s.failUpdateTimes--
		return errors.New("db timeout")
	}
	if s.failUpdate != nil {
		return s.failUpdate
	}
	p, ok := s.rows[id]
	if !ok || p.UserId != userId {
		return utils.ErrorRecordNotFound
	}
	s.updates++
	if status, ok := patch["status"].(models.PurchaseStatus); ok {
		p.Status = status
	}
	return nil
}

func (s *fakePurchaseStore) DeleteRow(_ context.Context, userId string, id string) error {
	if err := s.failDelete[id]; err != nil {
		return err
	}
	p, ok := s.rows[id]
	if !ok || p.UserId != userId {
		return utils.ErrorRecordNotFound
	}
	s.deletes++
	delete(s.rows, id)
	return nil
}

type fakeSyncer struct {
	applyErr     error
	reverseErr   error
	applyCalls   int
	reverseCalls int
}

func (s *fakeSyncer) ApplyPurchase(_ context.Context, _ *models.Purchase) (*SyncReport, error) {
	s.applyCalls++
	if s.applyErr != nil {
		return &SyncReport{}, s.applyErr
	}
	return &SyncReport{}, nil
}

func (s *fakeSyncer) ReversePurchase(_ context.Context, _ *models.Purchase) (*SyncReport, error) {
	s.reverseCalls++
	if s.reverseErr != nil {
		return &SyncReport{}, s.reverseErr
	}
	return &SyncReport{}, nil
}

type fakeFinancial struct {
	recordOk  bool
	records   int
	deletedBy map[string]int
}

func (f *fakeFinancial) RecordExpense(_ context.Context, _ string, _ *models.Purchase, _ string) bool {
	f.records++
	return f.recordOk
}

func (f *fakeFinancial) DeleteByRelatedId(_ context.Context, _ string, relatedId string) (int64, error) {
	if f.deletedBy == nil {
		f.deletedBy = map[string]int{}
	}
	f.deletedBy[relatedId]++
	return 1, nil
}

type fakeNotifier struct{ messages []string }

func (f *fakeNotifier) Notify(_ context.Context, _ string, _ models.NotificationType, title string, _ string) {
	f.messages = append(f.messages, title)
}

type fakeActivity struct{ entries int }

func (f *fakeActivity) Record(_ context.Context, _ string, _ string, _ string, _ string) {
	f.entries++
}

type fakeSuppliers struct{}

func (fakeSuppliers) DisplayName(_ context.Context, _ string, supplier string) string {
	return supplier
}

type fakeEvents struct {
	changes       []ChangeEvent
	statusChanges []StatusChangedEvent
}

func (f *fakeEvents) PublishChange(_ context.Context, _ string, event ChangeEvent) {
	f.changes = append(f.changes, event)
}

func (f *fakeEvents) PublishStatusChanged(_ context.Context, _ string, event StatusChangedEvent) {
	f.statusChanges = append(f.statusChanges, event)
}

func noopGuard(_ context.Context, _ string, _ string, _ string) (func(), error) {
	return func() {}, nil
}

type workflowFixture struct {
	w         *PurchaseWorkflow
	store     *fakePurchaseStore
	sync      *fakeSyncer
	financial *fakeFinancial
	notifier  *fakeNotifier
	events    *fakeEvents
}

func newWorkflowFixture(purchases ...*models.Purchase) *workflowFixture {
	fx := &workflowFixture{
		store:     newFakePurchaseStore(purchases...),
		sync:      &fakeSyncer{},
		financial: &fakeFinancial{recordOk: true},
		notifier:  &fakeNotifier{},
		events:    &fakeEvents{},
	}
	fx.w = &PurchaseWorkflow{
		Store:           fx.store,
		Sync:            fx.sync,
		Financial:       fx.financial,
		Notifier:        fx.notifier,
		Activity:        &fakeActivity{},
		Suppliers:       fakeSuppliers{},
		Events:          fx.events,
		Guard:           noopGuard,
		InvalidateStats: func(string) {},
		Retry:           RetryOptions{MaxAttempts: 3, BaseDelay: time.Millisecond},
	}
	return fx
}

func testPurchase(id string, status models.PurchaseStatus) *models.Purchase {
	return &models.Purchase{
		ID:       id,
		UserId:   "u-1",
		Supplier: "Toko Maju",
		Tanggal:  time.Now().Add(-24 * time.Hour),
		Items: models.PurchaseItems{{
			Nama:        "Tepung Terigu",
			Satuan:      "kg",
			Kuantitas:   decimal.NewFromInt(30),
			HargaSatuan: decimal.NewFromInt(10),
			Subtotal:    decimal.NewFromInt(300),
		}},
		TotalNilai:        decimal.NewFromInt(300),
		Status:            status,
		MetodePerhitungan: models.CostingMethodFIFO,
	}
}

func TestSetStatus_SameStatusIsANoOpWithZeroWrites(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusCompleted))

	result, err := fx.w.SetStatus(context.Background(), "u-1", "p-1", models.PurchaseStatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NoOp {
		t.Fatal("expected a no-op result")
	}
	if fx.store.updates != 0 || fx.sync.applyCalls != 0 || fx.sync.reverseCalls != 0 {
		t.Fatalf("expected zero writes, got updates=%d apply=%d reverse=%d", fx.store.updates, fx.sync.applyCalls, fx.sync.reverseCalls)
	}
	if len(fx.events.changes) != 0 {
		t.Fatalf("expected no events, got %d", len(fx.events.changes))
	}
}

func TestSetStatus_CancelledToCompletedIsRejectedWithoutWrites(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusCancelled))

	_, err := fx.w.SetStatus(context.Background(), "u-1", "p-1", models.PurchaseStatusCompleted)

	var validationErr *utils.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if fx.store.updates != 0 || fx.sync.applyCalls != 0 {
		t.Fatalf("expected zero writes, got updates=%d apply=%d", fx.store.updates, fx.sync.applyCalls)
	}
}

func TestSetStatus_CompletionRecordsExpenseAndPublishes(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusPending))

	result, err := fx.w.SetStatus(context.Background(), "u-1", "p-1", models.PurchaseStatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.SyncApplied {
		t.Fatal("expected sync to be applied")
	}
	if fx.sync.applyCalls != 1 {
		t.Fatalf("expected 1 apply, got %d", fx.sync.applyCalls)
	}
	if fx.financial.records != 1 {
		t.Fatalf("expected 1 expense record, got %d", fx.financial.records)
	}
	if fx.store.rows["p-1"].Status != models.PurchaseStatusCompleted {
		t.Fatalf("expected stored status completed, got %s", fx.store.rows["p-1"].Status)
	}
	if len(fx.events.statusChanges) != 1 {
		t.Fatalf("expected 1 status event, got %d", len(fx.events.statusChanges))
	}
}

func TestSetStatus_SyncFailureRollsBackStatus(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusPending))
	fx.sync.applyErr = errors.New("warehouse down")

	_, err := fx.w.SetStatus(context.Background(), "u-1", "p-1", models.PurchaseStatusCompleted)

	var syncErr *utils.SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected SyncError, got %v", err)
	}
	if !syncErr.RolledBack {
		t.Fatal("expected the status write to be rolled back")
	}
	if fx.store.rows["p-1"].Status != models.PurchaseStatusPending {
		t.Fatalf("expected status back to pending, got %s", fx.store.rows["p-1"].Status)
	}
	if fx.financial.records != 0 {
		t.Fatalf("expected no expense record, got %d", fx.financial.records)
	}
	if len(fx.events.statusChanges) != 0 {
		t.Fatalf("expected no status event after rollback, got %d", len(fx.events.statusChanges))
	}
}

func TestSetStatus_ExpenseFailureDowngradesToWarning(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusPending))
	fx.financial.recordOk = false

	result, err := fx.w.SetStatus(context.Background(), "u-1", "p-1", models.PurchaseStatusCompleted)
	if err != nil {
		t.Fatalf("completion must not fail on a ledger hiccup: %v", err)
	}
	if fx.store.rows["p-1"].Status != models.PurchaseStatusCompleted {
		t.Fatalf("expected status completed, got %s", fx.store.rows["p-1"].Status)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a warning about the unrecorded expense")
	}
}

func TestSetStatus_LeavingCompletedReversesBeforeStatusWrite(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusCompleted))

	result, err := fx.w.SetStatus(context.Background(), "u-1", "p-1", models.PurchaseStatusPending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.sync.reverseCalls != 1 {
		t.Fatalf("expected 1 reverse, got %d", fx.sync.reverseCalls)
	}
	if result.Purchase.Status != models.PurchaseStatusPending {
		t.Fatalf("expected pending, got %s", result.Purchase.Status)
	}
}

func TestSetStatus_ReverseFailureLeavesStatusUntouched(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusCompleted))
	fx.sync.reverseErr = errors.New("warehouse down")

	_, err := fx.w.SetStatus(context.Background(), "u-1", "p-1", models.PurchaseStatusCancelled)

	var syncErr *utils.SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected SyncError, got %v", err)
	}
	if fx.store.rows["p-1"].Status != models.PurchaseStatusCompleted {
		t.Fatalf("expected status to stay completed, got %s", fx.store.rows["p-1"].Status)
	}
	if fx.store.updates != 0 {
		t.Fatalf("expected no status write, got %d", fx.store.updates)
	}
}

func TestSetStatus_StatusWriteFailureReappliesStock(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusCompleted))
	fx.store.failUpdate = errors.New("db gone")

	_, err := fx.w.SetStatus(context.Background(), "u-1", "p-1", models.PurchaseStatusPending)

	var syncErr *utils.SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("expected SyncError, got %v", err)
	}
	if !syncErr.RolledBack {
		t.Fatal("expected the stock reversal to be compensated")
	}
	if fx.sync.reverseCalls != 1 || fx.sync.applyCalls != 1 {
		t.Fatalf("expected reverse then compensating apply, got reverse=%d apply=%d", fx.sync.reverseCalls, fx.sync.applyCalls)
	}
}

func TestSetStatus_TransientStatusWriteFailureIsRetried(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusPending))
	fx.store.failUpdateTimes = 1

	result, err := fx.w.SetStatus(context.Background(), "u-1", "p-1", models.PurchaseStatusCompleted)
	if err != nil {
		t.Fatalf("a single timeout must not fail the transition: %v", err)
	}
	if !result.SyncApplied {
		t.Fatal("expected sync to be applied")
	}
	if fx.store.rows["p-1"].Status != models.PurchaseStatusCompleted {
		t.Fatalf("expected stored status completed, got %s", fx.store.rows["p-1"].Status)
	}
	if fx.store.updates != 1 {
		t.Fatalf("expected exactly one successful write, got %d", fx.store.updates)
	}
}

func TestUpdate_FutureTanggalIsRejected(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusPending))
	future := time.Now().Add(72 * time.Hour)
	input := &models.UpdatePurchaseInput{Tanggal: &future}

	_, _, err := fx.w.Update(context.Background(), "u-1", "p-1", input)

	var validationErr *utils.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if fx.store.updates != 0 {
		t.Fatalf("expected no row write, got %d", fx.store.updates)
	}
}

func TestCreate_CompletedRequestGoesThroughTransitionPath(t *testing.T) {
	fx := newWorkflowFixture()
	completed := models.PurchaseStatusCompleted
	input := &models.NewPurchase{
		Supplier: "Toko Maju",
		Tanggal:  time.Now().Add(-time.Hour),
		Items: models.PurchaseItems{{
			Nama:        "Gula Pasir",
			Satuan:      "kg",
			Kuantitas:   decimal.NewFromInt(10),
			HargaSatuan: decimal.NewFromInt(14),
			Subtotal:    decimal.NewFromInt(140),
		}},
		Status: completed,
	}

	purchase, _, err := fx.w.Create(context.Background(), "u-1", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purchase.Status != models.PurchaseStatusCompleted {
		t.Fatalf("expected completed, got %s", purchase.Status)
	}
	if fx.sync.applyCalls != 1 {
		t.Fatalf("expected 1 apply, got %d", fx.sync.applyCalls)
	}
	// Empty total falls back to the item sum.
	if !purchase.TotalNilai.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("expected total 140, got %s", purchase.TotalNilai)
	}
}

func TestCreate_CancelledRequestLandsCancelled(t *testing.T) {
	fx := newWorkflowFixture()
	input := &models.NewPurchase{
		Supplier: "Toko Maju",
		Tanggal:  time.Now().Add(-time.Hour),
		Items: models.PurchaseItems{{
			Nama:        "Gula Pasir",
			Satuan:      "kg",
			Kuantitas:   decimal.NewFromInt(10),
			HargaSatuan: decimal.NewFromInt(14),
			Subtotal:    decimal.NewFromInt(140),
		}},
		Status: models.PurchaseStatusCancelled,
	}

	purchase, _, err := fx.w.Create(context.Background(), "u-1", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purchase.Status != models.PurchaseStatusCancelled {
		t.Fatalf("expected cancelled, got %s", purchase.Status)
	}
	if fx.store.rows[purchase.ID].Status != models.PurchaseStatusCancelled {
		t.Fatalf("expected stored status cancelled, got %s", fx.store.rows[purchase.ID].Status)
	}
	if fx.sync.applyCalls != 0 {
		t.Fatalf("cancelled creation must not touch the warehouse, got %d applies", fx.sync.applyCalls)
	}
	if len(fx.events.statusChanges) != 1 {
		t.Fatalf("expected 1 status event, got %d", len(fx.events.statusChanges))
	}
}

func TestCreate_MissingSupplierIsRejected(t *testing.T) {
	fx := newWorkflowFixture()
	input := &models.NewPurchase{
		Tanggal: time.Now(),
		Items: models.PurchaseItems{{
			Nama:        "Gula Pasir",
			Satuan:      "kg",
			Kuantitas:   decimal.NewFromInt(1),
			HargaSatuan: decimal.NewFromInt(1),
		}},
	}

	_, _, err := fx.w.Create(context.Background(), "u-1", input)

	var validationErr *utils.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(fx.store.rows) != 0 {
		t.Fatal("expected no row to be inserted")
	}
}

func TestDelete_CompletedPurchaseReversesStockAndCleansLedger(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusCompleted))

	if err := fx.w.Delete(context.Background(), "u-1", "p-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.sync.reverseCalls != 1 {
		t.Fatalf("expected 1 reverse, got %d", fx.sync.reverseCalls)
	}
	if fx.financial.deletedBy["p-1"] != 1 {
		t.Fatal("expected ledger cleanup by related id")
	}
	if _, ok := fx.store.rows["p-1"]; ok {
		t.Fatal("expected the row to be gone")
	}
	if len(fx.events.changes) != 1 || fx.events.changes[0].EventType != ChangeEventDelete {
		t.Fatalf("expected one DELETE event, got %+v", fx.events.changes)
	}
}

func TestDelete_CompletedPurchaseRestoresWarehouseNumbers(t *testing.T) {
	// End-to-end through the real sync service: deleting a completed
	// purchase of 30 units against a material holding 80 leaves 50, with no
	// expense rows surviving for the purchase id.
	materials := newFakeMaterialStore()
	material := materials.add(&models.BahanBaku{
		UserId:      "u-1",
		Nama:        "Tepung Terigu",
		Satuan:      "kg",
		Stok:        decimal.NewFromInt(80),
		HargaSatuan: decimal.NewFromInt(10),
	})

	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusCompleted))
	fx.w.Sync = fastSync(materials)

	if err := fx.w.Delete(context.Background(), "u-1", "p-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !material.Stok.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected stock 50, got %s", material.Stok)
	}
	if fx.financial.deletedBy["p-1"] != 1 {
		t.Fatal("expected expense rows for the purchase to be removed")
	}
	if _, err := fx.store.Get(context.Background(), "u-1", "p-1"); err == nil {
		t.Fatal("expected subsequent reads to miss the row")
	}
}

func TestDelete_PendingPurchaseSkipsReversal(t *testing.T) {
	fx := newWorkflowFixture(testPurchase("p-1", models.PurchaseStatusPending))

	if err := fx.w.Delete(context.Background(), "u-1", "p-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.sync.reverseCalls != 0 {
		t.Fatalf("expected no reversal, got %d", fx.sync.reverseCalls)
	}
}

func TestBulkDelete_ReportsPartialFailure(t *testing.T) {
	fx := newWorkflowFixture(
		testPurchase("a", models.PurchaseStatusPending),
		testPurchase("b", models.PurchaseStatusPending),
		testPurchase("c", models.PurchaseStatusPending),
	)
	fx.store.failDelete["b"] = errors.New("db gone")

	result, err := fx.w.BulkDelete(context.Background(), "u-1", []string{"a", "b", "c"})

	var partial *utils.PartialBatchFailure
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialBatchFailure, got %v", err)
	}
	if partial.Successful != 2 || partial.Failed != 1 {
		t.Fatalf("expected 2/1, got %d/%d", partial.Successful, partial.Failed)
	}
	if _, ok := partial.Failures["b"]; !ok {
		t.Fatal("expected b to be named in the failures")
	}
	if partial.Error() != "1 dari 3 gagal dihapus" {
		t.Fatalf("unexpected message: %s", partial.Error())
	}
	if len(result.Deleted) != 2 {
		t.Fatalf("expected 2 deleted, got %d", len(result.Deleted))
	}
}

func TestBulkDelete_AllSucceed(t *testing.T) {
	fx := newWorkflowFixture(
		testPurchase("a", models.PurchaseStatusPending),
		testPurchase("b", models.PurchaseStatusPending),
	)

	result, err := fx.w.BulkDelete(context.Background(), "u-1", []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Deleted) != 2 || len(result.Failed) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
