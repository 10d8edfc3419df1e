package models

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validInput() *NewPurchase {
	return &NewPurchase{
		Supplier: "Toko Maju",
		Tanggal:  time.Now().Add(-time.Hour),
		Items: PurchaseItems{{
			Nama:        "Tepung Terigu",
			Satuan:      "kg",
			Kuantitas:   decimal.NewFromInt(10),
			HargaSatuan: decimal.NewFromInt(15000),
			Subtotal:    decimal.NewFromInt(150000),
		}},
		TotalNilai: decimal.NewFromInt(150000),
	}
}

func TestValidatePurchaseInput_AcceptsCleanInput(t *testing.T) {
	result := ValidatePurchaseInput(validInput())
	if !result.IsValid() {
		t.Fatalf("expected valid, got errors %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}
}

func TestValidatePurchaseInput_RequiresSupplier(t *testing.T) {
	input := validInput()
	input.Supplier = "  "

	result := ValidatePurchaseInput(input)
	if result.IsValid() {
		t.Fatal("expected validation to fail")
	}
	if result.Errors[0] != "Supplier harus dipilih" {
		t.Fatalf("unexpected message: %q", result.Errors[0])
	}
}

func TestValidatePurchaseInput_RequiresAtLeastOneItem(t *testing.T) {
	input := validInput()
	input.Items = PurchaseItems{}

	result := ValidatePurchaseInput(input)
	found := false
	for _, e := range result.Errors {
		if e == "Minimal satu item harus ditambahkan" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected item requirement error, got %v", result.Errors)
	}
}

func TestValidatePurchaseItems_RejectsNonPositiveQuantity(t *testing.T) {
	result := ValidatePurchaseItems(PurchaseItems{{
		Nama:        "Gula",
		Satuan:      "kg",
		Kuantitas:   decimal.Zero,
		HargaSatuan: decimal.NewFromInt(10),
	}})
	if result.IsValid() {
		t.Fatal("expected validation to fail")
	}
	if !strings.Contains(result.Errors[0], "kuantitas harus lebih dari 0") {
		t.Fatalf("unexpected message: %q", result.Errors[0])
	}
}

func TestValidatePurchaseItems_WarnsOnSubtotalMismatch(t *testing.T) {
	result := ValidatePurchaseItems(PurchaseItems{{
		Nama:        "Gula",
		Satuan:      "kg",
		Kuantitas:   decimal.NewFromInt(10),
		HargaSatuan: decimal.NewFromInt(1000),
		Subtotal:    decimal.NewFromInt(12000),
	}})
	if !result.IsValid() {
		t.Fatalf("a subtotal mismatch must not block, got %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a subtotal warning")
	}
}

func TestValidatePurchaseItems_WarnsOnDuplicateItems(t *testing.T) {
	item := PurchaseItem{
		Nama:        "Gula",
		Satuan:      "kg",
		Kuantitas:   decimal.NewFromInt(1),
		HargaSatuan: decimal.NewFromInt(1000),
	}
	result := ValidatePurchaseItems(PurchaseItems{item, item})
	if len(result.Warnings) == 0 {
		t.Fatal("expected a duplicate warning")
	}
}

func TestValidateTotalTolerance_SmallDriftIsAWarning(t *testing.T) {
	// 0.5% off: within the hard bound, outside the free tolerance once the
	// absolute diff exceeds one unit.
	result := ValidateTotalTolerance(decimal.NewFromInt(100500), decimal.NewFromInt(100000))
	if !result.IsValid() {
		t.Fatalf("0.5%% drift must not block, got %v", result.Errors)
	}
}

func TestValidateTotalTolerance_ModerateDriftWarns(t *testing.T) {
	// 3% off: beyond the 1-unit / 1% tolerance, below the 5% cutoff.
	result := ValidateTotalTolerance(decimal.NewFromInt(103000), decimal.NewFromInt(100000))
	if !result.IsValid() {
		t.Fatalf("3%% drift must not block, got %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", result.Warnings)
	}
}

func TestValidateTotalTolerance_LargeDriftIsRejected(t *testing.T) {
	result := ValidateTotalTolerance(decimal.NewFromInt(110000), decimal.NewFromInt(100000))
	if result.IsValid() {
		t.Fatal("expected a deviation beyond 5% to be rejected")
	}
}

func TestValidateTotalTolerance_OneUnitDiffIsFree(t *testing.T) {
	result := ValidateTotalTolerance(decimal.NewFromInt(100001), decimal.NewFromInt(100000))
	if !result.IsValid() || len(result.Warnings) != 0 {
		t.Fatalf("a one-unit rounding diff must pass silently, got %v / %v", result.Errors, result.Warnings)
	}
}

func TestValidateStatusTransition_CancelledToCompletedIsIllegal(t *testing.T) {
	result := ValidateStatusTransition(PurchaseStatusCancelled, PurchaseStatusCompleted)
	if result.IsValid() {
		t.Fatal("expected cancelled -> completed to be rejected")
	}
}

func TestValidateStatusTransition_CancelledToPendingIsAllowed(t *testing.T) {
	result := ValidateStatusTransition(PurchaseStatusCancelled, PurchaseStatusPending)
	if !result.IsValid() {
		t.Fatalf("expected cancelled -> pending to pass, got %v", result.Errors)
	}
}

func TestValidateStatusTransition_LeavingCompletedWarns(t *testing.T) {
	for _, to := range []PurchaseStatus{PurchaseStatusPending, PurchaseStatusCancelled} {
		result := ValidateStatusTransition(PurchaseStatusCompleted, to)
		if !result.IsValid() {
			t.Fatalf("completed -> %s must be allowed, got %v", to, result.Errors)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("completed -> %s should warn about stock, got %v", to, result.Warnings)
		}
	}
}

func TestValidateStatusTransition_UnknownStatusIsRejected(t *testing.T) {
	result := ValidateStatusTransition(PurchaseStatusPending, PurchaseStatus("selesai"))
	if result.IsValid() {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestValidatePurchaseForCompletion_RequiresPositiveTotal(t *testing.T) {
	purchase := &Purchase{
		Supplier: "Toko Maju",
		Tanggal:  time.Now().Add(-time.Hour),
		Items: PurchaseItems{{
			Nama:      "Gula",
			Kuantitas: decimal.NewFromInt(1),
		}},
		TotalNilai: decimal.Zero,
	}
	result := ValidatePurchaseForCompletion(purchase)
	if result.IsValid() {
		t.Fatal("expected zero total to block completion")
	}
}

func TestValidatePurchaseForCompletion_FutureDateIsRejected(t *testing.T) {
	purchase := &Purchase{
		Supplier:   "Toko Maju",
		Tanggal:    time.Now().Add(72 * time.Hour),
		Items:      PurchaseItems{{Nama: "Gula", Kuantitas: decimal.NewFromInt(1)}},
		TotalNilai: decimal.NewFromInt(100),
	}
	result := ValidatePurchaseForCompletion(purchase)
	if result.IsValid() {
		t.Fatal("expected a future date to block completion")
	}
}

func TestValidatePurchaseForCompletion_OldDateOnlyWarns(t *testing.T) {
	purchase := &Purchase{
		Supplier:   "Toko Maju",
		Tanggal:    time.Now().AddDate(-2, 0, 0),
		Items:      PurchaseItems{{Nama: "Gula", Kuantitas: decimal.NewFromInt(1)}},
		TotalNilai: decimal.NewFromInt(100),
	}
	result := ValidatePurchaseForCompletion(purchase)
	if !result.IsValid() {
		t.Fatalf("an old date must not block, got %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected an old-date warning")
	}
}
