package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/heytrack/purchasing_backend/config"
	"github.com/shopspring/decimal"
)

// ValidationResult separates blocking errors from advisory warnings. A
// purchase with only warnings is saved; the warnings are returned to the
// client alongside the result.
type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) Merge(other ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

var (
	minItemQuantity = decimal.NewFromFloat(0.001)
	maxItemQuantity = decimal.NewFromInt(999999)
	maxUnitPrice    = decimal.NewFromInt(999999999)

	subtotalEpsilon = decimal.NewFromFloat(0.01)

	// Totals beyond this deviation from the item sum are rejected outright.
	maxTotalDeviationPct = decimal.NewFromInt(5)
)

// ValidatePurchaseInput checks a new purchase before insert.
func ValidatePurchaseInput(input *NewPurchase) ValidationResult {
	var result ValidationResult

	if strings.TrimSpace(input.Supplier) == "" {
		result.Errors = append(result.Errors, "Supplier harus dipilih")
	}
	if input.Tanggal.IsZero() {
		result.Errors = append(result.Errors, "Tanggal pembelian harus diisi")
	} else {
		result.Merge(ValidateTanggal(input.Tanggal))
	}

	result.Merge(ValidatePurchaseItems(input.Items))
	result.Merge(ValidateTotalTolerance(input.TotalNilai, input.Items.SubtotalSum()))

	return result
}

// ValidatePurchaseItems checks the item list as a whole plus each item.
func ValidatePurchaseItems(items PurchaseItems) ValidationResult {
	var result ValidationResult

	if len(items) == 0 {
		result.Errors = append(result.Errors, "Minimal satu item harus ditambahkan")
		return result
	}
	if len(items) > 50 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Pembelian berisi %d item, periksa kembali sebelum menyimpan", len(items)))
	}

	seen := map[string]int{}
	for i, item := range items {
		result.Merge(validatePurchaseItem(i, item))

		key := strings.ToLower(strings.TrimSpace(item.Nama)) + "|" + strings.ToLower(strings.TrimSpace(item.Satuan))
		if prev, ok := seen[key]; ok && strings.TrimSpace(item.Nama) != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Item %d dan %d sama-sama %q, pertimbangkan menggabungkannya", prev+1, i+1, item.Nama))
		} else {
			seen[key] = i
		}
	}

	return result
}

func validatePurchaseItem(index int, item PurchaseItem) ValidationResult {
	var result ValidationResult
	label := fmt.Sprintf("Item %d", index+1)
	if name := strings.TrimSpace(item.Nama); name != "" {
		label = fmt.Sprintf("Item %d (%s)", index+1, name)
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: nama bahan harus diisi", label))
	}

	if !item.Kuantitas.IsPositive() {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: kuantitas harus lebih dari 0", label))
	} else {
		if item.Kuantitas.LessThan(minItemQuantity) {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: kuantitas minimal %s", label, minItemQuantity))
		}
		if item.Kuantitas.GreaterThan(maxItemQuantity) {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: kuantitas melebihi batas %s", label, maxItemQuantity))
		}
	}

	if item.HargaSatuan.IsNegative() {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: harga satuan tidak boleh negatif", label))
	}
	if item.HargaSatuan.GreaterThan(maxUnitPrice) {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: harga satuan melebihi batas %s", label, maxUnitPrice))
	}
	if strings.TrimSpace(item.Satuan) == "" {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: satuan kosong", label))
	}

	if item.Kuantitas.IsPositive() && !item.Subtotal.IsZero() {
		expected := item.Kuantitas.Mul(item.HargaSatuan)
		if item.Subtotal.Sub(expected).Abs().GreaterThan(subtotalEpsilon) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: subtotal %s tidak sesuai kuantitas x harga (%s)", label, item.Subtotal, expected))
		}
	}

	return result
}

// ValidateTotalTolerance compares the declared total against the sum of item
// subtotals. Small bookkeeping drift (rounding, manual discounts) is allowed
// with a warning; a deviation above maxTotalDeviationPct is rejected. With
// the strict flag enabled, any drift outside the tolerance band is rejected.
func ValidateTotalTolerance(declared decimal.Decimal, itemSum decimal.Decimal) ValidationResult {
	var result ValidationResult

	if declared.IsNegative() {
		result.Errors = append(result.Errors, "Total nilai tidak boleh negatif")
		return result
	}
	if withinTolerance(declared, itemSum) {
		return result
	}

	deviation := deviationPercent(declared, itemSum)
	message := fmt.Sprintf("Total nilai %s berbeda %s%% dari jumlah item %s", declared, deviation.Round(2), itemSum)

	if deviation.GreaterThan(maxTotalDeviationPct) || config.StrictTotalTolerance() {
		result.Errors = append(result.Errors, message)
	} else {
		result.Warnings = append(result.Warnings, message)
	}
	return result
}

// withinTolerance allows a difference of up to one currency unit or one
// percent of the larger value, whichever is greater.
func withinTolerance(a, b decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	if diff.LessThanOrEqual(decimal.NewFromInt(1)) {
		return true
	}
	larger := decimal.Max(a.Abs(), b.Abs())
	if larger.IsZero() {
		return diff.IsZero()
	}
	return diff.Div(larger).LessThanOrEqual(decimal.NewFromFloat(0.01))
}

func deviationPercent(a, b decimal.Decimal) decimal.Decimal {
	larger := decimal.Max(a.Abs(), b.Abs())
	if larger.IsZero() {
		return decimal.Zero
	}
	return a.Sub(b).Abs().Div(larger).Mul(decimal.NewFromInt(100))
}

// ValidateStatusTransition enforces the purchase lifecycle. Cancelled
// purchases may be reopened to pending but never jump straight to completed;
// their stock history is gone and re-completion must go through review.
func ValidateStatusTransition(from, to PurchaseStatus) ValidationResult {
	var result ValidationResult

	if !to.IsValid() {
		result.Errors = append(result.Errors, fmt.Sprintf("Status %q tidak dikenal", to))
		return result
	}
	if from == to {
		return result
	}

	if from == PurchaseStatusCancelled && to == PurchaseStatusCompleted {
		result.Errors = append(result.Errors, "Pembelian yang dibatalkan tidak dapat langsung diselesaikan")
		return result
	}

	if from == PurchaseStatusCompleted {
		switch to {
		case PurchaseStatusPending:
			result.Warnings = append(result.Warnings, "Mengembalikan pembelian selesai ke menunggu akan mengurangi stok gudang")
		case PurchaseStatusCancelled:
			result.Warnings = append(result.Warnings, "Membatalkan pembelian selesai akan mengurangi stok gudang")
		}
	}

	return result
}

// ValidatePurchaseForCompletion runs the stricter checks required before a
// purchase may affect warehouse stock and the expense ledger.
func ValidatePurchaseForCompletion(purchase *Purchase) ValidationResult {
	var result ValidationResult

	if strings.TrimSpace(purchase.Supplier) == "" {
		result.Errors = append(result.Errors, "Supplier harus dipilih")
	}
	if len(purchase.Items) == 0 {
		result.Errors = append(result.Errors, "Minimal satu item harus ditambahkan")
	}
	if !purchase.TotalNilai.IsPositive() {
		result.Errors = append(result.Errors, "Total nilai harus lebih dari 0")
	}
	result.Merge(ValidateTanggal(purchase.Tanggal))

	return result
}

// ValidateTanggal rejects dates more than a day in the future and warns on
// dates older than a year.
func ValidateTanggal(tanggal time.Time) ValidationResult {
	var result ValidationResult
	now := time.Now()
	if tanggal.After(now.Add(24 * time.Hour)) {
		result.Errors = append(result.Errors, "Tanggal pembelian tidak boleh di masa depan")
	} else if tanggal.Before(now.AddDate(-1, 0, 0)) {
		result.Warnings = append(result.Warnings, "Tanggal pembelian lebih dari satu tahun yang lalu")
	}
	return result
}
