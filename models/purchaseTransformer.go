package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The transformer maps between the snake_case wire rows (nullable, sometimes
// stringly-typed numbers from CSV backfills and older clients) and the domain
// structs. Transformation is total: malformed input degrades to safe defaults
// and every substitution is reported in the coerced list so validation can
// downgrade suspicious rows to warnings instead of treating them as clean.

// PurchaseRow is one wire row of the purchases table.
type PurchaseRow map[string]interface{}

// epochSentinel is the date substituted for unparseable tanggal values.
var epochSentinel = time.Unix(0, 0).UTC()

// PurchaseFromRow converts a wire row into a Purchase. It never fails; the
// second return value lists the fields that had to be coerced.
func PurchaseFromRow(row PurchaseRow) (*Purchase, []string) {
	var coerced []string

	purchase := &Purchase{
		ID:       coerceString(row["id"]),
		UserId:   coerceString(row["user_id"]),
		Supplier: coerceString(row["supplier"]),
		Catatan:  coerceString(row["catatan"]),
	}

	tanggal, ok := coerceDate(row["tanggal"])
	if !ok {
		coerced = append(coerced, "tanggal")
	}
	purchase.Tanggal = tanggal

	total, ok := coerceDecimal(row["total_nilai"])
	if !ok {
		coerced = append(coerced, "total_nilai")
	}
	purchase.TotalNilai = total

	status := PurchaseStatus(strings.ToLower(coerceString(row["status"])))
	if !status.IsValid() {
		if status != "" {
			coerced = append(coerced, "status")
		}
		status = PurchaseStatusPending
	}
	purchase.Status = status

	metode := CostingMethod(strings.ToUpper(coerceString(row["metode_perhitungan"])))
	if !metode.IsValid() {
		if metode != "" {
			coerced = append(coerced, "metode_perhitungan")
		}
		metode = CostingMethodFIFO
	}
	purchase.MetodePerhitungan = metode

	items, itemsCoerced := purchaseItemsFromRowValue(row["items"])
	purchase.Items = items
	for _, field := range itemsCoerced {
		coerced = append(coerced, field)
	}

	if createdAt, ok := coerceDate(row["created_at"]); ok {
		purchase.CreatedAt = createdAt
	}
	if updatedAt, ok := coerceDate(row["updated_at"]); ok {
		purchase.UpdatedAt = updatedAt
	}

	return purchase, coerced
}

// PurchaseRowForInsert produces the insert payload, stamping owner and
// timestamps.
func PurchaseRowForInsert(purchase *Purchase, userId string) PurchaseRow {
	now := time.Now().UTC()
	return PurchaseRow{
		"id":                 purchase.ID,
		"user_id":            userId,
		"supplier":           purchase.Supplier,
		"tanggal":            purchase.Tanggal,
		"items":              purchase.Items,
		"total_nilai":        purchase.TotalNilai,
		"status":             purchase.Status,
		"metode_perhitungan": purchase.MetodePerhitungan,
		"catatan":            purchase.Catatan,
		"created_at":         now,
		"updated_at":         now,
	}
}

// PurchaseRowForUpdate includes only the fields present in the partial input
// and always stamps updated_at.
func PurchaseRowForUpdate(input *UpdatePurchaseInput) map[string]interface{} {
	patch := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if input == nil {
		return patch
	}
	if input.Supplier != nil {
		patch["supplier"] = *input.Supplier
	}
	if input.Tanggal != nil {
		patch["tanggal"] = *input.Tanggal
	}
	if input.Items != nil {
		patch["items"] = *input.Items
	}
	if input.TotalNilai != nil {
		patch["total_nilai"] = *input.TotalNilai
	}
	if input.Status != nil {
		patch["status"] = *input.Status
	}
	if input.MetodePerhitungan != nil {
		patch["metode_perhitungan"] = *input.MetodePerhitungan
	}
	if input.Catatan != nil {
		patch["catatan"] = *input.Catatan
	}
	return patch
}

// purchaseItemsFromRowValue accepts the items column as raw JSON, a decoded
// []interface{}, or an already-typed PurchaseItems slice.
func purchaseItemsFromRowValue(value interface{}) (PurchaseItems, []string) {
	var coerced []string

	switch v := value.(type) {
	case nil:
		coerced = append(coerced, "items")
		return PurchaseItems{}, coerced
	case PurchaseItems:
		return v, nil
	case []PurchaseItem:
		return PurchaseItems(v), nil
	case string:
		return purchaseItemsFromJSON([]byte(v))
	case []byte:
		return purchaseItemsFromJSON(v)
	case []interface{}:
		items := make(PurchaseItems, 0, len(v))
		for i, raw := range v {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				coerced = append(coerced, fmt.Sprintf("items[%d]", i))
				continue
			}
			item, itemCoerced := purchaseItemFromMap(entry)
			for _, field := range itemCoerced {
				coerced = append(coerced, fmt.Sprintf("items[%d].%s", i, field))
			}
			items = append(items, item)
		}
		return items, coerced
	default:
		coerced = append(coerced, "items")
		return PurchaseItems{}, coerced
	}
}

func purchaseItemsFromJSON(data []byte) (PurchaseItems, []string) {
	var decoded []interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return PurchaseItems{}, []string{"items"}
	}
	return purchaseItemsFromRowValue(decoded)
}

// purchaseItemFromMap tolerates the historical key aliases: the database
// stores jumlah/harga_per_satuan while newer clients send
// kuantitas/hargaSatuan (or quantity/unitPrice).
func purchaseItemFromMap(entry map[string]interface{}) (PurchaseItem, []string) {
	var coerced []string

	item := PurchaseItem{
		BahanBakuId: firstString(entry, "bahanBakuId", "bahan_baku_id", "id"),
		Nama:        coerceString(entry["nama"]),
		Satuan:      coerceString(entry["satuan"]),
		Keterangan:  coerceString(entry["keterangan"]),
	}

	qty, ok := coerceDecimal(firstValue(entry, "kuantitas", "jumlah", "quantity"))
	if !ok {
		coerced = append(coerced, "kuantitas")
	}
	item.Kuantitas = qty

	subtotal, _ := coerceDecimal(entry["subtotal"])
	item.Subtotal = subtotal

	price, ok := coerceDecimal(firstValue(entry, "hargaSatuan", "harga_per_satuan", "harga_satuan", "unitPrice"))
	if !ok {
		coerced = append(coerced, "hargaSatuan")
	}
	if price.IsZero() && qty.IsPositive() && subtotal.IsPositive() {
		// Historical rows without an explicit unit price carry only a subtotal.
		price = subtotal.Div(qty)
		coerced = append(coerced, "hargaSatuan")
	}
	item.HargaSatuan = price

	if item.Subtotal.IsZero() && qty.IsPositive() && price.IsPositive() {
		item.Subtotal = qty.Mul(price)
		coerced = append(coerced, "subtotal")
	}

	return item, coerced
}

func firstValue(entry map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := entry[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(entry map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := coerceString(entry[key]); s != "" {
			return s
		}
	}
	return ""
}

func coerceString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// coerceDecimal returns (value, true) when the input was a clean number and
// (fallback zero, false) when it had to substitute.
func coerceDecimal(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// coerceDate returns (value, true) for parseable dates and
// (epoch sentinel, false) otherwise. It never panics or errors.
func coerceDate(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return epochSentinel, false
	case time.Time:
		if v.IsZero() {
			return epochSentinel, false
		}
		return v, true
	case *time.Time:
		if v == nil || v.IsZero() {
			return epochSentinel, false
		}
		return *v, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return epochSentinel, false
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t, true
			}
		}
		return epochSentinel, false
	default:
		return epochSentinel, false
	}
}
