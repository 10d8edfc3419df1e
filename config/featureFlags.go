package config

import (
	"os"
	"strings"
)

// StrictTotalTolerance turns the large-deviation total/subtotal mismatch into a
// hard error at any deviation above the warning tolerance, instead of only
// above the 5% cutoff.
//
// Set via env:
// - STRICT_TOTAL_TOLERANCE=true
func StrictTotalTolerance() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_TOTAL_TOLERANCE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// DisableWarehouseAutoCreate stops the warehouse sync from creating catalog
// entries for purchase items it cannot resolve; unresolved items become
// per-item sync errors instead.
//
// Set via env:
// - DISABLE_WAREHOUSE_AUTO_CREATE=true
func DisableWarehouseAutoCreate() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DISABLE_WAREHOUSE_AUTO_CREATE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
