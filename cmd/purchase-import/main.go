package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/heytrack/purchasing_backend/config"
	"github.com/heytrack/purchasing_backend/models"
	"github.com/heytrack/purchasing_backend/utils"
)

// Imports purchase rows exported from a spreadsheet or an older system. The
// file is a JSON array of raw rows; field aliases and stringly-typed numbers
// are coerced the same way legacy rows are read elsewhere. Rows that fail
// validation are skipped and reported. Completed rows are inserted as-is;
// run warehouse-rebuild afterwards to replay their stock effect.
func main() {
	userID := flag.String("user-id", "", "Required: user id (uuid) the rows belong to")
	file := flag.String("file", "", "Required: path to a JSON array of purchase rows")
	dryRun := flag.Bool("dry-run", false, "Parse and validate only, insert nothing")
	flag.Parse()

	if strings.TrimSpace(*userID) == "" || strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "--user-id and --file are required")
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", *file, err)
		os.Exit(1)
	}
	var rows []models.PurchaseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse %s: %v\n", *file, err)
		os.Exit(1)
	}

	if !*dryRun {
		config.ConnectDatabaseWithRetry()
		if config.GetDB() == nil {
			fmt.Fprintln(os.Stderr, "database not initialized")
			os.Exit(1)
		}
	}

	ctx := utils.SetUserIdInContext(context.Background(), *userID)

	imported, skipped := 0, 0
	for i, row := range rows {
		purchase, coerced := models.PurchaseFromRow(row)
		purchase.UserId = *userID
		for _, field := range coerced {
			fmt.Printf("row %d: field %s tidak valid, memakai nilai bawaan\n", i, field)
		}

		validation := models.ValidatePurchaseItems(purchase.Items)
		validation.Merge(models.ValidateTotalTolerance(purchase.TotalNilai, purchase.Items.SubtotalSum()))
		if !validation.IsValid() {
			skipped++
			fmt.Fprintf(os.Stderr, "row %d skipped: %s\n", i, strings.Join(validation.Errors, "; "))
			continue
		}
		for _, warning := range validation.Warnings {
			fmt.Printf("row %d: %s\n", i, warning)
		}

		if *dryRun {
			imported++
			continue
		}
		if err := models.InsertPurchase(ctx, purchase); err != nil {
			skipped++
			fmt.Fprintf(os.Stderr, "row %d insert failed: %v\n", i, err)
			continue
		}
		imported++
	}

	fmt.Printf("imported %d rows (%d skipped)\n", imported, skipped)
	if skipped > 0 {
		os.Exit(1)
	}
}
