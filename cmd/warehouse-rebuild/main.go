package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/heytrack/purchasing_backend/config"
	"github.com/heytrack/purchasing_backend/models"
	"github.com/heytrack/purchasing_backend/utils"
	"github.com/heytrack/purchasing_backend/workflow"
	"github.com/shopspring/decimal"
)

// Rebuilds warehouse stock for one user by replaying their completed
// purchases in date order. Used after a crash between a status write and its
// stock sync, or after manual row surgery.
func main() {
	userID := flag.String("user-id", "", "Required: user id (uuid)")
	reset := flag.Bool("reset", false, "Zero out stock and cost for the user's materials before replaying")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing purchases and continue replaying others")
	flag.Parse()

	if strings.TrimSpace(*userID) == "" {
		fmt.Fprintln(os.Stderr, "--user-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := utils.SetUserIdInContext(context.Background(), *userID)
	ctx = utils.SetSkipUserScopeInContext(ctx)

	if *reset {
		materials, err := models.GetMaterialsForUser(ctx, *userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list materials: %v\n", err)
			os.Exit(1)
		}
		zero := decimal.Zero
		for _, material := range materials {
			if err := models.UpdateMaterialStock(ctx, *userID, material.ID, zero, &zero); err != nil {
				fmt.Fprintf(os.Stderr, "failed to reset material %s: %v\n", material.Nama, err)
				os.Exit(1)
			}
		}
		fmt.Printf("reset %d materials\n", len(materials))
	}

	purchases, err := models.GetPurchases(ctx, *userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list purchases: %v\n", err)
		os.Exit(1)
	}

	// GetPurchases sorts newest first; replay must run oldest first so the
	// weighted average cost folds in receipt order.
	sync := workflow.NewWarehouseSyncService(gormMaterials{})
	replayed, failed := 0, 0
	for i := len(purchases) - 1; i >= 0; i-- {
		purchase := purchases[i]
		if purchase.Status != models.PurchaseStatusCompleted {
			continue
		}
		if _, err := sync.ApplyPurchase(ctx, purchase); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "purchase %s: %v\n", purchase.ID, err)
			if !*continueOnError {
				os.Exit(1)
			}
			continue
		}
		replayed++
	}

	fmt.Printf("replayed %d completed purchases (%d failed)\n", replayed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

type gormMaterials struct{}

func (gormMaterials) FindByIdOrName(ctx context.Context, userId string, id string, nama string, satuan string) (*models.BahanBaku, error) {
	return models.FindMaterialByIdOrName(ctx, userId, id, nama, satuan)
}

func (gormMaterials) Create(ctx context.Context, material *models.BahanBaku) error {
	return models.CreateMaterial(ctx, material)
}

func (gormMaterials) UpdateStock(ctx context.Context, userId string, id string, stok decimal.Decimal, hargaSatuan *decimal.Decimal) error {
	return models.UpdateMaterialStock(ctx, userId, id, stok, hargaSatuan)
}
