package main

import (
	"fmt"
	"os"

	"github.com/heytrack/purchasing_backend/config"
	"github.com/heytrack/purchasing_backend/models"
)

// Runs the schema migrations as a standalone job, for deployments that start
// the API with SKIP_MIGRATIONS=true.
func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	if err := models.MigrateTable(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("migrations applied")
}
