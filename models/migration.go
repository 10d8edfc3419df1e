package models

import (
	"github.com/heytrack/purchasing_backend/config"
)

// MigrateTable runs the schema migrations for every table this service owns.
func MigrateTable() error {
	return config.GetDB().AutoMigrate(
		&Purchase{},
		&BahanBaku{},
		&Supplier{},
		&FinancialTransaction{},
		&Notification{},
		&Activity{},
	)
}
