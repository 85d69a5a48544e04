package models

import (
	"log"

	"bitbucket.org/taxnova/gstbill_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Company{},
		&Party{},
		&Product{},
		&Invoice{}, &InvoiceItem{},
		&Payment{}, &Allocation{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
