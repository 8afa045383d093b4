package models

// All returns every persistence model, in dependency order
func All() []any {
	return []any{
		&AccountModel{},
		&JournalEntryModel{},
		&JournalLineModel{},
		&AccountingPeriodModel{},
		&RecurringEntryModel{},
		&IVAWithholdingModel{},
		&ISLRWithholdingModel{},
		&SalesBookEntryModel{},
		&PurchaseBookEntryModel{},
		&IVADeclarationModel{},
		&CertificateSequenceModel{},
	}
}

// UniqueIndexes mirrors the unique constraints of the SQL migrations. The
// statements are valid for both Postgres and SQLite.
var UniqueIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_account_tenant_code ON accounts (tenant_id, code)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_period_tenant_name ON accounting_periods (tenant_id, name)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_recurring_tenant_name ON recurring_entries (tenant_id, name)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_tenant_source_date ON journal_entries (tenant_id, source_ref, date) WHERE source_ref <> ''`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_iva_withholding_tenant_certificate ON iva_withholdings (tenant_id, certificate_number)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_islr_withholding_tenant_certificate ON islr_withholdings (tenant_id, certificate_number)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sales_book_invoice ON sales_book_entries (invoice_number)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_purchase_book_tenant_supplier_invoice ON purchase_book_entries (tenant_id, counterparty_rif, invoice_number)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_declaration_tenant_period ON iva_declarations (tenant_id, year, month)`,
}
