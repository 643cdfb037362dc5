package models

// All returns every model for schema migration, parents first
func All() []interface{} {
	return []interface{}{
		&UserAuth{},
		&Property{},
		&Template{},
		&Agreement{},
		&Party{},
		&PartyDocument{},
		&Signature{},
		&AgreementEdit{},
		&Invoice{},
		&InvoiceItem{},
		&Receipt{},
	}
}
