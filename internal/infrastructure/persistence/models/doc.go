// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain types so the domain stays free of ORM
// tags. Each model has FromDomain and ToDomain mappers; repositories only
// ever read and write models.
//
//   - base.go: shared header fields and the UUIDList column type
//   - ledger.go: accounts, transactions and legs
//   - stock.go: lots and stock movements
//   - counterparty.go: counterparties and balance entries
//   - document.go: invoices, returns, lines and fulfillments
//   - receipt.go: receipts and allocations
//   - payroll.go: payroll slips
//   - expense.go: expense categories and expenses
//   - sequence.go: document number counters
package models
