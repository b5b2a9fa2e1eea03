// Package models holds the GORM row types behind the ledger tables. Domain types
// never carry GORM tags; each model converts itself with ToDomain and a matching
// From* constructor.
//
// base.go covers the id, timestamp and soft-delete columns. billing.go covers
// buildings, units, memberships, invoices, distributions, transactions and the
// invoice/transaction links.
package models
