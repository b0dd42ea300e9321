// Package models contains the GORM persistence models of the quote database.
// They are kept apart from the domain types so the domain stays free of ORM
// tags; each model has mapping functions to and from its domain type.
//
// Tables:
//   - clients, quotes, quote_lines: a quote with its client and ordered lines
//   - quote_numbers: the reservation ledger behind number allocation
//   - signatures: client acceptance, at most one per quote
//   - service_types: the catalog line items are built from
//
// Postgres schemas are created by the SQL migrations; All feeds AutoMigrate
// for sqlite development databases and tests.
package models
