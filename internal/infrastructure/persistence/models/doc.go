// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain types so the domain layer stays free of
// ORM tags; repositories convert between the two.
//
// Layout:
//   - base.go: columns shared by every aggregate table
//   - accounting.go: journal entries, their lines, entry number sequences and
//     account determination rules
//   - finance.go: payables and receivables (one obligations table) and their payments
package models
