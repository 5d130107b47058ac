// Package models holds the GORM models behind the stock ledger tables.
//
// Domain types in package inventory carry no ORM tags; each model here has a
// ToDomain method and a ...FromDomain constructor, and repositories in
// package persistence only ever hand domain values across their boundary.
// Decimal quantities and costs are stored as numeric columns through
// shopspring/decimal. Aggregates carrying a version column are written with
// a compare-and-swap on that column.
package models
