// Package models contains the GORM persistence models for the POS tables.
// Domain entities in internal/domain/pos carry no ORM tags; each model here
// has a ToDomain method and a ...FromDomain mapper, and the repositories in
// the parent package only ever read and write models.
//
// The schema itself is owned by the SQL files in migrations/. POSModels is
// used by AutoMigrate in tests that run against SQLite.
package models
