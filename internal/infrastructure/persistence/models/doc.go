// Package models contains the GORM persistence models backing the SQL store.
//
// Domain aggregates carry no ORM tags; each model here owns its table mapping
// and converts to and from its aggregate with ToDomain / FromDomain.
// Nested value collections (product images and reviews, address books, order
// status history) are stored as JSON columns so the SQL and document stores
// share one shape.
package models
