// Package database manages the PostgreSQL connection pool for persisted
// events. Persistence is optional; callers only reach for this package when
// a database block is configured.
package database
