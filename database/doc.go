// Package database provides the bun connection manager for mysql, postgres
// (lib/pq or pgx) and sqlite, configuration with environment overrides,
// query hooks, driver error classification, table creation with optional
// foreign keys, and SQL seed files.
package database
