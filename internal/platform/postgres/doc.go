// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx stdlib driver. Reporting queries go through sqlx.
// The embedded goose migrations define the schema every store expects.
package postgres
