// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic. Write-side stores accept a transaction
// through WithTx; ReportStore is read-only and serves dashboards.
package store
