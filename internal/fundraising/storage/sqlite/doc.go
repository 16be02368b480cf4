// Package sqlite provides the SQLite-backed fundraising ledger store.
//
// Writes that must stay consistent with each other (pledge insert plus
// aggregate increment, refund flip plus aggregate reset) run inside a single
// transaction. Times are stored as UTC unix milliseconds.
package sqlite
