// Package stores persists search run history.
//
// The SQLite store records each finished run and its calculations so past
// results can be compared across runs. Schema management uses embedded
// golang-migrate migrations. The store is optional; the engine never
// depends on it.
package stores
