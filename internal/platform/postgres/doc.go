// Package postgres provides the PostgreSQL implementation of store.TaskStore.
// It handles query construction, execution and mapping between rows and
// domain types, and ships the schema as goose migrations embedded in the
// binary.
package postgres
