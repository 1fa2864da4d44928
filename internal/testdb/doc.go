// Package testdb provides utilities for tests that run against a real
// PostgreSQL database. Tests using it are skipped unless DATABASE_URL is set,
// and each test body runs inside a transaction that is rolled back.
package testdb
