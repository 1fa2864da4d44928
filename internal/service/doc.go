// Package service contains the application-specific use cases and business
// logic. It orchestrates the task store, the query and counter caches, and
// the mutation events that keep those caches honest.
//
// Key components:
//
// 1. TaskService:
//   - Lists, queries and exports tasks, reading through the query cache when
//     a query has the cacheable shape
//   - Applies task mutations and emits events so cached results for the
//     affected project are dropped before the mutation call returns
//
// 2. CounterAggregator:
//   - Resolves open-task counts for many projects concurrently, isolating
//     per-project failures and writing counts back in the background
//
// 3. ProjectCacheInvalidator:
//   - Event handler that clears a project's cached queries on mutation
//
// The service layer depends on store interfaces and the cache package, never
// on specific infrastructure implementations.
package service
