// Package domain defines the core business entities of the task service:
// tasks, their workflow statuses and project memberships, along with the
// validation errors shared across layers. Entities are plain values; mapping
// from storage representations belongs to the store implementations.
package domain
