// Package store defines the task store contract consumed by the service
// layer, along with the filter types and sentinel errors shared by its
// implementations.
package store
