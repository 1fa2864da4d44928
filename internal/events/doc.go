// Package events provides types and interfaces for in-process domain events.
//
// Services emit events without knowing which handlers will process them,
// which keeps cache maintenance out of the write path's dependencies.
//
// The primary components are:
// - TaskMutatedEvent: Raised after a task in a project has been changed
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
