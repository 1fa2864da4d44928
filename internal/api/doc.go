// Package api handles incoming HTTP requests for the task routes: query
// parameter normalization, request validation, and response formatting. It
// translates HTTP concerns into calls on service.TaskService and maps
// service errors back to status codes without leaking internal details.
package api
