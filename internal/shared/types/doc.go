// Package types provides shared data structures for the backend.
//
// Service Types:
//   - Service, Tool, Parameter: provider definitions served by GET /services
//   - Result: standard tool result, built with Success and Failure
//
// Request Types:
//   - ExecuteRequest, DiscoverRequest: service tool execution and lookup
//   - SpawnRequest, InputRequest, ResizeRequest: terminal REST bodies
//   - WSMessage: terminal stream frames
//
// Example Usage:
//
//	if path == "" {
//	    return types.Failure("path parameter required")
//	}
//	return types.Success(map[string]interface{}{"path": path})
package types
