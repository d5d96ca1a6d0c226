// Package service provides the tool registry behind /services.
//
// Every collaborator (terminal, files, cache, media, fonts) registers a
// Provider. Callers execute tools by their dotted ID, e.g. "files.list".
//
// Example Usage:
//
//	registry := service.NewRegistry(service.WithLogger(logger), service.WithMetrics(metrics))
//	registry.Register(filesystem.NewProvider(logger, filesystem.DefaultSizeLimit))
//	result, err := registry.Execute(ctx, "files.list", map[string]interface{}{"path": home})
package service
