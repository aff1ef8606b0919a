// Package server provides the ServerContext pattern and related infrastructure
// for the Redmine MCP server.
//
// The ServerContext encapsulates every dependency a tool handler needs:
//
//   - the Redmine client (behind the RedmineClient interface so tests can fake it)
//   - the OpenAPI path catalog used by the discovery tools
//   - the response filter with its journal classifier
//   - a leveled Logger backed by log/slog
//   - the optional instrumentation provider
//   - server configuration (name, version, request instructions, read-only mode)
//
// Dependencies are injected with functional options:
//
//	sc, err := server.NewServerContext(ctx,
//		server.WithRedmineClient(client),
//		server.WithPathCatalog(catalog),
//		server.WithLogger(logger),
//		server.WithReadOnly(true),
//	)
//	if err != nil {
//		return err
//	}
//	defer sc.Shutdown()
//
// The package also hosts the HTTP plumbing shared by the SSE and streamable
// HTTP transports: liveness and readiness probes (HealthChecker) and the
// dedicated Prometheus listener (MetricsServer).
package server
