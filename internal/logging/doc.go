// Package logging provides structured logging utilities for mcp-redmine.
//
// All logging goes through log/slog. This package keeps attribute names
// consistent and sanitizes values that must not reach the logs.
//
// # Usage Patterns
//
//	logger := logging.WithTool(slog.Default(), "redmine_request")
//	logger.Info("request completed",
//	    logging.Method("get"),
//	    logging.Path("/issues.json?key=secret"))
//
// # Security Considerations
//
//   - The Redmine API key is never logged, only its length via SanitizeToken
//   - Request paths lose their query string, which may carry a key parameter
//   - Redmine URLs have IP addresses redacted to prevent topology leakage
package logging
