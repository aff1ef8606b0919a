// Package middleware provides HTTP middleware for the SSE and streamable HTTP
// transports: request metrics, security headers, CORS and request size limits.
package middleware
