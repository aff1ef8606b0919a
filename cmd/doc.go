// Package cmd provides the command-line interface for mcp-redmine.
//
// This package implements a Cobra-based CLI with multiple subcommands:
//   - serve: Starts the MCP server (default behavior when no subcommand is provided)
//   - version: Displays the application version
//   - self-update: Updates the binary to the latest version from GitHub releases
//
// Command Structure:
//
//	mcp-redmine [flags]                 # Starts the MCP server (default)
//	mcp-redmine serve [flags]           # Explicitly starts the MCP server
//	mcp-redmine version                 # Shows version information
//	mcp-redmine self-update             # Updates to latest release
//
// The serve command supports multiple transport options:
//   - stdio: Standard input/output (default) - for command-line integration
//   - sse: Server-Sent Events over HTTP - for web-based clients
//   - streamable-http: Streamable HTTP transport - for HTTP-based integration
//
// Transport Configuration Examples:
//
//	mcp-redmine serve --redmine-url https://redmine.example.com/ --redmine-api-key $KEY
//	mcp-redmine serve --transport sse --http-addr :8080 --sse-endpoint /sse
//	mcp-redmine serve --transport streamable-http --http-addr :9000 --http-endpoint /mcp
//
// Settings are resolved from flags first, then from the environment, then
// from a .env file in the working directory.
package cmd
