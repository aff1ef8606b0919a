// Package redmine provides the MCP tools that expose a Redmine instance.
//
// redmine_request is the general entry point to the REST API and accepts an
// optional mcp_filter that shrinks the response before it is rendered. The
// remaining tools browse the OpenAPI path catalog, move attachments, list the
// filter presets and classify issue journals for code review activity.
//
// Every tool answers with YAML text.
package redmine
