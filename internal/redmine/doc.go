// Package redmine is a small client for the Redmine REST API.
//
// Every call returns an Envelope instead of an error: the HTTP status, the
// decoded body and an error string of the form "<Kind>: <message>". Tools
// render envelopes as YAML with the YAML helper.
//
// The client sends the API key in the X-Redmine-API-Key header, limits its
// own request rate and can retry transient failures (connection errors, 429,
// 502, 503 and 504) with exponential backoff.
package redmine
