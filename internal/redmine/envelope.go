package redmine

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Envelope is the uniform result of every Redmine call.
//
// StatusCode is 0 when no HTTP response was received. Error is empty on
// success and "<Kind>: <message>" otherwise. Filtered is set once the
// response filter has run on the envelope.
type Envelope struct {
	StatusCode int    `json:"status_code" yaml:"status_code"`
	Body       any    `json:"body" yaml:"body"`
	Error      string `json:"error" yaml:"error"`
	Filtered   bool   `json:"mcp_filtered,omitempty" yaml:"mcp_filtered,omitempty"`
}

// OK reports whether the envelope holds a successful response.
func (e Envelope) OK() bool {
	return e.Error == "" && e.StatusCode >= 200 && e.StatusCode < 300
}

// Failure builds an envelope for an error that happened before or instead
// of an HTTP exchange.
func Failure(kind string, err error) Envelope {
	return Envelope{StatusCode: 0, Body: nil, Error: fmt.Sprintf("%s: %v", kind, err)}
}

// YAML renders v the way tool results are returned: two-space indent,
// unicode kept as is and no line wrapping. Struct fields keep their
// declaration order; map keys are sorted.
func YAML(v any) (string, error) {
	if env, ok := v.(Envelope); ok {
		env.Body = printableBody(env.Body)
		v = env
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.String(), nil
}

// printableBody turns raw byte bodies into text. Invalid UTF-8 is base64
// encoded.
func printableBody(body any) any {
	raw, ok := body.([]byte)
	if !ok {
		return body
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	return base64.StdEncoding.EncodeToString(raw)
}
