package logging

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHost(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{
			name:     "empty host",
			host:     "",
			expected: "<empty>",
		},
		{
			name:     "hostname without IP",
			host:     "https://redmine.example.com",
			expected: "https://redmine.example.com",
		},
		{
			name:     "IP address URL",
			host:     "https://192.168.1.100:3000",
			expected: "https://<redacted-ip>:3000",
		},
		{
			name:     "bare IPv4",
			host:     "10.0.0.1",
			expected: "<redacted-ip>",
		},
		{
			name:     "bracketed IPv6 URL",
			host:     "https://[2001:db8::1]:3000",
			expected: "https://<redacted-ip>:3000",
		},
		{
			name:     "bare IPv6",
			host:     "2001:db8::1",
			expected: "<redacted-ip>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeHost(tt.host))
		})
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{name: "empty token", token: "", expected: "<empty>"},
		{name: "short token", token: "abc", expected: "[token:3 chars]"},
		{name: "redmine key", token: "0123456789abcdef0123456789abcdef01234567", expected: "[token:40 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeToken(tt.token))
		})
	}

	t.Run("no key content leaked", func(t *testing.T) {
		key := "deadbeefcafe" //nolint:gosec // Test value, not a real credential
		assert.NotContains(t, SanitizeToken(key), key[:4])
	})
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "no query", path: "/issues.json", want: "/issues.json"},
		{name: "query removed", path: "/issues.json?key=secret&limit=5", want: "/issues.json"},
		{name: "fragment removed", path: "/wiki/Page#section", want: "/wiki/Page"},
		{name: "empty", path: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePath(tt.path))
		})
	}
}

func TestSlogAttributes(t *testing.T) {
	t.Run("Operation", func(t *testing.T) {
		attr := Operation("filter")
		assert.Equal(t, KeyOperation, attr.Key)
		assert.Equal(t, "filter", attr.Value.String())
	})

	t.Run("Path strips query", func(t *testing.T) {
		attr := Path("/projects.json?key=abc")
		assert.Equal(t, KeyPath, attr.Key)
		assert.Equal(t, "/projects.json", attr.Value.String())
	})

	t.Run("Method is upper-cased", func(t *testing.T) {
		attr := Method("get")
		assert.Equal(t, KeyMethod, attr.Key)
		assert.Equal(t, "GET", attr.Value.String())
	})

	t.Run("Preset", func(t *testing.T) {
		attr := Preset("minimal")
		assert.Equal(t, KeyPreset, attr.Key)
		assert.Equal(t, "minimal", attr.Value.String())
	})

	t.Run("JournalID", func(t *testing.T) {
		attr := JournalID("42")
		assert.Equal(t, KeyJournalID, attr.Key)
		assert.Equal(t, "42", attr.Value.String())
	})

	t.Run("Status", func(t *testing.T) {
		attr := Status(StatusSuccess)
		assert.Equal(t, KeyStatus, attr.Key)
		assert.Equal(t, StatusSuccess, attr.Value.String())
	})

	t.Run("Err with nil", func(t *testing.T) {
		attr := Err(nil)
		assert.Equal(t, KeyError, attr.Key)
		assert.Equal(t, "", attr.Value.String())
	})

	t.Run("Err with error", func(t *testing.T) {
		attr := Err(fmt.Errorf("test error message"))
		assert.Equal(t, "test error message", attr.Value.String())
	})

	t.Run("SanitizedErr redacts IP and key", func(t *testing.T) {
		err := fmt.Errorf("Get \"https://192.168.1.100/issues.json?key=secret\": connection refused")
		attr := SanitizedErr(err)
		assert.Equal(t, KeyError, attr.Key)
		assert.NotContains(t, attr.Value.String(), "192.168.1.100")
		assert.NotContains(t, attr.Value.String(), "secret")
		assert.Contains(t, attr.Value.String(), "connection refused")
	})

	t.Run("SanitizedErr with nil", func(t *testing.T) {
		assert.Equal(t, "", SanitizedErr(nil).Value.String())
	})

	t.Run("Host", func(t *testing.T) {
		attr := Host("https://192.168.1.1:3000")
		assert.Equal(t, KeyHost, attr.Key)
		assert.NotContains(t, attr.Value.String(), "192.168")
	})
}

func TestWithOperationLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithOperation(logger, "journal.filter").Info("test message")

	output := buf.String()
	assert.Contains(t, output, "operation")
	assert.Contains(t, output, "journal.filter")
}

func TestWithToolLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithTool(logger, "redmine_request").Info("test message")

	output := buf.String()
	assert.Contains(t, output, "tool")
	assert.Contains(t, output, "redmine_request")
}
