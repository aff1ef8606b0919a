// Package testdata provides mock implementations for testing the tool packages.
package testdata

import (
	"context"
	"net/http"
	"sync"

	"github.com/giantswarm/mcp-redmine/internal/redmine"
	"github.com/giantswarm/mcp-redmine/internal/server"
)

// Compile-time interface compliance check.
var _ server.RedmineClient = (*MockRedmineClient)(nil)

// UploadCall records one Upload invocation.
type UploadCall struct {
	FilePath    string
	Description string
}

// DownloadCall records one Download invocation.
type DownloadCall struct {
	AttachmentID int64
	SavePath     string
	Filename     string
}

// MockRedmineClient implements server.RedmineClient for testing.
// Every call is recorded. Unset handlers answer with an empty 200 envelope.
type MockRedmineClient struct {
	URL string

	DoFunc       func(req redmine.Request) redmine.Envelope
	UploadFunc   func(filePath, description string) redmine.Envelope
	DownloadFunc func(attachmentID int64, savePath, filename string) redmine.Envelope

	mu        sync.Mutex
	requests  []redmine.Request
	uploads   []UploadCall
	downloads []DownloadCall
}

// Do implements server.RedmineClient.
func (m *MockRedmineClient) Do(_ context.Context, req redmine.Request) redmine.Envelope {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return redmine.Envelope{StatusCode: http.StatusOK}
}

// Upload implements server.RedmineClient.
func (m *MockRedmineClient) Upload(_ context.Context, filePath, description string) redmine.Envelope {
	m.mu.Lock()
	m.uploads = append(m.uploads, UploadCall{FilePath: filePath, Description: description})
	m.mu.Unlock()

	if m.UploadFunc != nil {
		return m.UploadFunc(filePath, description)
	}
	return redmine.Envelope{StatusCode: http.StatusCreated}
}

// Download implements server.RedmineClient.
func (m *MockRedmineClient) Download(_ context.Context, attachmentID int64, savePath, filename string) redmine.Envelope {
	m.mu.Lock()
	m.downloads = append(m.downloads, DownloadCall{AttachmentID: attachmentID, SavePath: savePath, Filename: filename})
	m.mu.Unlock()

	if m.DownloadFunc != nil {
		return m.DownloadFunc(attachmentID, savePath, filename)
	}
	return redmine.Envelope{StatusCode: http.StatusOK}
}

// BaseURL implements server.RedmineClient.
func (m *MockRedmineClient) BaseURL() string {
	if m.URL == "" {
		return "https://redmine.example.com/"
	}
	return m.URL
}

// Requests returns a copy of the recorded Do calls.
func (m *MockRedmineClient) Requests() []redmine.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]redmine.Request(nil), m.requests...)
}

// Uploads returns a copy of the recorded Upload calls.
func (m *MockRedmineClient) Uploads() []UploadCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UploadCall(nil), m.uploads...)
}

// Downloads returns a copy of the recorded Download calls.
func (m *MockRedmineClient) Downloads() []DownloadCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DownloadCall(nil), m.downloads...)
}
