package redmine

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Upload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o600))

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/uploads.json", r.URL.Path)
		assert.Equal(t, "report.txt", r.URL.Query().Get("filename"))
		assert.Equal(t, "weekly", r.URL.Query().Get("description"))
		assert.Equal(t, ContentTypeOctetStream, r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "hello", string(body))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"upload":{"id":7,"token":"7.abc"}}`)
	}))

	env := c.Upload(context.Background(), file, "weekly")

	require.Empty(t, env.Error)
	assert.Equal(t, 201, env.StatusCode)
	upload := env.Body.(map[string]any)["upload"].(map[string]any)
	assert.Equal(t, "7.abc", upload["token"])
}

func TestClient_Upload_Errors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	t.Run("relative path", func(t *testing.T) {
		env := c.Upload(context.Background(), "assets/a.png", "")
		assert.Equal(t, 0, env.StatusCode)
		assert.Contains(t, env.Error, "path must be fully qualified")
	})

	t.Run("missing file", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope.txt")
		env := c.Upload(context.Background(), missing, "")
		assert.Equal(t, "File does not exist: "+missing, env.Error)
		assert.Nil(t, env.Body)
	})

	t.Run("directory", func(t *testing.T) {
		env := c.Upload(context.Background(), t.TempDir(), "")
		assert.Contains(t, env.Error, "directory")
	})
}

func downloadServer(t *testing.T, content string) *Client {
	t.Helper()
	return newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/attachments/5.json":
			_, _ = io.WriteString(w, `{"attachment":{"id":5,"filename":"diagram.png"}}`)
		case "/attachments/download/5/diagram.png", "/attachments/download/5/custom.bin":
			_, _ = io.WriteString(w, content)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClient_Download(t *testing.T) {
	t.Run("resolves filename into directory", func(t *testing.T) {
		c := downloadServer(t, "PNGDATA")
		dir := t.TempDir()

		env := c.Download(context.Background(), 5, dir, "")

		require.Empty(t, env.Error)
		assert.Equal(t, 200, env.StatusCode)
		want := filepath.Join(dir, "diagram.png")
		assert.Equal(t, map[string]any{"saved_to": want, "filename": "diagram.png"}, env.Body)
		data, err := os.ReadFile(want)
		require.NoError(t, err)
		assert.Equal(t, "PNGDATA", string(data))
	})

	t.Run("trailing separator creates directory", func(t *testing.T) {
		c := downloadServer(t, "X")
		target := filepath.Join(t.TempDir(), "new", "sub") + string(filepath.Separator)

		env := c.Download(context.Background(), 5, target, "custom.bin")

		require.Empty(t, env.Error)
		_, err := os.Stat(filepath.Join(strings.TrimSuffix(target, string(filepath.Separator)), "custom.bin"))
		assert.NoError(t, err)
	})

	t.Run("explicit file path", func(t *testing.T) {
		c := downloadServer(t, "Y")
		target := filepath.Join(t.TempDir(), "nested", "out.png")

		env := c.Download(context.Background(), 5, target, "")

		require.Empty(t, env.Error)
		assert.Equal(t, target, env.Body.(map[string]any)["saved_to"])
		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, "Y", string(data))
	})

	t.Run("missing attachment", func(t *testing.T) {
		c := downloadServer(t, "")
		env := c.Download(context.Background(), 9, t.TempDir(), "")
		assert.Equal(t, 404, env.StatusCode)
		assert.NotEmpty(t, env.Error)
	})

	t.Run("empty content returns response", func(t *testing.T) {
		c := downloadServer(t, "")
		target := filepath.Join(t.TempDir(), "empty.png")
		env := c.Download(context.Background(), 5, target, "diagram.png")
		assert.Equal(t, 200, env.StatusCode)
		assert.Nil(t, env.Body)
		_, err := os.Stat(target)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("relative save path", func(t *testing.T) {
		c := downloadServer(t, "Z")
		env := c.Download(context.Background(), 5, "downloads/x.png", "")
		assert.Contains(t, env.Error, "path must be fully qualified")
	})

	t.Run("filename with separators", func(t *testing.T) {
		c := downloadServer(t, "Z")
		env := c.Download(context.Background(), 5, t.TempDir(), "../escape.png")
		assert.Contains(t, env.Error, "invalid attachment filename")
	})
}
