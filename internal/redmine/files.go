package redmine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Upload sends the file at filePath to uploads.json. The returned body holds
// the upload token used to attach the file to an issue.
func (c *Client) Upload(ctx context.Context, filePath, description string) Envelope {
	path, err := expandHome(filePath)
	if err != nil {
		return Failure(KindFile, err)
	}
	if !filepath.IsAbs(path) {
		return Failure(KindValidation, fmt.Errorf("%w, got: %s", ErrPathNotAbsolute, filePath))
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Envelope{Error: "File does not exist: " + filePath}
		}
		return Failure(KindFile, err)
	}
	if info.IsDir() {
		return Failure(KindValidation, fmt.Errorf("path is a directory: %s", filePath))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Failure(KindFile, err)
	}

	params := map[string]any{"filename": filepath.Base(path)}
	if description != "" {
		params["description"] = description
	}

	return c.Do(ctx, Request{
		Path:        "uploads.json",
		Method:      http.MethodPost,
		Params:      params,
		ContentType: ContentTypeOctetStream,
		Content:     content,
	})
}

// Download fetches attachment attachmentID and writes it below savePath.
//
// When filename is empty it is looked up from attachments/<id>.json. If
// savePath is an existing directory or ends with a path separator the file is
// written inside it under filename; otherwise savePath is the file itself.
func (c *Client) Download(ctx context.Context, attachmentID int64, savePath, filename string) Envelope {
	path, err := expandHome(savePath)
	if err != nil {
		return Failure(KindFile, err)
	}
	if !filepath.IsAbs(path) {
		return Failure(KindValidation, fmt.Errorf("%w, got: %s", ErrPathNotAbsolute, savePath))
	}

	if filename == "" {
		meta := c.Get(ctx, "attachments/"+strconv.FormatInt(attachmentID, 10)+".json")
		if meta.StatusCode != http.StatusOK {
			return meta
		}
		filename, err = attachmentFilename(meta.Body)
		if err != nil {
			return Failure(KindValidation, err)
		}
	}
	if filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return Failure(KindValidation, fmt.Errorf("invalid attachment filename: %q", filename))
	}

	if isDirTarget(path, savePath) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return Failure(KindFile, err)
		}
		path = filepath.Join(path, filename)
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Failure(KindFile, err)
	}

	resp := c.Do(ctx, Request{
		Path:        fmt.Sprintf("attachments/download/%d/%s", attachmentID, url.PathEscape(filename)),
		Method:      http.MethodGet,
		ContentType: ContentTypeOctetStream,
		RawResponse: true,
	})
	content, ok := resp.Body.([]byte)
	if resp.StatusCode != http.StatusOK || !ok || len(content) == 0 {
		return resp
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return Failure(KindFile, err)
	}

	return Envelope{
		StatusCode: http.StatusOK,
		Body: map[string]any{
			"saved_to": path,
			"filename": filename,
		},
	}
}

func attachmentFilename(body any) (string, error) {
	doc, _ := body.(map[string]any)
	attachment, _ := doc["attachment"].(map[string]any)
	name, _ := attachment["filename"].(string)
	if name == "" {
		return "", errors.New("attachment metadata has no filename")
	}
	return name, nil
}

func isDirTarget(path, raw string) bool {
	if strings.HasSuffix(raw, "/") || strings.HasSuffix(raw, `\`) {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
