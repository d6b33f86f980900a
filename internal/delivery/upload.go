package delivery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AnonUploader streams files to a transfer.sh-style endpoint: an anonymous
// PUT of the file body to <endpoint>/<filename>, where a 2xx response body is
// the public link.
type AnonUploader struct {
	endpoint string
	client   *http.Client
}

// NewAnonUploader builds an AnonUploader for endpoint with a hard timeout on
// the whole transfer.
func NewAnonUploader(endpoint string, timeout time.Duration) *AnonUploader {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &AnonUploader{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Upload implements Uploader.
func (u *AnonUploader) Upload(ctx context.Context, path string, size int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	target := u.endpoint + "/" + url.PathEscape(filepath.Base(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, f)
	if err != nil {
		return "", err
	}
	req.ContentLength = size
	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload %s: status %s", filepath.Base(path), resp.Status)
	}
	link := strings.TrimSpace(string(body))
	if link == "" {
		return "", fmt.Errorf("upload %s: empty response body", filepath.Base(path))
	}
	return link, nil
}
