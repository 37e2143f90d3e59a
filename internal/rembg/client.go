// Package rembg implements the segmentation.Remover boundary against a
// rembg-style HTTP inference server.
package rembg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/bg-remove/internal/logging"
)

const removePath = "/api/remove"

// Client talks to a rembg server over HTTP multipart. It is safe for
// concurrent use; each request carries its own buffers.
type Client struct {
	baseURL string
	httpCli *http.Client
	logger  *zap.Logger
}

// NewClient builds a remover backed by the server at baseURL. The timeout
// bounds the whole inference call, which dominates request latency.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCli: &http.Client{Timeout: timeout},
		logger:  logger.Named("rembg_client"),
	}
}

// Remove uploads the image and returns the server's response body, which is
// the same image re-encoded as PNG with background pixels made transparent.
func (c *Client) Remove(ctx context.Context, data []byte) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image")
	if err != nil {
		return nil, logging.NewOperationError("rembg.create_form_file", "", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, logging.NewOperationError("rembg.write_form_file", "", err)
	}
	if err := writer.Close(); err != nil {
		return nil, logging.NewOperationError("rembg.close_form", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+removePath, body)
	if err != nil {
		return nil, logging.NewOperationError("rembg.build_request", "", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpCli.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("rembg.remove", "", err)
		c.logger.Error("inference call failed", zap.Error(wrapped), zap.String("url", c.baseURL))
		return nil, wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("inference server returned %d: %s", resp.StatusCode, string(snippet))
		wrapped := logging.NewOperationError("rembg.remove", "", err)
		c.logger.Error("inference call rejected", zap.Error(wrapped), zap.Int("status", resp.StatusCode))
		return nil, wrapped
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, logging.NewOperationError("rembg.read_response", "", err)
	}
	return out, nil
}

// Healthy probes the server root. Used once at startup; a failure is logged
// as a warning rather than aborting the process, since the server may come
// up later.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpCli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("inference server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
