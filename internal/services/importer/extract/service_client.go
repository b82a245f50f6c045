package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultServiceTimeout = 60 * time.Second

// ServiceClient extracts PDF text through an external conversion service.
// The service accepts raw document bytes and answers with the extracted
// text as JSON.
type ServiceClient struct {
	baseURL string
	client  *http.Client
}

// NewServiceClient creates a client for the extraction service at baseURL.
func NewServiceClient(baseURL string) *ServiceClient {
	return &ServiceClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultServiceTimeout},
	}
}

type serviceResponse struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
	Error string `json:"error,omitempty"`
}

// ExtractText posts the document to the service and returns its text.
func (c *ServiceClient) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("extraction service is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filename)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return "", fmt.Errorf("read extraction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	var decoded serviceResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode extraction response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("extraction service: %s", decoded.Error)
	}
	return decoded.Text, nil
}

var _ Extractor = (*ServiceClient)(nil)
