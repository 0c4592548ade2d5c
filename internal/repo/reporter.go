package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/mirador-failchain/internal/models"
)

// ReporterClient publishes normalized failure reports to the downstream reporter.
type ReporterClient struct {
	baseURL     string
	publishPath string
	httpClient  *http.Client
}

// NewReporterClient constructs a client targeting the configured reporter instance.
func NewReporterClient(baseURL, publishPath string, timeout time.Duration) *ReporterClient {
	return &ReporterClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		publishPath: publishPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Publish posts a report to the reporter.
func (c *ReporterClient) Publish(ctx context.Context, report models.Report) error {
	if c == nil {
		return fmt.Errorf("reporter client not initialised")
	}
	if c.baseURL == "" {
		return fmt.Errorf("reporter base URL not configured")
	}
	return c.postJSON(ctx, c.resolvePath(c.publishPath), report)
}

func (c *ReporterClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *ReporterClient) postJSON(ctx context.Context, endpoint string, payload any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("reporter returned %s", resp.Status)
	}
	return nil
}
