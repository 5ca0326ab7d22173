package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fileconv/internal/services"
)

// PollSchedule controls how often an asynchronous cloud job is polled.
type PollSchedule struct {
	Initial  time.Duration
	Factor   float64
	Max      time.Duration
	Deadline time.Duration
}

// DefaultPollSchedule starts at 1.5s, grows 1.4x to 8s and gives up at 180s.
var DefaultPollSchedule = PollSchedule{
	Initial:  1500 * time.Millisecond,
	Factor:   1.4,
	Max:      8 * time.Second,
	Deadline: 180 * time.Second,
}

// Next returns the delay that follows d.
func (p PollSchedule) Next(d time.Duration) time.Duration {
	next := time.Duration(math.Round(float64(d) * p.Factor))
	if next > p.Max {
		return p.Max
	}
	return next
}

// CloudConfig captures the cloud OCR connection settings.
type CloudConfig struct {
	URL            string
	APIKey         string
	TimeoutSeconds int
}

// CloudClient submits images to the cloud OCR service.
type CloudClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	schedule   PollSchedule
}

// CloudOption customizes the client.
type CloudOption func(*CloudClient)

// WithPollSchedule overrides the polling cadence.
func WithPollSchedule(s PollSchedule) CloudOption {
	return func(c *CloudClient) {
		c.schedule = s
	}
}

// WithCloudHTTPClient overrides the default HTTP client.
func WithCloudHTTPClient(client *http.Client) CloudOption {
	return func(c *CloudClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewCloudClient returns nil when no URL is configured.
func NewCloudClient(cfg CloudConfig, opts ...CloudOption) *CloudClient {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil
	}
	timeout := 30 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &CloudClient{
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
		schedule:   DefaultPollSchedule,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

type pollResponse struct {
	Status        string   `json:"status"`
	Lines         []string `json:"lines"`
	NextToken     string   `json:"nextToken"`
	StatusMessage string   `json:"statusMessage"`
}

// Recognize uploads the image and waits for the job to finish.
func (c *CloudClient) Recognize(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "ocr", "cloud", "read image", err)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(imagePath)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var submitted submitResponse
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/v1/documents", bytes.NewReader(data), contentType, &submitted); err != nil {
		return "", err
	}
	if submitted.JobID == "" {
		return "", services.Wrap(services.ErrToolFailed, "ocr", "cloud", "cloud OCR did not return a job id", nil)
	}
	return c.poll(ctx, submitted.JobID)
}

func (c *CloudClient) poll(ctx context.Context, jobID string) (string, error) {
	deadline := time.Now().Add(c.schedule.Deadline)
	delay := c.schedule.Initial
	nextToken := ""
	var lines []string

	for time.Now().Before(deadline) {
		endpoint := c.baseURL + "/v1/documents/" + url.PathEscape(jobID)
		if nextToken != "" {
			endpoint += "?nextToken=" + url.QueryEscape(nextToken)
		}
		var resp pollResponse
		if err := c.call(ctx, http.MethodGet, endpoint, nil, "", &resp); err != nil {
			return "", err
		}

		switch strings.ToUpper(resp.Status) {
		case "FAILED":
			msg := resp.StatusMessage
			if msg == "" {
				msg = "cloud OCR job failed"
			}
			return "", services.Wrap(services.ErrToolFailed, "ocr", "cloud", msg, nil)
		case "SUCCEEDED", "PARTIAL_SUCCESS":
			for _, line := range resp.Lines {
				if trimmed := strings.TrimSpace(line); trimmed != "" {
					lines = append(lines, trimmed)
				}
			}
			if resp.NextToken != "" {
				nextToken = resp.NextToken
				continue
			}
			return strings.Join(lines, "\n"), nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
		delay = c.schedule.Next(delay)
	}

	return "", services.Wrap(services.ErrTimeout, "ocr", "cloud",
		fmt.Sprintf("cloud OCR timed out after %d seconds", int(c.schedule.Deadline.Seconds())), nil)
}

func (c *CloudClient) call(ctx context.Context, method, endpoint string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("cloud ocr: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrToolUnavailable, "ocr", "cloud", "cloud OCR is unreachable at "+c.baseURL, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrToolFailed, "ocr", "cloud", "read response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrToolFailed, "ocr", "cloud",
			fmt.Sprintf("cloud OCR returned http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return services.Wrap(services.ErrToolFailed, "ocr", "cloud", "cloud OCR returned malformed JSON", err)
	}
	return nil
}
