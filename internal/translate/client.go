package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fileconv/internal/services"
)

const (
	defaultBaseURL     = "http://localhost:5000"
	defaultHTTPTimeout = 60 * time.Second
	maxErrorBody       = 512
)

// Config captures the LibreTranslate connection settings.
type Config struct {
	URL            string
	APIKey         string
	TimeoutSeconds int
}

// Client talks to a LibreTranslate server.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			URL:            strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.URL == "" {
		c.cfg.URL = defaultBaseURL
	}
	return c
}

// Language is one entry of GET /languages.
type Language struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Targets []string `json:"targets,omitempty"`
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// Translate renders text in the target language, auto-detecting the source.
func (c *Client) Translate(ctx context.Context, text, target string) (string, error) {
	text = strings.TrimSpace(text)
	target = strings.TrimSpace(target)
	if text == "" {
		return "", services.Wrap(services.ErrValidation, "translate", "translate", "Text is required.", nil)
	}
	if target == "" {
		return "", services.Wrap(services.ErrValidation, "translate", "translate", "Target language is required.", nil)
	}

	encoded, err := json.Marshal(translateRequest{Q: text, Source: "auto", Target: target, Format: "text", APIKey: c.cfg.APIKey})
	if err != nil {
		return "", fmt.Errorf("translate: encode body: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "translate", bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	var parsed translateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", services.Wrap(services.ErrToolFailed, "translate", "translate", "translation service returned malformed JSON", err)
	}
	if parsed.Error != "" {
		return "", services.Wrap(services.ErrToolFailed, "translate", "translate", parsed.Error, nil)
	}
	return parsed.TranslatedText, nil
}

// Languages lists the languages the server supports.
func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	body, err := c.do(ctx, http.MethodGet, "languages", nil)
	if err != nil {
		return nil, err
	}
	var langs []Language
	if err := json.Unmarshal(body, &langs); err != nil {
		return nil, services.Wrap(services.ErrToolFailed, "translate", "languages", "translation service returned malformed JSON", err)
	}
	return langs, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload io.Reader) ([]byte, error) {
	endpoint, err := url.JoinPath(c.cfg.URL, path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "translate", path, "invalid translation service url", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("translate: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrToolUnavailable, "translate", path,
			"translation service is unreachable at "+c.cfg.URL+": start LibreTranslate or set LIBRETRANSLATE_URL", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrToolFailed, "translate", path, "read response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrToolFailed, "translate", path, statusMessage(resp.StatusCode, body), nil)
	}
	return body, nil
}

func statusMessage(code int, body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return fmt.Sprintf("translation failed (http %d): %s", code, parsed.Error)
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	if text == "" {
		return fmt.Sprintf("translation failed (http %d)", code)
	}
	return fmt.Sprintf("translation failed (http %d): %s", code, text)
}
