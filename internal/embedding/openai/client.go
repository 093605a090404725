package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Client is an OpenAI-compatible embeddings client. Ollama and LM Studio both
// expose this endpoint, so a locally hosted embedding model works unchanged.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	client     *http.Client
	maxRetries int
}

// Config configures the embeddings client. APIKeyEnv is optional: local
// endpoints usually accept unauthenticated requests.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "all-minilm"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	key := ""
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		client:     &http.Client{Timeout: t},
		maxRetries: 5,
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the vector dimensionality, known after the first call.
func (c *Client) Dimension() int { return c.dimension }

// Warmup embeds a probe string so a missing or unloadable embedding model
// fails initialization instead of the first query.
func (c *Client) Warmup(ctx context.Context) error {
	_, err := c.Embed(ctx, []string{"ping"})
	return err
}

// Embed returns one vector per input text, in input order. The whole batch is
// sent in a single request; the server embeds each text independently, so
// batching never changes the produced vectors.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, _ := json.Marshal(struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}{Input: texts, Model: c.model})

	url := c.baseURL + "/embeddings"
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt - 1)):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					_ = resp.Body.Close()
					time.Sleep(time.Duration(secs) * time.Second)
					lastErr = fmt.Errorf("embeddings failed: %s", resp.Status)
					continue
				}
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("embeddings failed: %s", resp.Status)
			continue
		}
		if resp.StatusCode >= 300 {
			data, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return nil, fmt.Errorf("embeddings failed: %s: %s", resp.Status, string(data))
		}

		var out struct {
			Data []struct {
				Embedding []float64 `json:"embedding"`
			} `json:"data"`
		}
		err = json.NewDecoder(resp.Body).Decode(&out)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("decode embeddings: %w", err)
			continue
		}
		if len(out.Data) != len(texts) {
			return nil, fmt.Errorf("embeddings count mismatch: got %d for %d inputs", len(out.Data), len(texts))
		}
		vectors := make([][]float64, len(out.Data))
		for i, d := range out.Data {
			if len(d.Embedding) == 0 {
				return nil, errors.New("empty embedding returned")
			}
			vectors[i] = d.Embedding
		}
		if c.dimension == 0 {
			c.dimension = len(vectors[0])
		}
		return vectors, nil
	}
	return nil, fmt.Errorf("embeddings request failed after %d retries: %w", c.maxRetries, lastErr)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
