package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docchat/internal/domain"
)

// Client talks to a locally hosted Ollama instance over its native
// /api/generate endpoint. The call is stateless request/response; streamed
// fragments are yielded to the caller in arrival order.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

type Config struct {
	Host    string
	Model   string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Host, "/"),
		model:   cfg.Model,
		http:    &http.Client{Timeout: t},
	}
}

// Ping checks that the Ollama service is reachable. Used at startup so an
// unavailable generation service is a fatal initialization error rather than
// a failure on the first question.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("ollama ping: unexpected status %s", resp.Status)
	}
	return nil
}

// Generate sends the prompt and returns a pull-based answer stream. With
// stream true the response body is NDJSON events decoded one Recv at a time;
// otherwise the single response object is adapted to the same interface.
// Closing the stream early just closes the connection, no other cleanup.
func (c *Client) Generate(ctx context.Context, prompt string, stream bool) (domain.AnswerStream, error) {
	body, _ := json.Marshal(struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
		Stream bool   `json:"stream"`
	}{Model: c.model, Prompt: prompt, Stream: stream})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama generate: http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if stream {
		return &generateStream{body: resp.Body, r: bufio.NewReader(resp.Body)}, nil
	}

	var out generateEvent
	err = json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}
	return &staticStream{s: out.Response}, nil
}

type generateEvent struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// generateStream reads NDJSON events off the response body. The stream ends
// on an event with done true or on EOF.
type generateStream struct {
	body io.ReadCloser
	r    *bufio.Reader
	done bool
}

func (s *generateStream) Recv() (string, bool, error) {
	if s.done {
		return "", true, nil
	}
	for {
		line, err := s.r.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) == 0 {
			if err != nil {
				s.done = true
				if errors.Is(err, io.EOF) {
					return "", true, nil
				}
				return "", true, err
			}
			continue
		}
		var evt generateEvent
		if jsonErr := json.Unmarshal(bytes.TrimSpace(line), &evt); jsonErr != nil {
			s.done = true
			return "", true, fmt.Errorf("decode stream event: %w", jsonErr)
		}
		if evt.Error != "" {
			s.done = true
			return "", true, fmt.Errorf("ollama: %s", evt.Error)
		}
		if evt.Done {
			s.done = true
			return evt.Response, true, nil
		}
		if err != nil {
			s.done = true
			if errors.Is(err, io.EOF) {
				return evt.Response, true, nil
			}
			return evt.Response, true, err
		}
		return evt.Response, false, nil
	}
}

func (s *generateStream) Close() error { return s.body.Close() }

// staticStream yields one complete answer then reports done.
type staticStream struct{ s string }

func (s *staticStream) Recv() (string, bool, error) {
	if s.s == "" {
		return "", true, nil
	}
	v := s.s
	s.s = ""
	return v, false, nil
}

func (s *staticStream) Close() error { return nil }
