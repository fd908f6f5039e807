package provider

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
)

const DefaultOllamaURL = "http://localhost:11434"

type Ollama struct {
	baseURL    string
	httpClient *http.Client
}

func NewOllama(baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		// no timeout: the stream coordinator watches for idle streams
		httpClient: &http.Client{},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (c *Ollama) Send(ctx context.Context, msgs []Message, cfg ModelConfig) (Stream, error) {
	body := ollamaChatRequest{
		Model:   cfg.Model,
		Stream:  true,
		Options: map[string]any{"temperature": cfg.Temperature},
	}
	for _, m := range msgs {
		body.Messages = append(body.Messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return &ollamaStream{ctx: ctx, body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

func (c *Ollama) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &Error{Kind: ErrMalformed, Message: "decode ollama model list", Cause: err}
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (c *Ollama) transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &Error{Kind: ErrNetwork, Message: "cannot reach ollama at " + c.baseURL, Cause: err}
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Error string `json:"error"`
	}
	detail := strings.TrimSpace(string(msg))
	if json.Unmarshal(msg, &apiErr) == nil && apiErr.Error != "" {
		detail = apiErr.Error
	}
	return &Error{
		Kind:    ErrRejected,
		Message: fmt.Sprintf("ollama returned %d: %s", resp.StatusCode, detail),
	}
}

type ollamaStream struct {
	ctx    context.Context
	body   io.ReadCloser
	reader *bufio.Reader
	done   bool
}

func (s *ollamaStream) Recv() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}
		line, err := s.reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) == 0 {
			if err != nil {
				return "", s.readError(err)
			}
			continue
		}

		var chunk ollamaChunk
		if jerr := json.Unmarshal(line, &chunk); jerr != nil {
			return "", &Error{Kind: ErrMalformed, Message: "decode ollama chunk", Cause: jerr}
		}
		if chunk.Error != "" {
			return "", &Error{Kind: ErrRejected, Message: "ollama: " + chunk.Error}
		}
		if chunk.Done {
			s.done = true
		}
		if chunk.Message.Content != "" {
			return chunk.Message.Content, nil
		}
		if err != nil && !s.done {
			return "", s.readError(err)
		}
	}
}

// readError maps a read failure. A body that ends before the done marker
// is a truncated stream.
func (s *ollamaStream) readError(err error) error {
	if s.ctx.Err() != nil {
		return s.ctx.Err()
	}
	if errors.Is(err, io.EOF) {
		return &Error{Kind: ErrMalformed, Message: "ollama stream ended without done marker"}
	}
	return &Error{Kind: ErrNetwork, Message: "read ollama stream", Cause: err}
}

func (s *ollamaStream) Close() error {
	return s.body.Close()
}
