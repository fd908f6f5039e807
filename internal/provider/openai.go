package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"sort"
	"strings"

	go_openai "github.com/sashabaranov/go-openai"
)

type OpenAI struct {
	client *go_openai.Client
}

// NewOpenAI builds a client for the OpenAI API or any compatible endpoint.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	config := go_openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{client: go_openai.NewClientWithConfig(config)}
}

// reasoningModel reports models that take neither system messages nor a
// temperature.
func reasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3")
}

func makeRequest(msgs []Message, cfg ModelConfig) go_openai.ChatCompletionRequest {
	reasoning := reasoningModel(cfg.Model)
	req := go_openai.ChatCompletionRequest{
		Model:  cfg.Model,
		Stream: true,
	}
	if !reasoning {
		req.Temperature = cfg.Temperature
		if req.Temperature == 0 {
			// an exact 0 is dropped by omitempty
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}
	for _, m := range msgs {
		if reasoning && m.Role == go_openai.ChatMessageRoleSystem {
			continue
		}
		req.Messages = append(req.Messages, go_openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return req
}

func (c *OpenAI) Send(ctx context.Context, msgs []Message, cfg ModelConfig) (Stream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, makeRequest(msgs, cfg))
	if err != nil {
		return nil, classifyOpenAI(ctx, err)
	}
	return &openAIStream{ctx: ctx, stream: stream}, nil
}

func (c *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, classifyOpenAI(ctx, err)
	}
	var names []string
	for _, m := range list.Models {
		if strings.HasPrefix(m.ID, "gpt") || reasoningModel(m.ID) {
			names = append(names, m.ID)
		}
	}
	sort.Strings(names)
	return names, nil
}

type openAIStream struct {
	ctx    context.Context
	stream *go_openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", classifyOpenAI(s.ctx, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *openAIStream) Close() error {
	s.stream.Close()
	return nil
}

func classifyOpenAI(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: ErrRejected, Message: "openai rejected request", Cause: err}
	}
	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Kind: ErrRejected, Message: "openai request failed", Cause: err}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, go_openai.ErrTooManyEmptyStreamMessages) {
		return &Error{Kind: ErrMalformed, Message: "openai stream", Cause: err}
	}
	return &Error{Kind: ErrNetwork, Message: "openai", Cause: err}
}
