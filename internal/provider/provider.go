// Package provider abstracts language-model backends that stream replies
// incrementally.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

type Message struct {
	Role    string
	Content string
}

type ModelConfig struct {
	Provider    string
	Model       string
	Temperature float32
}

func (c ModelConfig) String() string {
	return c.Provider + "/" + c.Model
}

// Stream yields reply chunks in order. Recv returns io.EOF once the reply
// is complete. Close releases the underlying connection.
type Stream interface {
	Recv() (string, error)
	Close() error
}

type Client interface {
	Send(ctx context.Context, msgs []Message, cfg ModelConfig) (Stream, error)
}

// Lister is implemented by clients that can discover available models.
type Lister interface {
	ListModels(ctx context.Context) ([]string, error)
}

type ErrorKind int

const (
	ErrNetwork ErrorKind = iota
	ErrRejected
	ErrMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrRejected:
		return "provider rejected request"
	case ErrMalformed:
		return "malformed stream"
	}
	return "network error"
}

type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf classifies err; errors that are not *Error count as network errors.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrNetwork
}

// Router dispatches to a client by provider name.
type Router struct {
	clients map[string]Client
}

func NewRouter() *Router {
	return &Router{clients: make(map[string]Client)}
}

func (r *Router) Register(name string, c Client) {
	r.clients[name] = c
}

func (r *Router) Providers() []string {
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Router) Send(ctx context.Context, msgs []Message, cfg ModelConfig) (Stream, error) {
	c, ok := r.clients[cfg.Provider]
	if !ok {
		return nil, &Error{Kind: ErrRejected, Message: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
	return c.Send(ctx, msgs, cfg)
}

// ListModels queries every registered client that supports discovery.
// Providers that fail are skipped; the first failure is returned alongside
// whatever was found.
func (r *Router) ListModels(ctx context.Context) ([]ModelConfig, error) {
	var out []ModelConfig
	var firstErr error
	for _, name := range r.Providers() {
		l, ok := r.clients[name].(Lister)
		if !ok {
			continue
		}
		models, err := l.ListModels(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("list %s models: %w", name, err)
			}
			continue
		}
		for _, m := range models {
			out = append(out, ModelConfig{Provider: name, Model: m})
		}
	}
	return out, firstErr
}
