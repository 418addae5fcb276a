package toolregistry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/brainless/nocodo-agentcore/internal/providers"
	"github.com/brainless/nocodo-agentcore/internal/schema"
)

// Registry holds the process's tools for its lifetime. It is effectively
// immutable after startup: Register happens during wiring, Dispatch
// during requests, and the common path (reads) takes only an RLock.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds a tool, replacing any existing tool of the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns each tool's name, description and parameter schema
// rewritten by the Schema Provider for provider, sorted by name for a
// stable presentation order.
func (r *Registry) List(providerName string) ([]Spec, error) {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, r.tools[name])
	}
	r.mu.RUnlock()

	dialect := schema.ForProvider(providerName, nil)
	specs := make([]Spec, 0, len(tools))
	for _, t := range tools {
		params, err := schema.Rewrite(t.Schema(), dialect)
		if err != nil {
			return nil, fmt.Errorf("toolregistry: rewrite schema for %q: %w", t.Name(), err)
		}
		specs = append(specs, Spec{Name: t.Name(), Description: t.Description(), Parameters: params})
	}
	return specs, nil
}

// AsProviderTools adapts List's output into the shape the providers
// package sends on the wire.
func (r *Registry) AsProviderTools(providerName string) ([]providers.Tool, error) {
	specs, err := r.List(providerName)
	if err != nil {
		return nil, err
	}
	out := make([]providers.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, providers.Tool{Name: s.Name, Description: s.Description, Parameters: s.Parameters})
	}
	return out, nil
}

// Dispatch parses rawArgs against the tool registered as name and runs
// it. Unknown tools, decode failures, and handler errors are all
// normalized into the Error variant of Response; Dispatch returns no Go
// error, and a handler error after the context is done becomes a
// Timeout response.
func (r *Registry) Dispatch(ctx context.Context, name string, rawArgs []byte) Response {
	t, ok := r.Get(name)
	if !ok {
		return ErrorResponse(ErrUnknownTool, name, fmt.Sprintf("no tool registered as %q", name))
	}

	resp, err := t.Execute(ctx, rawArgs)
	if err != nil {
		if ctx.Err() != nil {
			return ErrorResponse(ErrTimeout, name, ctx.Err().Error())
		}
		return ErrorResponse(ErrExecutionError, name, err.Error())
	}
	return resp
}

// FormatForModel deterministically renders a Response as the
// model-visible transcript text for the next turn.
func FormatForModel(resp Response) string {
	return resp.Summary
}
