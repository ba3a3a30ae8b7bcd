package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/alisoliman/realtime-api/internal/realtime"
	"github.com/invopop/jsonschema"
)

// Tool is one function the model may call during a conversation.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	handler     func(ctx context.Context, argumentsJSON string) (string, error)
}

// New builds a Tool whose parameter schema is reflected from T and whose
// handler receives the decoded arguments.
func New[T any](name, description string, fn func(ctx context.Context, args T) (string, error)) Tool {
	reflector := jsonschema.Reflector{DoNotReference: true}
	var zero T
	schema := reflector.Reflect(&zero)
	schema.Version = ""

	params, err := json.Marshal(schema)
	if err != nil {
		params = json.RawMessage(`{"type":"object"}`)
	}

	return Tool{
		Name:        name,
		Description: description,
		Parameters:  params,
		handler: func(ctx context.Context, argumentsJSON string) (string, error) {
			var args T
			if argumentsJSON != "" {
				if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
					return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
				}
			}
			return fn(ctx, args)
		},
	}
}

// Registry holds the callable tools for a session.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns the declarations sent in the session.update handshake,
// sorted by name for a stable wire order.
func (r *Registry) Definitions() []realtime.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]realtime.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, realtime.ToolDefinition{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
