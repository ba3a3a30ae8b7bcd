package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const defaultTimeout = 30 * time.Second

// Executor runs tools against a registry. Execute never returns an error:
// unknown tools, bad arguments, handler failures and timeouts all produce a
// structured error payload that is delivered to the model like any result.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	log      *slog.Logger
}

func NewExecutor(registry *Registry, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		registry: registry,
		timeout:  defaultTimeout,
		log:      log.With("component", "tool_executor"),
	}
}

func (e *Executor) SetTimeout(d time.Duration) {
	if d > 0 {
		e.timeout = d
	}
}

func (e *Executor) Execute(ctx context.Context, name, argumentsJSON string) string {
	if name == "" {
		return errorPayload("missing tool name")
	}

	tool, ok := e.registry.Get(name)
	if !ok {
		e.log.Warn("unknown tool requested", "tool", name)
		return errorPayload("unknown tool: " + name)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	result, err := tool.handler(ctx, argumentsJSON)
	if err != nil {
		e.log.Error("tool execution failed", "tool", name, "error", err)
		return errorPayload(err.Error())
	}
	if ctx.Err() != nil {
		e.log.Error("tool execution timed out", "tool", name, "timeout", e.timeout)
		return errorPayload("tool execution timed out")
	}

	e.log.Debug("tool executed", "tool", name, "duration", time.Since(start))
	return result
}

func errorPayload(message string) string {
	data, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return `{"error":"internal error"}`
	}
	return string(data)
}
