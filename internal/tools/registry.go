// Package tools implements the Tool Registry: name-keyed handler
// registration, JSON Schema parameter validation, and the normalized
// result envelope the Agent Loop renders back to the model.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MaxToolNameLength bounds a tool name's length.
const MaxToolNameLength = 256

// MaxToolParamsSize bounds the raw argument payload size (10MB).
const MaxToolParamsSize = 10 << 20

// SessionCapability is the narrow, non-cyclic view of a session a
// tool handler receives — never the Agent Loop itself, matching the
// capability-interface design note.
type SessionCapability interface {
	SessionID() string
	Channel() string
}

// Handler is the function a Tool executes with. args is the raw,
// schema-validated JSON payload.
type Handler func(ctx context.Context, session SessionCapability, args json.RawMessage) (any, error)

// Tool is one registered entry: a name, description, JSON Schema
// parameter declaration, and its handler.
type Tool struct {
	Name        string
	Description string
	Schema      any
	Handler     Handler
	Timeout     time.Duration
}

// ErrorEnvelope is the {code, message} pair embedded in a failed
// Result.
type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries execution bookkeeping embedded in every Result.
type Meta struct {
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Result is the normalized envelope every Execute call returns,
// regardless of whether the handler succeeded, errored, or panicked.
type Result struct {
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Error   *ErrorEnvelope `json:"error"`
	Meta    Meta           `json:"meta"`
}

// Registry is a name-keyed map of registered Tools. Registration is
// expected only at startup; after boot the map is read-only, though
// the implementation remains safe for concurrent use regardless.
type Registry struct {
	log *slog.Logger

	mu       sync.RWMutex
	tools    map[string]Tool
	compiled map[string]*jsonschema.Schema
}

// NewRegistry constructs an empty Registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:      log,
		tools:    make(map[string]Tool),
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Register inserts t into the registry. A duplicate name overwrites
// the previous registration, logging a warning.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		r.log.Warn("tool registry: overwriting duplicate tool registration", "name", t.Name)
	}
	r.tools[t.Name] = t
	delete(r.compiled, t.Name) // force recompile on next Execute
}

// Unregister removes a tool by name, if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.compiled, name)
}

// Get returns the registered tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// AsToolSchemas returns the name+description+schema triples for every
// registered tool, suitable for inclusion in a provider request's
// tool list.
func (r *Registry) AsToolSchemas() []ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolSchema, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, ToolSchema{Name: t.Name, Description: t.Description, Parameters: t.Schema})
	}
	return out
}

// Subset returns a new Registry exposing only the named tools,
// sharing their handlers and compiled schemas with the receiver.
// Unknown names are silently skipped. Used by the Scheduler to
// constrain an agent cron action to a fixed tool list without
// mutating the process-wide registry.
func (r *Registry) Subset(names []string) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := &Registry{
		log:      r.log,
		tools:    make(map[string]Tool, len(names)),
		compiled: make(map[string]*jsonschema.Schema, len(names)),
	}
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			out.tools[name] = t
			if c, ok := r.compiled[name]; ok {
				out.compiled[name] = c
			}
		}
	}
	return out
}

// ToolSchema mirrors models.ToolSchema without importing pkg/models,
// keeping this package's dependency surface narrow; callers convert
// as needed.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  any
}

// Execute resolves name, validates args against its declared schema,
// and invokes its handler, always returning a normalized Result —
// never a bare Go error for validation/unknown-name/handler failures.
func (r *Registry) Execute(ctx context.Context, session SessionCapability, name string, args json.RawMessage) *Result {
	start := time.Now()

	if len(name) == 0 || len(name) > MaxToolNameLength {
		return errorResult("invalid_name", fmt.Sprintf("tool name length must be 1..%d", MaxToolNameLength), start)
	}
	if len(args) > MaxToolParamsSize {
		return errorResult("params_too_large", fmt.Sprintf("tool params exceed %d bytes", MaxToolParamsSize), start)
	}

	t, ok := r.Get(name)
	if !ok {
		return errorResult("unknown_tool", fmt.Sprintf("no tool registered with name %q", name), start)
	}

	if t.Schema != nil {
		if err := r.validate(name, t.Schema, args); err != nil {
			return errorResult("validation", err.Error(), start)
		}
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if t.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	data, err := r.invoke(callCtx, session, t, args)
	if err != nil {
		return errorResult("tool_failure", err.Error(), start)
	}

	return &Result{
		Success: true,
		Data:    data,
		Meta:    Meta{DurationMs: time.Since(start).Milliseconds(), Timestamp: start},
	}
}

// invoke calls the handler, converting a panic into an error so it
// never escapes the registry boundary.
func (r *Registry) invoke(ctx context.Context, session SessionCapability, t Tool, args json.RawMessage) (data any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %q panicked: %v", t.Name, rec)
		}
	}()
	return t.Handler(ctx, session, args)
}

func (r *Registry) validate(name string, schema any, args json.RawMessage) error {
	r.mu.Lock()
	compiled, ok := r.compiled[name]
	r.mu.Unlock()

	if !ok {
		raw, err := json.Marshal(schema)
		if err != nil {
			return fmt.Errorf("encode schema: %w", err)
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(name+".json", bytesReader(raw)); err != nil {
			return fmt.Errorf("add schema resource: %w", err)
		}
		compiled, err = c.Compile(name + ".json")
		if err != nil {
			return fmt.Errorf("compile schema: %w", err)
		}
		r.mu.Lock()
		r.compiled[name] = compiled
		r.mu.Unlock()
	}

	var doc any
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, &doc); err != nil {
		return fmt.Errorf("args is not valid json: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("args failed schema validation: %w", err)
	}
	return nil
}

func errorResult(code, message string, start time.Time) *Result {
	return &Result{
		Success: false,
		Error:   &ErrorEnvelope{Code: code, Message: message},
		Meta:    Meta{DurationMs: time.Since(start).Milliseconds(), Timestamp: start},
	}
}
