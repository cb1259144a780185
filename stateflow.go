package stateflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/stateflow/internal/runtime"
	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/registry"
)

// Version is the library version, overridable at build time with
// -ldflags "-X github.com/aretw0/stateflow.Version=...".
var Version = "1.0.0"

// Flow is the high-level entry point for the library. It bundles a tool
// registry with an executor so embedders can register handlers, build
// graphs from definitions and run them through one object.
type Flow struct {
	registry *registry.Registry
	engine   *runtime.Engine
	logger   *slog.Logger
}

// Option configures a Flow.
type Option func(*flowConfig)

type flowConfig struct {
	registry   *registry.Registry
	logger     *slog.Logger
	tools      []registry.Tool
	engineOpts []runtime.EngineOption
}

// WithLogger sets the structured logger used by the executor.
func WithLogger(logger *slog.Logger) Option {
	return func(c *flowConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxIterations overrides the executor's iteration cap.
func WithMaxIterations(n int) Option {
	return func(c *flowConfig) {
		c.engineOpts = append(c.engineOpts, runtime.WithMaxIterations(n))
	}
}

// WithHooks registers lifecycle hooks, such as those from the
// observability package. May be given more than once.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *flowConfig) {
		c.engineOpts = append(c.engineOpts, runtime.WithHooks(hooks))
	}
}

// WithRegistry uses an existing tool registry instead of a fresh one.
func WithRegistry(reg *registry.Registry) Option {
	return func(c *flowConfig) {
		if reg != nil {
			c.registry = reg
		}
	}
}

// WithTools registers tools during construction. Registration errors
// surface from New.
func WithTools(tools ...registry.Tool) Option {
	return func(c *flowConfig) {
		c.tools = append(c.tools, tools...)
	}
}

// New builds a Flow.
func New(opts ...Option) (*Flow, error) {
	cfg := flowConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = registry.New()
	}
	for _, t := range cfg.tools {
		if err := cfg.registry.Register(t); err != nil {
			return nil, err
		}
	}

	engineOpts := cfg.engineOpts
	if cfg.logger != nil {
		engineOpts = append([]runtime.EngineOption{runtime.WithLogger(cfg.logger)}, engineOpts...)
	}

	return &Flow{
		registry: cfg.registry,
		engine:   runtime.NewEngine(engineOpts...),
		logger:   cfg.logger,
	}, nil
}

// Registry exposes the flow's tool registry.
func (f *Flow) Registry() *registry.Registry {
	return f.registry
}

// RegisterTool adds a tool after construction.
func (f *Flow) RegisterTool(t registry.Tool) error {
	return f.registry.Register(t)
}

// BuildGraph binds a definition against the registered tools and returns
// a validated, runnable graph.
func (f *Flow) BuildGraph(def definition.GraphDefinition) (*domain.Graph, error) {
	return definition.Build(def, f.registry)
}

// Validate checks that a definition is internally consistent and that all
// of its tool references resolve, without running anything.
func (f *Flow) Validate(def definition.GraphDefinition) error {
	_, err := definition.Build(def, f.registry)
	return err
}

// Run executes a graph from its entry node. See the runtime engine for
// the full semantics: traversal problems end up in the result, not the
// error return.
func (f *Flow) Run(ctx context.Context, g *domain.Graph, initial map[string]any) (*domain.RunResult, error) {
	return f.engine.Run(ctx, g, initial)
}

// RunDefinition builds and executes a definition in one step.
func (f *Flow) RunDefinition(ctx context.Context, def definition.GraphDefinition, initial map[string]any) (*domain.RunResult, error) {
	g, err := f.BuildGraph(def)
	if err != nil {
		return nil, err
	}
	return f.engine.Run(ctx, g, initial)
}

// RunFile loads a YAML or JSON definition from path and executes it.
func (f *Flow) RunFile(ctx context.Context, path string, initial map[string]any) (*domain.RunResult, error) {
	def, err := definition.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("run file: %w", err)
	}
	return f.RunDefinition(ctx, def, initial)
}
