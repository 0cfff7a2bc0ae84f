package anamnesis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/anamnesis/internal/logging"
	"github.com/aretw0/anamnesis/pkg/adapters/file"
	loamAdapter "github.com/aretw0/anamnesis/pkg/adapters/loam"
	"github.com/aretw0/anamnesis/pkg/adapters/memory"
	"github.com/aretw0/anamnesis/pkg/consultation"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/graph"
	"github.com/aretw0/anamnesis/pkg/ports"
	"github.com/aretw0/anamnesis/pkg/session"
)

// Engine is the high-level entry point for the Anamnesis library.
// It embeds a consultation.Service wired to a validated graph and a session store.
type Engine struct {
	*consultation.Service

	Name string

	loader      ports.GraphLoader
	store       ports.SessionStore
	managerOpts []session.Option
	serviceOpts []consultation.Option
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom GraphLoader, bypassing path detection.
func WithLoader(l ports.GraphLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithStore sets the session store (default: in-memory).
func WithStore(s ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker enables distributed per-session locking.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.managerOpts = append(e.managerOpts, session.WithLocker(l))
	}
}

// WithLockTimeout bounds how long an operation waits for a session lock.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.managerOpts = append(e.managerOpts, session.WithLockTimeout(d))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.serviceOpts = append(e.serviceOpts, consultation.WithLifecycleHooks(hooks))
	}
}

// WithDirectory checks patient and doctor ids on start.
func WithDirectory(d ports.Directory) Option {
	return func(e *Engine) {
		e.serviceOpts = append(e.serviceOpts, consultation.WithDirectory(d))
	}
}

// WithBackNavigation toggles the back operation (enabled by default).
func WithBackNavigation(enabled bool) Option {
	return func(e *Engine) {
		e.serviceOpts = append(e.serviceOpts, consultation.WithBackNavigation(enabled))
	}
}

// WithReuseOpen makes Start return an existing active or draft consultation for the same pair.
func WithReuseOpen(enabled bool) Option {
	return func(e *Engine) {
		e.serviceOpts = append(e.serviceOpts, consultation.WithReuseOpen(enabled))
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// LoaderFor picks a graph loader for path: a Loam vault for directories,
// a YAML or JSON document otherwise.
func LoaderFor(path string) (ports.GraphLoader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("graph source: %w", err)
	}
	if info.IsDir() {
		return loamAdapter.Open(path)
	}
	return file.NewGraphLoader(path), nil
}

// LoadGraph reads and validates the graph at path.
func LoadGraph(ctx context.Context, path string) (*graph.Graph, error) {
	loader, err := LoaderFor(path)
	if err != nil {
		return nil, err
	}
	return graph.Load(ctx, loader)
}

// New initializes a new Anamnesis Engine.
// By default, it reads the graph at graphPath and keeps sessions in memory.
// If WithLoader option is provided, graphPath is only used as a label.
func New(graphPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if graphPath == "" {
			return nil, fmt.Errorf("graphPath is required when no custom loader is provided")
		}
		loader, err := LoaderFor(graphPath)
		if err != nil {
			return nil, err
		}
		eng.loader = loader
	}
	if graphPath != "" {
		eng.Name = filepath.Base(graphPath)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("graph", eng.Name)
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	g, err := graph.Load(context.Background(), eng.loader)
	if err != nil {
		return nil, err
	}

	mgr := session.NewManager(eng.store, append([]session.Option{session.WithLogger(eng.logger)}, eng.managerOpts...)...)
	eng.Service = consultation.New(g, mgr, append([]consultation.Option{consultation.WithLogger(eng.logger)}, eng.serviceOpts...)...)
	return eng, nil
}

// Loader returns the underlying GraphLoader used by the engine.
func (e *Engine) Loader() ports.GraphLoader {
	return e.loader
}
