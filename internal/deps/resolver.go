package deps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"fileconv/internal/config"
	"fileconv/internal/logging"
	"fileconv/internal/runner"
	"fileconv/internal/services"
)

// DefaultProbeTimeout bounds a single version probe.
const DefaultProbeTimeout = 5 * time.Second

// Tool is a verified implementation of a capability.
type Tool struct {
	Capability Capability
	Path       string
	Version    string

	exec runner.Executor
}

// Run executes the tool with args.
func (t Tool) Run(ctx context.Context, args []string, opts runner.Options) (runner.Result, error) {
	if t.exec == nil {
		return runner.Result{}, services.Wrap(services.ErrToolUnavailable, "deps", string(t.Capability), "tool has not been resolved", nil)
	}
	return t.exec.Run(ctx, t.Path, args, opts)
}

type resolution struct {
	tool Tool
	err  error
}

// Resolver discovers and memoizes the tool serving each capability. It is
// safe for concurrent use; concurrent first resolutions of the same
// capability share a single probe.
type Resolver struct {
	exec         runner.Executor
	probeTimeout time.Duration
	overrides    map[Capability]string
	lookupEnv    func(string) (string, bool)
	logger       *slog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	memo   map[Capability]resolution
	probes atomic.Int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProbeTimeout overrides the version probe ceiling.
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

// WithOverrides pins capabilities to explicit executables. Environment
// overrides still take precedence.
func WithOverrides(overrides map[Capability]string) Option {
	return func(r *Resolver) {
		for c, command := range overrides {
			if strings.TrimSpace(command) != "" {
				r.overrides[c] = strings.TrimSpace(command)
			}
		}
	}
}

// WithLookupEnv replaces os.LookupEnv (tests).
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.lookupEnv = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logging.NewComponentLogger(logger, "deps")
	}
}

// NewResolver constructs a Resolver that executes tools through exec.
func NewResolver(exec runner.Executor, opts ...Option) *Resolver {
	r := &Resolver{
		exec:         exec,
		probeTimeout: DefaultProbeTimeout,
		overrides:    make(map[Capability]string),
		lookupEnv:    os.LookupEnv,
		logger:       logging.NewNop(),
		memo:         make(map[Capability]resolution),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OverridesFromConfig collects the [tools] entries naming known capabilities.
func OverridesFromConfig(cfg *config.Config) map[Capability]string {
	overrides := make(map[Capability]string)
	for _, c := range Capabilities() {
		if command := cfg.ToolOverride(string(c)); command != "" {
			overrides[c] = command
		}
	}
	return overrides
}

// NewResolverFromConfig wires [tools] overrides and the probe timeout.
func NewResolverFromConfig(cfg *config.Config, exec runner.Executor, logger *slog.Logger) *Resolver {
	return NewResolver(exec,
		WithProbeTimeout(cfg.ProbeTimeout()),
		WithOverrides(OverridesFromConfig(cfg)),
		WithLogger(logger),
	)
}

// Probes reports how many version probes have been executed.
func (r *Resolver) Probes() int64 {
	return r.probes.Load()
}

// Resolve returns the tool serving c. A capability with no installed
// candidate yields services.ErrToolUnavailable; a candidate that is installed
// but fails its probe yields ErrToolFailed or ErrTimeout. Both successful
// and unavailable outcomes are memoized for the life of the resolver.
func (r *Resolver) Resolve(ctx context.Context, c Capability) (Tool, error) {
	if res, ok := r.cached(c); ok {
		return res.tool, res.err
	}
	v, err, _ := r.group.Do(string(c), func() (any, error) {
		if res, ok := r.cached(c); ok {
			return res.tool, res.err
		}
		tool, err := r.discover(context.WithoutCancel(ctx), c)
		if err == nil || errors.Is(err, services.ErrToolUnavailable) {
			r.mu.Lock()
			r.memo[c] = resolution{tool: tool, err: err}
			r.mu.Unlock()
		}
		return tool, err
	})
	tool, _ := v.(Tool)
	return tool, err
}

// Available reports whether c resolves. Broken tools count as unavailable
// here; callers that need the distinction use Resolve.
func (r *Resolver) Available(ctx context.Context, c Capability) bool {
	_, err := r.Resolve(ctx, c)
	return err == nil
}

func (r *Resolver) cached(c Capability) (resolution, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.memo[c]
	return res, ok
}

func (r *Resolver) candidates(spec Spec) []string {
	var out []string
	if value, ok := r.lookupEnv(spec.EnvVar); ok && strings.TrimSpace(value) != "" {
		out = append(out, strings.TrimSpace(value))
	}
	if override := r.overrides[spec.Capability]; override != "" {
		out = append(out, override)
	}
	return append(out, spec.Candidates...)
}

func (r *Resolver) discover(ctx context.Context, c Capability) (Tool, error) {
	spec, ok := Lookup(c)
	if !ok {
		return Tool{}, services.Wrap(services.ErrConfiguration, "deps", "resolve", fmt.Sprintf("unknown capability %q", c), nil)
	}
	logger := r.logger.With(logging.String(logging.FieldCapability, string(c)))

	for _, candidate := range r.candidates(spec) {
		path, err := exec.LookPath(candidate)
		if err != nil {
			logger.Debug("tool candidate not found", logging.String("candidate", candidate))
			continue
		}

		r.probes.Add(1)
		res, err := r.exec.Run(ctx, path, spec.ProbeArgs, runner.Options{Timeout: r.probeTimeout})
		if errors.Is(err, services.ErrToolUnavailable) {
			continue
		}
		if err != nil {
			logging.WarnWithContext(logger, "tool probe failed", "tool_probe_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "reinstall the tool or point "+spec.EnvVar+" at a working binary"),
			)
			return Tool{}, services.Wrap(markerFor(err), "deps", string(c),
				fmt.Sprintf("%s is installed at %s but does not run", candidate, path), err)
		}

		tool := Tool{Capability: c, Path: path, Version: firstLine(res.Stdout, res.Stderr), exec: r.exec}
		logger.Info("tool resolved",
			logging.String(logging.FieldEventType, "tool_resolved"),
			logging.String("path", path),
			logging.String("version", tool.Version),
		)
		return tool, nil
	}

	return Tool{}, services.Wrap(services.ErrToolUnavailable, "deps", string(c),
		fmt.Sprintf("%s is not installed: install %s", c, InstallHint(c)), nil)
}

func markerFor(err error) error {
	if errors.Is(err, services.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return services.ErrTimeout
	}
	return services.ErrToolFailed
}

func firstLine(outputs ...[]byte) string {
	for _, out := range outputs {
		text := strings.TrimSpace(string(bytes.TrimSpace(out)))
		if text == "" {
			continue
		}
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}
	return ""
}
