package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/journey/pkg/registry"
	"github.com/spf13/cast"
)

// EnvPrefix prefixes the environment variables carrying action arguments.
const EnvPrefix = "JOURNEY_ARG_"

const category = "process"

// ErrNotRegistered is returned for tools outside the allow-list.
var ErrNotRegistered = errors.New("process tool not registered")

var argName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Runner executes allow-listed local processes.
// Arguments never reach the command line; they are passed as environment
// variables named EnvPrefix + upper-cased key.
type Runner struct {
	tools   map[string]Tool
	baseDir string
	timeout time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithTools populates the allow-list.
func WithTools(tools []Tool) RunnerOption {
	return func(r *Runner) {
		for _, t := range tools {
			r.Register(t)
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithTimeout bounds every execution. Zero means no limit beyond the context.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{tools: make(map[string]Tool)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(t Tool) {
	r.tools[t.Name] = t
}

// RegisterActions exposes every allowed tool as an action of reg.
func (r *Runner) RegisterActions(reg *registry.Registry) {
	for name, t := range r.tools {
		desc := t.Description
		if desc == "" {
			desc = "Runs " + t.Command
		}
		reg.Register(name, func(ctx context.Context, args map[string]any) (any, error) {
			return r.Execute(ctx, name, args)
		}, registry.WithDescription(desc), registry.WithCategory(category))
	}
}

// Execute runs the tool registered under name. Stdout that holds a JSON
// object or array is decoded; anything else is returned as trimmed text.
// A non-zero exit is an error that includes stderr.
func (r *Runner) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	env, err := argsEnv(args)
	if err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, t.Command, t.Args...)
	cmd.Dir = r.baseDir
	cmd.Env = cmd.Environ()
	for k, v := range t.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env, env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return nil, fmt.Errorf("%s: execution failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	trimmed := strings.TrimSpace(stdout.String())
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded, nil
		}
	}
	return trimmed, nil
}

func argsEnv(args map[string]any) ([]string, error) {
	env := make([]string, 0, len(args))
	for k, v := range args {
		if !argName.MatchString(k) {
			return nil, fmt.Errorf("invalid argument name %q", k)
		}
		var val string
		switch v.(type) {
		case map[string]any, []any:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %w", k, err)
			}
			val = string(raw)
		default:
			s, err := cast.ToStringE(v)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %w", k, err)
			}
			val = s
		}
		env = append(env, EnvPrefix+strings.ToUpper(k)+"="+val)
	}
	return env, nil
}
