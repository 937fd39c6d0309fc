package module

import (
	"context"

	"github.com/danmuck/lintx/internal/bus"
	"github.com/danmuck/lintx/internal/messages"
	"github.com/rs/zerolog"
)

// Metadata identifies a module in listings and on the command line.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Env is what a running module gets from the process.
type Env struct {
	Bus    *bus.Registry
	Topics messages.Topics
	Logger zerolog.Logger
}

// Module is one runnable unit. Run parses args with its own flag set and
// blocks until ctx is done or the module fails.
type Module interface {
	Metadata() Metadata
	Run(ctx context.Context, env Env, args []string) error
}

// Func adapts a plain function into a Module.
type Func struct {
	Meta Metadata
	Fn   func(ctx context.Context, env Env, args []string) error
}

func (f Func) Metadata() Metadata { return f.Meta }

func (f Func) Run(ctx context.Context, env Env, args []string) error {
	return f.Fn(ctx, env, args)
}
