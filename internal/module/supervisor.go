package module

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/lintx/internal/logging"
	"github.com/danmuck/lintx/internal/observability"
)

// Instance is one module run request.
type Instance struct {
	Name string
	Args []string
}

const (
	StateRunning = "running"
	StateExited  = "exited"
	StateFailed  = "failed"
)

// Status is the last known state of one instance.
type Status struct {
	Name    string    `json:"name"`
	Args    []string  `json:"args"`
	State   string    `json:"state"`
	Error   string    `json:"error,omitempty"`
	Started time.Time `json:"started"`
	Ended   time.Time `json:"ended,omitzero"`
}

// Supervisor runs module instances concurrently against one environment. A
// module that fails is logged and counted; the others keep running.
type Supervisor struct {
	reg *Registry
	env Env

	mu       sync.Mutex
	statuses []Status
}

func NewSupervisor(reg *Registry, env Env) *Supervisor {
	return &Supervisor{reg: reg, env: env}
}

// Run resolves every instance up front, then runs them until ctx is done or
// all of them return. It returns the joined errors of failed modules.
// A module returning ctx.Err() after cancellation is not a failure.
func (s *Supervisor) Run(ctx context.Context, instances []Instance) error {
	mods := make([]Module, len(instances))
	for i, inst := range instances {
		m, err := s.reg.Resolve(inst.Name)
		if err != nil {
			return err
		}
		mods[i] = m
	}

	s.mu.Lock()
	s.statuses = make([]Status, len(instances))
	for i, inst := range instances {
		s.statuses[i] = Status{Name: inst.Name, Args: inst.Args, State: StateRunning, Started: time.Now()}
	}
	s.mu.Unlock()

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)
	for i := range instances {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.runOne(ctx, i, mods[i], instances[i]); err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (s *Supervisor) runOne(ctx context.Context, idx int, m Module, inst Instance) (err error) {
	env := s.env
	env.Logger = logging.Module(inst.Name)
	env.Logger.Info().Strs("args", inst.Args).Msg("module.Supervisor.run start")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module %s panicked: %v", inst.Name, r)
		}
		if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			err = nil
		}
		if errors.Is(err, ErrHelp) {
			err = nil
		}
		s.finish(idx, err)
		observability.RecordModuleExit(inst.Name, err)
		if err != nil {
			env.Logger.Error().Err(err).Msg("module.Supervisor.run failed")
			err = fmt.Errorf("module %s: %w", inst.Name, err)
		} else {
			env.Logger.Info().Msg("module.Supervisor.run exited")
		}
	}()
	return m.Run(ctx, env, inst.Args)
}

func (s *Supervisor) finish(idx int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &s.statuses[idx]
	st.Ended = time.Now()
	st.State = StateExited
	if err != nil {
		st.State = StateFailed
		st.Error = err.Error()
	}
}

// Statuses returns a copy of every instance status in start order.
func (s *Supervisor) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, len(s.statuses))
	copy(out, s.statuses)
	return out
}
