package module

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/lintx/internal/bus"
	"github.com/danmuck/lintx/internal/messages"
	"github.com/danmuck/lintx/internal/testutil/testlog"
)

func fakeModule(name string, fn func(ctx context.Context, env Env, args []string) error) Module {
	return Func{Meta: Metadata{Name: name, Description: "fake " + name}, Fn: fn}
}

func testEnv(t *testing.T) Env {
	t.Helper()
	reg := bus.NewRegistry()
	topics, err := messages.Register(reg)
	if err != nil {
		t.Fatalf("register topics: %v", err)
	}
	return Env{Bus: reg, Topics: topics}
}

func TestRegisterResolveAndDuplicate(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	m := fakeModule("adc", nil)
	if err := r.Register(m); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(m); !errors.Is(err, ErrModuleExists) {
		t.Fatalf("expected ErrModuleExists, got %v", err)
	}
	got, err := r.Resolve("adc")
	if err != nil || got.Metadata().Name != "adc" {
		t.Fatalf("resolve failed: err=%v", err)
	}
	if _, err := r.Resolve("missing"); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
	if err := r.Register(nil); !errors.Is(err, ErrModuleNil) {
		t.Fatalf("expected ErrModuleNil, got %v", err)
	}
}

func TestListMetadataSorted(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry().MustRegister(
		fakeModule("stm32_serial", nil),
		fakeModule("adc", nil),
		fakeModule("mock_joystick", nil),
	)
	var names []string
	for _, meta := range r.ListMetadata() {
		names = append(names, meta.Name)
	}
	want := []string{"adc", "mock_joystick", "stm32_serial"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("metadata not sorted: got=%v want=%v", names, want)
	}
}

func TestValidateMetadataFailures(t *testing.T) {
	testlog.Start(t)
	cases := []Metadata{
		{Name: "", Description: "x"},
		{Name: "adc", Description: ""},
		{Name: "ADC", Description: "x"},
		{Name: "_adc", Description: "x"},
		{Name: "adc__raw", Description: "x"},
		{Name: "adc raw", Description: "x"},
	}
	for _, meta := range cases {
		if err := ValidateMetadata(meta); !errors.Is(err, ErrInvalidMetadata) {
			t.Fatalf("expected ErrInvalidMetadata for meta=%+v, got %v", meta, err)
		}
	}
}

func TestParseArgsHelpAndErrors(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	fs := NewFlagSet("mock_joystick", &out)
	hz := fs.Uint("hz", 5, "rate")
	if err := ParseArgs("mock_joystick", fs, []string{"--hz", "20"}); err != nil || *hz != 20 {
		t.Fatalf("parse: err=%v hz=%d", err, *hz)
	}

	fs = NewFlagSet("mock_joystick", &out)
	fs.Uint("hz", 5, "rate")
	if err := ParseArgs("mock_joystick", fs, []string{"--help"}); !errors.Is(err, ErrHelp) {
		t.Fatalf("expected ErrHelp, got %v", err)
	}

	fs = NewFlagSet("mock_joystick", &out)
	err := ParseArgs("mock_joystick", fs, []string{"--nope"})
	if err == nil || errors.Is(err, ErrHelp) {
		t.Fatalf("expected unknown flag error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "mock_joystick: ") {
		t.Fatalf("parse error must name the module: %v", err)
	}
}

func TestSupervisorRunsModulesTogether(t *testing.T) {
	testlog.Start(t)
	env := testEnv(t)

	producer := fakeModule("producer", func(ctx context.Context, env Env, args []string) error {
		env.Topics.Channels.Publish(messages.ChannelFrame{Values: [4]int16{1, 2, 3, 4}})
		<-ctx.Done()
		return ctx.Err()
	})
	var got atomic.Value
	consumer := fakeModule("consumer", func(ctx context.Context, env Env, args []string) error {
		sub := env.Topics.Channels.Subscribe()
		frame, err := sub.ReadContext(ctx)
		if err != nil {
			return err
		}
		got.Store(frame)
		<-ctx.Done()
		return ctx.Err()
	})
	failing := fakeModule("failing", func(ctx context.Context, env Env, args []string) error {
		return errors.New("device missing")
	})

	reg := NewRegistry().MustRegister(producer, consumer, failing)
	sup := NewSupervisor(reg, env)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sup.Run(ctx, []Instance{{Name: "producer"}, {Name: "consumer"}, {Name: "failing", Args: []string{"/dev/null"}}})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for got.Load() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("consumer never received a frame")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	var err error
	select {
	case err = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("supervisor did not stop after cancel")
	}
	if err == nil {
		t.Fatalf("expected failing module error")
	}
	if frame := got.Load().(messages.ChannelFrame); frame.Values != [4]int16{1, 2, 3, 4} {
		t.Fatalf("consumer frame=%v", frame.Values)
	}

	states := map[string]string{}
	for _, st := range sup.Statuses() {
		states[st.Name] = st.State
	}
	want := map[string]string{"producer": StateExited, "consumer": StateExited, "failing": StateFailed}
	if !reflect.DeepEqual(states, want) {
		t.Fatalf("states got=%v want=%v", states, want)
	}
}

func TestSupervisorUnknownModule(t *testing.T) {
	testlog.Start(t)
	sup := NewSupervisor(NewRegistry(), testEnv(t))
	if err := sup.Run(context.Background(), []Instance{{Name: "ghost"}}); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestSupervisorRecoversPanic(t *testing.T) {
	testlog.Start(t)
	boom := fakeModule("boom", func(ctx context.Context, env Env, args []string) error {
		panic("bad state")
	})
	sup := NewSupervisor(NewRegistry().MustRegister(boom), testEnv(t))
	if err := sup.Run(context.Background(), []Instance{{Name: "boom"}}); err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if st := sup.Statuses()[0]; st.State != StateFailed {
		t.Fatalf("state got=%s", st.State)
	}
}
