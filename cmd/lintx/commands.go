package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/danmuck/lintx/internal/builtin"
	"github.com/danmuck/lintx/internal/bus"
	"github.com/danmuck/lintx/internal/config"
	"github.com/danmuck/lintx/internal/logging"
	"github.com/danmuck/lintx/internal/messages"
	"github.com/danmuck/lintx/internal/module"
	"github.com/danmuck/lintx/internal/observability"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func newEnv() (module.Env, error) {
	reg := bus.NewRegistry()
	topics, err := messages.Register(reg)
	if err != nil {
		return module.Env{}, err
	}
	observability.ExportBus(reg)
	return module.Env{Bus: reg, Topics: topics, Logger: log.Logger}, nil
}

func serve(ctx context.Context, args []string, stderr io.Writer) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.StringP("config", "c", "lintx.toml", "daemon config path")
	if err := fs.Parse(args); err != nil {
		return ignoreHelp(err)
	}

	cfg, err := config.LoadDaemonConfig(*path)
	if err != nil {
		return err
	}
	logging.ConfigureWith(logging.ProfileRuntime, cfg.Log.Override())
	logger := logging.Module("serve")

	env, err := newEnv()
	if err != nil {
		return err
	}
	instances := make([]module.Instance, 0, len(cfg.Modules))
	for _, m := range cfg.Modules {
		instances = append(instances, module.Instance{Name: m.Name, Args: m.Args})
	}
	sup := module.NewSupervisor(builtin.Modules(), env)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !cfg.Metrics.Disabled {
		srv := observability.NewServer(observability.ServerConfig{
			Node:        cfg.Name,
			Addr:        cfg.Metrics.Addr,
			CorsOrigins: cfg.Metrics.CorsOrigins,
			Topics:      func() any { return env.Bus.Stats() },
			Modules:     func() any { return sup.Statuses() },
		}, logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("serve metrics server stopped")
			}
		}()
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("serve metrics server listening")
	}

	logger.Info().Str("name", cfg.Name).Int("modules", len(instances)).Msg("serve starting")
	err = sup.Run(ctx, instances)
	logger.Info().Msg("serve stopped")
	return err
}

func runModule(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return errors.New("run: module name required (see `lintx list`)")
	}
	logging.ConfigureRuntime()

	mod, err := builtin.Modules().Resolve(args[0])
	if err != nil {
		return err
	}
	env, err := newEnv()
	if err != nil {
		return err
	}
	env.Logger = logging.Module(args[0])
	err = mod.Run(ctx, env, args[1:])
	if errors.Is(err, module.ErrHelp) || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		return nil
	}
	return err
}

func list(stdout io.Writer) error {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, meta := range builtin.Modules().ListMetadata() {
		fmt.Fprintf(tw, "%s\t%s\n", meta.Name, meta.Description)
	}
	return tw.Flush()
}

func configTemplate(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("config-template", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	kind := fs.StringP("kind", "k", "daemon", "config kind: daemon|mock")
	output := fs.StringP("output", "o", "", "output path (stdout when empty)")
	force := fs.Bool("force", false, "overwrite an existing file")
	validate := fs.Bool("validate", false, "validate the daemon config at --output instead of writing")
	if err := fs.Parse(args); err != nil {
		return ignoreHelp(err)
	}

	if *validate {
		if *output == "" {
			return errors.New("config-template: --validate needs --output")
		}
		if _, err := config.LoadDaemonConfig(*output); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "validated %s\n", *output)
		return nil
	}
	if *output == "" {
		body, err := config.Template(*kind)
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, body)
		return err
	}
	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s config template to %s\n", *kind, *output)
	return nil
}

func ignoreHelp(err error) error {
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}
