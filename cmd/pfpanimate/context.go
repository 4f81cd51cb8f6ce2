package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maauso/pfp-animate/internal/bootstrap"
	"github.com/maauso/pfp-animate/internal/config"
	"github.com/maauso/pfp-animate/internal/job"
	"github.com/maauso/pfp-animate/internal/preset"
)

type commandContext struct {
	presetsFlag  string
	logLevelFlag string
}

// loadConfig reads the environment and applies the global flags.
func (c *commandContext) loadConfig(requireToken bool) (*config.Config, error) {
	cfg, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	if p := strings.TrimSpace(c.presetsFlag); p != "" {
		cfg.PresetsFile = p
	}
	if l := strings.TrimSpace(c.logLevelFlag); l != "" {
		cfg.LogLevel = l
	}
	if requireToken {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// catalog loads the presets without requiring API credentials.
func (c *commandContext) catalog() (*preset.Catalog, error) {
	cfg, err := c.loadConfig(false)
	if err != nil {
		return nil, err
	}
	return preset.Load(cfg.PresetsFile)
}

// runJob validates in, wires the service and runs the job to completion.
// Interrupts cancel the job context.
func (c *commandContext) runJob(cmd *cobra.Command, in job.Input) error {
	if err := in.Validate(); err != nil {
		return err
	}

	cfg, err := c.loadConfig(true)
	if err != nil {
		return err
	}
	logger := cfg.NewLoggerTo(cmd.ErrOrStderr())

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, runErr := deps.Service.Run(ctx, in)
	if out != nil {
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(out))
	}
	if runErr != nil {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return runErr
	}
	return nil
}
