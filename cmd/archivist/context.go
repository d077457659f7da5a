package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"archivist/internal/config"
	"archivist/internal/enrich"
	"archivist/internal/logging"
)

const (
	envTargetHint  = "$" + config.EnvTarget
	envCatalogHint = "$" + config.EnvCatalog
)

// newEnricher builds the metadata reader used by runs. Tests swap it out.
var newEnricher = func(cfg *config.Config) enrich.Enricher {
	return enrich.NewMediaEnricher(cfg.FFprobeBinary())
}

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads the configuration once, applying any flags the user set
// on cmd and the positional source directory.
func (c *commandContext) ensureConfig(cmd *cobra.Command, source string) (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path, flagOverrides(cmd, source)...)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	return c.config
}

func (c *commandContext) loggerValue() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		c.logger, c.loggerErr = logging.NewFromConfig(c.config)
	})
	return c.logger, c.loggerErr
}

func flagOverrides(cmd *cobra.Command, source string) []config.Override {
	var overrides []config.Override
	if strings.TrimSpace(source) != "" {
		overrides = append(overrides, func(cfg *config.Config) { cfg.Paths.SourceDir = source })
	}
	if cmd == nil {
		return overrides
	}
	flags := cmd.Flags()
	stringFlag := func(name string, apply func(*config.Config, string)) {
		if !flags.Changed(name) {
			return
		}
		value, err := flags.GetString(name)
		if err != nil {
			return
		}
		overrides = append(overrides, func(cfg *config.Config) { apply(cfg, value) })
	}
	stringFlag("target", func(cfg *config.Config, v string) { cfg.Paths.TargetDir = v })
	stringFlag("db", func(cfg *config.Config, v string) { cfg.Paths.CatalogPath = v })
	stringFlag("log-level", func(cfg *config.Config, v string) { cfg.Logging.Level = v })
	stringFlag("log-format", func(cfg *config.Config, v string) { cfg.Logging.Format = v })
	if flags.Changed("workers") {
		if workers, err := flags.GetInt("workers"); err == nil {
			overrides = append(overrides, func(cfg *config.Config) { cfg.Workflow.Workers = workers })
		}
	}
	return overrides
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func requireConfig(ctx *commandContext) (*config.Config, error) {
	cfg := ctx.configValue()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}
