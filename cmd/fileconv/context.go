package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"fileconv/internal/blobstore"
	"fileconv/internal/config"
	"fileconv/internal/daemonrun"
	"fileconv/internal/jobstore"
	"fileconv/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.flagPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) flagPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// withStores opens the object and job stores for the duration of fn.
func (c *commandContext) withStores(fn func(blobstore.Store, *jobstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	blobs, jobs, err := daemonrun.OpenStores(cfg)
	if err != nil {
		return err
	}
	defer blobs.Close()
	return fn(blobs, jobs)
}

// commandLogger writes warnings and errors to stderr so command output on
// stdout stays parseable.
func (c *commandContext) commandLogger(verbose bool) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	level := "warn"
	if verbose {
		level = cfg.Logging.Level
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
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
