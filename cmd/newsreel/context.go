package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"newsreel/internal/api"
	"newsreel/internal/config"
	"newsreel/internal/queue"
)

// commandContext carries shared CLI state. Config loading is deferred until a
// command actually needs it so commands annotated with skipConfigLoad can run
// before a config file exists.
type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, jsonFlag: jsonFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return *c.configFlag
}

func (c *commandContext) ensureConfig() error {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = fmt.Errorf("prepare directories: %w", err)
			return
		}
		c.config = cfg
	})
	return c.configErr
}

func (c *commandContext) configValue() (*config.Config, error) {
	if err := c.ensureConfig(); err != nil {
		return nil, err
	}
	return c.config, nil
}

func (c *commandContext) jsonMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// apiClient returns a client for the daemon HTTP API together with whether
// the daemon answered a ping. Callers fall back to direct store access when
// the daemon is down.
func (c *commandContext) apiClient(ctx context.Context) (*api.Client, bool) {
	cfg, err := c.configValue()
	if err != nil {
		return nil, false
	}
	client := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return nil, false
	}
	return client, true
}

// withStore opens the queue database directly and closes it when fn returns.
// SQLite runs in WAL mode, so this is safe alongside a running daemon.
func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.configValue()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue database: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// withQueueService wraps withStore with the shared queue facade.
func (c *commandContext) withQueueService(fn func(*api.QueueService) error) error {
	return c.withStore(func(store *queue.Store) error {
		return fn(api.NewQueueService(store))
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for current := cmd; current != nil; current = current.Parent() {
		if current.Annotations["skipConfigLoad"] == "true" {
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
