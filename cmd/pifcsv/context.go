package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/pifcsv/internal/config"
	"github.com/JonMunkholm/pifcsv/internal/logging"
	"github.com/JonMunkholm/pifcsv/internal/service"
)

type commandContext struct {
	envFile     *string
	logLevel    *string
	storeDriver *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(envFile, logLevel, storeDriver *string) *commandContext {
	return &commandContext{
		envFile:     envFile,
		logLevel:    logLevel,
		storeDriver: storeDriver,
	}
}

// ensureConfig loads the environment once, applies the persistent flags and
// installs the default logger writing to logOut.
func (c *commandContext) ensureConfig(logOut io.Writer) (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := c.loadEnvFile(); err != nil {
			c.configErr = err
			return
		}
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		if v := flagValue(c.logLevel); v != "" {
			cfg.Logging.Level = v
		}
		if v := flagValue(c.storeDriver); v != "" {
			cfg.Store.Driver = v
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format, logOut)
		c.config = cfg
	})
	return c.config, c.configErr
}

// loadEnvFile reads --env-file, or ./.env when it exists. The shell
// environment wins over both.
func (c *commandContext) loadEnvFile() error {
	if path := flagValue(c.envFile); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// openService connects the configured store.
func (c *commandContext) openService(ctx context.Context) (*service.Service, error) {
	cfg, err := c.ensureConfig(io.Discard)
	if err != nil {
		return nil, err
	}
	return service.Open(ctx, cfg)
}

// defaults returns the configured conversion options without touching the
// store.
func (c *commandContext) defaults() (service.Options, error) {
	cfg, err := c.ensureConfig(io.Discard)
	if err != nil {
		return service.Options{}, err
	}
	return service.OptionsFromConfig(cfg)
}

func flagValue(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
