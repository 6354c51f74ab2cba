package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"triage/internal/config"
	"triage/internal/logging"
	"triage/internal/records"
	"triage/internal/session"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	sessionOnce sync.Once
	logger      *slog.Logger
	store       *records.Store
	session     *session.Session
	sessionErr  error

	sessionOptions []session.Option
}

func newCommandContext(configFlag *string, jsonFlag *bool, opts []session.Option) *commandContext {
	return &commandContext{
		configFlag:     configFlag,
		jsonFlag:       jsonFlag,
		sessionOptions: opts,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureSession opens the store and a review session on first use.
func (c *commandContext) ensureSession() (*session.Session, error) {
	c.sessionOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.sessionErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.sessionErr = fmt.Errorf("init logging: %w", err)
			return
		}
		store, err := records.Open(cfg, logger)
		if err != nil {
			c.sessionErr = fmt.Errorf("open review store: %w", err)
			return
		}
		sess, err := session.New(cfg, store, logger, c.sessionOptions...)
		if err != nil {
			_ = store.Close()
			c.sessionErr = err
			return
		}
		c.logger = logger
		c.store = store
		c.session = sess
	})
	return c.session, c.sessionErr
}

// withSession runs fn against the session and closes the store afterwards,
// whether or not fn succeeds.
func (c *commandContext) withSession(fn func(*session.Session) error) error {
	sess, err := c.ensureSession()
	if err != nil {
		return err
	}
	err = fn(sess)
	if cerr := c.close(); err == nil {
		err = cerr
	}
	return err
}

func (c *commandContext) close() error {
	var errs []error
	if c.session != nil {
		errs = append(errs, c.session.Close())
		c.session = nil
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
		c.store = nil
	}
	return errors.Join(errs...)
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
