package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/client"
	"github.com/skybi/fleetdash/internal/config"
	"github.com/skybi/fleetdash/internal/dashboard"
	"github.com/skybi/fleetdash/internal/metrics"
	"github.com/skybi/fleetdash/internal/poll"
	"github.com/skybi/fleetdash/internal/session"
	"github.com/skybi/fleetdash/internal/session/storage/file"
	"github.com/skybi/fleetdash/internal/session/storage/inmem"
	"github.com/skybi/fleetdash/internal/session/storage/postgres"
)

var errLoginRequired = errors.New("authentication required; run 'fleetdash login' first")

// app bundles the components every command works with
type app struct {
	cfg        *config.Config
	metrics    *metrics.Metrics
	storage    session.Storage
	fileStore  *file.Driver
	session    *session.Session
	client     *client.Client
	manager    *poll.Manager
	controller *dashboard.Controller

	// loginRequired is closed as soon as the backend reports the session as expired
	loginRequired chan struct{}
	loginOnce     sync.Once

	closeOnce sync.Once
	closers   []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	obj := &app{
		cfg:           cfg,
		metrics:       metrics.New(),
		loginRequired: make(chan struct{}),
	}

	// Open the configured token store
	switch cfg.TokenStore {
	case config.TokenStoreFile:
		obj.fileStore = file.New(cfg.TokenFilePath())
		obj.storage = obj.fileStore
	case config.TokenStoreMemory:
		driver, err := inmem.New()
		if err != nil {
			return nil, err
		}
		obj.storage = driver
	case config.TokenStorePostgres:
		driver := postgres.New(cfg.PostgresDSN)
		if err := driver.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("could not initialize the postgres token store: %w", err)
		}
		obj.storage = driver
		obj.closers = append(obj.closers, driver.Close)
	default:
		return nil, config.ErrUnknownTokenStore
	}

	// Restore a previously persisted session
	obj.session = session.New(obj.storage, cfg.TokenStoreKey)
	restored, err := obj.session.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not restore the session: %w", err)
	}
	log.Debug().Bool("restored", restored).Str("store", cfg.TokenStore).Msg("restored session")

	obj.client = client.New(obj.session, client.Options{
		BaseURL:           cfg.APIBaseURL,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		AutoRefresh:       cfg.AutoRefreshSession,
		Metrics:           obj.metrics,
	})

	obj.manager = poll.NewManager(cfg.CacheLifetime, obj.metrics)
	obj.closers = append(obj.closers, obj.manager.Close)
	resources := dashboard.NewResources(obj.manager, obj.client, dashboard.Intervals{
		Status:       cfg.PollStatusInterval,
		Emulators:    cfg.PollEmulatorsInterval,
		Workstations: cfg.PollWorkstationsInterval,
		Operations:   cfg.PollOperationsInterval,
	})
	obj.controller = dashboard.NewController(obj.client, resources, obj.requireLogin)
	return obj, nil
}

// requireLogin is the login navigation of the command line: it signals every waiting command to stop
func (obj *app) requireLogin() {
	obj.loginOnce.Do(func() {
		close(obj.loginRequired)
	})
}

// Close releases every resource held by the app; it may be called more than once
func (obj *app) Close() {
	obj.closeOnce.Do(func() {
		for i := len(obj.closers) - 1; i >= 0; i-- {
			obj.closers[i]()
		}
	})
}

// errorMessage returns the message to print for an error a command failed with
func errorMessage(err error) string {
	if client.IsUnauthenticated(err) {
		return errLoginRequired.Error()
	}
	return client.Message(err)
}
