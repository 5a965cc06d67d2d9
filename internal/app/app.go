// Package app carries the explicit runtime context shared by commands.
package app

import (
	"fmt"
	"time"

	"github.com/verte-zerg/revise/internal/config"
	"github.com/verte-zerg/revise/internal/logging"
	"github.com/verte-zerg/revise/internal/model"
	"github.com/verte-zerg/revise/internal/store"
)

// Context is passed to every operation instead of package globals.
type Context struct {
	Settings config.Settings
	Paths    config.Paths
	Log      *logging.Logger
	Store    *store.Store
	Now      func() time.Time
}

// Open resolves the workspace layout and opens the progress database.
func Open(settings config.Settings, log *logging.Logger) (*Context, error) {
	if log == nil {
		log = logging.Nop()
	}
	paths := config.Layout(settings)
	st, err := store.Open(paths.ProgressDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open progress database: %w", err)
	}
	return &Context{
		Settings: settings,
		Paths:    paths,
		Log:      log,
		Store:    st,
		Now:      time.Now,
	}, nil
}

// Close releases the progress database.
func (c *Context) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// Clock returns the current time.
func (c *Context) Clock() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Today returns local midnight of the current day.
func (c *Context) Today() time.Time {
	return model.StartOfDay(c.Clock())
}

// StartDate is the configured start date, or today.
func (c *Context) StartDate() time.Time {
	if c.Settings.StartDate.IsZero() {
		return c.Today()
	}
	return model.StartOfDay(c.Settings.StartDate)
}
