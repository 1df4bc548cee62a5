package appmgr

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"launchpad/internal/store"
)

// GetInstalledApp resolves a tracked installation by its catalog name,
// health-checked against the apps api on every call. When withURL is set
// and no endpoint is recorded yet, it tries to backfill endpoints from the
// app's published outputs; that step is best-effort because the app may
// simply not have published them yet.
func (m *Manager) GetInstalledApp(ctx context.Context, name, userID string, withURL bool) (*store.InstalledApp, error) {
	app, err := m.lookup(ctx, name, userID)
	if err != nil {
		return nil, err
	}

	if !m.isHealthy(ctx, app) {
		return nil, &UnhealthyError{AppID: app.AppID}
	}

	if withURL && app.URL == nil {
		refreshed, err := m.backfillURLs(ctx, app)
		if err != nil {
			glog.Warningf("unable to backfill urls for app %s: %v", app.AppID, err)
		} else {
			app = refreshed
		}
	}

	return app, nil
}

// GetExistingApp performs the same resolution without the health check.
// It returns nil (and no error) when the app was never installed, so
// pollers can distinguish "not installed" from "installed but unhealthy"
// and avoid double-installing.
func (m *Manager) GetExistingApp(ctx context.Context, name, userID string) (*store.InstalledApp, error) {
	app, err := m.lookup(ctx, name, userID)
	if errors.Is(err, ErrNotInstalled) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (m *Manager) lookup(ctx context.Context, name, userID string) (*store.InstalledApp, error) {
	tmpl, err := m.store.SelectTemplate(ctx, store.TemplateFilter{Name: &name})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}

	filter := store.AppFilter{LaunchpadAppName: &name}
	if !tmpl.IsShared && !tmpl.IsInternal {
		if userID == "" {
			return nil, &InvalidRequestError{Reason: "a user id is required to look up a non-shared app"}
		}
		filter.UserID = &userID
	}

	app, err := m.store.SelectApp(ctx, filter)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotInstalled
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}
