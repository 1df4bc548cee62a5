package appmgr

import (
	"context"
	"errors"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"launchpad/internal/appsapi"
	"launchpad/internal/store"
)

// Delete uninstalls a single instance: remote first, then the local row.
// A remote "not found" counts as success, the instance is gone either way.
func (m *Manager) Delete(ctx context.Context, appID uuid.UUID) error {
	if err := m.remote.Delete(ctx, appID); err != nil && !errors.Is(err, appsapi.ErrNotFound) {
		return &OrchestratorError{Op: "delete instance", Err: err}
	}

	if err := m.store.DeleteApp(ctx, appID); err != nil {
		return err
	}

	if m.events != nil {
		m.events.AppUninstalled(appID, "")
	}
	return nil
}

// DeleteTemplate removes a template and every installation derived from
// it. Remote uninstalls are best-effort: a dead apps api must not make the
// local records permanently undeletable.
func (m *Manager) DeleteTemplate(ctx context.Context, templateID uuid.UUID) error {
	tmpl, err := m.store.SelectTemplate(ctx, store.TemplateFilter{ID: &templateID})
	if errors.Is(err, store.ErrNotFound) {
		return ErrTemplateNotFound
	}
	if err != nil {
		return err
	}

	instances, err := m.store.ListApps(ctx, store.AppFilter{LaunchpadAppName: &tmpl.Name})
	if err != nil {
		return err
	}

	for _, inst := range instances {
		if err := m.remote.Delete(ctx, inst.AppID); err != nil && !errors.Is(err, appsapi.ErrNotFound) {
			glog.Warningf("unable to uninstall instance %s of template %s: %v", inst.AppID, tmpl.Name, err)
		}
		if err := m.store.DeleteApp(ctx, inst.AppID); err != nil {
			return err
		}
		if m.events != nil {
			m.events.AppUninstalled(inst.AppID, inst.LaunchpadAppName)
		}
	}

	glog.Infof("deleting template %s with %d instances", tmpl.Name, len(instances))
	return m.store.DeleteTemplate(ctx, tmpl.ID)
}
