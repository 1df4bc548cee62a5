package appmgr

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"launchpad/internal/store"
)

// InitInternalApps converges every internal template to a running
// instance: healthy installs are left alone, dead ones are recreated,
// missing ones are installed. Failures are logged per app and never abort
// the rest of the startup.
func (m *Manager) InitInternalApps(ctx context.Context) {
	isInternal := true
	templates, err := m.store.ListTemplates(ctx, store.TemplateFilter{IsInternal: &isInternal})
	if err != nil {
		glog.Errorf("unable to list internal templates: %v", err)
		return
	}

	for _, tmpl := range templates {
		if err := m.initInternalApp(ctx, tmpl.Name); err != nil {
			glog.Errorf("unable to initialize internal app %s: %v", tmpl.Name, err)
		}
	}
}

func (m *Manager) initInternalApp(ctx context.Context, name string) error {
	_, err := m.GetInstalledApp(ctx, name, "", false)
	if err == nil {
		glog.Infof("internal app %s is already installed and running", name)
		return nil
	}

	var unhealthy *UnhealthyError
	switch {
	case errors.Is(err, ErrNotInstalled):
		glog.Infof("internal app %s is not yet installed", name)
	case errors.As(err, &unhealthy):
		glog.Infof("internal app %s is unhealthy, recreating", name)
		if err := m.Delete(ctx, unhealthy.AppID); err != nil {
			return err
		}
	default:
		return err
	}

	_, err = m.InstallFromTemplate(ctx, name, nil, "")
	if err != nil {
		return err
	}
	glog.Infof("installed internal app %s", name)
	return nil
}
