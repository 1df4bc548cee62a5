package appmgr

import (
	"context"
	"errors"

	"github.com/golang/glog"

	"launchpad/internal/appsapi"
	"launchpad/internal/registry"
	"launchpad/internal/store"
)

// InstallFromTemplate installs a catalog template for a caller. The merged
// input is the template's defaults shallow-overlaid with the caller's
// overrides; caller keys win at the top level. Nothing is persisted when
// the remote install fails.
func (m *Manager) InstallFromTemplate(ctx context.Context, name string, overrides map[string]interface{}, userID string) (*store.InstalledApp, error) {
	tmpl, err := m.store.SelectTemplate(ctx, store.TemplateFilter{Name: &name})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}

	return m.installTemplate(ctx, tmpl, overrides, userID)
}

func (m *Manager) installTemplate(ctx context.Context, tmpl *store.AppTemplate, overrides map[string]interface{}, userID string) (*store.InstalledApp, error) {
	perUser := !tmpl.IsShared && !tmpl.IsInternal
	if perUser && userID == "" {
		return nil, &InvalidRequestError{Reason: "a user id is required to install a non-shared app"}
	}

	input := mergeInputs(tmpl.Input, overrides)

	if tmpl.HandlerClass != nil {
		handler, ok := m.registry.Get(*tmpl.HandlerClass)
		if !ok {
			// imports reject unknown classes, so this means the registry
			// shrank since the template was stored
			return nil, &InvalidRequestError{Reason: "unknown handler class: " + *tmpl.HandlerClass}
		}
		var err error
		input, err = handler.BuildInput(ctx, m, input)
		if err != nil {
			return nil, err
		}
	}

	resp, err := m.remote.Install(ctx, &appsapi.InstallRequest{
		TemplateName:    tmpl.TemplateName,
		TemplateVersion: tmpl.TemplateVersion,
		Input:           input,
	})
	if err != nil {
		return nil, &OrchestratorError{Op: "install " + tmpl.Name, Err: err}
	}

	var uid *string
	if perUser {
		uid = &userID
	}

	installed, err := m.store.UpsertApp(ctx, &store.InstalledApp{
		AppID:            resp.ID,
		AppName:          resp.Name,
		LaunchpadAppName: tmpl.Name,
		IsInternal:       tmpl.IsInternal,
		IsShared:         tmpl.IsShared,
		UserID:           uid,
	})
	if err != nil {
		return nil, err
	}

	glog.Infof("installed app %s (%s) as instance %s", tmpl.Name, tmpl.TemplateName, installed.AppID)

	if m.buffer != nil {
		m.buffer.Enqueue(installed.AppID, installed.AppName)
	}
	if m.events != nil {
		m.events.AppInstalled(installed.AppID, installed.LaunchpadAppName, installed.UserID)
	}

	return installed, nil
}

// InstallGenericRequest installs an arbitrary template with explicit inputs,
// synthesizing a catalog entry on the fly.
type InstallGenericRequest struct {
	TemplateName    string                 `json:"template_name"`
	TemplateVersion string                 `json:"template_version"`
	Inputs          map[string]interface{} `json:"inputs"`

	Name             string   `json:"name,omitempty"`
	VerboseName      string   `json:"verbose_name,omitempty"`
	DescriptionShort string   `json:"description_short,omitempty"`
	DescriptionLong  string   `json:"description_long,omitempty"`
	Logo             string   `json:"logo,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	IsInternal       *bool    `json:"is_internal,omitempty"`
	IsShared         *bool    `json:"is_shared,omitempty"`
	HandlerClass     *string  `json:"handler_class,omitempty"`
}

// InstallGeneric upserts a template from the request and installs it in one
// step.
func (m *Manager) InstallGeneric(ctx context.Context, req *InstallGenericRequest, userID string) (*store.InstalledApp, error) {
	tmpl, err := m.ImportTemplate(ctx, &ImportTemplateRequest{
		TemplateName:     req.TemplateName,
		TemplateVersion:  req.TemplateVersion,
		Name:             req.Name,
		VerboseName:      req.VerboseName,
		DescriptionShort: req.DescriptionShort,
		DescriptionLong:  req.DescriptionLong,
		Logo:             req.Logo,
		Tags:             req.Tags,
		IsInternal:       req.IsInternal,
		IsShared:         req.IsShared,
		HandlerClass:     req.HandlerClass,
		Input:            req.Inputs,
	})
	if err != nil {
		return nil, err
	}

	// inputs already live on the template, no extra overrides
	return m.installTemplate(ctx, tmpl, nil, userID)
}

// ResolveDependency implements registry.DependencyResolver: it looks up an
// installed dependency without touching its url, translating lookup and
// health failures into dependency errors the caller can act on.
func (m *Manager) ResolveDependency(ctx context.Context, name string) (*store.InstalledApp, error) {
	app, err := m.GetInstalledApp(ctx, name, "", false)
	if err != nil {
		var unhealthy *UnhealthyError
		switch {
		case errors.Is(err, ErrTemplateNotFound), errors.Is(err, ErrNotInstalled):
			return nil, &registry.MissingDependencyError{Name: name}
		case errors.As(err, &unhealthy):
			return nil, &registry.UnhealthyDependencyError{Name: name}
		default:
			return nil, err
		}
	}
	return app, nil
}

// mergeInputs shallow-merges overrides onto defaults; override keys win at
// the top level.
func mergeInputs(defaults store.InputMap, overrides map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
