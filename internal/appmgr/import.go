package appmgr

import (
	"context"
	"errors"

	"github.com/Masterminds/semver/v3"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"launchpad/internal/appsapi"
	"launchpad/internal/store"
)

// ImportTemplateRequest registers (or updates) a catalog template for an
// artifact published on the apps api. Metadata resolution priority:
// explicit caller override, then the remote template metadata, then the
// bare template key.
type ImportTemplateRequest struct {
	TemplateName    string `json:"template_name"`
	TemplateVersion string `json:"template_version"`

	Name              string                 `json:"name,omitempty"`
	VerboseName       string                 `json:"verbose_name,omitempty"`
	DescriptionShort  string                 `json:"description_short,omitempty"`
	DescriptionLong   string                 `json:"description_long,omitempty"`
	Logo              string                 `json:"logo,omitempty"`
	Tags              []string               `json:"tags,omitempty"`
	DocumentationURLs []store.Link           `json:"documentation_urls,omitempty"`
	ExternalURLs      []store.Link           `json:"external_urls,omitempty"`
	IsInternal        *bool                  `json:"is_internal,omitempty"`
	IsShared          *bool                  `json:"is_shared,omitempty"`
	HandlerClass      *string                `json:"handler_class,omitempty"`
	Input             map[string]interface{} `json:"input,omitempty"`
}

// ImportTemplate upserts a template by name.
func (m *Manager) ImportTemplate(ctx context.Context, req *ImportTemplateRequest) (*store.AppTemplate, error) {
	if req.TemplateName == "" || req.TemplateVersion == "" {
		return nil, &InvalidRequestError{Reason: "template_name and template_version are required"}
	}
	if req.HandlerClass != nil && !m.registry.Known(*req.HandlerClass) {
		return nil, &InvalidRequestError{Reason: "unknown handler class: " + *req.HandlerClass}
	}

	name := req.Name
	if name == "" {
		name = req.TemplateName
	}

	// the remote metadata fills whatever the caller left blank; the apps
	// api being unreachable only degrades the catalog entry
	md, err := m.remote.GetTemplate(ctx, req.TemplateName, req.TemplateVersion)
	if err != nil {
		glog.Warningf("unable to fetch template metadata for %s:%s: %v", req.TemplateName, req.TemplateVersion, err)
		md = &appsapi.TemplateMetadata{}
	}

	existing, err := m.store.SelectTemplate(ctx, store.TemplateFilter{Name: &name})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	isInternal, isShared := false, true
	if existing != nil {
		isInternal, isShared = existing.IsInternal, existing.IsShared

		count, err := m.store.CountAppsForTemplate(ctx, name)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			if req.IsInternal != nil && *req.IsInternal != existing.IsInternal {
				return nil, &InvalidRequestError{Reason: "Cannot modify is_internal while installed instances exist"}
			}
			if req.IsShared != nil && *req.IsShared != existing.IsShared {
				return nil, &InvalidRequestError{Reason: "Cannot modify is_shared while installed instances exist"}
			}
		}

		warnOnDowngrade(name, existing.TemplateVersion, req.TemplateVersion)
	}
	if req.IsInternal != nil {
		isInternal = *req.IsInternal
	}
	if req.IsShared != nil {
		isShared = *req.IsShared
	}

	tmpl := &store.AppTemplate{
		Name:              name,
		TemplateName:      req.TemplateName,
		TemplateVersion:   req.TemplateVersion,
		VerboseName:       firstNonEmpty(req.VerboseName, md.Title, name),
		DescriptionShort:  firstNonEmpty(req.DescriptionShort, md.ShortDescription),
		DescriptionLong:   firstNonEmpty(req.DescriptionLong, md.Description),
		Logo:              firstNonEmpty(req.Logo, md.Logo),
		DocumentationURLs: linkList(req.DocumentationURLs, md.DocumentationURLs),
		ExternalURLs:      linkList(req.ExternalURLs, md.ExternalURLs),
		Tags:              firstNonEmptyList(req.Tags, md.Tags),
		IsInternal:        isInternal,
		IsShared:          isShared,
		HandlerClass:      req.HandlerClass,
		Input:             req.Input,
	}

	return m.store.UpsertTemplate(ctx, tmpl)
}

// ImportAppRequest backfills a local record for an app that was installed
// out-of-band (directly on the apps api).
type ImportAppRequest struct {
	AppID uuid.UUID `json:"app_id"`

	VerboseName      string   `json:"verbose_name,omitempty"`
	DescriptionShort string   `json:"description_short,omitempty"`
	DescriptionLong  string   `json:"description_long,omitempty"`
	Logo             string   `json:"logo,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

// ImportApp links an out-of-band installation into the local record. The
// catalog key is always the remote template name; imported apps are always
// shared since no caller owns them.
func (m *Manager) ImportApp(ctx context.Context, req *ImportAppRequest) (*store.InstalledApp, error) {
	inst, err := m.remote.GetInstance(ctx, req.AppID)
	if err != nil {
		if errors.Is(err, appsapi.ErrNotFound) {
			return nil, &InvalidRequestError{Reason: "app instance not found on the apps api"}
		}
		return nil, &OrchestratorError{Op: "import app", Err: err}
	}

	shared := true
	if _, err := m.ImportTemplate(ctx, &ImportTemplateRequest{
		TemplateName:     inst.TemplateName,
		TemplateVersion:  inst.TemplateVersion,
		VerboseName:      firstNonEmpty(req.VerboseName, inst.DisplayName),
		DescriptionShort: req.DescriptionShort,
		DescriptionLong:  req.DescriptionLong,
		Logo:             req.Logo,
		Tags:             req.Tags,
		IsShared:         &shared,
	}); err != nil {
		return nil, err
	}

	installed, err := m.store.UpsertApp(ctx, &store.InstalledApp{
		AppID:            inst.ID,
		AppName:          inst.Name,
		LaunchpadAppName: inst.TemplateName,
		IsInternal:       false,
		IsShared:         true,
	})
	if err != nil {
		return nil, err
	}

	glog.Infof("imported app %s as %s", installed.AppID, installed.LaunchpadAppName)

	if m.buffer != nil {
		m.buffer.Enqueue(installed.AppID, installed.AppName)
	}

	return installed, nil
}

// ListUnimportedInstances diffs the remote instance listing against the
// local record: healthy remote instances nobody tracks yet.
func (m *Manager) ListUnimportedInstances(ctx context.Context, page, size int) (*appsapi.InstancePage, error) {
	remote, err := m.remote.ListInstances(ctx, page, size, "healthy")
	if err != nil {
		return nil, &OrchestratorError{Op: "list instances", Err: err}
	}

	local, err := m.store.ListApps(ctx, store.AppFilter{})
	if err != nil {
		return nil, err
	}

	known := make([]uuid.UUID, 0, len(local))
	for _, app := range local {
		known = append(known, app.AppID)
	}

	items := make([]appsapi.Instance, 0, len(remote.Items))
	for _, inst := range remote.Items {
		if !funk.Contains(known, inst.ID) {
			items = append(items, inst)
		}
	}

	return &appsapi.InstancePage{
		Items: items,
		Total: len(items),
		Page:  remote.Page,
		Size:  remote.Size,
		Pages: remote.Pages,
	}, nil
}

func warnOnDowngrade(name, current, next string) {
	cv, err1 := semver.NewVersion(current)
	nv, err2 := semver.NewVersion(next)
	if err1 != nil || err2 != nil {
		return
	}
	if nv.LessThan(cv) {
		glog.Warningf("template %s downgraded from %s to %s", name, current, next)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptyList(values ...[]string) store.StringList {
	for _, v := range values {
		if len(v) > 0 {
			return store.StringList(v)
		}
	}
	return store.StringList{}
}

func linkList(override []store.Link, fetched []map[string]string) store.LinkList {
	if len(override) > 0 {
		return store.LinkList(override)
	}
	out := make(store.LinkList, 0, len(fetched))
	for _, l := range fetched {
		out = append(out, store.Link{Text: l["text"], URL: l["url"]})
	}
	return out
}
