package appmgr

import (
	"context"

	"github.com/google/uuid"

	"launchpad/internal/appsapi"
	"launchpad/internal/registry"
	"launchpad/internal/store"
)

// Store is the slice of the relational store the manager needs.
type Store interface {
	UpsertTemplate(ctx context.Context, t *store.AppTemplate) (*store.AppTemplate, error)
	SelectTemplate(ctx context.Context, f store.TemplateFilter) (*store.AppTemplate, error)
	ListTemplates(ctx context.Context, f store.TemplateFilter) ([]store.AppTemplate, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	CountAppsForTemplate(ctx context.Context, name string) (int, error)

	UpsertApp(ctx context.Context, a *store.InstalledApp) (*store.InstalledApp, error)
	SelectApp(ctx context.Context, f store.AppFilter) (*store.InstalledApp, error)
	ListApps(ctx context.Context, f store.AppFilter) ([]store.InstalledApp, error)
	UpdateAppURLs(ctx context.Context, appID uuid.UUID, url *string, external store.StringList) (*store.InstalledApp, error)
	DeleteApp(ctx context.Context, appID uuid.UUID) error
}

// RemoteClient is the apps api surface the manager consumes.
type RemoteClient interface {
	Install(ctx context.Context, req *appsapi.InstallRequest) (*appsapi.Instance, error)
	Delete(ctx context.Context, appID uuid.UUID) error
	GetInstance(ctx context.Context, appID uuid.UUID) (*appsapi.Instance, error)
	GetOutputs(ctx context.Context, appID uuid.UUID) (appsapi.Outputs, error)
	GetTemplate(ctx context.Context, name, version string) (*appsapi.TemplateMetadata, error)
	ListInstances(ctx context.Context, page, size int, states ...string) (*appsapi.InstancePage, error)
}

// Announcer accepts freshly installed apps for asynchronous publishing to
// the parent output document.
type Announcer interface {
	Enqueue(appID uuid.UUID, appName string)
}

// EventPublisher emits lifecycle events. Implementations must be nil-safe
// no-ops when eventing is not configured.
type EventPublisher interface {
	AppInstalled(appID uuid.UUID, name string, userID *string)
	AppUninstalled(appID uuid.UUID, name string)
}

// Manager is the installation orchestrator: it resolves templates, merges
// inputs, resolves dependencies, drives the apps api and keeps the local
// record in sync.
type Manager struct {
	store    Store
	remote   RemoteClient
	registry *registry.Registry
	buffer   Announcer
	events   EventPublisher
}

func NewManager(s Store, remote RemoteClient, reg *registry.Registry, buffer Announcer, events EventPublisher) *Manager {
	return &Manager{
		store:    s,
		remote:   remote,
		registry: reg,
		buffer:   buffer,
		events:   events,
	}
}

// ListPool returns the public catalog (internal templates excluded).
func (m *Manager) ListPool(ctx context.Context) ([]store.AppTemplate, error) {
	isInternal := false
	return m.store.ListTemplates(ctx, store.TemplateFilter{IsInternal: &isInternal})
}

// ListInstalled returns tracked installations, optionally filtered.
func (m *Manager) ListInstalled(ctx context.Context, f store.AppFilter) ([]store.InstalledApp, error) {
	return m.store.ListApps(ctx, f)
}
