package appmgr

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"launchpad/internal/appsapi"
	"launchpad/internal/store"
)

// fakeStore is an in-memory Store with the same matching semantics as the
// SQL layer: nil filter fields are ignored, a user filter never matches
// rows without a user.
type fakeStore struct {
	mu        sync.Mutex
	templates []*store.AppTemplate
	apps      []*store.InstalledApp
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (f *fakeStore) UpsertTemplate(_ context.Context, t *store.AppTemplate) (*store.AppTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, existing := range f.templates {
		if existing.Name == t.Name {
			cp := *t
			cp.ID = existing.ID
			f.templates[i] = &cp
			out := cp
			return &out, nil
		}
	}
	cp := *t
	cp.ID = uuid.New()
	f.templates = append(f.templates, &cp)
	out := cp
	return &out, nil
}

func (f *fakeStore) SelectTemplate(_ context.Context, filter store.TemplateFilter) (*store.AppTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.templates {
		if matchTemplate(t, filter) {
			out := *t
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListTemplates(_ context.Context, filter store.TemplateFilter) ([]store.AppTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []store.AppTemplate
	for _, t := range f.templates {
		if matchTemplate(t, filter) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteTemplate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.templates {
		if t.ID == id {
			f.templates = append(f.templates[:i], f.templates[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) CountAppsForTemplate(_ context.Context, name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, a := range f.apps {
		if a.LaunchpadAppName == name {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) UpsertApp(_ context.Context, a *store.InstalledApp) (*store.InstalledApp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, existing := range f.apps {
		if existing.AppID == a.AppID {
			cp := *a
			cp.ID = existing.ID
			f.apps[i] = &cp
			out := cp
			return &out, nil
		}
	}
	cp := *a
	cp.ID = uuid.New()
	f.apps = append(f.apps, &cp)
	out := cp
	return &out, nil
}

func (f *fakeStore) SelectApp(_ context.Context, filter store.AppFilter) (*store.InstalledApp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.apps {
		if matchApp(a, filter) {
			out := *a
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListApps(_ context.Context, filter store.AppFilter) ([]store.InstalledApp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []store.InstalledApp
	for _, a := range f.apps {
		if matchApp(a, filter) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateAppURLs(_ context.Context, appID uuid.UUID, url *string, external store.StringList) (*store.InstalledApp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.apps {
		if a.AppID == appID {
			a.URL = url
			a.ExternalURLs = external
			out := *a
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) DeleteApp(_ context.Context, appID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, a := range f.apps {
		if a.AppID == appID {
			f.apps = append(f.apps[:i], f.apps[i+1:]...)
			return nil
		}
	}
	return nil
}

func matchTemplate(t *store.AppTemplate, f store.TemplateFilter) bool {
	if f.ID != nil && t.ID != *f.ID {
		return false
	}
	if f.Name != nil && t.Name != *f.Name {
		return false
	}
	if f.IsInternal != nil && t.IsInternal != *f.IsInternal {
		return false
	}
	return true
}

func matchApp(a *store.InstalledApp, f store.AppFilter) bool {
	if f.AppID != nil && a.AppID != *f.AppID {
		return false
	}
	if f.LaunchpadAppName != nil && a.LaunchpadAppName != *f.LaunchpadAppName {
		return false
	}
	if f.IsInternal != nil && a.IsInternal != *f.IsInternal {
		return false
	}
	if f.IsShared != nil && a.IsShared != *f.IsShared {
		return false
	}
	if f.UserID != nil && (a.UserID == nil || *a.UserID != *f.UserID) {
		return false
	}
	if f.URL != nil && (a.URL == nil || *a.URL != *f.URL) {
		return false
	}
	return true
}

// fakeRemote scripts the apps api. Unset hooks fail loudly so tests only
// exercise the calls they expect.
type fakeRemote struct {
	installFn      func(ctx context.Context, req *appsapi.InstallRequest) (*appsapi.Instance, error)
	deleteFn       func(ctx context.Context, appID uuid.UUID) error
	getInstanceFn  func(ctx context.Context, appID uuid.UUID) (*appsapi.Instance, error)
	getOutputsFn   func(ctx context.Context, appID uuid.UUID) (appsapi.Outputs, error)
	getTemplateFn  func(ctx context.Context, name, version string) (*appsapi.TemplateMetadata, error)
	listFn         func(ctx context.Context, page, size int, states ...string) (*appsapi.InstancePage, error)
	installCalls   int
	deleteCalls    []uuid.UUID
}

var errUnexpectedCall = errors.New("unexpected remote call")

func (f *fakeRemote) Install(ctx context.Context, req *appsapi.InstallRequest) (*appsapi.Instance, error) {
	f.installCalls++
	if f.installFn == nil {
		return nil, errUnexpectedCall
	}
	return f.installFn(ctx, req)
}

func (f *fakeRemote) Delete(ctx context.Context, appID uuid.UUID) error {
	f.deleteCalls = append(f.deleteCalls, appID)
	if f.deleteFn == nil {
		return errUnexpectedCall
	}
	return f.deleteFn(ctx, appID)
}

func (f *fakeRemote) GetInstance(ctx context.Context, appID uuid.UUID) (*appsapi.Instance, error) {
	if f.getInstanceFn == nil {
		return nil, errUnexpectedCall
	}
	return f.getInstanceFn(ctx, appID)
}

func (f *fakeRemote) GetOutputs(ctx context.Context, appID uuid.UUID) (appsapi.Outputs, error) {
	if f.getOutputsFn == nil {
		return nil, errUnexpectedCall
	}
	return f.getOutputsFn(ctx, appID)
}

func (f *fakeRemote) GetTemplate(ctx context.Context, name, version string) (*appsapi.TemplateMetadata, error) {
	if f.getTemplateFn == nil {
		return nil, errUnexpectedCall
	}
	return f.getTemplateFn(ctx, name, version)
}

func (f *fakeRemote) ListInstances(ctx context.Context, page, size int, states ...string) (*appsapi.InstancePage, error) {
	if f.listFn == nil {
		return nil, errUnexpectedCall
	}
	return f.listFn(ctx, page, size, states...)
}

type fakeBuffer struct {
	enqueued []uuid.UUID
}

func (f *fakeBuffer) Enqueue(appID uuid.UUID, _ string) {
	f.enqueued = append(f.enqueued, appID)
}

type fakeEvents struct {
	installed   []uuid.UUID
	uninstalled []uuid.UUID
}

func (f *fakeEvents) AppInstalled(appID uuid.UUID, _ string, _ *string) {
	f.installed = append(f.installed, appID)
}

func (f *fakeEvents) AppUninstalled(appID uuid.UUID, _ string) {
	f.uninstalled = append(f.uninstalled, appID)
}

func healthyInstance() func(context.Context, uuid.UUID) (*appsapi.Instance, error) {
	return func(_ context.Context, id uuid.UUID) (*appsapi.Instance, error) {
		return &appsapi.Instance{ID: id, State: "healthy"}, nil
	}
}
