package appmgr

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/appsapi"
	"launchpad/internal/store"
)

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func noRemoteMetadata(f *managerFixture) {
	f.remote.getTemplateFn = func(context.Context, string, string) (*appsapi.TemplateMetadata, error) {
		return &appsapi.TemplateMetadata{}, nil
	}
}

func TestImportTemplateRequiresIdentity(t *testing.T) {
	f := newFixture()

	_, err := f.mgr.ImportTemplate(context.Background(), &ImportTemplateRequest{TemplateName: "chat-chart"})

	var invalid *InvalidRequestError
	assert.ErrorAs(t, err, &invalid)
}

func TestImportTemplateRejectsUnknownHandlerClass(t *testing.T) {
	f := newFixture()

	_, err := f.mgr.ImportTemplate(context.Background(), &ImportTemplateRequest{
		TemplateName:    "chat-chart",
		TemplateVersion: "v1.0.0",
		HandlerClass:    strPtr("no-such-handler"),
	})

	var invalid *InvalidRequestError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "unknown handler class")
}

func TestImportTemplateMetadataPriority(t *testing.T) {
	f := newFixture()
	f.remote.getTemplateFn = func(context.Context, string, string) (*appsapi.TemplateMetadata, error) {
		return &appsapi.TemplateMetadata{
			Title:            "Remote Title",
			ShortDescription: "Remote short",
			Logo:             "https://cdn.example.com/logo.png",
		}, nil
	}

	tmpl, err := f.mgr.ImportTemplate(context.Background(), &ImportTemplateRequest{
		TemplateName:    "chat-chart",
		TemplateVersion: "v1.0.0",
		VerboseName:     "Caller Title",
	})
	require.NoError(t, err)

	// caller override wins, remote metadata fills the blanks
	assert.Equal(t, "Caller Title", tmpl.VerboseName)
	assert.Equal(t, "Remote short", tmpl.DescriptionShort)
	assert.Equal(t, "https://cdn.example.com/logo.png", tmpl.Logo)
	// name falls back to the remote template name
	assert.Equal(t, "chat-chart", tmpl.Name)
	// defaults for a fresh import
	assert.False(t, tmpl.IsInternal)
	assert.True(t, tmpl.IsShared)
}

func TestImportTemplateUnreachableMetadata(t *testing.T) {
	f := newFixture()
	f.remote.getTemplateFn = func(context.Context, string, string) (*appsapi.TemplateMetadata, error) {
		return nil, appsapi.ErrServerError
	}

	tmpl, err := f.mgr.ImportTemplate(context.Background(), &ImportTemplateRequest{
		TemplateName:    "chat-chart",
		TemplateVersion: "v1.0.0",
	})
	require.NoError(t, err, "a dead apps api only degrades the catalog entry")
	assert.Equal(t, "chat-chart", tmpl.VerboseName)
}

func TestImportTemplateFlagChangeGuard(t *testing.T) {
	f := newFixture()
	noRemoteMetadata(f)
	f.addTemplate(t, sharedTemplate("chat"))

	_, err := f.store.UpsertApp(context.Background(), &store.InstalledApp{
		AppID: uuid.New(), AppName: "chat-1", LaunchpadAppName: "chat", IsShared: true,
	})
	require.NoError(t, err)

	_, err = f.mgr.ImportTemplate(context.Background(), &ImportTemplateRequest{
		TemplateName:    "chat-chart",
		TemplateVersion: "v1.0.0",
		Name:            "chat",
		IsShared:        boolPtr(false),
	})
	var invalid *InvalidRequestError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "is_shared")

	// restating the current value is fine
	_, err = f.mgr.ImportTemplate(context.Background(), &ImportTemplateRequest{
		TemplateName:    "chat-chart",
		TemplateVersion: "v1.0.0",
		Name:            "chat",
		IsShared:        boolPtr(true),
	})
	assert.NoError(t, err)
}

func TestImportTemplateFlagChangeWithoutInstances(t *testing.T) {
	f := newFixture()
	noRemoteMetadata(f)
	f.addTemplate(t, sharedTemplate("chat"))

	tmpl, err := f.mgr.ImportTemplate(context.Background(), &ImportTemplateRequest{
		TemplateName:    "chat-chart",
		TemplateVersion: "v1.0.0",
		Name:            "chat",
		IsShared:        boolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, tmpl.IsShared)
}

func TestImportAppUnknownInstance(t *testing.T) {
	f := newFixture()
	f.remote.getInstanceFn = func(context.Context, uuid.UUID) (*appsapi.Instance, error) {
		return nil, appsapi.ErrNotFound
	}

	_, err := f.mgr.ImportApp(context.Background(), &ImportAppRequest{AppID: uuid.New()})

	var invalid *InvalidRequestError
	assert.ErrorAs(t, err, &invalid)
}

func TestImportAppAdoptsInstance(t *testing.T) {
	f := newFixture()
	noRemoteMetadata(f)

	appID := uuid.New()
	f.remote.getInstanceFn = func(context.Context, uuid.UUID) (*appsapi.Instance, error) {
		return &appsapi.Instance{
			ID:              appID,
			Name:            "jupyter-7",
			State:           "healthy",
			TemplateName:    "jupyter",
			TemplateVersion: "v2.0.0",
			DisplayName:     "Jupyter",
		}, nil
	}

	app, err := f.mgr.ImportApp(context.Background(), &ImportAppRequest{AppID: appID})
	require.NoError(t, err)

	assert.Equal(t, "jupyter", app.LaunchpadAppName, "catalog key is the remote template name")
	assert.True(t, app.IsShared, "imported apps are always shared")
	assert.False(t, app.IsInternal)
	assert.Equal(t, []uuid.UUID{appID}, f.buffer.enqueued)

	tmpl, err := f.store.SelectTemplate(context.Background(), store.TemplateFilter{Name: strPtr("jupyter")})
	require.NoError(t, err)
	assert.Equal(t, "Jupyter", tmpl.VerboseName)
}

func TestListUnimportedInstances(t *testing.T) {
	f := newFixture()

	tracked := uuid.New()
	foreign := uuid.New()

	_, err := f.store.UpsertApp(context.Background(), &store.InstalledApp{
		AppID: tracked, AppName: "chat-1", LaunchpadAppName: "chat",
	})
	require.NoError(t, err)

	var askedStates []string
	f.remote.listFn = func(_ context.Context, page, size int, states ...string) (*appsapi.InstancePage, error) {
		askedStates = states
		return &appsapi.InstancePage{
			Items: []appsapi.Instance{
				{ID: tracked, State: "healthy"},
				{ID: foreign, State: "healthy"},
			},
			Total: 2, Page: page, Size: size, Pages: 1,
		}, nil
	}

	result, err := f.mgr.ListUnimportedInstances(context.Background(), 1, 50)
	require.NoError(t, err)

	assert.Equal(t, []string{"healthy"}, askedStates, "only live instances are worth importing")
	require.Len(t, result.Items, 1)
	assert.Equal(t, foreign, result.Items[0].ID)
	assert.Equal(t, 1, result.Total)
}

func TestInstallGeneric(t *testing.T) {
	f := newFixture()
	noRemoteMetadata(f)

	appID := uuid.New()
	captured := scriptedInstall(f, appID)

	app, err := f.mgr.InstallGeneric(context.Background(), &InstallGenericRequest{
		TemplateName:    "jupyter",
		TemplateVersion: "v2.0.0",
		Inputs:          map[string]interface{}{"preset": "cpu-large"},
	}, "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, appID, app.AppID)
	assert.Equal(t, "jupyter", app.LaunchpadAppName)
	assert.Equal(t, "cpu-large", captured.Input["preset"])

	// the synthesized template is now a catalog entry
	tmpl, err := f.store.SelectTemplate(context.Background(), store.TemplateFilter{Name: strPtr("jupyter")})
	require.NoError(t, err)
	assert.True(t, tmpl.IsShared)
}

func TestInitInternalApps(t *testing.T) {
	f := newFixture()
	internal := sharedTemplate("vllm")
	internal.IsInternal = true
	f.addTemplate(t, internal)

	scriptedInstall(f, uuid.New())

	f.mgr.InitInternalApps(context.Background())

	apps, _ := f.store.ListApps(context.Background(), store.AppFilter{})
	require.Len(t, apps, 1)
	assert.Equal(t, "vllm", apps[0].LaunchpadAppName)

	// a second run sees the healthy instance and leaves it alone
	f.remote.getInstanceFn = healthyInstance()
	installsBefore := f.remote.installCalls
	f.mgr.InitInternalApps(context.Background())
	assert.Equal(t, installsBefore, f.remote.installCalls)
}

func TestInitInternalAppsReplacesDeadInstance(t *testing.T) {
	f := newFixture()
	internal := sharedTemplate("vllm")
	internal.IsInternal = true
	f.addTemplate(t, internal)

	dead := uuid.New()
	_, err := f.store.UpsertApp(context.Background(), &store.InstalledApp{
		AppID: dead, AppName: "vllm-1", LaunchpadAppName: "vllm", IsInternal: true, IsShared: true,
	})
	require.NoError(t, err)

	f.remote.getInstanceFn = func(_ context.Context, id uuid.UUID) (*appsapi.Instance, error) {
		return &appsapi.Instance{ID: id, State: "failed"}, nil
	}
	f.remote.deleteFn = func(context.Context, uuid.UUID) error { return nil }
	scriptedInstall(f, uuid.New())

	f.mgr.InitInternalApps(context.Background())

	assert.Equal(t, []uuid.UUID{dead}, f.remote.deleteCalls, "dead instance is torn down first")
	assert.Equal(t, 1, f.remote.installCalls, "then reinstalled")
}
