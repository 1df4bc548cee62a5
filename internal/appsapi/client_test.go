package appsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/conf"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(conf.AppsAPIConfig{
		URL:     srv.URL,
		Token:   "test-token",
		Cluster: "c1",
		Org:     "o1",
		Project: "p1",
	})
}

func TestInstallScopedURL(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody InstallRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%q,"name":"chat-1","state":"queued"}`, uuid.New())
	})

	inst, err := client.Install(context.Background(), &InstallRequest{
		TemplateName:    "chat-chart",
		TemplateVersion: "v1.0.0",
		Input:           map[string]interface{}{"preset": "cpu-small"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/cluster/c1/org/o1/project/p1/instances", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "chat-chart", gotBody.TemplateName)
	assert.Equal(t, "queued", inst.State)
}

func TestGetInstanceUsesV2(t *testing.T) {
	appID := uuid.New()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/instances/"+appID.String(), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%q,"state":"healthy","template_name":"chat-chart"}`, appID)
	})

	inst, err := client.GetInstance(context.Background(), appID)
	require.NoError(t, err)
	assert.Equal(t, "healthy", inst.State)
	assert.Equal(t, "chat-chart", inst.TemplateName)
}

func TestDeleteErrorMapping(t *testing.T) {
	testCases := []struct {
		status   int
		expected error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusInternalServerError, ErrServerError},
	}

	for _, test := range testCases {
		status := test.status
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})

		err := client.Delete(context.Background(), uuid.New())
		assert.ErrorIs(t, err, test.expected)
	}
}

func TestDeleteUnknownStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	err := client.Delete(context.Background(), uuid.New())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestUpdateOutputsWrapsDocument(t *testing.T) {
	appID := uuid.New()
	var gotBody map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/cluster/c1/org/o1/project/p1/instances/"+appID.String()+"/output", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	err := client.UpdateOutputs(context.Background(), appID, Outputs{"k": "v"})
	require.NoError(t, err)

	output, ok := gotBody["output"].(map[string]interface{})
	require.True(t, ok, "document is posted under an output key")
	assert.Equal(t, "v", output["k"])
}

func TestListInstancesQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v2/instances", r.URL.Path)
		assert.Equal(t, "c1", q.Get("cluster"))
		assert.Equal(t, "o1", q.Get("org"))
		assert.Equal(t, "p1", q.Get("project"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "25", q.Get("size"))
		assert.Equal(t, "healthy", q.Get("states"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[],"total":0,"page":2,"size":25,"pages":0}`)
	})

	page, err := client.ListInstances(context.Background(), 2, 25, "healthy")
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
}

func TestGetTemplateMetadata(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/templates/chat-chart/v1.0.0", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"title":"Chat","short_description":"A chat app","tags":["ai"]}`)
	})

	md, err := client.GetTemplate(context.Background(), "chat-chart", "v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "Chat", md.Title)
	assert.Equal(t, []string{"ai"}, md.Tags)
}

func TestDecodeOutputs(t *testing.T) {
	src := map[string]interface{}{"host": "db.example.com", "port": float64(5432)}

	var dst struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}
	require.NoError(t, DecodeOutputs(src, &dst))
	assert.Equal(t, "db.example.com", dst.Host)
	assert.Equal(t, 5432, dst.Port)
}
