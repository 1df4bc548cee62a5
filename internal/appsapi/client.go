package appsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang/glog"
	"github.com/google/uuid"

	"launchpad/internal/conf"
)

var (
	// ErrNotFound maps a 404 from the apps api.
	ErrNotFound = errors.New("appsapi: not found")
	// ErrServerError maps a 500 from the apps api.
	ErrServerError = errors.New("appsapi: server error")
)

// APIError is any other non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("appsapi: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the apps api scoped to one cluster/org/project. It is the
// source of truth for instance runtime state; this side only tracks it.
type Client struct {
	http    *resty.Client
	baseURL string
	cluster string
	org     string
	project string
}

func NewClient(cfg conf.AppsAPIConfig) *Client {
	c := resty.New().
		SetTimeout(30 * time.Second).
		SetAuthToken(cfg.Token).
		SetHeader("Accept", "application/json")

	return &Client{
		http:    c,
		baseURL: cfg.URL,
		cluster: cfg.Cluster,
		org:     cfg.Org,
		project: cfg.Project,
	}
}

func (c *Client) v1URL(path string, args ...interface{}) string {
	prefix := fmt.Sprintf("%s/v1/cluster/%s/org/%s/project/%s", c.baseURL, c.cluster, c.org, c.project)
	return prefix + fmt.Sprintf(path, args...)
}

func (c *Client) v2URL(path string, args ...interface{}) string {
	return c.baseURL + "/v2" + fmt.Sprintf(path, args...)
}

// Install asks the apps api to provision a new instance.
func (c *Client) Install(ctx context.Context, req *InstallRequest) (*Instance, error) {
	var out Instance
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(c.v1URL("/instances"))
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	glog.Infof("installed instance %s (template %s:%s, state %s)",
		out.ID, req.TemplateName, req.TemplateVersion, out.State)
	return &out, nil
}

// Delete uninstalls an instance. A 404 surfaces as ErrNotFound; callers
// treat it as success since the instance is gone either way.
func (c *Client) Delete(ctx context.Context, appID uuid.UUID) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(c.v1URL("/instances/%s", appID))
	return c.check(resp, err)
}

// GetInstance fetches the current runtime state of an instance.
func (c *Client) GetInstance(ctx context.Context, appID uuid.UUID) (*Instance, error) {
	var out Instance
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.v2URL("/instances/%s", appID))
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOutputs fetches the output document an instance has published.
func (c *Client) GetOutputs(ctx context.Context, appID uuid.UUID) (Outputs, error) {
	var out Outputs
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.v1URL("/instances/%s/output", appID))
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// GetInputs fetches the input document an instance was installed with.
func (c *Client) GetInputs(ctx context.Context, appID uuid.UUID) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.v1URL("/instances/%s/input", appID))
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOutputs replaces the output document of an instance.
func (c *Client) UpdateOutputs(ctx context.Context, appID uuid.UUID, outputs Outputs) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"output": outputs}).
		Post(c.v1URL("/instances/%s/output", appID))
	return c.check(resp, err)
}

// GetTemplate fetches catalog metadata for a template artifact.
func (c *Client) GetTemplate(ctx context.Context, name, version string) (*TemplateMetadata, error) {
	var out TemplateMetadata
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.v2URL("/templates/%s/%s", name, version))
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInstances lists instances in the project, optionally filtered by
// state.
func (c *Client) ListInstances(ctx context.Context, page, size int, states ...string) (*InstancePage, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("cluster", c.cluster).
		SetQueryParam("org", c.org).
		SetQueryParam("project", c.project).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("size", strconv.Itoa(size))
	for _, s := range states {
		req.SetQueryParam("states", s)
	}

	var out InstancePage
	resp, err := req.SetResult(&out).Get(c.v2URL("/instances"))
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("appsapi: request failed: %w", err)
	}

	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode() == http.StatusInternalServerError:
		glog.Errorf("apps api server error: %s", resp.String())
		return ErrServerError
	default:
		glog.Errorf("apps api bad response %d: %s", resp.StatusCode(), resp.String())
		return &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
}

// DecodeOutputs re-decodes an arbitrary outputs subtree into a typed value.
func DecodeOutputs(src interface{}, dst interface{}) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
