package appsapi

import "github.com/google/uuid"

// InstallRequest is the payload of an instance install call.
type InstallRequest struct {
	TemplateName    string                 `json:"template_name"`
	TemplateVersion string                 `json:"template_version"`
	Input           map[string]interface{} `json:"input"`
}

// Instance is the apps api view of one running (or pending) app instance.
type Instance struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	State           string    `json:"state"`
	TemplateName    string    `json:"template_name,omitempty"`
	TemplateVersion string    `json:"template_version,omitempty"`
	DisplayName     string    `json:"display_name,omitempty"`
}

// TemplateMetadata is the catalog metadata the apps api publishes for a
// template artifact.
type TemplateMetadata struct {
	Name              string              `json:"name"`
	Version           string              `json:"version"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	ShortDescription  string              `json:"short_description"`
	Logo              string              `json:"logo"`
	Tags              []string            `json:"tags"`
	DocumentationURLs []map[string]string `json:"documentation_urls"`
	ExternalURLs      []map[string]string `json:"external_urls"`
}

// InstancePage is one page of a paginated instance listing.
type InstancePage struct {
	Items []Instance `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
	Pages int        `json:"pages"`
}

// Outputs is an app's published output document. Shape is app-specific;
// callers scan it for the markers they need.
type Outputs map[string]interface{}
