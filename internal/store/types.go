package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Link is a labeled URL shown in the catalog (documentation, sources, ...)
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// LinkList is stored as a JSONB column
type LinkList []Link

func (l LinkList) Value() (driver.Value, error) {
	if l == nil {
		l = LinkList{}
	}
	return json.Marshal(l)
}

func (l *LinkList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// StringList is stored as a JSONB column
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// InputMap holds template default inputs / merged install inputs as JSONB
type InputMap map[string]interface{}

func (m InputMap) Value() (driver.Value, error) {
	if m == nil {
		m = InputMap{}
	}
	return json.Marshal(m)
}

func (m *InputMap) Scan(src interface{}) error {
	return scanJSON(src, m)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("store: cannot scan %T into JSON column", src)
	}
}

// AppTemplate is a reusable installable app definition. `name` is the
// public catalog key; `template_name`/`template_version` identify the
// artifact on the apps api.
type AppTemplate struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	TemplateName      string     `db:"template_name" json:"template_name"`
	TemplateVersion   string     `db:"template_version" json:"template_version"`
	VerboseName       string     `db:"verbose_name" json:"verbose_name"`
	DescriptionShort  string     `db:"description_short" json:"description_short"`
	DescriptionLong   string     `db:"description_long" json:"description_long"`
	Logo              string     `db:"logo" json:"logo"`
	DocumentationURLs LinkList   `db:"documentation_urls" json:"documentation_urls"`
	ExternalURLs      LinkList   `db:"external_urls" json:"external_urls"`
	Tags              StringList `db:"tags" json:"tags"`
	IsInternal        bool       `db:"is_internal" json:"is_internal"`
	IsShared          bool       `db:"is_shared" json:"is_shared"`
	HandlerClass      *string    `db:"handler_class" json:"handler_class,omitempty"`
	Input             InputMap   `db:"input" json:"input"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// InstalledApp is one tracked installation of a template. `app_id` is the
// id assigned by the apps api and is the source of truth for runtime state.
type InstalledApp struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	AppID            uuid.UUID  `db:"app_id" json:"app_id"`
	AppName          string     `db:"app_name" json:"app_name"`
	LaunchpadAppName string     `db:"launchpad_app_name" json:"launchpad_app_name"`
	IsInternal       bool       `db:"is_internal" json:"is_internal"`
	IsShared         bool       `db:"is_shared" json:"is_shared"`
	UserID           *string    `db:"user_id" json:"user_id"`
	URL              *string    `db:"url" json:"url"`
	ExternalURLs     StringList `db:"external_urls" json:"external_url_list"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// TemplateFilter narrows template selection. Nil fields are ignored.
type TemplateFilter struct {
	ID         *uuid.UUID
	Name       *string
	IsInternal *bool
}

// AppFilter narrows installed app selection. Nil fields are ignored.
type AppFilter struct {
	AppID            *uuid.UUID
	LaunchpadAppName *string
	IsInternal       *bool
	IsShared         *bool
	UserID           *string
	URL              *string
}
