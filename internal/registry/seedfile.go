package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"launchpad/internal/store"
)

type seedFile struct {
	Templates []seedTemplate `yaml:"templates"`
}

type seedTemplate struct {
	Name             string                 `yaml:"name"`
	TemplateName     string                 `yaml:"template_name"`
	TemplateVersion  string                 `yaml:"template_version"`
	VerboseName      string                 `yaml:"verbose_name"`
	DescriptionShort string                 `yaml:"description_short"`
	DescriptionLong  string                 `yaml:"description_long"`
	Logo             string                 `yaml:"logo"`
	Tags             []string               `yaml:"tags"`
	IsInternal       bool                   `yaml:"is_internal"`
	IsShared         *bool                  `yaml:"is_shared"`
	HandlerClass     *string                `yaml:"handler_class"`
	Input            map[string]interface{} `yaml:"input"`
}

// LoadSeedFile parses extra template definitions from a YAML file. Operators
// use it to extend the catalog beyond the built-in set without touching the
// API.
func LoadSeedFile(path string) ([]store.AppTemplate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	out := make([]store.AppTemplate, 0, len(f.Templates))
	for i, t := range f.Templates {
		if t.Name == "" || t.TemplateName == "" || t.TemplateVersion == "" {
			return nil, fmt.Errorf("seed template #%d: name, template_name and template_version are required", i)
		}
		shared := true
		if t.IsShared != nil {
			shared = *t.IsShared
		}
		out = append(out, store.AppTemplate{
			Name:             t.Name,
			TemplateName:     t.TemplateName,
			TemplateVersion:  t.TemplateVersion,
			VerboseName:      t.VerboseName,
			DescriptionShort: t.DescriptionShort,
			DescriptionLong:  t.DescriptionLong,
			Logo:             t.Logo,
			Tags:             store.StringList(t.Tags),
			IsInternal:       t.IsInternal,
			IsShared:         shared,
			HandlerClass:     t.HandlerClass,
			Input:            store.InputMap(t.Input),
		})
	}
	return out, nil
}
