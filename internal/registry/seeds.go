package registry

import "launchpad/internal/store"

// Presets names the compute presets the built-in internal apps run on.
type Presets struct {
	LLMInference string
	Embeddings   string
	Postgres     string
}

func strptr(s string) *string { return &s }

// SeedTemplates returns the built-in template set: the three internal apps
// the chat UI depends on, plus the chat UI itself. Upserted into the
// template store on startup.
func SeedTemplates(p Presets) []store.AppTemplate {
	return []store.AppTemplate{
		{
			Name:            AppNameLLMInference,
			TemplateName:    "llm-inference",
			TemplateVersion: "v25.7.1",
			VerboseName:     "LLM Inference",
			IsInternal:      true,
			IsShared:        true,
			Input: store.InputMap{
				"ingress_http": nil,
				"hugging_face_model": map[string]interface{}{
					"hf_token":      map[string]interface{}{"key": "HF_TOKEN"},
					"model_hf_name": "meta-llama/Llama-3.1-8B-Instruct",
				},
				"tokenizer_hf_name": "meta-llama/Llama-3.1-8B-Instruct",
				"cache_config":      nil,
				"displayName":       AppNameLLMInference,
				"preset":            map[string]interface{}{"name": p.LLMInference},
				"server_extra_args": []interface{}{},
				"extra_env_vars":    []interface{}{},
			},
		},
		{
			Name:            AppNameEmbeddings,
			TemplateName:    "text-embeddings-inference",
			TemplateVersion: "v25.7.0",
			VerboseName:     "Text Embeddings",
			IsInternal:      true,
			IsShared:        true,
			Input: store.InputMap{
				"ingress_http": nil,
				"model": map[string]interface{}{
					"hf_token":      map[string]interface{}{"key": "HF_TOKEN"},
					"model_hf_name": "BAAI/bge-m3",
				},
				"displayName":       AppNameEmbeddings,
				"preset":            map[string]interface{}{"name": p.Embeddings},
				"server_extra_args": []interface{}{},
				"extra_env_vars":    []interface{}{},
			},
		},
		{
			Name:            AppNamePostgres,
			TemplateName:    "postgres",
			TemplateVersion: "v25.5.0",
			VerboseName:     "PostgreSQL",
			IsInternal:      true,
			IsShared:        true,
			Input: store.InputMap{
				"postgres_config": map[string]interface{}{
					"postgres_version":  "16",
					"instance_replicas": 1,
					"instance_size":     1,
					"db_users": []interface{}{
						map[string]interface{}{"name": "user", "db_names": []interface{}{"openwebui"}},
					},
				},
				"pg_bouncer":  map[string]interface{}{"replicas": 1, "preset": map[string]interface{}{"name": p.Postgres}},
				"backup":      map[string]interface{}{"enable": false},
				"displayName": AppNamePostgres,
				"preset":      map[string]interface{}{"name": p.Postgres},
			},
		},
		{
			Name:             AppNameOpenWebUI,
			TemplateName:     "openwebui",
			TemplateVersion:  "v25.7.0",
			VerboseName:      "OpenWebUI",
			DescriptionShort: "Chat UI for the built-in inference stack",
			IsInternal:       false,
			IsShared:         true,
			HandlerClass:     strptr("openwebui"),
			Input: store.InputMap{
				"displayName":        AppNameOpenWebUI,
				"preset":             map[string]interface{}{"name": "cpu-medium"},
				"openwebui_specific": map[string]interface{}{"env": []interface{}{}},
			},
		},
	}
}
