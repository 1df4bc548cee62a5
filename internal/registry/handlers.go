package registry

import (
	"context"
)

// Catalog names of the internal apps the chat UI depends on.
const (
	AppNameLLMInference = "vllm-llama-3.1-8b"
	AppNameEmbeddings   = "embeddings"
	AppNamePostgres     = "postgres"
	AppNameOpenWebUI    = "openwebui"
)

// OpenWebUIHandler wires a chat UI to its inference backend, embeddings
// service and vector database. All three must already be installed and
// healthy.
type OpenWebUIHandler struct{}

func (h *OpenWebUIHandler) Name() string { return "openwebui" }

func (h *OpenWebUIHandler) BuildInput(ctx context.Context, deps DependencyResolver, input map[string]interface{}) (map[string]interface{}, error) {
	llm, err := deps.ResolveDependency(ctx, AppNameLLMInference)
	if err != nil {
		return nil, err
	}
	embeddings, err := deps.ResolveDependency(ctx, AppNameEmbeddings)
	if err != nil {
		return nil, err
	}
	postgres, err := deps.ResolveDependency(ctx, AppNamePostgres)
	if err != nil {
		return nil, err
	}

	out := cloneInput(input)
	out["ingress_http"] = map[string]interface{}{"auth": true}
	out["llm_chat_api"] = instanceRef(llm, "$.chat_internal_api")
	out["embeddings_api"] = instanceRef(embeddings, "$.internal_api")
	out["pgvector_user"] = instanceRef(postgres, "$.postgres_users.users[1]")
	return out, nil
}

// ServiceDeploymentHandler injects the launchpad's auth ingress middleware
// reference into a plain service deployment, so its endpoints go through
// the authorize hook.
type ServiceDeploymentHandler struct {
	AuthMiddlewareName string
}

func (h *ServiceDeploymentHandler) Name() string { return "service-deployment" }

func (h *ServiceDeploymentHandler) BuildInput(ctx context.Context, deps DependencyResolver, input map[string]interface{}) (map[string]interface{}, error) {
	out := cloneInput(input)
	middleware := map[string]interface{}{
		"networking_config": map[string]interface{}{
			"advanced_networking": map[string]interface{}{
				"ingress_middleware": map[string]interface{}{
					"name": h.AuthMiddlewareName,
				},
			},
		},
	}
	return deepMerge(out, middleware), nil
}

func cloneInput(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// deepMerge overlays src onto dst, merging nested maps key by key and
// overwriting everything else.
func deepMerge(dst, src map[string]interface{}) map[string]interface{} {
	for k, v := range src {
		if dv, ok := dst[k].(map[string]interface{}); ok {
			if sv, ok := v.(map[string]interface{}); ok {
				dst[k] = deepMerge(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}
