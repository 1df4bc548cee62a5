package registry

import (
	"context"
	"fmt"

	"launchpad/internal/store"
)

// MissingDependencyError reports a required app that was never installed.
type MissingDependencyError struct {
	Name string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing required dependency: %s", e.Name)
}

// UnhealthyDependencyError reports a required app that is installed but not
// currently live.
type UnhealthyDependencyError struct {
	Name string
}

func (e *UnhealthyDependencyError) Error() string {
	return fmt.Sprintf("dependent app is not healthy: %s", e.Name)
}

// DependencyResolver looks up an already-installed app by its catalog name,
// health-checked. Implemented by the app manager.
type DependencyResolver interface {
	ResolveDependency(ctx context.Context, name string) (*store.InstalledApp, error)
}

// Handler transforms the merged install input of a template before it is
// sent to the apps api. Handlers are looked up by the template's
// handler_class; templates without one pass their input through unchanged.
type Handler interface {
	Name() string
	BuildInput(ctx context.Context, deps DependencyResolver, input map[string]interface{}) (map[string]interface{}, error)
}

// Registry is the closed set of known handlers, built once at startup.
// Unknown handler classes are rejected at template import time.
type Registry struct {
	handlers map[string]Handler
}

// New constructs the registry with every built-in handler registered.
func New(authMiddlewareName string) *Registry {
	r := &Registry{handlers: map[string]Handler{}}
	r.register(&OpenWebUIHandler{})
	r.register(&ServiceDeploymentHandler{AuthMiddlewareName: authMiddlewareName})
	return r
}

func (r *Registry) register(h Handler) {
	r.handlers[h.Name()] = h
}

// Get returns the handler for a class name.
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Known reports whether a handler class is registered.
func (r *Registry) Known(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// instanceRef builds a typed cross-reference the apps api resolves at
// runtime against another instance's outputs.
func instanceRef(app *store.InstalledApp, path string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "app-instance-ref",
		"instance_id": app.AppID.String(),
		"path":        path,
	}
}
