package appmgr

import (
	"context"
	"fmt"
	"sort"

	"github.com/golang/glog"

	"launchpad/internal/appsapi"
	"launchpad/internal/store"
)

// States in which the remote side considers an instance alive or on its
// way up. Not yet ready is not the same as failed.
var healthyStates = map[string]struct{}{
	"queued":      {},
	"progressing": {},
	"healthy":     {},
}

// isHealthy asks the apps api for the instance's current state. A missing
// instance or any remote failure counts as unhealthy; the remote being
// flaky must never take this service down.
func (m *Manager) isHealthy(ctx context.Context, app *store.InstalledApp) bool {
	inst, err := m.remote.GetInstance(ctx, app.AppID)
	if err != nil {
		glog.V(2).Infof("health check for %s failed: %v", app.AppID, err)
		return false
	}
	_, ok := healthyStates[inst.State]
	return ok
}

// backfillURLs discovers the app's endpoints from its published outputs and
// persists them. The primary url comes from the declared external web app
// marker; secondary endpoints are every other externally reachable service
// found in the document.
func (m *Manager) backfillURLs(ctx context.Context, app *store.InstalledApp) (*store.InstalledApp, error) {
	outputs, err := m.remote.GetOutputs(ctx, app.AppID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outputs: %w", err)
	}

	primary, external := DiscoverEndpoints(outputs)
	if primary == nil && len(external) == 0 {
		return nil, fmt.Errorf("app %s has not published any external endpoint yet", app.AppID)
	}

	return m.store.UpdateAppURLs(ctx, app.AppID, primary, external)
}

// DiscoverEndpoints scans an output document for networked-service
// markers. The declared `external_web_app_url` is the primary endpoint;
// every other marker that is externally reachable contributes to the
// secondary list (which also contains the primary).
func DiscoverEndpoints(outputs appsapi.Outputs) (primary *string, external store.StringList) {
	seen := map[string]struct{}{}

	if marker, ok := outputs["external_web_app_url"].(map[string]interface{}); ok {
		if u := urlFromMarker(marker); u != "" {
			primary = &u
			seen[u] = struct{}{}
		}
	}

	collectExternalURLs(outputs, seen)

	external = make(store.StringList, 0, len(seen))
	for u := range seen {
		external = append(external, u)
	}
	sort.Strings(external)
	return primary, external
}

// collectExternalURLs walks the document looking for web-app markers
// reachable from outside the cluster: objects with a host that either sit
// under an `external_url` key or declare an https ingress.
func collectExternalURLs(node interface{}, seen map[string]struct{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, child := range v {
			if m, ok := child.(map[string]interface{}); ok {
				if key == "external_url" || key == "external_web_app_url" || isExternalMarker(m) {
					if u := urlFromMarker(m); u != "" {
						seen[u] = struct{}{}
					}
				}
			}
			collectExternalURLs(child, seen)
		}
	case []interface{}:
		for _, child := range v {
			collectExternalURLs(child, seen)
		}
	}
}

func isExternalMarker(m map[string]interface{}) bool {
	proto, _ := m["protocol"].(string)
	_, hasHost := m["host"].(string)
	return hasHost && proto == "https"
}

// urlFromMarker composes a url from a {host, port, protocol, base_path}
// marker. Default ports are omitted.
func urlFromMarker(m map[string]interface{}) string {
	host, _ := m["host"].(string)
	if host == "" {
		return ""
	}

	proto, _ := m["protocol"].(string)
	if proto == "" {
		proto = "https"
	}

	url := proto + "://" + host
	if port, ok := m["port"].(float64); ok {
		p := int(port)
		if !(proto == "https" && p == 443) && !(proto == "http" && p == 80) {
			url = fmt.Sprintf("%s:%d", url, p)
		}
	}
	return url
}
