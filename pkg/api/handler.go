package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"

	"launchpad/internal/appmgr"
	"launchpad/internal/gate"
	"launchpad/internal/store"
)

const (
	// HeaderForwardedHost carries the original host on authorize hooks.
	HeaderForwardedHost = "X-Forwarded-Host"

	// Identity headers emitted on a successful authorize and trusted on
	// incoming API calls (the ingress proxy sets them).
	HeaderAuthEmail    = "X-Auth-Request-Email"
	HeaderAuthUsername = "X-Auth-Request-Username"
	HeaderAuthGroups   = "X-Auth-Request-Groups"
)

type Handler struct {
	mgr  *appmgr.Manager
	gate *gate.Gatekeeper
}

func newHandler(mgr *appmgr.Manager, gk *gate.Gatekeeper) *Handler {
	return &Handler{mgr: mgr, gate: gk}
}

// callerID returns the authenticated caller's email as injected by the
// ingress proxy. Empty for unauthenticated or internal calls.
func callerID(req *restful.Request) string {
	return req.HeaderParameter(HeaderAuthEmail)
}

func intQuery(req *restful.Request, name string, def int) int {
	raw := req.QueryParameter(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// installByName handles POST /apps/{name}: return the app when it is
// installed and healthy, install it when it is missing. Poll-safe, callers
// repeat the request until they get 200.
func (h *Handler) installByName(req *restful.Request, resp *restful.Response) {
	name := req.PathParameter(ParamAppName)
	ctx := req.Request.Context()
	user := callerID(req)

	var body struct {
		Inputs map[string]interface{} `json:"inputs"`
	}
	// body is optional
	_ = req.ReadEntity(&body)

	app, err := h.mgr.GetInstalledApp(ctx, name, user, true)
	if err == nil {
		_ = resp.WriteEntity(AppResponse{ResponseBase: responseOK, Data: app})
		return
	}
	if !errors.Is(err, appmgr.ErrNotInstalled) {
		HandleError(resp, err)
		return
	}

	app, err = h.mgr.InstallFromTemplate(ctx, name, body.Inputs, user)
	if err != nil {
		HandleError(resp, err)
		return
	}
	_ = resp.WriteEntity(AppResponse{ResponseBase: responseOK, Data: app})
}

// listPool handles GET /apps: the installable catalog (internal templates
// excluded).
func (h *Handler) listPool(req *restful.Request, resp *restful.Response) {
	templates, err := h.mgr.ListPool(req.Request.Context())
	if err != nil {
		HandleError(resp, err)
		return
	}

	total := len(templates)
	page := intQuery(req, "page", 1)
	size := intQuery(req, "size", 50)
	offset := (page - 1) * size
	if offset > total {
		offset = total
	}
	end := offset + size
	if end > total {
		end = total
	}

	_ = resp.WriteEntity(TemplateListResponse{
		ResponseBase: responseOK,
		Data:         TemplateListData{Items: templates[offset:end], TotalItems: total},
	})
}

// install handles POST /apps/install: upsert a template from the request
// body and install it in one step.
func (h *Handler) install(req *restful.Request, resp *restful.Response) {
	var body appmgr.InstallGenericRequest
	if err := req.ReadEntity(&body); err != nil {
		HandleError(resp, &appmgr.InvalidRequestError{Reason: "malformed request body"})
		return
	}

	app, err := h.mgr.InstallGeneric(req.Request.Context(), &body, callerID(req))
	if err != nil {
		HandleError(resp, err)
		return
	}
	_ = resp.WriteEntity(AppResponse{ResponseBase: responseOK, Data: app})
}

// importApp handles POST /apps/import: adopt an app installed directly on
// the apps api.
func (h *Handler) importApp(req *restful.Request, resp *restful.Response) {
	var body appmgr.ImportAppRequest
	if err := req.ReadEntity(&body); err != nil || body.AppID == uuid.Nil {
		HandleError(resp, &appmgr.InvalidRequestError{Reason: "app_id is required"})
		return
	}

	app, err := h.mgr.ImportApp(req.Request.Context(), &body)
	if err != nil {
		HandleError(resp, err)
		return
	}
	_ = resp.WriteEntity(AppResponse{ResponseBase: responseOK, Data: app})
}

// importTemplate handles POST /apps/templates/import.
func (h *Handler) importTemplate(req *restful.Request, resp *restful.Response) {
	var body appmgr.ImportTemplateRequest
	if err := req.ReadEntity(&body); err != nil {
		HandleError(resp, &appmgr.InvalidRequestError{Reason: "malformed request body"})
		return
	}

	tmpl, err := h.mgr.ImportTemplate(req.Request.Context(), &body)
	if err != nil {
		HandleError(resp, err)
		return
	}
	_ = resp.WriteEntity(TemplateResponse{ResponseBase: responseOK, Data: tmpl})
}

// listInstances handles GET /apps/instances: every tracked installation.
func (h *Handler) listInstances(req *restful.Request, resp *restful.Response) {
	f := store.AppFilter{}
	if name := req.QueryParameter("launchpad_app_name"); name != "" {
		f.LaunchpadAppName = &name
	}

	apps, err := h.mgr.ListInstalled(req.Request.Context(), f)
	if err != nil {
		HandleError(resp, err)
		return
	}
	_ = resp.WriteEntity(AppListResponse{
		ResponseBase: responseOK,
		Data:         AppListData{Items: apps, TotalItems: len(apps)},
	})
}

// listUnimported handles GET /apps/instances/unimported: healthy remote
// instances with no local record yet.
func (h *Handler) listUnimported(req *restful.Request, resp *restful.Response) {
	page := intQuery(req, "page", 1)
	size := intQuery(req, "size", 50)

	result, err := h.mgr.ListUnimportedInstances(req.Request.Context(), page, size)
	if err != nil {
		HandleError(resp, err)
		return
	}
	_ = resp.WriteEntity(InstancePageResponse{ResponseBase: responseOK, Data: result})
}

// deleteTemplate handles DELETE /apps/templates/{id}: cascade delete of a
// template and all its installations.
func (h *Handler) deleteTemplate(req *restful.Request, resp *restful.Response) {
	id, err := uuid.Parse(req.PathParameter(ParamTemplateID))
	if err != nil {
		HandleError(resp, &appmgr.InvalidRequestError{Reason: "invalid template id"})
		return
	}

	if err := h.mgr.DeleteTemplate(req.Request.Context(), id); err != nil {
		HandleError(resp, err)
		return
	}
	_ = resp.WriteEntity(responseOK)
}

// deleteInstance handles DELETE /apps/instances/{app_id}.
func (h *Handler) deleteInstance(req *restful.Request, resp *restful.Response) {
	appID, err := uuid.Parse(req.PathParameter(ParamAppID))
	if err != nil {
		HandleError(resp, &appmgr.InvalidRequestError{Reason: "invalid app id"})
		return
	}

	if err := h.mgr.Delete(req.Request.Context(), appID); err != nil {
		HandleError(resp, err)
		return
	}
	_ = resp.WriteEntity(responseOK)
}

// authorize handles GET /auth/authorize, the forward-auth hook the ingress
// proxy calls for every app request. On success the caller identity is
// returned in response headers for the proxy to copy upstream.
func (h *Handler) authorize(req *restful.Request, resp *restful.Response) {
	host := req.HeaderParameter(HeaderForwardedHost)
	bearer := strings.TrimPrefix(req.HeaderParameter("Authorization"), "Bearer ")

	identity, err := h.gate.Authorize(req.Request.Context(), host, bearer)
	if err != nil {
		HandleError(resp, err)
		return
	}

	resp.AddHeader(HeaderAuthEmail, identity.Email)
	resp.AddHeader(HeaderAuthUsername, identity.Username)
	resp.AddHeader(HeaderAuthGroups, strings.Join(identity.Groups, ","))
	_ = resp.WriteEntity(responseOK)
}

func (h *Handler) ping(_ *restful.Request, resp *restful.Response) {
	_ = resp.WriteEntity(responseOK)
}
