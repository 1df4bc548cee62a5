package api

import (
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"

	"launchpad/internal/appmgr"
	"launchpad/internal/gate"
)

const (
	APIRootPath     = "/launchpad"
	Version         = "v1"
	ParamAppName    = "name"
	ParamAppID      = "app_id"
	ParamTemplateID = "id"
)

var ModuleTags = []string{"launchpad"}

func newWebService() *restful.WebService {
	webservice := restful.WebService{}

	webservice.Path(APIRootPath + "/" + Version).
		Produces(restful.MIME_JSON)

	return &webservice
}

func AddToContainer(c *restful.Container, mgr *appmgr.Manager, gk *gate.Gatekeeper) error {
	ws := newWebService()
	handler := newHandler(mgr, gk)

	ws.Route(ws.POST("/apps/{"+ParamAppName+"}").
		To(handler.installByName).
		Doc("install an app from the catalog, or return it when already running").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Param(ws.PathParameter(ParamAppName, "catalog name of the app")).
		Returns(http.StatusOK, "app is installed and healthy", &AppResponse{}).
		Returns(http.StatusConflict, "app exists but is not serving yet", &Error{}).
		Returns(http.StatusNotFound, "no such template", &Error{}))

	ws.Route(ws.GET("/apps").
		To(handler.listPool).
		Doc("list the installable catalog").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Param(ws.QueryParameter("page", "page")).
		Param(ws.QueryParameter("size", "size")).
		Returns(http.StatusOK, "success to list the catalog", &TemplateListResponse{}))

	ws.Route(ws.POST("/apps/install").
		To(handler.install).
		Doc("import a template definition and install it in one step").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Reads(appmgr.InstallGenericRequest{}).
		Returns(http.StatusOK, "app installed", &AppResponse{}))

	ws.Route(ws.POST("/apps/import").
		To(handler.importApp).
		Doc("adopt an app that was installed out-of-band").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Reads(appmgr.ImportAppRequest{}).
		Returns(http.StatusOK, "app imported", &AppResponse{}))

	ws.Route(ws.POST("/apps/templates/import").
		To(handler.importTemplate).
		Doc("create or update a template definition").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Reads(appmgr.ImportTemplateRequest{}).
		Returns(http.StatusOK, "template upserted", &TemplateResponse{}))

	ws.Route(ws.GET("/apps/instances").
		To(handler.listInstances).
		Doc("list every tracked installation").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Param(ws.QueryParameter("launchpad_app_name", "filter by catalog name")).
		Returns(http.StatusOK, "success to list installations", &AppListResponse{}))

	ws.Route(ws.GET("/apps/instances/unimported").
		To(handler.listUnimported).
		Doc("list healthy remote instances that have no local record").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Param(ws.QueryParameter("page", "page")).
		Param(ws.QueryParameter("size", "size")).
		Returns(http.StatusOK, "success to list unimported instances", &InstancePageResponse{}))

	ws.Route(ws.DELETE("/apps/templates/{"+ParamTemplateID+"}").
		To(handler.deleteTemplate).
		Doc("delete a template and every installation made from it").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Param(ws.PathParameter(ParamTemplateID, "template id")).
		Returns(http.StatusOK, "template and instances deleted", &ResponseBase{}))

	ws.Route(ws.DELETE("/apps/instances/{"+ParamAppID+"}").
		To(handler.deleteInstance).
		Doc("delete one installation").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Param(ws.PathParameter(ParamAppID, "remote app id")).
		Returns(http.StatusOK, "installation deleted", &ResponseBase{}))

	ws.Route(ws.GET("/auth/authorize").
		To(handler.authorize).
		Doc("forward-auth hook called by the ingress proxy").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Returns(http.StatusOK, "request allowed", &ResponseBase{}).
		Returns(http.StatusUnauthorized, "token missing or invalid", &Error{}).
		Returns(http.StatusForbidden, "caller may not reach this app", &Error{}))

	ws.Route(ws.GET("/ping").
		To(handler.ping).
		Doc("liveness probe").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Returns(http.StatusOK, "alive", &ResponseBase{}))

	c.Add(ws)
	return nil
}
