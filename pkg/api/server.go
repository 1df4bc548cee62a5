package api

import (
	"context"
	"fmt"
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/golang/glog"

	"launchpad/internal/appmgr"
	"launchpad/internal/conf"
	"launchpad/internal/gate"
)

type APIServer struct {
	Server *http.Server

	// RESTful Server
	container *restful.Container
}

func New(cfg conf.ServerConfig) *APIServer {
	return &APIServer{
		Server: &http.Server{
			Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		},
	}
}

func (s *APIServer) PrepareRun(mgr *appmgr.Manager, gk *gate.Gatekeeper) error {
	s.container = restful.NewContainer()
	s.container.Filter(logRequestAndResponse)
	s.container.Router(restful.CurlyRouter{})
	s.container.RecoverHandler(func(panicReason interface{}, httpWriter http.ResponseWriter) {
		logStackOnRecover(panicReason, httpWriter)
	})

	if err := AddToContainer(s.container, mgr, gk); err != nil {
		return err
	}
	s.installAPIDocs()

	for _, ws := range s.container.RegisteredWebServices() {
		glog.Infof("registered module: %s", ws.RootPath())
	}

	s.Server.Handler = s.container
	return nil
}

func (s *APIServer) Run() error {
	glog.Infof("listening on %s", s.Server.Addr)
	return s.Server.ListenAndServe()
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}

func (s *APIServer) installAPIDocs() {
	config := restfulspec.Config{
		WebServices:                   s.container.RegisteredWebServices(),
		APIPath:                       "/launchpad/v1/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject}
	s.container.Add(restfulspec.NewOpenAPIService(config))

	cors := restful.CrossOriginResourceSharing{
		AllowedHeaders: []string{"Content-Type", "Accept", "Authorization"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		CookiesAllowed: false,
		Container:      s.container}
	s.container.Filter(cors.Filter)
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "Launchpad",
			Description: "Application lifecycle orchestration",
			Version:     "1.0.0",
		},
	}
	swo.Tags = []spec.Tag{{TagProps: spec.TagProps{
		Name:        "launchpad",
		Description: "App install, import and access control"}}}
	swo.Schemes = []string{"http", "https"}
}
