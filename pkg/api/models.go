package api

import (
	"launchpad/internal/appsapi"
	"launchpad/internal/store"
)

type ResponseBase struct {
	Code int    `json:"code"`
	Msg  string `json:"message,omitempty"`
}

var responseOK = ResponseBase{Code: 200, Msg: "success"}

type AppResponse struct {
	ResponseBase
	Data *store.InstalledApp `json:"data"`
}

type AppListResponse struct {
	ResponseBase
	Data AppListData `json:"data"`
}

type AppListData struct {
	Items      []store.InstalledApp `json:"items"`
	TotalItems int                  `json:"totalItems"`
}

type TemplateResponse struct {
	ResponseBase
	Data *store.AppTemplate `json:"data"`
}

type TemplateListResponse struct {
	ResponseBase
	Data TemplateListData `json:"data"`
}

type TemplateListData struct {
	Items      []store.AppTemplate `json:"items"`
	TotalItems int                 `json:"totalItems"`
}

type InstancePageResponse struct {
	ResponseBase
	Data *appsapi.InstancePage `json:"data"`
}
