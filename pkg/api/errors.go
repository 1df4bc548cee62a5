package api

import (
	"errors"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/golang/glog"

	"launchpad/internal/appmgr"
	"launchpad/internal/gate"
	"launchpad/internal/registry"
	"launchpad/internal/store"
)

type ErrorType = string

const (
	ErrorNotFound            ErrorType = "not_found"
	ErrorConflict            ErrorType = "conflict"
	ErrorBadRequest          ErrorType = "bad_request"
	ErrorBadGateway          ErrorType = "bad_gateway"
	ErrorInvalidGrant        ErrorType = "invalid_grant"
	ErrorInternalServerError ErrorType = "internal_server_error"
)

// Error is the JSON error envelope every failed request gets.
type Error struct {
	Code             int    `json:"code"`
	ErrorType        string `json:"error_type"`
	ErrorDescription string `json:"error_description,omitempty"`
	// AppID is set when an app exists but is not serving yet, so callers
	// can poll or delete it.
	AppID string `json:"app_id,omitempty"`
}

func (e Error) Error() string {
	return e.ErrorDescription
}

// HandleError translates a domain error into its HTTP shape.
func HandleError(resp *restful.Response, err error) {
	glog.Errorf("request failed: %v", err)

	e := classify(err)
	_ = resp.WriteHeaderAndEntity(e.Code, e)
}

func classify(err error) Error {
	var unhealthy *appmgr.UnhealthyError
	if errors.As(err, &unhealthy) {
		return Error{
			Code:             http.StatusConflict,
			ErrorType:        ErrorConflict,
			ErrorDescription: err.Error(),
			AppID:            unhealthy.AppID.String(),
		}
	}

	var invalid *appmgr.InvalidRequestError
	var missingDep *registry.MissingDependencyError
	var unhealthyDep *registry.UnhealthyDependencyError
	var orchestrator *appmgr.OrchestratorError
	switch {
	case errors.Is(err, appmgr.ErrTemplateNotFound),
		errors.Is(err, appmgr.ErrNotInstalled),
		errors.Is(err, store.ErrNotFound):
		return Error{Code: http.StatusNotFound, ErrorType: ErrorNotFound, ErrorDescription: err.Error()}

	case errors.As(err, &invalid),
		errors.As(err, &missingDep),
		errors.As(err, &unhealthyDep):
		return Error{Code: http.StatusBadRequest, ErrorType: ErrorBadRequest, ErrorDescription: err.Error()}

	case errors.As(err, &orchestrator):
		return Error{Code: http.StatusBadGateway, ErrorType: ErrorBadGateway, ErrorDescription: err.Error()}

	case errors.Is(err, gate.ErrUnauthorized):
		return Error{Code: http.StatusUnauthorized, ErrorType: ErrorInvalidGrant, ErrorDescription: err.Error()}

	case errors.Is(err, gate.ErrForbidden):
		return Error{Code: http.StatusForbidden, ErrorType: ErrorInvalidGrant, ErrorDescription: err.Error()}
	}

	return Error{Code: http.StatusInternalServerError, ErrorType: ErrorInternalServerError, ErrorDescription: err.Error()}
}
