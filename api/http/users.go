package http

import (
	"net/http"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/util"
)

func (handler *APIHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	params, err := apiParams(r, "listUsers")
	if err != nil {
		badRequest(r, err, "parsing params")
		return
	}
	list, count, err := handler.users.Users(r.Context(), params)
	if err != nil {
		fail(r, err, "getting users")
		return
	}
	params.WritePaginationHeaders(w, count)
	util.JSONResponse(w, list, http.StatusOK)
}

func (handler *APIHandler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userID")
	if !ok {
		return
	}
	u, err := handler.users.User(r.Context(), PrincipalFromContext(r.Context()), id)
	if err != nil {
		fail(r, err, "getting user")
		return
	}
	util.JSONResponse(w, u, http.StatusOK)
}

func (handler *APIHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userID")
	if !ok {
		return
	}
	values, ok := decodeValues(r)
	if !ok {
		return
	}
	u, _, err := handler.users.UpdateUser(r.Context(), PrincipalFromContext(r.Context()), id, values)
	if err != nil {
		fail(r, err, "updating user")
		return
	}
	util.JSONResponse(w, u, http.StatusOK)
}

func (handler *APIHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userID")
	if !ok {
		return
	}
	if err := handler.users.DeleteUser(r.Context(), PrincipalFromContext(r.Context()), id); err != nil {
		fail(r, err, "deleting user")
		return
	}
	noContent(w)
}

func (handler *APIHandler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userID")
	if !ok {
		return
	}
	u, err := handler.users.DeactivateUser(r.Context(), PrincipalFromContext(r.Context()), id)
	if err != nil {
		fail(r, err, "deactivating user")
		return
	}
	util.JSONResponse(w, u, http.StatusOK)
}

func (handler *APIHandler) setRole(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userID")
	if !ok {
		return
	}
	var req apimodel.RoleRequest
	if !decodeBody(r, &req) {
		return
	}
	u, err := handler.users.SetRole(r.Context(), PrincipalFromContext(r.Context()), id, req.Role)
	if err != nil {
		fail(r, err, "setting role")
		return
	}
	util.JSONResponse(w, u, http.StatusOK)
}

func (handler *APIHandler) userLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "userID")
	if !ok {
		return
	}
	logs, err := handler.users.Logs(r.Context(), PrincipalFromContext(r.Context()), id, limitParam(r))
	if err != nil {
		fail(r, err, "getting logs")
		return
	}
	util.JSONResponse(w, logs, http.StatusOK)
}
