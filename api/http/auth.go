package http

import (
	"net/http"
	"strings"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/pkg/errors"
)

func (handler *APIHandler) register(w http.ResponseWriter, r *http.Request) {
	var req apimodel.RegisterRequest
	if !decodeBody(r, &req) {
		return
	}
	u, err := handler.auth.Register(r.Context(), &req)
	if err != nil {
		fail(r, err, "registering")
		return
	}
	util.JSONResponse(w, u, http.StatusCreated)
}

// loginRequest accepts a JSON body or an OAuth2 style password form.
func loginRequest(r *http.Request) (*apimodel.LoginRequest, error) {
	req := new(apimodel.LoginRequest)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return nil, errors.Wrap(err, "parsing form")
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	} else if err := util.DecodeJSONBody(r, req); err != nil {
		return nil, err
	}
	if err := util.ValidateStruct(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (handler *APIHandler) login(w http.ResponseWriter, r *http.Request) {
	req, err := loginRequest(r)
	if err != nil {
		badRequest(r, err, "")
		return
	}
	pair, _, err := handler.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(r, err, "logging in")
		return
	}
	util.JSONResponse(w, pair, http.StatusOK)
}

func (handler *APIHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req apimodel.RefreshRequest
	if !decodeBody(r, &req) {
		return
	}
	if err := util.ValidateStruct(&req); err != nil {
		badRequest(r, err, "")
		return
	}
	pair, err := handler.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		fail(r, err, "refreshing token")
		return
	}
	util.JSONResponse(w, pair, http.StatusOK)
}

func (handler *APIHandler) me(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	u, err := handler.users.User(r.Context(), p, p.ID)
	if err != nil {
		fail(r, err, "getting current user")
		return
	}
	util.JSONResponse(w, u, http.StatusOK)
}

func (handler *APIHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req apimodel.PasswordChangeRequest
	if !decodeBody(r, &req) {
		return
	}
	if err := handler.auth.ChangePassword(r.Context(), PrincipalFromContext(r.Context()), &req); err != nil {
		fail(r, err, "changing password")
		return
	}
	noContent(w)
}
