package http

import (
	"net/http"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/util"
)

func (handler *APIHandler) menuTree(w http.ResponseWriter, r *http.Request) {
	tree, err := handler.menus.Tree(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		fail(r, err, "getting menus")
		return
	}
	util.JSONResponse(w, tree, http.StatusOK)
}

func (handler *APIHandler) allMenus(w http.ResponseWriter, r *http.Request) {
	list, err := handler.menus.All(r.Context())
	if err != nil {
		fail(r, err, "getting menus")
		return
	}
	util.JSONResponse(w, list, http.StatusOK)
}

func (handler *APIHandler) addMenu(w http.ResponseWriter, r *http.Request) {
	var req apimodel.MenuCreateRequest
	if !decodeBody(r, &req) {
		return
	}
	if err := util.ValidateStruct(&req); err != nil {
		badRequest(r, err, "adding menu")
		return
	}
	m, err := handler.menus.AddMenu(r.Context(), &req)
	if err != nil {
		fail(r, err, "adding menu")
		return
	}
	util.JSONResponse(w, m, http.StatusCreated)
}

func (handler *APIHandler) updateMenu(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "menuID")
	if !ok {
		return
	}
	values, ok := decodeValues(r)
	if !ok {
		return
	}
	m, _, err := handler.menus.UpdateMenu(r.Context(), id, values)
	if err != nil {
		fail(r, err, "updating menu")
		return
	}
	util.JSONResponse(w, m, http.StatusOK)
}

func (handler *APIHandler) deleteMenu(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "menuID")
	if !ok {
		return
	}
	if err := handler.menus.DeleteMenu(r.Context(), id); err != nil {
		fail(r, err, "deleting menu")
		return
	}
	noContent(w)
}

func (handler *APIHandler) initDefaultMenus(w http.ResponseWriter, r *http.Request) {
	tree, err := handler.menus.InitDefault(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		fail(r, err, "seeding menus")
		return
	}
	util.JSONResponse(w, tree, http.StatusOK)
}
