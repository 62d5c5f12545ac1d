package http

import (
	"net/http"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/util"
)

func (handler *APIHandler) availableThemes(w http.ResponseWriter, r *http.Request) {
	util.JSONResponse(w, handler.themes.Available(r.Context()), http.StatusOK)
}

func (handler *APIHandler) getTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := handler.themes.Theme(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		fail(r, err, "getting theme")
		return
	}
	util.JSONResponse(w, theme, http.StatusOK)
}

func (handler *APIHandler) updateTheme(w http.ResponseWriter, r *http.Request) {
	var req apimodel.ThemeUpdateRequest
	if !decodeBody(r, &req) {
		return
	}
	theme, err := handler.themes.UpdateTheme(r.Context(), PrincipalFromContext(r.Context()), &req)
	if err != nil {
		fail(r, err, "updating theme")
		return
	}
	util.JSONResponse(w, theme, http.StatusOK)
}
