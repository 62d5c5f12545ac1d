package http

import (
	"net/http"

	"github.com/corkboard-io/corkboard/internal/util"
)

func (handler *APIHandler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := handler.dashboard.Stats(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		fail(r, err, "getting dashboard")
		return
	}
	util.JSONResponse(w, stats, http.StatusOK)
}

func (handler *APIHandler) adminDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := handler.dashboard.AdminStats(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		fail(r, err, "getting admin dashboard")
		return
	}
	util.JSONResponse(w, stats, http.StatusOK)
}

func (handler *APIHandler) recentPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := handler.dashboard.RecentPosts(r.Context(), limitParam(r))
	if err != nil {
		fail(r, err, "getting recent posts")
		return
	}
	util.JSONResponse(w, posts, http.StatusOK)
}

func (handler *APIHandler) recentUsers(w http.ResponseWriter, r *http.Request) {
	users, err := handler.dashboard.RecentUsers(r.Context(), limitParam(r))
	if err != nil {
		fail(r, err, "getting recent users")
		return
	}
	util.JSONResponse(w, users, http.StatusOK)
}
