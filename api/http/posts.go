package http

import (
	"net/http"
	"strconv"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/pkg/errors"
)

func (handler *APIHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	list, err := handler.forum.Categories(r.Context())
	if err != nil {
		fail(r, err, "getting categories")
		return
	}
	util.JSONResponse(w, list, http.StatusOK)
}

func (handler *APIHandler) addCategory(w http.ResponseWriter, r *http.Request) {
	var req apimodel.CategoryCreateRequest
	if !decodeBody(r, &req) {
		return
	}
	c, err := handler.forum.AddCategory(r.Context(), &req)
	if err != nil {
		fail(r, err, "adding category")
		return
	}
	util.JSONResponse(w, c, http.StatusCreated)
}

func (handler *APIHandler) listPosts(w http.ResponseWriter, r *http.Request) {
	params, err := apiParams(r, "listPosts")
	if err != nil {
		badRequest(r, err, "parsing params")
		return
	}
	var categoryID *int64
	if v, ok := params.AndFilters["categoryId"].(string); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(r, errors.Wrap(err, "converting categoryId to integer"), "parsing params")
			return
		}
		categoryID = &id
	}
	list, err := handler.forum.Posts(r.Context(), PrincipalFromContext(r.Context()), params, categoryID)
	if err != nil {
		fail(r, err, "getting posts")
		return
	}
	params.WritePaginationHeaders(w, list.Total)
	util.JSONResponse(w, list, http.StatusOK)
}

func (handler *APIHandler) getPost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "postID")
	if !ok {
		return
	}
	post, err := handler.forum.Post(r.Context(), PrincipalFromContext(r.Context()), id)
	if err != nil {
		fail(r, err, "getting post")
		return
	}
	util.JSONResponse(w, post, http.StatusOK)
}

func (handler *APIHandler) addPost(w http.ResponseWriter, r *http.Request) {
	var req apimodel.PostCreateRequest
	if !decodeBody(r, &req) {
		return
	}
	post, err := handler.forum.AddPost(r.Context(), PrincipalFromContext(r.Context()), &req)
	if err != nil {
		fail(r, err, "adding post")
		return
	}
	util.JSONResponse(w, post, http.StatusCreated)
}

func (handler *APIHandler) updatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "postID")
	if !ok {
		return
	}
	var req apimodel.PostUpdateRequest
	if !decodeBody(r, &req) {
		return
	}
	post, err := handler.forum.UpdatePost(r.Context(), PrincipalFromContext(r.Context()), id, &req)
	if err != nil {
		fail(r, err, "updating post")
		return
	}
	util.JSONResponse(w, post, http.StatusOK)
}

func (handler *APIHandler) deletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "postID")
	if !ok {
		return
	}
	if err := handler.forum.DeletePost(r.Context(), PrincipalFromContext(r.Context()), id); err != nil {
		fail(r, err, "deleting post")
		return
	}
	noContent(w)
}

func (handler *APIHandler) listComments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "postID")
	if !ok {
		return
	}
	comments, err := handler.forum.Comments(r.Context(), PrincipalFromContext(r.Context()), id)
	if err != nil {
		fail(r, err, "getting comments")
		return
	}
	util.JSONResponse(w, comments, http.StatusOK)
}

func (handler *APIHandler) addComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "postID")
	if !ok {
		return
	}
	var req apimodel.CommentCreateRequest
	if !decodeBody(r, &req) {
		return
	}
	c, err := handler.forum.AddComment(r.Context(), PrincipalFromContext(r.Context()), id, &req)
	if err != nil {
		fail(r, err, "adding comment")
		return
	}
	util.JSONResponse(w, c, http.StatusCreated)
}

func (handler *APIHandler) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "commentID")
	if !ok {
		return
	}
	if err := handler.forum.DeleteComment(r.Context(), PrincipalFromContext(r.Context()), id); err != nil {
		fail(r, err, "deleting comment")
		return
	}
	noContent(w)
}
