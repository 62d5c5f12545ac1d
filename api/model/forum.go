package model

import (
	internal "github.com/corkboard-io/corkboard/internal/model"
)

// CategoryCreateRequest adds a category. An empty Slug is derived from Name.
type CategoryCreateRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"max=100"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// PostCreateRequest adds a post. A nil IsPublished defaults to true.
type PostCreateRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Content     string `json:"content" validate:"required"`
	CategoryID  *int64 `json:"categoryId"`
	IsPublished *bool  `json:"isPublished"`
	IsPinned    bool   `json:"isPinned"`
}

// PostUpdateRequest changes a post. Nil fields are left untouched.
type PostUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content     *string `json:"content" validate:"omitempty,min=1"`
	CategoryID  *int64  `json:"categoryId"`
	IsPublished *bool   `json:"isPublished"`
	IsPinned    *bool   `json:"isPinned"`
}

// Post is a post with its author's name and the number of visible comments.
type Post struct {
	*internal.Post
	AuthorUsername string `json:"authorUsername"`
	CommentCount   int64  `json:"commentCount"`
}

// PostList is one page of posts.
type PostList struct {
	Items []*Post `json:"items"`
	Total int64   `json:"total"`
	Page  int64   `json:"page"`
	Size  int64   `json:"size"`
	Pages int64   `json:"pages"`
}

// CommentCreateRequest adds a comment, optionally as a reply.
type CommentCreateRequest struct {
	Content  string `json:"content" validate:"required"`
	ParentID *int64 `json:"parentId"`
}

// Comment is a comment with its author's name and its visible replies.
type Comment struct {
	*internal.Comment
	AuthorUsername string     `json:"authorUsername"`
	Replies        []*Comment `json:"replies"`
}
