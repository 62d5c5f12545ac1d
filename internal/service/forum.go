package service

import (
	"context"
	"net/http"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/access"
	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Forum defines the categories, posts and comments service interface.
type Forum interface {
	Categories(context.Context) ([]*model.Category, error)
	AddCategory(context.Context, *apimodel.CategoryCreateRequest) (*model.Category, error)

	Posts(context.Context, *model.Principal, *util.APIParams, *int64) (*apimodel.PostList, error)
	Post(context.Context, *model.Principal, int64) (*apimodel.Post, error)
	AddPost(context.Context, *model.Principal, *apimodel.PostCreateRequest) (*apimodel.Post, error)
	UpdatePost(context.Context, *model.Principal, int64, *apimodel.PostUpdateRequest) (*apimodel.Post, error)
	DeletePost(context.Context, *model.Principal, int64) error

	Comments(context.Context, *model.Principal, int64) ([]*apimodel.Comment, error)
	AddComment(context.Context, *model.Principal, int64, *apimodel.CommentCreateRequest) (*apimodel.Comment, error)
	DeleteComment(context.Context, *model.Principal, int64) error

	Stop()
}

type forumService struct {
	Service
}

// NewForumService creates a new instance.
func NewForumService(ctx context.Context, options ...func(*Service) error) (Forum, error) {
	service := &forumService{
		Service: Service{
			name: "corkboard-forum-service",
		},
	}
	if err := service.apply(options); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *forumService) Stop() {
	s.Service.Stop()
}

// authorOrAdmin allows the author of a resource, and admins.
func authorOrAdmin(caller *model.Principal, authorID int64) error {
	if caller == nil {
		return access.ErrUnauthenticated
	}
	if caller.ID == authorID || caller.IsAdmin() {
		return nil
	}
	return ErrNotOwner
}

func isStaff(caller *model.Principal) bool {
	return caller != nil && access.Staff.Has(caller.Role)
}

func (s *forumService) Categories(ctx context.Context) ([]*model.Category, error) {
	return model.Categories(ctx, s.db, true)
}

func (s *forumService) AddCategory(ctx context.Context, req *apimodel.CategoryCreateRequest) (*model.Category, error) {
	if err := util.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	slug := util.Slugify(req.Slug)
	if slug == "" {
		slug = util.Slugify(req.Name)
	}
	if slug == "" {
		return nil, BadRequest("category name must contain letters or digits")
	}
	taken, err := model.CategoryTaken(ctx, s.db, req.Name, slug)
	if err != nil {
		return nil, errors.Wrap(err, "checking category")
	}
	if taken {
		return nil, BadRequest("category %s already exists", req.Name)
	}
	c := &model.Category{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		SortOrder:   req.Order,
		Active:      true,
	}
	if err = s.db.Create(c).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, BadRequest("category %s already exists", req.Name)
		}
		return nil, errors.Wrap(err, "inserting category")
	}
	return c, nil
}

// decoratePosts attaches author names and comment counts.
func (s *forumService) decoratePosts(ctx context.Context, posts []*model.Post) ([]*apimodel.Post, error) {
	ids := make([]int64, 0, len(posts))
	authorIDs := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		authorIDs = append(authorIDs, p.AuthorID)
	}
	counts, err := model.CommentCounts(ctx, s.db, ids)
	if err != nil {
		return nil, errors.Wrap(err, "counting comments")
	}
	names, err := model.Usernames(ctx, s.db, authorIDs)
	if err != nil {
		return nil, errors.Wrap(err, "loading authors")
	}
	result := make([]*apimodel.Post, 0, len(posts))
	for _, p := range posts {
		result = append(result, &apimodel.Post{
			Post:           p,
			AuthorUsername: names[p.AuthorID],
			CommentCount:   counts[p.ID],
		})
	}
	return result, nil
}

func (s *forumService) decoratePost(ctx context.Context, p *model.Post) (*apimodel.Post, error) {
	posts, err := s.decoratePosts(ctx, []*model.Post{p})
	if err != nil {
		return nil, err
	}
	return posts[0], nil
}

func (s *forumService) Posts(ctx context.Context, caller *model.Principal, params *util.APIParams, categoryID *int64) (*apimodel.PostList, error) {
	if params == nil {
		params = util.DefaultAPIParams()
	}
	filter := model.PostFilter{
		IncludeUnpublished: caller != nil && caller.IsAdmin(),
		CategoryID:         categoryID,
	}
	posts, total, err := model.Posts(ctx, s.db, params, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing posts")
	}
	items, err := s.decoratePosts(ctx, posts)
	if err != nil {
		return nil, err
	}
	return &apimodel.PostList{
		Items: items,
		Total: total,
		Page:  params.Page,
		Size:  params.Limit,
		Pages: params.Pages(total),
	}, nil
}

// visiblePost returns a post the caller may read. Unpublished posts exist only for
// their author and admins.
func (s *forumService) visiblePost(ctx context.Context, caller *model.Principal, id int64) (*model.Post, error) {
	p, err := model.PostByID(ctx, s.db, id)
	if err == model.ErrRecordNotFound {
		return nil, NotFound("post")
	}
	if err != nil {
		return nil, err
	}
	if !p.Published && authorOrAdmin(caller, p.AuthorID) != nil {
		return nil, NotFound("post")
	}
	return p, nil
}

func (s *forumService) Post(ctx context.Context, caller *model.Principal, id int64) (*apimodel.Post, error) {
	p, err := s.visiblePost(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err = model.IncrementViewCount(ctx, s.db, p); err != nil {
		log.WithError(err).WithField("post_id", p.ID).Warning("Incrementing view count")
	}
	return s.decoratePost(ctx, p)
}

func (s *forumService) categoryExists(ctx context.Context, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	_, err := model.CategoryByID(ctx, s.db, *categoryID)
	if err == model.ErrRecordNotFound {
		return NotFound("category")
	}
	return err
}

func (s *forumService) AddPost(ctx context.Context, caller *model.Principal, req *apimodel.PostCreateRequest) (*apimodel.Post, error) {
	if err := util.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	if err := s.categoryExists(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	p := &model.Post{
		Title:      req.Title,
		Content:    req.Content,
		AuthorID:   caller.ID,
		CategoryID: req.CategoryID,
		Published:  true,
		Pinned:     req.IsPinned && isStaff(caller),
	}
	if req.IsPublished != nil {
		p.Published = *req.IsPublished
	}
	if err := model.InsertPost(ctx, s.db, p); err != nil {
		return nil, err
	}
	return s.decoratePost(ctx, p)
}

func (s *forumService) UpdatePost(ctx context.Context, caller *model.Principal, id int64, req *apimodel.PostUpdateRequest) (*apimodel.Post, error) {
	if err := util.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	p, err := model.PostByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err = authorOrAdmin(caller, p.AuthorID); err != nil {
		return nil, err
	}
	if req.IsPinned != nil && !isStaff(caller) {
		return nil, NewAPIError(http.StatusForbidden, access.ErrForbidden, "pinning post")
	}
	if err = s.categoryExists(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Content != nil {
		p.Content = *req.Content
	}
	if req.CategoryID != nil {
		p.CategoryID = req.CategoryID
	}
	if req.IsPublished != nil {
		p.Published = *req.IsPublished
	}
	if req.IsPinned != nil {
		p.Pinned = *req.IsPinned
	}
	if err = s.db.Save(p).Error; err != nil {
		return nil, errors.Wrap(err, "saving post")
	}
	return s.decoratePost(ctx, p)
}

func (s *forumService) DeletePost(ctx context.Context, caller *model.Principal, id int64) error {
	p, err := model.PostByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if err = authorOrAdmin(caller, p.AuthorID); err != nil {
		return err
	}
	return model.DeletePost(ctx, s.db, id)
}

// Comments returns the visible top-level comments of a post with their replies
// nested. Replies to a deleted comment are hidden along with it. Comments of an
// unpublished post are as hidden as the post itself.
func (s *forumService) Comments(ctx context.Context, caller *model.Principal, postID int64) ([]*apimodel.Comment, error) {
	if _, err := s.visiblePost(ctx, caller, postID); err != nil {
		return nil, err
	}
	comments, err := model.CommentsForPost(ctx, s.db, postID)
	if err != nil {
		return nil, errors.Wrap(err, "listing comments")
	}
	authorIDs := make([]int64, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.AuthorID)
	}
	names, err := model.Usernames(ctx, s.db, authorIDs)
	if err != nil {
		return nil, errors.Wrap(err, "loading authors")
	}

	views := make(map[int64]*apimodel.Comment, len(comments))
	for _, c := range comments {
		views[c.ID] = &apimodel.Comment{
			Comment:        c,
			AuthorUsername: names[c.AuthorID],
			Replies:        make([]*apimodel.Comment, 0),
		}
	}
	roots := make([]*apimodel.Comment, 0)
	// comments arrive oldest first, so appending keeps replies in order
	for _, c := range comments {
		view := views[c.ID]
		if c.ParentID == nil {
			roots = append(roots, view)
			continue
		}
		if parent, ok := views[*c.ParentID]; ok {
			parent.Replies = append(parent.Replies, view)
		}
	}
	return roots, nil
}

func (s *forumService) AddComment(ctx context.Context, caller *model.Principal, postID int64, req *apimodel.CommentCreateRequest) (*apimodel.Comment, error) {
	if err := util.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.visiblePost(ctx, caller, postID); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		parent, err := model.CommentByID(ctx, s.db, *req.ParentID)
		if err == model.ErrRecordNotFound || (err == nil && (parent.PostID != postID || !parent.Active)) {
			return nil, NotFound("parent comment")
		}
		if err != nil {
			return nil, err
		}
	}
	c := &model.Comment{
		Content:  req.Content,
		AuthorID: caller.ID,
		PostID:   postID,
		ParentID: req.ParentID,
		Active:   true,
	}
	if err := s.db.Create(c).Error; err != nil {
		return nil, errors.Wrap(err, "inserting comment")
	}
	return &apimodel.Comment{
		Comment:        c,
		AuthorUsername: caller.Username,
		Replies:        make([]*apimodel.Comment, 0),
	}, nil
}

func (s *forumService) DeleteComment(ctx context.Context, caller *model.Principal, id int64) error {
	c, err := model.CommentByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !c.Active {
		return NotFound("comment")
	}
	if err = authorOrAdmin(caller, c.AuthorID); err != nil {
		return err
	}
	c.Tombstone()
	return s.db.Model(c).Updates(map[string]interface{}{
		"active":  c.Active,
		"content": c.Content,
	}).Error
}
