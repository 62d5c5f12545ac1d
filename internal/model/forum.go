package model

import (
	"context"
	"strings"
	"time"

	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

// DeletedCommentContent replaces the content of a tombstoned comment.
const DeletedCommentContent = "[deleted]"

// Category groups posts.
type Category struct {
	ID          int64     `json:"id" gorm:"primary_key"`
	Name        string    `json:"name" gorm:"type:varchar(100);unique_index;not null"`
	Slug        string    `json:"slug" gorm:"type:varchar(100);unique_index;not null"`
	Description string    `json:"description" gorm:"type:text"`
	SortOrder   int       `json:"order" gorm:"column:sort_order;not null"`
	Active      bool      `json:"isActive" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Post is a forum post. Posts are hard-deleted together with their comments.
type Post struct {
	ID         int64     `json:"id" gorm:"primary_key"`
	Title      string    `json:"title" gorm:"type:varchar(200);not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	Slug       string    `json:"slug" gorm:"type:varchar(255);unique_index"`
	AuthorID   int64     `json:"authorId" gorm:"index;not null"`
	CategoryID *int64    `json:"categoryId" gorm:"index"`
	ViewCount  int64     `json:"viewCount" gorm:"not null"`
	Published  bool      `json:"isPublished" gorm:"index;not null"`
	Pinned     bool      `json:"isPinned" gorm:"not null"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Comment is a reply to a post or to another comment. Deleted comments stay in
// place as tombstones so threads keep their shape.
type Comment struct {
	ID        int64     `json:"id" gorm:"primary_key"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	AuthorID  int64     `json:"authorId" gorm:"index;not null"`
	PostID    int64     `json:"postId" gorm:"index;not null"`
	ParentID  *int64    `json:"parentId" gorm:"index"`
	Active    bool      `json:"isActive" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tombstone marks the comment deleted without removing the row.
func (c *Comment) Tombstone() {
	c.Active = false
	c.Content = DeletedCommentContent
}

// Categories returns categories ordered for display.
func Categories(ctx context.Context, db db.DB, activeOnly bool) ([]*Category, error) {
	entries := make([]*Category, 0)
	if activeOnly {
		db = db.Where("active = ?", true)
	}
	err := db.Order("sort_order, name").Find(&entries).Error
	return entries, err
}

// CategoryByID returns a `Category` by id.
func CategoryByID(ctx context.Context, db db.DB, id int64) (*Category, error) {
	c := new(Category)
	err := db.Where("id = ?", id).First(c).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrRecordNotFound
	}
	return c, err
}

// CategoryTaken reports whether a category already uses name or slug.
func CategoryTaken(ctx context.Context, db db.DB, name, slug string) (bool, error) {
	var count int64
	err := db.Model(&Category{}).Where("name = ? OR slug = ?", name, slug).Count(&count).Error
	return count > 0, err
}

// PostFilter narrows a post listing.
type PostFilter struct {
	IncludeUnpublished bool
	CategoryID         *int64
	AuthorID           *int64
}

var _postAPIToDBFields = map[string]string{
	"createdAt": "created_at",
	"viewCount": "view_count",
	"title":     "title",
}

// Posts returns a page of posts, pinned first and newest next, and the total count.
func Posts(ctx context.Context, dbConn db.DB, params *util.APIParams, filter PostFilter) ([]*Post, int64, error) {
	var count int64
	entries := make([]*Post, 0)
	if params == nil {
		params = util.DefaultAPIParams()
	}
	// filters are applied explicitly below
	scoped := *params
	scoped.AndFilters = nil

	dbConn, countDB := db.QueryStatement(dbConn, "posts", &scoped, _postAPIToDBFields, "pinned DESC, created_at DESC, id DESC")
	narrow := func(q db.DB) db.DB {
		if !filter.IncludeUnpublished {
			q = q.Where("published = ?", true)
		}
		if filter.CategoryID != nil {
			q = q.Where("category_id = ?", *filter.CategoryID)
		}
		if filter.AuthorID != nil {
			q = q.Where("author_id = ?", *filter.AuthorID)
		}
		if params.Search != "" {
			term := "%" + strings.ToLower(params.Search) + "%"
			q = q.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", term, term)
		}
		return q
	}
	err := narrow(dbConn).Find(&entries).Error
	if err != nil {
		return entries, 0, err
	}
	err = narrow(countDB).Count(&count).Error
	return entries, count, err
}

// RecentPosts returns the newest published posts.
func RecentPosts(ctx context.Context, db db.DB, limit int) ([]*Post, error) {
	entries := make([]*Post, 0)
	err := db.Where("published = ?", true).Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// PostByID returns a `Post` by id.
func PostByID(ctx context.Context, db db.DB, id int64) (*Post, error) {
	p := new(Post)
	err := db.Where("id = ?", id).First(p).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrRecordNotFound
	}
	return p, err
}

// InsertPost stores a new post and derives its slug from the title and the new id.
func InsertPost(ctx context.Context, dbConn db.DB, p *Post) error {
	tx := dbConn.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := tx.Create(p).Error; err != nil {
		tx.Rollback()
		return errors.Wrap(err, "inserting post")
	}
	p.Slug = util.SlugWithID(p.Title, p.ID)
	if err := tx.Model(p).UpdateColumn("slug", p.Slug).Error; err != nil {
		tx.Rollback()
		return errors.Wrap(err, "setting post slug")
	}
	return tx.Commit().Error
}

// IncrementViewCount adds one to a post's view counter.
func IncrementViewCount(ctx context.Context, db db.DB, p *Post) error {
	err := db.Model(p).UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
	if err == nil {
		p.ViewCount++
	}
	return err
}

// DeletePost removes a post and every comment on it in one transaction.
func DeletePost(ctx context.Context, dbConn db.DB, id int64) error {
	tx := dbConn.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := tx.Where("post_id = ?", id).Delete(&Comment{}).Error; err != nil {
		tx.Rollback()
		return errors.Wrap(err, "deleting comments")
	}
	res := tx.Where("id = ?", id).Delete(&Post{})
	if res.Error != nil {
		tx.Rollback()
		return errors.Wrap(res.Error, "deleting post")
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return ErrRecordNotFound
	}
	return tx.Commit().Error
}

// CommentCounts returns the number of active comments per post id.
func CommentCounts(ctx context.Context, db db.DB, postIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}
	rows, err := db.Model(&Comment{}).
		Select("post_id, count(*)").
		Where("post_id IN (?) AND active = ?", postIDs, true).
		Group("post_id").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, n int64
		if err = rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// Usernames maps user ids to usernames.
func Usernames(ctx context.Context, db db.DB, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var users []User
	if err := db.Select("id, username").Where("id IN (?)", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names, nil
}

// CommentByID returns a `Comment` by id.
func CommentByID(ctx context.Context, db db.DB, id int64) (*Comment, error) {
	c := new(Comment)
	err := db.Where("id = ?", id).First(c).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrRecordNotFound
	}
	return c, err
}

// CommentsForPost returns the active comments of a post, oldest first.
func CommentsForPost(ctx context.Context, db db.DB, postID int64) ([]*Comment, error) {
	entries := make([]*Comment, 0)
	err := db.Where("post_id = ? AND active = ?", postID, true).Order("created_at, id").Find(&entries).Error
	return entries, err
}
