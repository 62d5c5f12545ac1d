package service

import (
	"context"
	"time"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// DefaultRecentLimit is the number of entries returned by the recent listings.
const DefaultRecentLimit = 5

// Dashboard defines the statistics service interface.
type Dashboard interface {
	Stats(context.Context, *model.Principal) (*apimodel.DashboardStats, error)
	AdminStats(context.Context, *model.Principal) (*apimodel.AdminDashboardStats, error)
	RecentPosts(context.Context, int) ([]*apimodel.Post, error)
	RecentUsers(context.Context, int) ([]*apimodel.RecentUser, error)

	Stop()
}

type dashboardService struct {
	Service
	forum *forumService
	now   func() time.Time
}

// NewDashboardService creates a new instance.
func NewDashboardService(ctx context.Context, options ...func(*Service) error) (Dashboard, error) {
	service := &dashboardService{
		Service: Service{
			name: "corkboard-dashboard-service",
		},
		now: time.Now,
	}
	if err := service.apply(options); err != nil {
		return nil, err
	}
	service.forum = &forumService{Service: service.Service}
	return service, nil
}

func (s *dashboardService) Stop() {
	s.Service.Stop()
}

// counter runs count queries and keeps every failure.
type counter struct {
	s   *dashboardService
	err error
}

func (c *counter) count(value interface{}, where string, args ...interface{}) int64 {
	var n int64
	q := c.s.db.Model(value)
	if where != "" {
		q = q.Where(where, args...)
	}
	c.err = multierr.Append(c.err, q.Count(&n).Error)
	return n
}

func (s *dashboardService) startOfDay() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

func (s *dashboardService) Stats(ctx context.Context, p *model.Principal) (*apimodel.DashboardStats, error) {
	today := s.startOfDay()
	c := &counter{s: s}
	stats := &apimodel.DashboardStats{
		TotalPosts:    c.count(&model.Post{}, "published = ?", true),
		TotalUsers:    c.count(&model.User{}, "active = ?", true),
		TotalComments: c.count(&model.Comment{}, "active = ?", true),
		PostsToday:    c.count(&model.Post{}, "published = ? AND created_at >= ?", true, today),
		UsersToday:    c.count(&model.User{}, "created_at >= ?", today),
		MyPosts:       c.count(&model.Post{}, "author_id = ?", p.ID),
		MyComments:    c.count(&model.Comment{}, "author_id = ? AND active = ?", p.ID, true),
	}
	if c.err != nil {
		return nil, errors.Wrap(c.err, "counting dashboard stats")
	}
	return stats, nil
}

func (s *dashboardService) AdminStats(ctx context.Context, p *model.Principal) (*apimodel.AdminDashboardStats, error) {
	today := s.startOfDay()
	c := &counter{s: s}
	stats := &apimodel.AdminDashboardStats{
		TotalPosts:       c.count(&model.Post{}, ""),
		TotalUsers:       c.count(&model.User{}, ""),
		TotalComments:    c.count(&model.Comment{}, ""),
		PostsToday:       c.count(&model.Post{}, "created_at >= ?", today),
		UsersToday:       c.count(&model.User{}, "created_at >= ?", today),
		MyPosts:          c.count(&model.Post{}, "author_id = ?", p.ID),
		MyComments:       c.count(&model.Comment{}, "author_id = ? AND active = ?", p.ID, true),
		ActiveUsers:      c.count(&model.User{}, "active = ?", true),
		InactiveUsers:    c.count(&model.User{}, "active = ?", false),
		UnpublishedPosts: c.count(&model.Post{}, "published = ?", false),
	}
	if c.err != nil {
		return nil, errors.Wrap(c.err, "counting admin dashboard stats")
	}
	return stats, nil
}

func recentLimit(limit int) int {
	if limit < 1 || limit > 50 {
		return DefaultRecentLimit
	}
	return limit
}

func (s *dashboardService) RecentPosts(ctx context.Context, limit int) ([]*apimodel.Post, error) {
	posts, err := model.RecentPosts(ctx, s.db, recentLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "listing recent posts")
	}
	return s.forum.decoratePosts(ctx, posts)
}

func (s *dashboardService) RecentUsers(ctx context.Context, limit int) ([]*apimodel.RecentUser, error) {
	var users []*model.User
	err := s.db.Order("created_at DESC, id DESC").Limit(recentLimit(limit)).Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing recent users")
	}
	result := make([]*apimodel.RecentUser, 0, len(users))
	for _, u := range users {
		result = append(result, &apimodel.RecentUser{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Role:      u.Role.String(),
			IsActive:  u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	return result, nil
}
