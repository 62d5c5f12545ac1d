package model

import "time"

// DashboardStats are the counts shown to members.
type DashboardStats struct {
	TotalPosts    int64 `json:"totalPosts"`
	TotalUsers    int64 `json:"totalUsers"`
	TotalComments int64 `json:"totalComments"`
	PostsToday    int64 `json:"postsToday"`
	UsersToday    int64 `json:"usersToday"`
	MyPosts       int64 `json:"myPosts"`
	MyComments    int64 `json:"myComments"`
}

// AdminDashboardStats are the unfiltered counts shown to admins.
type AdminDashboardStats struct {
	TotalPosts       int64 `json:"totalPosts"`
	TotalUsers       int64 `json:"totalUsers"`
	TotalComments    int64 `json:"totalComments"`
	PostsToday       int64 `json:"postsToday"`
	UsersToday       int64 `json:"usersToday"`
	MyPosts          int64 `json:"myPosts"`
	MyComments       int64 `json:"myComments"`
	ActiveUsers      int64 `json:"activeUsers"`
	InactiveUsers    int64 `json:"inactiveUsers"`
	UnpublishedPosts int64 `json:"unpublishedPosts"`
}

// RecentUser is a newly registered account.
type RecentUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}
