package model

import (
	"context"

	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

// Principal is the authenticated identity of a caller, a read view of a stored user.
type Principal struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Active   bool   `json:"isActive"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// PrincipalStore resolves principals from the users table.
type PrincipalStore struct {
	db db.DB
}

// NewPrincipalStore creates a PrincipalStore on top of a db connection.
func NewPrincipalStore(db db.DB) *PrincipalStore {
	return &PrincipalStore{db: db}
}

// PrincipalByID returns the current state of the principal with `id`. A missing
// principal is reported as ErrRecordNotFound; any other error is a store failure.
func (s *PrincipalStore) PrincipalByID(ctx context.Context, id int64) (*Principal, error) {
	u := new(User)
	err := s.db.Select("id, username, email, role, active").Where("id = ?", id).First(u).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "looking up principal %d", id)
	}
	return u.Principal(), nil
}
