package model

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// User is a stored account.
type User struct {
	ID             int64      `json:"id" gorm:"primary_key"`
	Email          string     `json:"email" gorm:"type:varchar(255);unique_index;not null"`
	Username       string     `json:"username" gorm:"type:varchar(50);unique_index;not null"`
	HashedPassword string     `json:"-" gorm:"type:varchar(255);not null"`
	FullName       string     `json:"fullName" gorm:"type:varchar(100)"`
	Role           Role       `json:"role" gorm:"type:varchar(20);index;not null"`
	Active         bool       `json:"isActive" gorm:"index;not null"`
	Verified       bool       `json:"isVerified" gorm:"not null"`
	CreatedAt      time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastLogin      *time.Time `json:"lastLogin"`
}

// NewUser creates an active user with the `user` role and a hashed password.
func NewUser(email, username, fullName, password string) (*User, error) {
	u := &User{
		Email:    strings.TrimSpace(email),
		Username: strings.TrimSpace(username),
		FullName: fullName,
		Role:     RoleUser,
		Active:   true,
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// SetPassword replaces the stored password hash.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	u.HashedPassword = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) == nil
}

// Principal returns the principal view of the user.
func (u *User) Principal() *Principal {
	return &Principal{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Active:   u.Active,
	}
}

var _userAllowedFields = map[string]bool{
	"email":    true,
	"username": true,
	"fullName": true,
}

var _userAPIToDBFields = map[string]string{
	"fullName":  "full_name",
	"isActive":  "active",
	"createdAt": "created_at",
	"lastLogin": "last_login",
}

// AllowedUpdateFields returns the fields that are mutable.
func (u *User) AllowedUpdateFields() map[string]bool {
	return _userAllowedFields
}

// ApplyChanges updates the object with values found in the map and returns the "delta"
// of the changes.
func (u *User) ApplyChanges(values map[string]string) (string, error) {
	orig := new(User)
	*orig = *u
	allowed := u.AllowedUpdateFields()
	for k, v := range values {
		if _, ok := allowed[k]; !ok {
			return "", errors.Errorf("update field not allowed %s", k)
		}
		switch k {
		case "email":
			u.Email = strings.TrimSpace(v)
		case "username":
			u.Username = strings.TrimSpace(v)
		case "fullName":
			u.FullName = v
		}
	}
	return cmp.Diff(orig, u, cmpopts.IgnoreFields(User{}, "HashedPassword")), nil
}

// ChangedColumns returns the column values of the fields named in values, as
// set by ApplyChanges.
func (u *User) ChangedColumns(values map[string]string) map[string]interface{} {
	columns := make(map[string]interface{}, len(values))
	for k := range values {
		switch k {
		case "email":
			columns["email"] = u.Email
		case "username":
			columns["username"] = u.Username
		case "fullName":
			columns["full_name"] = u.FullName
		}
	}
	return columns
}

// UserByID returns a `User` by id.
func UserByID(ctx context.Context, db db.DB, id int64) (*User, error) {
	u := new(User)
	err := db.Where("id = ?", id).First(u).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrRecordNotFound
	}
	return u, err
}

// UserByLogin returns the `User` whose email or username equals login.
func UserByLogin(ctx context.Context, db db.DB, login string) (*User, error) {
	u := new(User)
	err := db.Where("email = ? OR username = ?", login, login).First(u).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, ErrRecordNotFound
	}
	return u, err
}

// UserConflict returns a description of the identity field already taken by a user
// other than excludeID, or "" when email and username are both free.
func UserConflict(ctx context.Context, db db.DB, email, username string, excludeID int64) (string, error) {
	var existing []User
	err := db.Select("id, email, username").
		Where("(email = ? OR username = ?) AND id <> ?", email, username, excludeID).
		Find(&existing).Error
	if err != nil {
		return "", err
	}
	for _, u := range existing {
		if u.Email == email {
			return "email already registered", nil
		}
		if u.Username == username {
			return "username already taken", nil
		}
	}
	return "", nil
}

// Users returns a page of users and the total count.
func Users(ctx context.Context, dbConn db.DB, params *util.APIParams) ([]*User, int64, error) {
	var count int64
	entries := make([]*User, 0)

	if params == nil {
		params = util.DefaultAPIParams()
	}
	if v, ok := params.AndFilters["isActive"].(string); ok {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return entries, 0, errors.Wrap(err, "converting isActive to boolean")
		}
		scoped := *params
		scoped.AndFilters = make(map[string]interface{}, len(params.AndFilters))
		for k, v := range params.AndFilters {
			scoped.AndFilters[k] = v
		}
		scoped.AndFilters["isActive"] = active
		params = &scoped
	}
	dbConn, countDB := db.QueryStatement(dbConn, "users", params, _userAPIToDBFields, "id")
	if params.Search != "" {
		term := "%" + strings.ToLower(params.Search) + "%"
		where := "LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?"
		dbConn = dbConn.Where(where, term, term, term)
		countDB = countDB.Where(where, term, term, term)
	}
	err := dbConn.Find(&entries).Error
	if err != nil {
		return entries, 0, err
	}
	// get total record count
	err = countDB.Count(&count).Error
	return entries, count, err
}

// DeleteUser removes a user along with the rows that reference it.
func DeleteUser(ctx context.Context, dbConn db.DB, id int64) error {
	tx := dbConn.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	var postIDs []int64
	steps := []func() error{
		func() error { return tx.Model(&Post{}).Where("author_id = ?", id).Pluck("id", &postIDs).Error },
		func() error { return tx.Where("author_id = ?", id).Delete(&Comment{}).Error },
		func() error {
			if len(postIDs) == 0 {
				return nil
			}
			return tx.Where("post_id IN (?)", postIDs).Delete(&Comment{}).Error
		},
		func() error { return tx.Where("author_id = ?", id).Delete(&Post{}).Error },
		func() error { return tx.Where("user_id = ?", id).Delete(&UserTheme{}).Error },
		func() error {
			res := tx.Where("id = ?", id).Delete(&User{})
			if res.Error == nil && res.RowsAffected == 0 {
				return ErrRecordNotFound
			}
			return res.Error
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit().Error
}
