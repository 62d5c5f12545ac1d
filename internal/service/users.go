package service

import (
	"context"
	"net/http"
	"time"

	"github.com/corkboard-io/corkboard/internal/access"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/pkg/errors"
)

// Users defines the user management service interface. Callers are passed in
// for ownership checks, role gates are applied by the transport.
type Users interface {
	Users(context.Context, *util.APIParams) ([]*model.User, int64, error)
	User(context.Context, *model.Principal, int64) (*model.User, error)
	UpdateUser(context.Context, *model.Principal, int64, map[string]string) (*model.User, string, error)
	DeleteUser(context.Context, *model.Principal, int64) error
	DeactivateUser(context.Context, *model.Principal, int64) (*model.User, error)
	SetRole(context.Context, *model.Principal, int64, string) (*model.User, error)
	Logs(context.Context, *model.Principal, int64, int) ([]*model.AuditEntry, error)

	Stop()
}

type usersService struct {
	Service
}

// NewUsersService creates a new instance.
func NewUsersService(ctx context.Context, options ...func(*Service) error) (Users, error) {
	service := &usersService{
		Service: Service{
			name: "corkboard-users-service",
		},
	}
	if err := service.apply(options); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *usersService) Stop() {
	s.Service.Stop()
}

// selfOrAdmin allows callers acting on their own account, and admins.
func selfOrAdmin(caller *model.Principal, id int64) error {
	if caller == nil {
		return access.ErrUnauthenticated
	}
	if caller.ID == id || caller.IsAdmin() {
		return nil
	}
	return access.ErrForbidden
}

func (s *usersService) Users(ctx context.Context, params *util.APIParams) ([]*model.User, int64, error) {
	return model.Users(ctx, s.db, params)
}

func (s *usersService) User(ctx context.Context, caller *model.Principal, id int64) (*model.User, error) {
	if err := selfOrAdmin(caller, id); err != nil {
		return nil, err
	}
	return model.UserByID(ctx, s.db, id)
}

func (s *usersService) UpdateUser(ctx context.Context, caller *model.Principal, id int64, values map[string]string) (*model.User, string, error) {
	if err := selfOrAdmin(caller, id); err != nil {
		return nil, "", err
	}
	u, err := model.UserByID(ctx, s.db, id)
	if err != nil {
		return nil, "", err
	}

	password, hasPassword := values["password"]
	changes := make(map[string]string, len(values))
	for k, v := range values {
		if k != "password" {
			changes[k] = v
		}
	}
	diff, err := u.ApplyChanges(changes)
	if err != nil {
		return nil, "", NewAPIError(http.StatusBadRequest, err, "updating user")
	}
	if err = util.Validate.Var(u.Email, "required,email,max=255"); err != nil {
		return nil, "", BadRequest("email must be a valid email address")
	}
	if err = util.Validate.Var(u.Username, "required,min=3,max=50,username"); err != nil {
		return nil, "", BadRequest("username must be 3-50 characters, start with a letter and contain only letters, digits and underscores")
	}
	conflict, err := model.UserConflict(ctx, s.db, u.Email, u.Username, u.ID)
	if err != nil {
		return nil, "", errors.Wrap(err, "checking for existing user")
	}
	if conflict != "" {
		return nil, "", BadRequest(conflict)
	}
	if hasPassword {
		if !util.StrongPassword(password) {
			return nil, "", BadRequest("password must be at least 8 characters with upper case, lower case and digits")
		}
		if err = u.SetPassword(password); err != nil {
			return nil, "", err
		}
		diff += "password changed\n"
	}
	columns := u.ChangedColumns(changes)
	if hasPassword {
		columns["hashed_password"] = u.HashedPassword
	}
	if len(columns) == 0 {
		return u, diff, nil
	}
	columns["updated_at"] = time.Now()
	if err = s.db.Table("users").Where("id = ?", u.ID).Updates(columns).Error; err != nil {
		return nil, "", errors.Wrap(err, "saving user")
	}
	u, err = model.UserByID(ctx, s.db, id)
	if err != nil {
		return nil, "", err
	}
	return u, diff, nil
}

func (s *usersService) DeleteUser(ctx context.Context, caller *model.Principal, id int64) error {
	var err error
	// Auditing
	defer func() {
		go s.Audit(ctx, model.AuditGroupUser, model.AuditActionDelete, caller, err)
	}()

	if caller != nil && caller.ID == id {
		err = BadRequest("cannot delete your own account")
		return err
	}
	err = model.DeleteUser(ctx, s.db, id)
	return err
}

func (s *usersService) DeactivateUser(ctx context.Context, caller *model.Principal, id int64) (*model.User, error) {
	var (
		u   *model.User
		err error
	)
	// Auditing
	defer func() {
		go s.Audit(ctx, model.AuditGroupUser, model.AuditActionDeactivate, caller, err)
	}()

	if err = selfOrAdmin(caller, id); err != nil {
		return nil, err
	}
	u, err = model.UserByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err = s.db.Model(u).UpdateColumn("active", false).Error; err != nil {
		return nil, errors.Wrap(err, "deactivating user")
	}
	u.Active = false
	return u, nil
}

func (s *usersService) SetRole(ctx context.Context, caller *model.Principal, id int64, role string) (*model.User, error) {
	var (
		u   *model.User
		err error
	)
	// Auditing
	defer func() {
		go s.Audit(ctx, model.AuditGroupUser, model.AuditActionSetRole, caller, err)
	}()

	r, err := model.NewRole(role)
	if err != nil {
		return nil, NewAPIError(http.StatusBadRequest, err, "setting role")
	}
	u, err = model.UserByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err = s.db.Model(u).UpdateColumn("role", r).Error; err != nil {
		return nil, errors.Wrap(err, "setting role")
	}
	u.Role = r
	return u, nil
}

func (s *usersService) Logs(ctx context.Context, caller *model.Principal, id int64, limit int) ([]*model.AuditEntry, error) {
	if err := selfOrAdmin(caller, id); err != nil {
		return nil, err
	}
	if limit < 1 || limit > util.MaxLimit {
		limit = util.DefaultLimit
	}
	return model.AuditEntriesFor(ctx, s.db, id, limit)
}
