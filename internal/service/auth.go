package service

import (
	"context"
	"net/http"
	"time"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/access"
	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/token"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/pkg/errors"
)

// Auth defines the auth service interface.
type Auth interface {
	Register(context.Context, *apimodel.RegisterRequest) (*model.User, error)
	Login(context.Context, string, string) (*token.Pair, *model.User, error)
	Refresh(context.Context, string) (*token.Pair, error)
	ChangePassword(context.Context, *model.Principal, *apimodel.PasswordChangeRequest) error

	Stop()
}

type authService struct {
	Service
}

// NewAuthService creates a new instance.
func NewAuthService(ctx context.Context, options ...func(*Service) error) (Auth, error) {
	service := &authService{
		Service: Service{
			name: "corkboard-auth-service",
		},
	}
	if err := service.apply(options); err != nil {
		return nil, err
	}
	if service.tokens == nil {
		return nil, errors.New("tokens member is nil")
	}
	return service, nil
}

func (s *authService) Stop() {
	s.Service.Stop()
}

func validationError(err error) *APIError {
	return NewAPIError(http.StatusBadRequest, err, "validating request")
}

func (s *authService) Register(ctx context.Context, req *apimodel.RegisterRequest) (*model.User, error) {
	var (
		u   *model.User
		err error
	)
	// Auditing
	defer func() {
		var p *model.Principal
		if u != nil {
			p = u.Principal()
		}
		go s.Audit(ctx, model.AuditGroupAuth, model.AuditActionRegister, p, err)
	}()

	if err = util.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	conflict, err := model.UserConflict(ctx, s.db, req.Email, req.Username, 0)
	if err != nil {
		return nil, errors.Wrap(err, "checking for existing user")
	}
	if conflict != "" {
		err = errors.New(conflict)
		return nil, NewAPIError(http.StatusBadRequest, err, "registering user")
	}
	u, err = model.NewUser(req.Email, req.Username, req.FullName, req.Password)
	if err != nil {
		return nil, err
	}

	tx := s.db.Begin()
	if err = tx.Error; err != nil {
		return nil, errors.Wrap(err, "starting transaction")
	}
	if err = tx.Create(u).Error; err != nil {
		tx.Rollback()
		if db.IsUniqueViolation(err) {
			return nil, NewAPIError(http.StatusBadRequest, errors.New("email or username already taken"), "registering user")
		}
		return nil, errors.Wrap(err, "inserting user")
	}
	if err = tx.Create(model.NewUserTheme(u.ID, s.settings.DefaultTheme)).Error; err != nil {
		tx.Rollback()
		return nil, errors.Wrap(err, "inserting default theme")
	}
	if err = tx.Commit().Error; err != nil {
		return nil, errors.Wrap(err, "committing registration")
	}
	return u, nil
}

// dummyHash keeps the cost of a failed lookup close to that of a wrong password.
var dummyHash, _ = model.NewUser("", "", "", "dummy-Passw0rd")

func (s *authService) Login(ctx context.Context, login, password string) (*token.Pair, *model.User, error) {
	var (
		u   *model.User
		err error
	)
	// Auditing
	defer func() {
		var p *model.Principal
		if u != nil {
			p = u.Principal()
		}
		go s.Audit(ctx, model.AuditGroupAuth, model.AuditActionLogin, p, err)
	}()

	u, err = model.UserByLogin(ctx, s.db, login)
	switch {
	case err == model.ErrRecordNotFound:
		if dummyHash != nil {
			dummyHash.CheckPassword(password)
		}
		err = ErrInvalidCredentials
		return nil, nil, err
	case err != nil:
		return nil, nil, errors.Wrap(err, "looking up user")
	}
	if !u.CheckPassword(password) {
		err = ErrInvalidCredentials
		return nil, nil, err
	}
	if !u.Active {
		err = access.ErrInactive
		return nil, nil, err
	}

	now := time.Now()
	if err = s.db.Model(u).UpdateColumn("last_login", now).Error; err != nil {
		return nil, nil, errors.Wrap(err, "recording login")
	}
	u.LastLogin = &now

	pair, err := s.tokens.IssuePair(u.Principal())
	if err != nil {
		return nil, nil, err
	}
	return pair, u, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	pair, p, err := s.tokens.Rotate(ctx, refreshToken)
	// Auditing
	defer func() {
		go s.Audit(ctx, model.AuditGroupAuth, model.AuditActionRefresh, p, err)
	}()
	return pair, err
}

func (s *authService) ChangePassword(ctx context.Context, p *model.Principal, req *apimodel.PasswordChangeRequest) error {
	var err error
	// Auditing
	defer func() {
		go s.Audit(ctx, model.AuditGroupAuth, model.AuditActionChangePassword, p, err)
	}()

	if err = util.ValidateStruct(req); err != nil {
		return validationError(err)
	}
	u, err := model.UserByID(ctx, s.db, p.ID)
	if err != nil {
		return err
	}
	if !u.CheckPassword(req.CurrentPassword) {
		err = errors.New("current password is incorrect")
		return NewAPIError(http.StatusBadRequest, err, "changing password")
	}
	if err = u.SetPassword(req.NewPassword); err != nil {
		return err
	}
	err = s.db.Model(u).UpdateColumn("hashed_password", u.HashedPassword).Error
	return err
}
