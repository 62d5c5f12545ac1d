package access

import (
	"context"

	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/token"
	"github.com/pkg/errors"
)

// Error constants. The three outcomes are distinct and callers map them to
// different responses.
var (
	ErrUnauthenticated = errors.New("could not validate credentials")
	ErrForbidden       = errors.New("not enough permissions")
	ErrInactive        = errors.New("account disabled")
)

// Allow-lists used at request boundaries.
var (
	AdminOnly = model.NewRoleSet(model.RoleAdmin)
	Staff     = model.NewRoleSet(model.RoleAdmin, model.RoleModerator)
	Members   = model.NewRoleSet(model.RoleAdmin, model.RoleModerator, model.RoleUser)
)

// Validator is the part of the token service the gate depends on.
type Validator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// Gate resolves bearer tokens to principals.
type Gate struct {
	tokens     Validator
	principals token.PrincipalLookup
}

// NewGate creates a Gate.
func NewGate(tokens Validator, principals token.PrincipalLookup) *Gate {
	return &Gate{tokens: tokens, principals: principals}
}

// Authenticate resolves an access token to the principal's current stored state.
// Token, kind and unknown-principal failures are ErrUnauthenticated; store failures
// are returned wrapped and are never reported as ErrUnauthenticated.
func (g *Gate) Authenticate(ctx context.Context, tokenString string) (*model.Principal, error) {
	claims, err := g.tokens.Validate(tokenString)
	if err != nil || claims.Type != token.KindAccess {
		return nil, ErrUnauthenticated
	}
	id, err := claims.PrincipalID()
	if err != nil {
		return nil, ErrUnauthenticated
	}
	p, err := g.principals.PrincipalByID(ctx, id)
	if errors.Cause(err) == model.ErrRecordNotFound {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, errors.Wrap(err, "resolving principal")
	}
	return p, nil
}

// AuthenticateOptional behaves like Authenticate but treats a missing or unusable
// token as an anonymous caller. Store failures still propagate.
func (g *Gate) AuthenticateOptional(ctx context.Context, tokenString string) (*model.Principal, error) {
	if tokenString == "" {
		return nil, nil
	}
	p, err := g.Authenticate(ctx, tokenString)
	if err == ErrUnauthenticated {
		return nil, nil
	}
	return p, err
}

// RequireActive passes active principals through.
func RequireActive(p *model.Principal) (*model.Principal, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if !p.Active {
		return nil, ErrInactive
	}
	return p, nil
}

// RequireRole passes principals whose role is in allowed. Membership is exact.
func RequireRole(p *model.Principal, allowed model.RoleSet) (*model.Principal, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if !allowed.Has(p.Role) {
		return nil, ErrForbidden
	}
	return p, nil
}
