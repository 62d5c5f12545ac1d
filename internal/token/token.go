package token

import (
	"context"
	"strconv"
	"time"

	"github.com/corkboard-io/corkboard/internal/model"
	jwt "github.com/dgrijalva/jwt-go"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Kind separates short-lived access tokens from long-lived refresh tokens.
type Kind string

// Constants for Kind
const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Error constants
var (
	// ErrInvalidToken covers every decode, signature, kind and expiry failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrPrincipalInactive is returned by Rotate when the principal has been disabled.
	ErrPrincipalInactive = errors.New("principal inactive")
)

// Defaults for token lifetimes.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// PrincipalLookup resolves the current state of a principal. A missing principal is
// reported as model.ErrRecordNotFound; any other error is a store failure.
type PrincipalLookup interface {
	PrincipalByID(ctx context.Context, id int64) (*model.Principal, error)
}

// Claims are the signed contents of a token.
type Claims struct {
	jwt.StandardClaims
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	Type     Kind       `json:"type"`
}

// PrincipalID returns the numeric subject.
func (c *Claims) PrincipalID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Pair is an access and a refresh token issued together.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

// Service issues, validates and rotates tokens. It holds no per-token state.
type Service struct {
	algorithm  string
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	principals PrincipalLookup

	auth   *jwtauth.JWTAuth
	parser *jwt.Parser
}

// New creates a token service.
func New(options ...func(*Service) error) (*Service, error) {
	s := &Service{
		algorithm:  jwt.SigningMethodHS256.Alg(),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	if len(s.secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if _, ok := jwt.GetSigningMethod(s.algorithm).(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unsupported signing algorithm %s", s.algorithm)
	}
	s.auth = jwtauth.New(s.algorithm, s.secret, s.secret)
	// expiry is checked against the service clock, see Validate
	s.parser = &jwt.Parser{
		ValidMethods:         []string{s.algorithm},
		SkipClaimsValidation: true,
	}
	return s, nil
}

// Issue signs a token of the given kind for p that expires ttl from now. A ttl of
// zero or less yields a token that is already expired.
func (s *Service) Issue(p *model.Principal, kind Kind, ttl time.Duration) (string, error) {
	if p == nil {
		return "", errors.New("principal is required")
	}
	if kind != KindAccess && kind != KindRefresh {
		return "", errors.Errorf("unknown token kind %s", kind)
	}
	now := s.now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
			Id:        uuid.New().String(),
		},
		Username: p.Username,
		Email:    p.Email,
		Role:     p.Role,
		Type:     kind,
	}
	_, signed, err := s.auth.Encode(claims)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return signed, nil
}

// IssuePair signs an access and a refresh token with the default lifetimes.
func (s *Service) IssuePair(p *model.Principal) (*Pair, error) {
	access, err := s.Issue(p, KindAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Issue(p, KindRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Validate verifies algorithm, signature and expiry and returns the claims. Every
// failure is reported as ErrInvalidToken.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	claims := new(Claims)
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		log.WithError(err).Debug("Rejecting token")
		return nil, ErrInvalidToken
	}
	if claims.Type != KindAccess && claims.Type != KindRefresh {
		return nil, ErrInvalidToken
	}
	if _, err = claims.PrincipalID(); err != nil {
		return nil, ErrInvalidToken
	}
	// exp is exclusive: a token is expired from its expiry second on
	if claims.ExpiresAt == 0 || s.now().Unix() >= claims.ExpiresAt {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateKind reports whether tokenString is valid and of the given kind.
func (s *Service) ValidateKind(tokenString string, kind Kind) bool {
	claims, err := s.Validate(tokenString)
	return err == nil && claims.Type == kind
}

// Rotate exchanges a refresh token for a new pair. Claims are rebuilt from the
// principal's current stored state, so role changes and deactivation take effect.
// Store failures are returned as is, never as ErrInvalidToken.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (*Pair, *model.Principal, error) {
	if s.principals == nil {
		return nil, nil, errors.New("no principal lookup configured")
	}
	claims, err := s.Validate(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	if claims.Type != KindRefresh {
		return nil, nil, ErrInvalidToken
	}
	id, _ := claims.PrincipalID()
	p, err := s.principals.PrincipalByID(ctx, id)
	if errors.Cause(err) == model.ErrRecordNotFound {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "looking up principal for rotation")
	}
	if !p.Active {
		return nil, p, ErrPrincipalInactive
	}
	pair, err := s.IssuePair(p)
	if err != nil {
		return nil, p, err
	}
	return pair, p, nil
}
