package token

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/corkboard-io/corkboard/internal/model"
	jwt "github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeLookup struct {
	principals map[int64]*model.Principal
	err        error
}

func (f *fakeLookup) PrincipalByID(ctx context.Context, id int64) (*model.Principal, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.principals[id]
	if !ok {
		return nil, model.ErrRecordNotFound
	}
	c := *p
	return &c, nil
}

var ada = &model.Principal{ID: 7, Username: "ada", Email: "ada@example.com", Role: model.RoleUser, Active: true}

func newTestService(t *testing.T, options ...func(*Service) error) (*Service, *fakeClock, *fakeLookup) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	lookup := &fakeLookup{principals: map[int64]*model.Principal{ada.ID: ada}}
	options = append([]func(*Service) error{
		OptionSecret("test-secret"),
		OptionClock(clock.Now),
		OptionPrincipalLookup(lookup),
	}, options...)
	s, err := New(options...)
	require.NoError(t, err)
	return s, clock, lookup
}

func Test_New(t *testing.T) {
	_, err := New()
	assert.EqualError(t, err, "token secret is required")

	_, err = New(OptionSecret("s"), OptionAlgorithm("RS256"))
	assert.EqualError(t, err, "unsupported signing algorithm RS256")

	_, err = New(OptionSecret("s"), OptionTTL(0, time.Hour))
	assert.Error(t, err)

	s, err := New(OptionSecret("s"), OptionAlgorithm("HS512"))
	require.NoError(t, err)
	assert.Equal(t, "HS512", s.algorithm)
}

func Test_IssueAndValidate(t *testing.T) {
	assert := assert.New(t)
	s, _, _ := newTestService(t)

	tok, err := s.Issue(ada, KindAccess, time.Minute)
	require.NoError(t, err)

	claims, err := s.Validate(tok)
	require.NoError(t, err)
	assert.Equal("7", claims.Subject)
	assert.Equal("ada", claims.Username)
	assert.Equal("ada@example.com", claims.Email)
	assert.Equal(model.RoleUser, claims.Role)
	assert.Equal(KindAccess, claims.Type)
	assert.NotEmpty(claims.Id)
	id, err := claims.PrincipalID()
	assert.NoError(err)
	assert.Equal(int64(7), id)

	assert.True(s.ValidateKind(tok, KindAccess))
	assert.False(s.ValidateKind(tok, KindRefresh))

	other, err := s.Issue(ada, KindAccess, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(tok, other)
}

func Test_IssueRejectsBadInput(t *testing.T) {
	s, _, _ := newTestService(t)
	_, err := s.Issue(nil, KindAccess, time.Minute)
	assert.Error(t, err)
	_, err = s.Issue(ada, Kind("session"), time.Minute)
	assert.Error(t, err)
}

func Test_ValidateExpiry(t *testing.T) {
	assert := assert.New(t)
	s, clock, _ := newTestService(t)

	zero, err := s.Issue(ada, KindAccess, 0)
	require.NoError(t, err)
	_, err = s.Validate(zero)
	assert.Equal(ErrInvalidToken, err)
	assert.False(s.ValidateKind(zero, KindAccess))

	past, err := s.Issue(ada, KindAccess, -time.Hour)
	require.NoError(t, err)
	_, err = s.Validate(past)
	assert.Equal(ErrInvalidToken, err)

	tok, err := s.Issue(ada, KindAccess, 30*time.Second)
	require.NoError(t, err)
	clock.Advance(29 * time.Second)
	_, err = s.Validate(tok)
	assert.NoError(err)
	clock.Advance(time.Second)
	_, err = s.Validate(tok)
	assert.Equal(ErrInvalidToken, err)
}

func Test_ValidateFailsClosed(t *testing.T) {
	s, clock, _ := newTestService(t)
	good, err := s.Issue(ada, KindAccess, time.Hour)
	require.NoError(t, err)

	otherKey, err := New(OptionSecret("another-secret"), OptionClock(clock.Now))
	require.NoError(t, err)
	foreign, err := otherKey.Issue(ada, KindAccess, time.Hour)
	require.NoError(t, err)

	sign := func(method jwt.SigningMethod, key interface{}, claims *Claims) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return tok
	}
	valid := func() *Claims {
		return &Claims{
			StandardClaims: jwt.StandardClaims{Subject: "7", ExpiresAt: clock.Now().Add(time.Hour).Unix()},
			Type:           KindAccess,
		}
	}
	badKind := valid()
	badKind.Type = "session"
	badSubject := valid()
	badSubject.Subject = "ada"
	noExpiry := valid()
	noExpiry.ExpiresAt = 0

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := map[string]string{
		"empty":          "",
		"garbage":        "not.a.token",
		"tampered":       tampered,
		"foreign secret": foreign,
		"other hmac":     sign(jwt.SigningMethodHS384, []byte("test-secret"), valid()),
		"none alg":       sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid()),
		"unknown kind":   sign(jwt.SigningMethodHS256, []byte("test-secret"), badKind),
		"bad subject":    sign(jwt.SigningMethodHS256, []byte("test-secret"), badSubject),
		"no expiry":      sign(jwt.SigningMethodHS256, []byte("test-secret"), noExpiry),
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Validate(tok)
			assert.Equal(t, ErrInvalidToken, err)
		})
	}
	_, err = s.Validate(sign(jwt.SigningMethodHS256, []byte("test-secret"), valid()))
	assert.NoError(t, err)
}

func Test_IssuePair(t *testing.T) {
	assert := assert.New(t)
	s, clock, _ := newTestService(t, OptionTTL(time.Minute, time.Hour))

	pair, err := s.IssuePair(ada)
	require.NoError(t, err)
	assert.Equal("bearer", pair.TokenType)
	assert.True(s.ValidateKind(pair.AccessToken, KindAccess))
	assert.True(s.ValidateKind(pair.RefreshToken, KindRefresh))

	clock.Advance(2 * time.Minute)
	assert.False(s.ValidateKind(pair.AccessToken, KindAccess))
	assert.True(s.ValidateKind(pair.RefreshToken, KindRefresh))
}

func Test_Rotate(t *testing.T) {
	ctx := context.Background()
	assert := assert.New(t)
	s, _, lookup := newTestService(t)

	pair, err := s.IssuePair(ada)
	require.NoError(t, err)

	rotated, p, err := s.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(ada.ID, p.ID)
	assert.True(s.ValidateKind(rotated.AccessToken, KindAccess))
	assert.True(s.ValidateKind(rotated.RefreshToken, KindRefresh))

	// an access token is never accepted for rotation
	_, _, err = s.Rotate(ctx, pair.AccessToken)
	assert.Equal(ErrInvalidToken, err)

	// the role is read from the store, not from the presented token
	lookup.principals[ada.ID] = &model.Principal{ID: ada.ID, Username: "ada", Role: model.RoleAdmin, Active: true}
	rotated, _, err = s.Rotate(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := s.Validate(rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(model.RoleAdmin, claims.Role)
}

func Test_RotateFailures(t *testing.T) {
	ctx := context.Background()
	s, _, lookup := newTestService(t)

	pair, err := s.IssuePair(ada)
	require.NoError(t, err)
	ghost, err := s.Issue(&model.Principal{ID: 99, Role: model.RoleUser}, KindRefresh, time.Hour)
	require.NoError(t, err)

	_, _, err = s.Rotate(ctx, ghost)
	assert.Equal(t, ErrInvalidToken, err)

	_, _, err = s.Rotate(ctx, "bogus")
	assert.Equal(t, ErrInvalidToken, err)

	lookup.principals[ada.ID] = &model.Principal{ID: ada.ID, Role: model.RoleUser, Active: false}
	_, p, err := s.Rotate(ctx, pair.RefreshToken)
	assert.Equal(t, ErrPrincipalInactive, err)
	assert.Equal(t, ada.ID, p.ID)

	storeDown := errors.New("connection reset")
	lookup.err = storeDown
	_, _, err = s.Rotate(ctx, pair.RefreshToken)
	assert.Error(t, err)
	assert.NotEqual(t, ErrInvalidToken, err)
	assert.Equal(t, storeDown, errors.Cause(err))
}

func Test_RotateWithoutLookup(t *testing.T) {
	s, err := New(OptionSecret("s"))
	require.NoError(t, err)
	pair, err := s.IssuePair(ada)
	require.NoError(t, err)
	_, _, err = s.Rotate(context.Background(), pair.RefreshToken)
	assert.EqualError(t, err, "no principal lookup configured")
}
