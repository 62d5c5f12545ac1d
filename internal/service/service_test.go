package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corkboard-io/corkboard/internal/access"
	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/token"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Passw0rd!"

func testSettings() *util.Settings {
	return &util.Settings{
		AppName:                  "corkboard",
		DBType:                   db.DialectSQLite,
		JWTSecretKey:             "test-secret",
		JWTAlgorithm:             "HS256",
		AccessTokenExpireMinutes: 30,
		RefreshTokenExpireDays:   7,
		DefaultTheme:             "light",
		AvailableThemes:          []string{"light", "dark", "blue", "green"},
	}
}

func getTestDB(t *testing.T) db.DB {
	dbConn, err := db.GetTestDB()
	require.NoError(t, err)
	require.NoError(t, model.Migrate(dbConn))
	t.Cleanup(func() {
		_ = db.CloseConnection(dbConn)
	})
	return dbConn
}

// testOptions wires a fresh database, default settings and a token service.
func testOptions(t *testing.T) (db.DB, []func(*Service) error) {
	dbConn := getTestDB(t)
	tokens, err := token.New(
		token.OptionSecret("test-secret"),
		token.OptionPrincipalLookup(model.NewPrincipalStore(dbConn)),
	)
	require.NoError(t, err)
	return dbConn, []func(*Service) error{
		OptionDB(dbConn),
		OptionSettings(testSettings()),
		OptionTokens(tokens),
	}
}

func addUser(t *testing.T, dbConn db.DB, username string, role model.Role) *model.User {
	u, err := model.NewUser(username+"@example.com", username, "", testPassword)
	require.NoError(t, err)
	u.Role = role
	require.NoError(t, dbConn.Create(u).Error)
	return u
}

func Test_ServiceRequiresDBAndSettings(t *testing.T) {
	ctx := context.Background()

	_, err := NewUsersService(ctx, OptionSettings(testSettings()))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db member is nil")

	dbConn := getTestDB(t)
	_, err = NewUsersService(ctx, OptionDB(dbConn))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "settings member is nil")

	_, err = NewAuthService(ctx, OptionDB(dbConn), OptionSettings(testSettings()))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tokens member is nil")
}

func Test_ToAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unauthenticated", access.ErrUnauthenticated, http.StatusUnauthorized},
		{"invalid token", errors.Wrap(token.ErrInvalidToken, "rotating"), http.StatusUnauthorized},
		{"bad credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", access.ErrForbidden, http.StatusForbidden},
		{"not owner", ErrNotOwner, http.StatusForbidden},
		{"inactive", access.ErrInactive, http.StatusBadRequest},
		{"inactive on rotate", token.ErrPrincipalInactive, http.StatusBadRequest},
		{"missing row", model.ErrRecordNotFound, http.StatusNotFound},
		{"store failure", errors.New("connection refused"), http.StatusInternalServerError},
		{"already mapped", BadRequest("nope"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ToAPIError(tt.err, "detail").Code)
		})
	}
	assert.Equal(t, "account disabled", ToAPIError(token.ErrPrincipalInactive, "").Error())
}

func Test_ErrorHandler(t *testing.T) {
	assert := assert.New(t)

	handler := ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ToAPIError(access.ErrUnauthenticated, "authenticating").BindHTTPRequest(r)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(http.StatusUnauthorized, rec.Code)
	assert.Equal("Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.JSONEq(`{"code":401,"error":"could not validate credentials","detail":"authenticating"}`, rec.Body.String())

	handler = ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ToAPIError(errors.New("dial tcp: connection refused"), "loading").BindHTTPRequest(r)
	}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(http.StatusInternalServerError, rec.Code)
	assert.NotContains(rec.Body.String(), "connection refused")
}

func Test_AuditTopicPrefix(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("corkboard", Service{}.auditTopicPrefix())
	s := Service{params: map[string]string{ParamAuditTopicPrefix: "board"}}
	assert.Equal("board", s.auditTopicPrefix())
}
