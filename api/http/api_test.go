package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/db"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/token"
	"github.com/corkboard-io/corkboard/internal/util"
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
		CORSAllowedOrigins:       []string{"http://localhost:3000"},
		DefaultTheme:             "light",
		AvailableThemes:          []string{"light", "dark"},
		LoginRateLimit:           100,
		LoginRateBurst:           100,
	}
}

func newTestHandler(t *testing.T, settings *util.Settings) *APIHandler {
	dbConn, err := db.GetTestDB()
	require.NoError(t, err)
	require.NoError(t, model.Migrate(dbConn))

	handler, err := NewAPIHandler(context.Background(), OptionDB(dbConn), OptionSettings(settings))
	require.NoError(t, err)
	handler.Init()
	t.Cleanup(func() {
		_ = handler.Stop()
	})
	return handler
}

func call(t *testing.T, handler http.Handler, method, path, accessToken string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		r.Header.Set("Authorization", "Bearer "+accessToken)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// signup registers and logs in a user, returning the user and its tokens.
func signup(t *testing.T, handler http.Handler, username string) (*model.User, *token.Pair) {
	w := call(t, handler, http.MethodPost, "/api/v1/auth/register", "", &apimodel.RegisterRequest{
		Email:    username + "@example.com",
		Username: username,
		Password: testPassword,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	u := new(model.User)
	decode(t, w, u)

	w = call(t, handler, http.MethodPost, "/api/v1/auth/login", "", &apimodel.LoginRequest{Username: username, Password: testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pair := new(token.Pair)
	decode(t, w, pair)
	return u, pair
}

func setRole(t *testing.T, handler *APIHandler, u *model.User, role model.Role) {
	require.NoError(t, handler.db.Model(u).UpdateColumn("role", role).Error)
}

func Test_VersionAndHealth(t *testing.T) {
	handler := newTestHandler(t, testSettings())

	w := call(t, handler, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = call(t, handler, http.MethodGet, "/api/v1/version", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "corkboard")
}

func Test_AuthFlow(t *testing.T) {
	assert := assert.New(t)
	handler := newTestHandler(t, testSettings())

	u, pair := signup(t, handler, "ada")
	assert.Equal(model.RoleUser, u.Role)
	assert.NotContains(call(t, handler, http.MethodGet, "/api/v1/auth/me", pair.AccessToken, nil).Body.String(), "hashed")

	w := call(t, handler, http.MethodGet, "/api/v1/auth/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := new(model.User)
	decode(t, w, me)
	assert.Equal("ada", me.Username)

	// missing, garbage and refresh tokens are all unauthenticated
	for _, tok := range []string{"", "garbage", pair.RefreshToken} {
		w = call(t, handler, http.MethodGet, "/api/v1/auth/me", tok, nil)
		assert.Equal(http.StatusUnauthorized, w.Code, tok)
		assert.Equal("Bearer", w.Header().Get("WWW-Authenticate"))
	}

	w = call(t, handler, http.MethodPost, "/api/v1/auth/login", "", &apimodel.LoginRequest{Username: "ada", Password: "Wr0ng-password"})
	assert.Equal(http.StatusUnauthorized, w.Code)

	form := url.Values{"username": {"ada@example.com"}, "password": {testPassword}}
	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(http.StatusOK, w.Code, w.Body.String())

	w = call(t, handler, http.MethodPost, "/api/v1/auth/refresh", "", &apimodel.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rotated := new(token.Pair)
	decode(t, w, rotated)
	assert.NotEmpty(rotated.AccessToken)

	w = call(t, handler, http.MethodPost, "/api/v1/auth/refresh", "", &apimodel.RefreshRequest{RefreshToken: pair.AccessToken})
	assert.Equal(http.StatusUnauthorized, w.Code)

	w = call(t, handler, http.MethodPut, "/api/v1/auth/password", pair.AccessToken, &apimodel.PasswordChangeRequest{
		CurrentPassword: testPassword,
		NewPassword:     "N3w-password",
	})
	assert.Equal(http.StatusNoContent, w.Code, w.Body.String())

	w = call(t, handler, http.MethodPost, "/api/v1/auth/register", "", &apimodel.RegisterRequest{
		Email: "ada@example.com", Username: "ada2", Password: testPassword,
	})
	assert.Equal(http.StatusBadRequest, w.Code)
	assert.Contains(w.Body.String(), "email already registered")
}

func Test_GateOutcomes(t *testing.T) {
	assert := assert.New(t)
	handler := newTestHandler(t, testSettings())

	u, pair := signup(t, handler, "ada")

	w := call(t, handler, http.MethodGet, "/api/v1/users", pair.AccessToken, nil)
	assert.Equal(http.StatusForbidden, w.Code)

	// roles are read from the store on every request
	setRole(t, handler, u, model.RoleAdmin)
	w = call(t, handler, http.MethodGet, "/api/v1/users?limit=5", pair.AccessToken, nil)
	assert.Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal("1", w.Header().Get(util.ResultsTotal))
	w = call(t, handler, http.MethodGet, "/api/v1/users?search=nomatch", pair.AccessToken, nil)
	assert.Equal(http.StatusOK, w.Code)
	assert.Equal("0", w.Header().Get(util.ResultsTotal))
	w = call(t, handler, http.MethodGet, "/api/v1/users?createdAfter=2020-01-01&createdBefore=2099-01-01", pair.AccessToken, nil)
	assert.Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal("1", w.Header().Get(util.ResultsTotal))

	w = call(t, handler, http.MethodGet, "/api/v1/users?orderBy=hashed_password", pair.AccessToken, nil)
	assert.Equal(http.StatusBadRequest, w.Code)

	w = call(t, handler, http.MethodPost, "/api/v1/users/"+itoa(u.ID)+"/deactivate", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, handler, http.MethodGet, "/api/v1/auth/me", pair.AccessToken, nil)
	assert.Equal(http.StatusBadRequest, w.Code)
	assert.Contains(w.Body.String(), "account disabled")

	w = call(t, handler, http.MethodPost, "/api/v1/auth/refresh", "", &apimodel.RefreshRequest{RefreshToken: pair.RefreshToken})
	assert.Equal(http.StatusBadRequest, w.Code)

	// store failures surface as server errors, never as 401
	require.NoError(t, db.CloseConnection(handler.db))
	w = call(t, handler, http.MethodGet, "/api/v1/auth/me", pair.AccessToken, nil)
	assert.Equal(http.StatusInternalServerError, w.Code)
}

func Test_UserManagement(t *testing.T) {
	assert := assert.New(t)
	handler := newTestHandler(t, testSettings())

	admin, adminPair := signup(t, handler, "root")
	setRole(t, handler, admin, model.RoleAdmin)
	ada, adaPair := signup(t, handler, "ada")
	_, bobPair := signup(t, handler, "bob")

	path := "/api/v1/users/" + itoa(ada.ID)
	assert.Equal(http.StatusOK, call(t, handler, http.MethodGet, path, adaPair.AccessToken, nil).Code)
	assert.Equal(http.StatusForbidden, call(t, handler, http.MethodGet, path, bobPair.AccessToken, nil).Code)
	assert.Equal(http.StatusOK, call(t, handler, http.MethodGet, path, adminPair.AccessToken, nil).Code)
	assert.Equal(http.StatusNotFound, call(t, handler, http.MethodGet, "/api/v1/users/999", adminPair.AccessToken, nil).Code)
	assert.Equal(http.StatusBadRequest, call(t, handler, http.MethodGet, "/api/v1/users/abc", adminPair.AccessToken, nil).Code)

	w := call(t, handler, http.MethodPut, path, adaPair.AccessToken, map[string]interface{}{"fullName": "Ada King"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(w.Body.String(), "Ada King")

	w = call(t, handler, http.MethodPut, path+"/role", adaPair.AccessToken, &apimodel.RoleRequest{Role: "admin"})
	assert.Equal(http.StatusForbidden, w.Code)
	w = call(t, handler, http.MethodPut, path+"/role", adminPair.AccessToken, &apimodel.RoleRequest{Role: "moderator"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(w.Body.String(), `"role":"moderator"`)

	w = call(t, handler, http.MethodDelete, "/api/v1/users/"+itoa(admin.ID), adminPair.AccessToken, nil)
	assert.Equal(http.StatusBadRequest, w.Code)
	w = call(t, handler, http.MethodDelete, path, adminPair.AccessToken, nil)
	assert.Equal(http.StatusNoContent, w.Code)
	w = call(t, handler, http.MethodGet, "/api/v1/auth/me", adaPair.AccessToken, nil)
	assert.Equal(http.StatusUnauthorized, w.Code)
}

func Test_Menus(t *testing.T) {
	assert := assert.New(t)
	handler := newTestHandler(t, testSettings())

	admin, adminPair := signup(t, handler, "root")
	setRole(t, handler, admin, model.RoleAdmin)
	_, userPair := signup(t, handler, "ada")

	w := call(t, handler, http.MethodGet, "/api/v1/menus", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq("[]", w.Body.String())

	assert.Equal(http.StatusForbidden, call(t, handler, http.MethodPost, "/api/v1/menus/init-default", userPair.AccessToken, nil).Code)
	assert.Equal(http.StatusUnauthorized, call(t, handler, http.MethodPost, "/api/v1/menus/init-default", "", nil).Code)
	w = call(t, handler, http.MethodPost, "/api/v1/menus/init-default", adminPair.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var tree []map[string]interface{}
	decode(t, call(t, handler, http.MethodGet, "/api/v1/menus", "", nil), &tree)
	assert.Len(tree, 4)
	decode(t, call(t, handler, http.MethodGet, "/api/v1/menus", adminPair.AccessToken, nil), &tree)
	assert.Len(tree, 5)

	// an invalid token on an optional route is treated as anonymous
	decode(t, call(t, handler, http.MethodGet, "/api/v1/menus", "garbage", nil), &tree)
	assert.Len(tree, 4)

	w = call(t, handler, http.MethodPost, "/api/v1/menus", adminPair.AccessToken, &apimodel.MenuCreateRequest{Name: "Help", URL: "/help", Order: 9, RequiredRole: "owner"})
	assert.Equal(http.StatusBadRequest, w.Code)
	w = call(t, handler, http.MethodPost, "/api/v1/menus", adminPair.AccessToken, &apimodel.MenuCreateRequest{Name: "Help", URL: "/help", Order: 9})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	m := new(model.Menu)
	decode(t, w, m)

	w = call(t, handler, http.MethodPut, "/api/v1/menus/"+itoa(m.ID), adminPair.AccessToken, map[string]interface{}{"order": -1, "parentId": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, call(t, handler, http.MethodGet, "/api/v1/menus", "", nil), &tree)
	assert.Equal("Help", tree[0]["name"])

	assert.Equal(http.StatusNoContent, call(t, handler, http.MethodDelete, "/api/v1/menus/"+itoa(m.ID), adminPair.AccessToken, nil).Code)
	assert.Equal(http.StatusNotFound, call(t, handler, http.MethodDelete, "/api/v1/menus/"+itoa(m.ID), adminPair.AccessToken, nil).Code)

	var all []model.Menu
	decode(t, call(t, handler, http.MethodGet, "/api/v1/menus/all", adminPair.AccessToken, nil), &all)
	assert.Len(all, 8)
}

func Test_Forum(t *testing.T) {
	assert := assert.New(t)
	handler := newTestHandler(t, testSettings())

	_, adaPair := signup(t, handler, "ada")
	_, bobPair := signup(t, handler, "bob")

	w := call(t, handler, http.MethodPost, "/api/v1/posts/categories", adaPair.AccessToken, &apimodel.CategoryCreateRequest{Name: "General"})
	assert.Equal(http.StatusForbidden, w.Code)

	w = call(t, handler, http.MethodPost, "/api/v1/posts", "", &apimodel.PostCreateRequest{Title: "Hi", Content: "x"})
	assert.Equal(http.StatusUnauthorized, w.Code)
	w = call(t, handler, http.MethodPost, "/api/v1/posts", adaPair.AccessToken, &apimodel.PostCreateRequest{Title: "Hello Gophers", Content: "first"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := new(apimodel.Post)
	decode(t, w, post)
	postPath := "/api/v1/posts/" + itoa(post.ID)

	list := new(apimodel.PostList)
	w = call(t, handler, http.MethodGet, "/api/v1/posts?size=5&search=gopher", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, list)
	assert.Equal(int64(1), list.Total)
	assert.Equal(int64(5), list.Size)
	assert.Equal("ada", list.Items[0].AuthorUsername)

	assert.Equal(http.StatusBadRequest, call(t, handler, http.MethodGet, "/api/v1/posts?categoryId=abc", "", nil).Code)
	assert.Equal(http.StatusBadRequest, call(t, handler, http.MethodGet, "/api/v1/posts?author=ada", "", nil).Code)

	w = call(t, handler, http.MethodPost, postPath+"/comments", bobPair.AccessToken, &apimodel.CommentCreateRequest{Content: "welcome"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := new(apimodel.Comment)
	decode(t, w, comment)

	var comments []*apimodel.Comment
	decode(t, call(t, handler, http.MethodGet, postPath+"/comments", "", nil), &comments)
	require.Len(t, comments, 1)
	assert.Equal("bob", comments[0].AuthorUsername)

	w = call(t, handler, http.MethodDelete, "/api/v1/posts/comments/"+itoa(comment.ID), adaPair.AccessToken, nil)
	assert.Equal(http.StatusForbidden, w.Code)
	w = call(t, handler, http.MethodDelete, "/api/v1/posts/comments/"+itoa(comment.ID), bobPair.AccessToken, nil)
	assert.Equal(http.StatusNoContent, w.Code)

	w = call(t, handler, http.MethodPut, postPath, bobPair.AccessToken, map[string]interface{}{"title": "Mine now"})
	assert.Equal(http.StatusForbidden, w.Code)
	w = call(t, handler, http.MethodPut, postPath, adaPair.AccessToken, map[string]interface{}{"isPublished": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(http.StatusNotFound, call(t, handler, http.MethodGet, postPath, bobPair.AccessToken, nil).Code)
	assert.Equal(http.StatusOK, call(t, handler, http.MethodGet, postPath, adaPair.AccessToken, nil).Code)
	assert.Equal(http.StatusNotFound, call(t, handler, http.MethodGet, postPath+"/comments", "", nil).Code)
	assert.Equal(http.StatusNotFound, call(t, handler, http.MethodGet, postPath+"/comments", bobPair.AccessToken, nil).Code)
	assert.Equal(http.StatusOK, call(t, handler, http.MethodGet, postPath+"/comments", adaPair.AccessToken, nil).Code)

	assert.Equal(http.StatusNoContent, call(t, handler, http.MethodDelete, postPath, adaPair.AccessToken, nil).Code)
	assert.Equal(http.StatusNotFound, call(t, handler, http.MethodGet, postPath, adaPair.AccessToken, nil).Code)
}

func Test_ThemesAndDashboard(t *testing.T) {
	assert := assert.New(t)
	handler := newTestHandler(t, testSettings())

	admin, adminPair := signup(t, handler, "root")
	setRole(t, handler, admin, model.RoleAdmin)
	_, adaPair := signup(t, handler, "ada")

	available := new(apimodel.AvailableThemes)
	decode(t, call(t, handler, http.MethodGet, "/api/v1/themes/available", "", nil), available)
	assert.Equal([]string{"light", "dark"}, available.Themes)

	w := call(t, handler, http.MethodPut, "/api/v1/themes", adaPair.AccessToken, map[string]interface{}{"themeName": "dark"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	theme := new(apimodel.Theme)
	decode(t, call(t, handler, http.MethodGet, "/api/v1/themes", adaPair.AccessToken, nil), theme)
	assert.Equal("dark", theme.ThemeName)
	w = call(t, handler, http.MethodPut, "/api/v1/themes", adaPair.AccessToken, map[string]interface{}{"themeName": "neon"})
	assert.Equal(http.StatusBadRequest, w.Code)

	stats := new(apimodel.DashboardStats)
	w = call(t, handler, http.MethodGet, "/api/v1/dashboard", adaPair.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, stats)
	assert.Equal(int64(2), stats.TotalUsers)

	assert.Equal(http.StatusForbidden, call(t, handler, http.MethodGet, "/api/v1/dashboard/admin", adaPair.AccessToken, nil).Code)
	assert.Equal(http.StatusOK, call(t, handler, http.MethodGet, "/api/v1/dashboard/admin", adminPair.AccessToken, nil).Code)
	assert.Equal(http.StatusOK, call(t, handler, http.MethodGet, "/api/v1/dashboard/recent-posts?limit=3", adaPair.AccessToken, nil).Code)

	var users []*apimodel.RecentUser
	decode(t, call(t, handler, http.MethodGet, "/api/v1/dashboard/recent-users", adminPair.AccessToken, nil), &users)
	require.Len(t, users, 2)
	assert.Equal("ada", users[0].Username)
}

func Test_LoginRateLimit(t *testing.T) {
	assert := assert.New(t)
	settings := testSettings()
	settings.LoginRateLimit = 0.001
	settings.LoginRateBurst = 2
	handler := newTestHandler(t, settings)

	login := &apimodel.LoginRequest{Username: "nobody", Password: testPassword}
	for i := 0; i < 2; i++ {
		assert.Equal(http.StatusUnauthorized, call(t, handler, http.MethodPost, "/api/v1/auth/login", "", login).Code)
	}
	w := call(t, handler, http.MethodPost, "/api/v1/auth/login", "", login)
	assert.Equal(http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(w.Header().Get("Retry-After"))

	// other routes are not throttled
	assert.Equal(http.StatusOK, call(t, handler, http.MethodGet, "/api/v1/themes/available", "", nil).Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
