package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/corkboard-io/corkboard/internal"
	"github.com/corkboard-io/corkboard/internal/access"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/corkboard-io/corkboard/internal/service"
	"github.com/corkboard-io/corkboard/internal/token"
	"github.com/corkboard-io/corkboard/internal/util"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// APIHandler implements the REST API.
type APIHandler struct {
	Handler

	tokens  *token.Service
	gate    *access.Gate
	limiter *RateLimiter

	auth      service.Auth
	users     service.Users
	menus     service.Menus
	themes    service.Themes
	forum     service.Forum
	dashboard service.Dashboard
}

// NewAPIHandler creates a new REST API endpoint.
func NewAPIHandler(ctx context.Context, options ...func(*Handler) error) (*APIHandler, error) {
	var err error
	handler := &APIHandler{
		Handler: Handler{
			name: "corkboard-http-handler",
		},
	}
	for _, option := range options {
		err := option(&(handler).Handler)
		if err != nil {
			return nil, err
		}
	}
	if handler.db == nil {
		return nil, errors.New("db member is nil")
	}
	if handler.settings == nil {
		return nil, errors.New("settings member is nil")
	}

	principals := model.NewPrincipalStore(handler.db)
	handler.tokens, err = token.New(
		token.OptionSecret(handler.settings.JWTSecretKey),
		token.OptionAlgorithm(handler.settings.JWTAlgorithm),
		token.OptionTTL(handler.settings.AccessTokenTTL(), handler.settings.RefreshTokenTTL()),
		token.OptionPrincipalLookup(principals),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating token service")
	}
	handler.gate = access.NewGate(handler.tokens, principals)

	serviceOptions := append(handler.serviceOptions(), service.OptionTokens(handler.tokens))
	if handler.auth, err = service.NewAuthService(ctx, serviceOptions...); err != nil {
		return nil, err
	}
	if handler.users, err = service.NewUsersService(ctx, serviceOptions...); err != nil {
		return nil, err
	}
	if handler.menus, err = service.NewMenusService(ctx, serviceOptions...); err != nil {
		return nil, err
	}
	if handler.themes, err = service.NewThemesService(ctx, serviceOptions...); err != nil {
		return nil, err
	}
	if handler.forum, err = service.NewForumService(ctx, serviceOptions...); err != nil {
		return nil, err
	}
	if handler.dashboard, err = service.NewDashboardService(ctx, serviceOptions...); err != nil {
		return nil, err
	}
	handler.limiter = NewRateLimiter(handler.settings.LoginRateLimit, handler.settings.LoginRateBurst)
	return handler, nil
}

// Init builds the router.
func (handler *APIHandler) Init() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(ClientContext)

	allowedOrigins := handler.settings.CORSAllowedOrigins
	for _, v := range allowedOrigins {
		if v == "*" {
			log.Warning("cors_allowed_origins configured without restriction (*)")
		}
	}
	cors := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", util.ResultsPage, util.ResultsLimit, util.ResultsTotal, util.ResultsPages, "Retry-After"},
		AllowCredentials: handler.settings.CORSAllowCredentials,
		MaxAge:           300,
	})
	r.Use(cors.Handler)
	r.Use(service.ErrorHandler)

	r.Get("/healthz", healthz)

	authenticated := Authenticated(handler.gate)
	optional := OptionallyAuthenticated(handler.gate)
	adminOnly := RolesOnly(access.AdminOnly)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", handler.getVersion)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handler.register)
			r.With(handler.limiter.Handler).Post("/login", handler.login)
			r.Post("/refresh", handler.refresh)
			r.Group(func(r chi.Router) {
				r.Use(authenticated, ActiveOnly)
				r.Get("/me", handler.me)
				r.Put("/password", handler.changePassword)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authenticated, ActiveOnly)
			r.With(adminOnly).Get("/", handler.listUsers)
			r.Get("/{userID}", handler.getUser)
			r.Put("/{userID}", handler.updateUser)
			r.With(adminOnly).Delete("/{userID}", handler.deleteUser)
			r.Post("/{userID}/deactivate", handler.deactivateUser)
			r.With(adminOnly).Put("/{userID}/role", handler.setRole)
			r.Get("/{userID}/logs", handler.userLogs)
		})

		r.Route("/menus", func(r chi.Router) {
			r.With(optional).Get("/", handler.menuTree)
			r.Group(func(r chi.Router) {
				r.Use(authenticated, ActiveOnly, adminOnly)
				r.Get("/all", handler.allMenus)
				r.Post("/", handler.addMenu)
				r.Post("/init-default", handler.initDefaultMenus)
				r.Put("/{menuID}", handler.updateMenu)
				r.Delete("/{menuID}", handler.deleteMenu)
			})
		})

		r.Route("/themes", func(r chi.Router) {
			r.Get("/available", handler.availableThemes)
			r.Group(func(r chi.Router) {
				r.Use(authenticated, ActiveOnly)
				r.Get("/", handler.getTheme)
				r.Put("/", handler.updateTheme)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/categories", handler.listCategories)
			r.With(authenticated, ActiveOnly, adminOnly).Post("/categories", handler.addCategory)
			r.With(optional).Get("/", handler.listPosts)
			r.With(optional).Get("/{postID}", handler.getPost)
			r.With(optional).Get("/{postID}/comments", handler.listComments)
			r.Group(func(r chi.Router) {
				r.Use(authenticated, ActiveOnly)
				r.Post("/", handler.addPost)
				r.Put("/{postID}", handler.updatePost)
				r.Delete("/{postID}", handler.deletePost)
				r.Post("/{postID}/comments", handler.addComment)
				r.Delete("/comments/{commentID}", handler.deleteComment)
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(authenticated, ActiveOnly)
			r.Get("/", handler.dashboardStats)
			r.With(adminOnly).Get("/admin", handler.adminDashboardStats)
			r.Get("/recent-posts", handler.recentPosts)
			r.With(adminOnly).Get("/recent-users", handler.recentUsers)
		})
	})

	handler.router = r
}

// Stop releases the handles shared by all services.
func (handler *APIHandler) Stop() error {
	handler.limiter.Stop()
	handler.auth.Stop()
	return nil
}

func (handler *APIHandler) getVersion(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(200)
	_, _ = w.Write([]byte(internal.Version()))
}

var baseParams = util.NewStringSet("limit", "size", "page", "search", "orderBy", "orderDirection", "createdBefore", "createdAfter", "since")

var paramRestrictions = map[string]util.StringSet{
	"listUsers": baseParams.Copy().Add("isActive").Add("role"),
	"listPosts": baseParams.Copy().Add("categoryId"),
}

var orderingRestrictions = map[string]util.StringSet{
	"listUsers": util.NewStringSet("id", "username", "email", "createdAt", "lastLogin"),
	"listPosts": util.NewStringSet("createdAt", "viewCount", "title"),
}

// apiParams parses list parameters and checks the ordering fields of the named
// endpoint.
func apiParams(r *http.Request, endpoint string) (*util.APIParams, error) {
	params, err := util.NewAPIParams(r, paramRestrictions[endpoint])
	if err != nil {
		return nil, err
	}
	for _, field := range params.Ordering {
		if !orderingRestrictions[endpoint].Has(field) {
			return nil, errors.Errorf("cannot order by %s", field)
		}
	}
	return params, nil
}

func badRequest(r *http.Request, err error, detail string) {
	service.NewAPIError(http.StatusBadRequest, err, detail).BindHTTPRequest(r)
}

func fail(r *http.Request, err error, detail string) {
	service.ToAPIError(err, detail).BindHTTPRequest(r)
}

// idParam parses a numeric url parameter.
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		badRequest(r, errors.Errorf("invalid %s", name), "")
		return 0, false
	}
	return id, true
}

// decodeBody unmarshals a JSON body, binding a 400 on failure.
func decodeBody(r *http.Request, v interface{}) bool {
	if err := util.DecodeJSONBody(r, v); err != nil {
		badRequest(r, err, "")
		return false
	}
	return true
}

// decodeValues reads a JSON object as update values. Scalars are converted to
// their string form and null to "".
func decodeValues(r *http.Request) (map[string]string, bool) {
	var raw map[string]interface{}
	if !decodeBody(r, &raw) {
		return nil, false
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
			values[k] = ""
		case string:
			values[k] = v
		case bool:
			values[k] = strconv.FormatBool(v)
		case float64:
			values[k] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			badRequest(r, errors.Errorf("field %s must be a scalar", k), "")
			return nil, false
		}
	}
	return values, true
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// limitParam reads an optional integer "limit" query parameter.
func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
