package service

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"sync/atomic"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/menu"
	"github.com/corkboard-io/corkboard/internal/model"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"
)

const menuCacheSize = 64

// Menus defines the navigation menu service interface.
type Menus interface {
	Tree(context.Context, *model.Principal) ([]*menu.View, error)
	All(context.Context) ([]model.Menu, error)
	AddMenu(context.Context, *apimodel.MenuCreateRequest) (*model.Menu, error)
	UpdateMenu(context.Context, int64, map[string]string) (*model.Menu, string, error)
	DeleteMenu(context.Context, int64) error
	InitDefault(context.Context, *model.Principal) ([]*menu.View, error)

	Stop()
}

// MenuSeed is a node of a seed tree. Children inherit nothing from their parent.
type MenuSeed struct {
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	Icon         string     `json:"icon"`
	Order        int        `json:"order"`
	RequiredRole string     `json:"requiredRole"`
	Children     []MenuSeed `json:"children"`
}

// DefaultMenus is seeded by InitDefault when no seed file is configured.
var DefaultMenus = []MenuSeed{
	{Name: "Dashboard", URL: "/dashboard", Icon: "fa-dashboard", Order: 0},
	{Name: "Board", URL: "/posts", Icon: "fa-list", Order: 1},
	{Name: "Profile", URL: "/profile", Icon: "fa-user", Order: 2},
	{Name: "Settings", URL: "/settings", Icon: "fa-cog", Order: 3},
	{Name: "Admin", URL: "/admin", Icon: "fa-shield", Order: 4, RequiredRole: "admin",
		Children: []MenuSeed{
			{Name: "Users", URL: "/admin/users", Icon: "fa-users", Order: 0, RequiredRole: "admin"},
			{Name: "Posts", URL: "/admin/posts", Icon: "fa-file", Order: 1, RequiredRole: "admin"},
			{Name: "Menus", URL: "/admin/menus", Icon: "fa-bars", Order: 2, RequiredRole: "admin"},
		},
	},
}

type menusService struct {
	Service
	cache   *lru.Cache
	version uint64
}

// NewMenusService creates a new instance.
func NewMenusService(ctx context.Context, options ...func(*Service) error) (Menus, error) {
	service := &menusService{
		Service: Service{
			name: "corkboard-menus-service",
		},
	}
	if err := service.apply(options); err != nil {
		return nil, err
	}
	cache, err := lru.New(menuCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating menu cache")
	}
	service.cache = cache
	return service, nil
}

func (s *menusService) Stop() {
	s.Service.Stop()
}

// invalidate moves the tree to a new version. Entries of older versions age out of
// the cache.
func (s *menusService) invalidate() {
	atomic.AddUint64(&s.version, 1)
}

func cacheKey(p *model.Principal, version uint64) string {
	role := "anonymous"
	if p != nil {
		role = string(p.Role)
	}
	return fmt.Sprintf("%s@%d", role, version)
}

func (s *menusService) Tree(ctx context.Context, p *model.Principal) ([]*menu.View, error) {
	// The version is read before loading so a concurrent edit never leaves a stale
	// tree under the current key.
	key := cacheKey(p, atomic.LoadUint64(&s.version))
	if v, ok := s.cache.Get(key); ok {
		return v.([]*menu.View), nil
	}
	nodes, err := model.Menus(ctx, s.db)
	if err != nil {
		return nil, errors.Wrap(err, "loading menus")
	}
	tree := menu.Resolve(nodes, p)
	s.cache.Add(key, tree)
	return tree, nil
}

func (s *menusService) All(ctx context.Context) ([]model.Menu, error) {
	return model.Menus(ctx, s.db)
}

func (s *menusService) parentExists(ctx context.Context, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	_, err := model.MenuByID(ctx, s.db, *parentID)
	if err == model.ErrRecordNotFound {
		return NotFound("parent menu")
	}
	return err
}

func (s *menusService) AddMenu(ctx context.Context, req *apimodel.MenuCreateRequest) (*model.Menu, error) {
	parentID := req.ParentID
	if parentID != nil && *parentID == 0 {
		parentID = nil
	}
	if err := s.parentExists(ctx, parentID); err != nil {
		return nil, err
	}
	m := &model.Menu{
		Name:      req.Name,
		URL:       req.URL,
		Icon:      req.Icon,
		SortOrder: req.Order,
		ParentID:  parentID,
		Active:    true,
	}
	if req.IsActive != nil {
		m.Active = *req.IsActive
	}
	if req.RequiredRole != "" {
		role, err := model.NewRole(req.RequiredRole)
		if err != nil {
			return nil, NewAPIError(http.StatusBadRequest, err, "adding menu")
		}
		m.RequiredRole = role
	}
	if err := s.db.Create(m).Error; err != nil {
		return nil, errors.Wrap(err, "inserting menu")
	}
	s.invalidate()
	return m, nil
}

func (s *menusService) UpdateMenu(ctx context.Context, id int64, values map[string]string) (*model.Menu, string, error) {
	m, err := model.MenuByID(ctx, s.db, id)
	if err != nil {
		return nil, "", err
	}
	diff, err := m.ApplyChanges(values)
	if err != nil {
		return nil, "", NewAPIError(http.StatusBadRequest, err, "updating menu")
	}
	if _, ok := values["parentId"]; ok && m.ParentID != nil {
		if err = s.parentExists(ctx, m.ParentID); err != nil {
			return nil, "", err
		}
		nodes, err := model.Menus(ctx, s.db)
		if err != nil {
			return nil, "", errors.Wrap(err, "loading menus")
		}
		if createsCycle(nodes, m.ID, *m.ParentID) {
			return nil, "", BadRequest("menu cannot be moved below its own descendant")
		}
	}
	if err = s.db.Save(m).Error; err != nil {
		return nil, "", errors.Wrap(err, "saving menu")
	}
	s.invalidate()
	return m, diff, nil
}

// createsCycle reports whether making parentID the parent of id would put id
// among its own ancestors.
func createsCycle(nodes []model.Menu, id, parentID int64) bool {
	parents := make(map[int64]*int64, len(nodes))
	for i := range nodes {
		parents[nodes[i].ID] = nodes[i].ParentID
	}
	current := &parentID
	for steps := 0; current != nil && steps <= len(nodes); steps++ {
		if *current == id {
			return true
		}
		current = parents[*current]
	}
	return false
}

func (s *menusService) DeleteMenu(ctx context.Context, id int64) error {
	if err := model.DeleteMenu(ctx, s.db, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// seeds returns the configured seed tree, falling back to DefaultMenus.
func (s *menusService) seeds() ([]MenuSeed, error) {
	if s.settings.MenuSeedFile == "" {
		return DefaultMenus, nil
	}
	b, err := ioutil.ReadFile(s.settings.MenuSeedFile)
	if err != nil {
		return nil, errors.Wrap(err, "reading menu seed file")
	}
	var seeds []MenuSeed
	if err = yaml.Unmarshal(b, &seeds); err != nil {
		return nil, errors.Wrap(err, "parsing menu seed file")
	}
	return seeds, nil
}

// InitDefault adds the seed tree to the existing menus and returns the tree as
// seen by p.
func (s *menusService) InitDefault(ctx context.Context, p *model.Principal) ([]*menu.View, error) {
	seeds, err := s.seeds()
	if err != nil {
		return nil, err
	}
	count, err := model.MenuCount(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		log.WithField("existing", count).Info("Adding default menus to existing menus")
	}

	tx := s.db.Begin()
	if err = tx.Error; err != nil {
		return nil, errors.Wrap(err, "starting transaction")
	}
	var insert func(seeds []MenuSeed, parentID *int64) error
	insert = func(seeds []MenuSeed, parentID *int64) error {
		for _, seed := range seeds {
			m := &model.Menu{
				Name:      seed.Name,
				URL:       seed.URL,
				Icon:      seed.Icon,
				SortOrder: seed.Order,
				ParentID:  parentID,
				Active:    true,
			}
			if seed.RequiredRole != "" {
				role, err := model.NewRole(seed.RequiredRole)
				if err != nil {
					return errors.Wrapf(err, "seeding menu %s", seed.Name)
				}
				m.RequiredRole = role
			}
			if err := tx.Create(m).Error; err != nil {
				return errors.Wrapf(err, "inserting menu %s", seed.Name)
			}
			id := m.ID
			if err := insert(seed.Children, &id); err != nil {
				return err
			}
		}
		return nil
	}
	if err = insert(seeds, nil); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err = tx.Commit().Error; err != nil {
		return nil, errors.Wrap(err, "committing default menus")
	}
	s.invalidate()
	return s.Tree(ctx, p)
}
