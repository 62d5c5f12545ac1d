package service

import (
	"context"

	apimodel "github.com/corkboard-io/corkboard/api/model"
	"github.com/corkboard-io/corkboard/internal/model"
	"github.com/pkg/errors"
)

// Themes defines the display preference service interface.
type Themes interface {
	Available(context.Context) *apimodel.AvailableThemes
	Theme(context.Context, *model.Principal) (*apimodel.Theme, error)
	UpdateTheme(context.Context, *model.Principal, *apimodel.ThemeUpdateRequest) (*apimodel.Theme, error)

	Stop()
}

type themesService struct {
	Service
}

// NewThemesService creates a new instance.
func NewThemesService(ctx context.Context, options ...func(*Service) error) (Themes, error) {
	service := &themesService{
		Service: Service{
			name: "corkboard-themes-service",
		},
	}
	if err := service.apply(options); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *themesService) Stop() {
	s.Service.Stop()
}

func (s *themesService) Available(ctx context.Context) *apimodel.AvailableThemes {
	return &apimodel.AvailableThemes{
		Themes:  s.settings.AvailableThemes,
		Default: s.settings.DefaultTheme,
	}
}

// theme returns the stored theme of p, creating the default one on first use.
func (s *themesService) theme(ctx context.Context, p *model.Principal) (*model.UserTheme, error) {
	t, err := model.ThemeByUserID(ctx, s.db, p.ID)
	if err == nil {
		return t, nil
	}
	if err != model.ErrRecordNotFound {
		return nil, errors.Wrap(err, "loading theme")
	}
	t = model.NewUserTheme(p.ID, s.settings.DefaultTheme)
	if err = s.db.Create(t).Error; err != nil {
		return nil, errors.Wrap(err, "inserting default theme")
	}
	return t, nil
}

func themeView(t *model.UserTheme) (*apimodel.Theme, error) {
	settings, err := t.Settings()
	if err != nil {
		return nil, err
	}
	return &apimodel.Theme{
		ThemeName:        t.ThemeName,
		SidebarCollapsed: t.SidebarCollapsed,
		CustomSettings:   settings,
	}, nil
}

func (s *themesService) Theme(ctx context.Context, p *model.Principal) (*apimodel.Theme, error) {
	t, err := s.theme(ctx, p)
	if err != nil {
		return nil, err
	}
	return themeView(t)
}

func (s *themesService) UpdateTheme(ctx context.Context, p *model.Principal, req *apimodel.ThemeUpdateRequest) (*apimodel.Theme, error) {
	if req.ThemeName != nil && !s.settings.ThemeAvailable(*req.ThemeName) {
		return nil, BadRequest("unknown theme %s", *req.ThemeName)
	}
	t, err := s.theme(ctx, p)
	if err != nil {
		return nil, err
	}
	if req.ThemeName != nil {
		t.ThemeName = *req.ThemeName
	}
	if req.SidebarCollapsed != nil {
		t.SidebarCollapsed = *req.SidebarCollapsed
	}
	if len(req.CustomSettings) > 0 {
		if err = t.MergeSettings(req.CustomSettings); err != nil {
			return nil, err
		}
	}
	if err = s.db.Save(t).Error; err != nil {
		return nil, errors.Wrap(err, "saving theme")
	}
	return themeView(t)
}
