package model

// Theme is a user's display preferences.
type Theme struct {
	ThemeName        string                 `json:"themeName"`
	SidebarCollapsed bool                   `json:"sidebarCollapsed"`
	CustomSettings   map[string]interface{} `json:"customSettings"`
}

// ThemeUpdateRequest changes preferences. Nil fields are left untouched and
// CustomSettings is merged key by key.
type ThemeUpdateRequest struct {
	ThemeName        *string                `json:"themeName"`
	SidebarCollapsed *bool                  `json:"sidebarCollapsed"`
	CustomSettings   map[string]interface{} `json:"customSettings"`
}

// AvailableThemes lists the selectable themes.
type AvailableThemes struct {
	Themes  []string `json:"themes"`
	Default string   `json:"default"`
}
